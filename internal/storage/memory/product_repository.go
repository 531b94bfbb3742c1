package memory

import (
	"sort"
	"time"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

// productRepositoryInMemory — реализация ProductRepository поверх общего Store.
type productRepositoryInMemory struct {
	store *Store
}

// NewProductRepository возвращает in-memory репозиторий каталога.
func NewProductRepository(store *Store) domain.ProductRepository {
	return &productRepositoryInMemory{store: store}
}

// Create сохраняет новый товар, если ID ещё не занят.
func (r *productRepositoryInMemory) Create(product domain.Product) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if _, exists := r.store.products[product.ID]; exists {
		return domain.ErrProductExists
	}
	r.store.products[product.ID] = product
	return nil
}

// Get возвращает товар или ErrProductNotFound, если его нет.
func (r *productRepositoryInMemory) Get(id string) (domain.Product, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	product, ok := r.store.products[id]
	if !ok {
		return domain.Product{}, domain.ErrProductNotFound
	}
	return product, nil
}

// List возвращает товары каталога, отсортированные по времени создания.
func (r *productRepositoryInMemory) List(onlyActive bool) ([]domain.Product, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	result := make([]domain.Product, 0, len(r.store.products))
	for _, product := range r.store.products {
		if onlyActive && !product.IsActive {
			continue
		}
		result = append(result, product)
	}

	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.Before(result[j].CreatedAt)
		}
		return result[i].ID < result[j].ID
	})

	return result, nil
}

// Save перезаписывает атрибуты товара, не трогая остаток и агрегат рейтинга.
func (r *productRepositoryInMemory) Save(product domain.Product) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	current, ok := r.store.products[product.ID]
	if !ok {
		return domain.ErrProductNotFound
	}
	// Остаток меняет только checkout/дозакупка, агрегат — только отзывы.
	product.StockQuantity = current.StockQuantity
	product.AverageRating = current.AverageRating
	product.ReviewCount = current.ReviewCount
	product.CreatedAt = current.CreatedAt
	product.UpdatedAt = time.Now().UTC()
	r.store.products[product.ID] = product
	return nil
}

// AddStock атомарно увеличивает остаток товара.
func (r *productRepositoryInMemory) AddStock(id string, qty int32) (domain.Product, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	product, ok := r.store.products[id]
	if !ok {
		return domain.Product{}, domain.ErrProductNotFound
	}
	if qty <= 0 {
		return domain.Product{}, domain.ErrItemQtyInvalid
	}
	product.StockQuantity += qty
	product.UpdatedAt = time.Now().UTC()
	r.store.products[id] = product
	return product, nil
}

var _ domain.ProductRepository = (*productRepositoryInMemory)(nil)
