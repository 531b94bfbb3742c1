package memory

import (
	"time"

	"github.com/google/uuid"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

// cartRepositoryInMemory — реализация CartRepository поверх общего Store.
type cartRepositoryInMemory struct {
	store *Store
}

// NewCartRepository возвращает in-memory репозиторий корзин.
func NewCartRepository(store *Store) domain.CartRepository {
	return &cartRepositoryInMemory{store: store}
}

// GetOrCreate возвращает корзину пользователя, создавая её при первом обращении.
// Создание и проверка существования выполняются под одной блокировкой,
// поэтому у пользователя не может появиться двух корзин.
func (r *cartRepositoryInMemory) GetOrCreate(userID string) (domain.Cart, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if cartID, ok := r.store.cartByUser[userID]; ok {
		return cloneCart(r.store.carts[cartID]), nil
	}

	cart := domain.Cart{
		ID:        uuid.NewString(),
		UserID:    userID,
		Items:     nil,
		CreatedAt: time.Now().UTC(),
	}
	r.store.carts[cart.ID] = cart
	r.store.cartByUser[userID] = cart.ID
	return cloneCart(cart), nil
}

// UpsertItem вставляет позицию либо перезаписывает количество существующей
// позиции той же пары (cart, product); двух строк на один товар не бывает.
func (r *cartRepositoryInMemory) UpsertItem(item domain.CartItem) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	cart, ok := r.store.carts[item.CartID]
	if !ok {
		return domain.ErrCartItemNotFound
	}

	for i := range cart.Items {
		if cart.Items[i].ProductID == item.ProductID {
			// Снимок цены и момент добавления сохраняются от исходной позиции.
			cart.Items[i].Quantity = item.Quantity
			r.store.carts[cart.ID] = cart
			return nil
		}
	}

	if item.ID == "" {
		item.ID = uuid.NewString()
	}
	if item.CreatedAt.IsZero() {
		item.CreatedAt = time.Now().UTC()
	}
	cart.Items = append(cart.Items, item)
	r.store.carts[cart.ID] = cart
	return nil
}

// RemoveItem удаляет позицию; ErrCartItemNotFound, если её нет.
func (r *cartRepositoryInMemory) RemoveItem(cartID, productID string) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	cart, ok := r.store.carts[cartID]
	if !ok {
		return domain.ErrCartItemNotFound
	}

	for i := range cart.Items {
		if cart.Items[i].ProductID == productID {
			cart.Items = append(cart.Items[:i], cart.Items[i+1:]...)
			r.store.carts[cartID] = cart
			return nil
		}
	}
	return domain.ErrCartItemNotFound
}

// Clear удаляет все позиции корзины; повторный вызов безвреден.
func (r *cartRepositoryInMemory) Clear(cartID string) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	cart, ok := r.store.carts[cartID]
	if !ok {
		return nil
	}
	cart.Items = nil
	r.store.carts[cartID] = cart
	return nil
}

var _ domain.CartRepository = (*cartRepositoryInMemory)(nil)
