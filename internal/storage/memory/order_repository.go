package memory

import (
	"sort"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

// orderRepositoryInMemory — реализация OrderRepository поверх общего Store.
// Заказы создаются только через CheckoutRepository; здесь — чтение и статусы.
type orderRepositoryInMemory struct {
	store *Store
}

// NewOrderRepository возвращает in-memory репозиторий заказов.
func NewOrderRepository(store *Store) domain.OrderRepository {
	return &orderRepositoryInMemory{store: store}
}

// Get возвращает заказ или ErrOrderNotFound, если его нет.
func (r *orderRepositoryInMemory) Get(id string) (domain.Order, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	order, ok := r.store.orders[id]
	if !ok {
		return domain.Order{}, domain.ErrOrderNotFound
	}
	return cloneOrder(order), nil
}

// ListByUser возвращает заказы пользователя по убыванию времени создания.
func (r *orderRepositoryInMemory) ListByUser(userID string, limit int) ([]domain.Order, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	result := make([]domain.Order, 0)
	for _, order := range r.store.orders {
		if order.UserID != userID {
			continue
		}
		result = append(result, cloneOrder(order))
	}
	sortOrdersDesc(result)

	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

// ListAll возвращает все заказы по убыванию времени создания.
func (r *orderRepositoryInMemory) ListAll(limit int) ([]domain.Order, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	result := make([]domain.Order, 0, len(r.store.orders))
	for _, order := range r.store.orders {
		result = append(result, cloneOrder(order))
	}
	sortOrdersDesc(result)

	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

// Save перезаписывает заказ, проверяя версию (optimistic locking).
func (r *orderRepositoryInMemory) Save(order domain.Order) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	current, ok := r.store.orders[order.ID]
	if !ok {
		return domain.ErrOrderNotFound
	}
	if current.Version != order.Version {
		return domain.ErrOrderVersionConflict
	}
	// Позиции и сумма после создания неизменны: переносим статусные поля.
	current.Status = order.Status
	current.PaymentStatus = order.PaymentStatus
	current.UpdatedAt = order.UpdatedAt
	current.Version++
	r.store.orders[order.ID] = current
	return nil
}

func sortOrdersDesc(orders []domain.Order) {
	sort.Slice(orders, func(i, j int) bool {
		if !orders[i].CreatedAt.Equal(orders[j].CreatedAt) {
			return orders[i].CreatedAt.After(orders[j].CreatedAt)
		}
		return orders[i].ID > orders[j].ID
	})
}

var _ domain.OrderRepository = (*orderRepositoryInMemory)(nil)
