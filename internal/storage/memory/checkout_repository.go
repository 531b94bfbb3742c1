package memory

import (
	"time"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

// checkoutRepositoryInMemory исполняет оформление заказа под общим мьютексом Store:
// проверка остатков, списание, сохранение заказа и удаление оформленных позиций
// корзины — одна критическая секция, конкурирующие оформления сериализуются целиком.
type checkoutRepositoryInMemory struct {
	store *Store
}

// NewCheckoutRepository возвращает in-memory реализацию CheckoutRepository.
func NewCheckoutRepository(store *Store) domain.CheckoutRepository {
	return &checkoutRepositoryInMemory{store: store}
}

// PlaceOrder атомарно превращает корзину в заказ.
// При первом же товаре с нехваткой остатка операция завершается без каких-либо
// изменений состояния: ни заказа, ни списаний, ни очистки корзины.
func (r *checkoutRepositoryInMemory) PlaceOrder(order domain.Order, lowStockThreshold int32) ([]domain.Product, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if _, exists := r.store.orders[order.ID]; exists {
		return nil, domain.ErrOrderVersionConflict
	}

	// Перепроверяем остатки по текущему состоянию до первой записи.
	for _, item := range order.Items {
		product, ok := r.store.products[item.ProductID]
		if !ok {
			return nil, domain.ErrProductNotFound
		}
		if product.StockQuantity < item.Qty {
			return nil, &domain.InsufficientStockError{
				ProductID:   product.ID,
				ProductName: product.Name,
				Requested:   item.Qty,
				Available:   product.StockQuantity,
			}
		}
	}

	now := time.Now().UTC()
	lowStock := make([]domain.Product, 0)
	for _, item := range order.Items {
		product := r.store.products[item.ProductID]
		product.StockQuantity -= item.Qty
		product.UpdatedAt = now
		r.store.products[item.ProductID] = product
		if product.LowOnStock(lowStockThreshold) {
			lowStock = append(lowStock, product)
		}
	}

	r.store.orders[order.ID] = cloneOrder(order)

	// Из корзины удаляются только оформленные позиции: строка, добавленная
	// конкурентно после снимка корзины, остаётся на месте.
	if cartID, ok := r.store.cartByUser[order.UserID]; ok {
		ordered := make(map[string]struct{}, len(order.Items))
		for _, item := range order.Items {
			ordered[item.ProductID] = struct{}{}
		}
		cart := r.store.carts[cartID]
		remaining := make([]domain.CartItem, 0, len(cart.Items))
		for _, line := range cart.Items {
			if _, ok := ordered[line.ProductID]; !ok {
				remaining = append(remaining, line)
			}
		}
		cart.Items = remaining
		r.store.carts[cartID] = cart
	}

	return lowStock, nil
}

var _ domain.CheckoutRepository = (*checkoutRepositoryInMemory)(nil)
