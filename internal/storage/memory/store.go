package memory

import (
	"sync"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

// Store — общее in-memory состояние магазина для локальной разработки и тестов.
// Один мьютекс на все сущности: оформление заказа мутирует товары, заказ и
// корзину как единое целое, поэтому репозитории делят состояние, а не копят своё.
type Store struct {
	mu         sync.RWMutex
	products   map[string]domain.Product
	carts      map[string]domain.Cart
	cartByUser map[string]string
	orders     map[string]domain.Order
	reviews    map[string]domain.Review
}

// NewStore создаёт пустое in-memory хранилище.
func NewStore() *Store {
	return &Store{
		products:   make(map[string]domain.Product),
		carts:      make(map[string]domain.Cart),
		cartByUser: make(map[string]string),
		orders:     make(map[string]domain.Order),
		reviews:    make(map[string]domain.Review),
	}
}

// cloneCart возвращает копию корзины с отвязанным слайсом позиций.
func cloneCart(c domain.Cart) domain.Cart {
	out := c
	out.Items = append([]domain.CartItem(nil), c.Items...)
	return out
}

// cloneOrder возвращает копию заказа с отвязанным слайсом позиций.
func cloneOrder(o domain.Order) domain.Order {
	out := o
	out.Items = append([]domain.OrderItem(nil), o.Items...)
	return out
}

// productRatings собирает оценки всех отзывов товара. Вызывается под мьютексом.
func (s *Store) productRatings(productID string) []int32 {
	ratings := make([]int32, 0)
	for _, review := range s.reviews {
		if review.ProductID == productID {
			ratings = append(ratings, review.Rating)
		}
	}
	return ratings
}

// applyRatingAggregate пересчитывает и записывает сводку рейтинга на товар.
// Вызывается под мьютексом в той же критической секции, что и мутация отзыва.
func (s *Store) applyRatingAggregate(productID string) domain.RatingAggregate {
	agg := domain.AggregateRatings(s.productRatings(productID))
	product, ok := s.products[productID]
	if !ok {
		return agg
	}
	product.AverageRating = agg.Average
	product.ReviewCount = agg.Count
	s.products[productID] = product
	return agg
}
