package cart

import (
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

// Service реализует операции над корзиной пользователя.
// Каждая мутирующая операция возвращает пересчитанное представление корзины.
type Service struct {
	carts    domain.CartRepository
	products domain.ProductRepository
	logger   *log.Entry
}

// NewService создаёт сервис корзины.
func NewService(carts domain.CartRepository, products domain.ProductRepository, logger *log.Entry) *Service {
	if logger == nil {
		logger = log.WithField("component", "cart-service")
	}
	return &Service{
		carts:    carts,
		products: products,
		logger:   logger,
	}
}

// Get возвращает представление корзины пользователя, создавая корзину
// при первом обращении.
func (s *Service) Get(principal domain.Principal) (domain.CartView, error) {
	cart, err := s.carts.GetOrCreate(principal.UserID)
	if err != nil {
		return domain.CartView{}, err
	}
	return cart.View(), nil
}

// AddItem добавляет товар в корзину. Повторное добавление того же товара
// суммируется с уже лежащим количеством. Запрошенное количество сверяется
// с остатком за вычетом уже зарезервированного корзиной.
func (s *Service) AddItem(principal domain.Principal, productID string, qty int32) (domain.CartView, error) {
	if qty <= 0 {
		return domain.CartView{}, domain.ErrItemQtyInvalid
	}

	product, err := s.products.Get(productID)
	if err != nil {
		return domain.CartView{}, err
	}

	cart, err := s.carts.GetOrCreate(principal.UserID)
	if err != nil {
		return domain.CartView{}, err
	}

	newQty := qty
	existing, ok := cart.Item(productID)
	if ok {
		newQty += existing.Quantity
	}

	if newQty > product.StockQuantity {
		// Available — то, что ещё можно добавить сверх лежащего в корзине.
		available := product.StockQuantity - (newQty - qty)
		if available < 0 {
			available = 0
		}
		return domain.CartView{}, &domain.InsufficientStockError{
			ProductID:   product.ID,
			ProductName: product.Name,
			Requested:   qty,
			Available:   available,
		}
	}

	item := domain.CartItem{
		CartID:      cart.ID,
		ProductID:   product.ID,
		ProductName: product.Name,
		Quantity:    newQty,
		UnitPrice:   product.Price,
		CreatedAt:   time.Now().UTC(),
	}
	if ok {
		item.ID = existing.ID
		item.UnitPrice = existing.UnitPrice
		item.CreatedAt = existing.CreatedAt
	} else {
		item.ID = uuid.NewString()
	}

	if err := s.carts.UpsertItem(item); err != nil {
		return domain.CartView{}, err
	}

	s.logger.WithFields(log.Fields{
		"user_id":    principal.UserID,
		"product_id": productID,
		"qty":        newQty,
	}).Debug("cart item upserted")

	return s.Get(principal)
}

// SetItemQuantity выставляет количество позиции. Нулевое или отрицательное
// количество удаляет позицию из корзины.
func (s *Service) SetItemQuantity(principal domain.Principal, productID string, qty int32) (domain.CartView, error) {
	cart, err := s.carts.GetOrCreate(principal.UserID)
	if err != nil {
		return domain.CartView{}, err
	}

	if qty <= 0 {
		if err := s.carts.RemoveItem(cart.ID, productID); err != nil {
			return domain.CartView{}, err
		}
		return s.Get(principal)
	}

	existing, ok := cart.Item(productID)
	if !ok {
		return domain.CartView{}, domain.ErrCartItemNotFound
	}

	product, err := s.products.Get(productID)
	if err != nil {
		return domain.CartView{}, err
	}
	if qty > product.StockQuantity {
		return domain.CartView{}, &domain.InsufficientStockError{
			ProductID:   product.ID,
			ProductName: product.Name,
			Requested:   qty,
			Available:   product.StockQuantity,
		}
	}

	existing.Quantity = qty
	if err := s.carts.UpsertItem(existing); err != nil {
		return domain.CartView{}, err
	}

	return s.Get(principal)
}

// RemoveItem удаляет позицию из корзины.
func (s *Service) RemoveItem(principal domain.Principal, productID string) (domain.CartView, error) {
	cart, err := s.carts.GetOrCreate(principal.UserID)
	if err != nil {
		return domain.CartView{}, err
	}
	if err := s.carts.RemoveItem(cart.ID, productID); err != nil {
		return domain.CartView{}, err
	}
	return s.Get(principal)
}

// Clear опустошает корзину; операция идемпотентна.
func (s *Service) Clear(principal domain.Principal) (domain.CartView, error) {
	cart, err := s.carts.GetOrCreate(principal.UserID)
	if err != nil {
		return domain.CartView{}, err
	}
	if err := s.carts.Clear(cart.ID); err != nil {
		return domain.CartView{}, err
	}
	return s.Get(principal)
}
