package checkout

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
	"github.com/vladislavdragonenkov/storefront/internal/metrics"
)

// DefaultLowStockThreshold — порог остатка, при котором уходит уведомление о дозакупке.
const DefaultLowStockThreshold = 10

// Service реализует оформление заказа из корзины.
// Списание остатков, запись заказа и очистка корзины выполняются одной
// транзакцией хранилища; уведомления и timeline идут best-effort после неё.
type Service struct {
	carts             domain.CartRepository
	checkout          domain.CheckoutRepository
	outbox            domain.OutboxRepository
	timeline          domain.TimelineRepository
	logger            *log.Entry
	metrics           *metrics.StoreMetrics
	lowStockThreshold int32
}

// Option настраивает Service.
type Option func(*Service)

// WithLowStockThreshold задаёт порог уведомления о низком остатке.
func WithLowStockThreshold(threshold int32) Option {
	return func(s *Service) {
		if threshold >= 0 {
			s.lowStockThreshold = threshold
		}
	}
}

// WithMetrics задаёт метрики оформления заказа.
func WithMetrics(m *metrics.StoreMetrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// NewService создаёт сервис оформления заказа.
func NewService(
	carts domain.CartRepository,
	checkout domain.CheckoutRepository,
	outbox domain.OutboxRepository,
	timeline domain.TimelineRepository,
	logger *log.Entry,
	options ...Option,
) *Service {
	if logger == nil {
		logger = log.WithField("component", "checkout-service")
	}
	s := &Service{
		carts:             carts,
		checkout:          checkout,
		outbox:            outbox,
		timeline:          timeline,
		logger:            logger,
		lowStockThreshold: DefaultLowStockThreshold,
	}
	for _, option := range options {
		option(s)
	}
	return s
}

// PlaceOrder превращает корзину пользователя в заказ.
// Пустая корзина отклоняется до каких-либо записей. Частичных заказов не бывает:
// первый товар с нехваткой остатка откатывает всю операцию.
func (s *Service) PlaceOrder(principal domain.Principal, shippingAddress string) (domain.Order, error) {
	start := time.Now()
	if s.metrics != nil {
		s.metrics.RecordCheckoutStarted()
	}
	defer func() {
		if s.metrics != nil {
			s.metrics.RecordCheckoutFinished()
			s.metrics.RecordCheckoutDuration(time.Since(start))
		}
	}()

	if shippingAddress == "" {
		s.reject("bad_request")
		return domain.Order{}, domain.ErrShippingAddressRequired
	}

	cart, err := s.carts.GetOrCreate(principal.UserID)
	if err != nil {
		s.reject("storage_error")
		return domain.Order{}, err
	}
	if cart.IsEmpty() {
		s.reject("empty_cart")
		return domain.Order{}, domain.ErrEmptyCart
	}

	order := buildOrder(principal.UserID, shippingAddress, cart)

	repoStart := time.Now()
	lowStock, err := s.checkout.PlaceOrder(order, s.lowStockThreshold)
	if s.metrics != nil {
		s.metrics.RecordRepositoryDuration("checkout.place_order", time.Since(repoStart))
	}
	if err != nil {
		if domain.IsInsufficientStock(err) {
			s.reject("insufficient_stock")
		} else {
			s.reject("storage_error")
		}
		return domain.Order{}, err
	}

	if s.metrics != nil {
		s.metrics.RecordCheckoutCompleted()
	}
	s.logger.WithFields(log.Fields{
		"order_id": order.ID,
		"user_id":  order.UserID,
		"total":    order.TotalAmount.String(),
		"items":    len(order.Items),
	}).Info("order placed")

	s.appendTimeline(order.ID, "order.created", "")
	s.notifyOrderConfirmed(order)
	for _, product := range lowStock {
		s.notifyLowStock(product)
	}

	return order, nil
}

// buildOrder собирает заказ из снимка корзины: позиции копируют количество
// и зафиксированную цену, сумма считается точной десятичной арифметикой.
func buildOrder(userID, shippingAddress string, cart domain.Cart) domain.Order {
	now := time.Now().UTC()
	orderID := uuid.NewString()

	items := make([]domain.OrderItem, 0, len(cart.Items))
	total := decimal.Zero
	for _, line := range cart.Items {
		item := domain.OrderItem{
			ID:          uuid.NewString(),
			OrderID:     orderID,
			ProductID:   line.ProductID,
			ProductName: line.ProductName,
			Qty:         line.Quantity,
			UnitPrice:   line.UnitPrice,
			CreatedAt:   now,
		}
		items = append(items, item)
		total = total.Add(item.Subtotal())
	}

	return domain.Order{
		ID:              orderID,
		UserID:          userID,
		Status:          domain.OrderStatusPending,
		PaymentStatus:   domain.PaymentStatusPending,
		TotalAmount:     total,
		ShippingAddress: shippingAddress,
		Items:           items,
		Version:         1,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

func (s *Service) reject(reason string) {
	if s.metrics != nil {
		s.metrics.RecordCheckoutRejected(reason)
	}
}

func (s *Service) appendTimeline(orderID, eventType, reason string) {
	if s.timeline == nil {
		return
	}
	err := s.timeline.Append(domain.TimelineEvent{
		OrderID:  orderID,
		Type:     eventType,
		Reason:   reason,
		Occurred: time.Now().UTC(),
	})
	if err != nil {
		s.logger.WithError(err).WithField("order_id", orderID).Warn("failed to append timeline event")
		return
	}
	if s.metrics != nil {
		s.metrics.RecordTimelineEvent()
	}
}

func (s *Service) notifyOrderConfirmed(order domain.Order) {
	payload, err := json.Marshal(map[string]any{
		"order_id":   order.ID,
		"user_id":    order.UserID,
		"total":      order.TotalAmount.String(),
		"item_count": len(order.Items),
		"created_at": order.CreatedAt.Format(time.RFC3339Nano),
	})
	if err != nil {
		s.logger.WithError(err).WithField("order_id", order.ID).Warn("failed to marshal order notification")
		return
	}
	s.enqueue(domain.OutboxMessage{
		AggregateType: "order",
		AggregateID:   order.ID,
		EventType:     string(domain.NotificationOrderConfirmed),
		Payload:       payload,
	})
}

func (s *Service) notifyLowStock(product domain.Product) {
	payload, err := json.Marshal(map[string]any{
		"product_id":   product.ID,
		"product_name": product.Name,
		"stock":        product.StockQuantity,
	})
	if err != nil {
		s.logger.WithError(err).WithField("product_id", product.ID).Warn("failed to marshal low stock notification")
		return
	}
	s.enqueue(domain.OutboxMessage{
		AggregateType: "product",
		AggregateID:   product.ID,
		EventType:     string(domain.NotificationLowStock),
		Payload:       payload,
	})
}

// enqueue кладёт уведомление в outbox. Ошибка логируется и не влияет
// на результат оформления заказа.
func (s *Service) enqueue(msg domain.OutboxMessage) {
	if s.outbox == nil {
		return
	}
	if _, err := s.outbox.Enqueue(msg); err != nil {
		s.logger.WithError(err).WithFields(log.Fields{
			"aggregate_id": msg.AggregateID,
			"event_type":   msg.EventType,
		}).Warn("failed to enqueue notification")
		return
	}
	if s.metrics != nil {
		s.metrics.RecordOutboxEvent()
	}
}
