package order

import (
	"encoding/json"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
	"github.com/vladislavdragonenkov/storefront/internal/metrics"
)

// Service реализует чтение заказов и административную смену статусов.
// Заказ после создания неизменяем, кроме статусных осей.
type Service struct {
	orders   domain.OrderRepository
	outbox   domain.OutboxRepository
	timeline domain.TimelineRepository
	logger   *log.Entry
	metrics  *metrics.StoreMetrics
}

// NewService создаёт сервис заказов.
func NewService(
	orders domain.OrderRepository,
	outbox domain.OutboxRepository,
	timeline domain.TimelineRepository,
	logger *log.Entry,
	m *metrics.StoreMetrics,
) *Service {
	if logger == nil {
		logger = log.WithField("component", "order-service")
	}
	return &Service{
		orders:   orders,
		outbox:   outbox,
		timeline: timeline,
		logger:   logger,
		metrics:  m,
	}
}

// Get возвращает заказ владельцу или администратору.
// Чужой заказ отдаёт ErrForbidden, а не ErrOrderNotFound: заказ существует,
// но субъект не вправе его читать.
func (s *Service) Get(principal domain.Principal, orderID string) (domain.Order, error) {
	order, err := s.orders.Get(orderID)
	if err != nil {
		return domain.Order{}, err
	}
	if !principal.CanAccessOrder(order) {
		return domain.Order{}, domain.ErrForbidden
	}
	return order, nil
}

// ListForUser возвращает заказы субъекта по убыванию времени создания.
func (s *Service) ListForUser(principal domain.Principal, limit int) ([]domain.Order, error) {
	return s.orders.ListByUser(principal.UserID, limit)
}

// ListAll возвращает все заказы; доступно только администратору.
func (s *Service) ListAll(principal domain.Principal, limit int) ([]domain.Order, error) {
	if !principal.IsAdmin() {
		return nil, domain.ErrForbidden
	}
	return s.orders.ListAll(limit)
}

// Timeline возвращает историю событий заказа владельцу или администратору.
func (s *Service) Timeline(principal domain.Principal, orderID string) ([]domain.TimelineEvent, error) {
	order, err := s.orders.Get(orderID)
	if err != nil {
		return nil, err
	}
	if !principal.CanAccessOrder(order) {
		return nil, domain.ErrForbidden
	}
	if s.timeline == nil {
		return []domain.TimelineEvent{}, nil
	}
	return s.timeline.List(order.ID)
}

// SetStatus выставляет статус исполнения заказа. Только администратор.
// Проверяется принадлежность значения множеству статусов; граф переходов
// намеренно не ограничивается.
func (s *Service) SetStatus(principal domain.Principal, orderID string, status domain.OrderStatus) (domain.Order, error) {
	if !principal.IsAdmin() {
		return domain.Order{}, domain.ErrForbidden
	}
	if !status.Valid() {
		return domain.Order{}, domain.ErrOrderStatusInvalid
	}

	order, err := s.orders.Get(orderID)
	if err != nil {
		return domain.Order{}, err
	}

	previous := order.Status
	order.Status = status
	if err := s.saveOrder(order); err != nil {
		return domain.Order{}, err
	}

	s.logger.WithFields(log.Fields{
		"order_id": order.ID,
		"from":     string(previous),
		"to":       string(status),
	}).Info("order status changed")

	s.appendTimeline(order.ID, "order.status_changed", string(previous)+" -> "+string(status))
	s.notifyStatusChanged(order, domain.NotificationOrderStatusChanged, string(previous), string(status))

	return s.orders.Get(orderID)
}

// SetPaymentStatus выставляет статус оплаты заказа. Только администратор.
func (s *Service) SetPaymentStatus(principal domain.Principal, orderID string, status domain.PaymentStatus) (domain.Order, error) {
	if !principal.IsAdmin() {
		return domain.Order{}, domain.ErrForbidden
	}
	if !status.Valid() {
		return domain.Order{}, domain.ErrPaymentStatusInvalid
	}

	order, err := s.orders.Get(orderID)
	if err != nil {
		return domain.Order{}, err
	}

	previous := order.PaymentStatus
	order.PaymentStatus = status
	if err := s.saveOrder(order); err != nil {
		return domain.Order{}, err
	}

	s.logger.WithFields(log.Fields{
		"order_id": order.ID,
		"from":     string(previous),
		"to":       string(status),
	}).Info("order payment status changed")

	s.appendTimeline(order.ID, "order.payment_status_changed", string(previous)+" -> "+string(status))
	s.notifyStatusChanged(order, domain.NotificationPaymentStatusChanged, string(previous), string(status))

	return s.orders.Get(orderID)
}

// saveOrder сохраняет статусные поля заказа, фиксируя время операции хранилища.
func (s *Service) saveOrder(order domain.Order) error {
	start := time.Now()
	err := s.orders.Save(order)
	if s.metrics != nil {
		s.metrics.RecordRepositoryDuration("order.save", time.Since(start))
	}
	return err
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

// notifyStatusChanged кладёт уведомление о смене статуса в outbox.
// Ошибка логируется и не откатывает уже сохранённый статус.
func (s *Service) notifyStatusChanged(order domain.Order, kind domain.NotificationKind, from, to string) {
	if s.outbox == nil {
		return
	}

	payload, err := json.Marshal(map[string]any{
		"order_id": order.ID,
		"user_id":  order.UserID,
		"from":     from,
		"to":       to,
	})
	if err != nil {
		s.logger.WithError(err).WithField("order_id", order.ID).Warn("failed to marshal status notification")
		return
	}

	msg := domain.OutboxMessage{
		AggregateType: "order",
		AggregateID:   order.ID,
		EventType:     string(kind),
		Payload:       payload,
	}
	if _, err := s.outbox.Enqueue(msg); err != nil {
		s.logger.WithError(err).WithFields(log.Fields{
			"order_id":   order.ID,
			"event_type": msg.EventType,
		}).Warn("failed to enqueue notification")
		return
	}
	if s.metrics != nil {
		s.metrics.RecordOutboxEvent()
	}
}
