package notify

import (
	"context"
	"encoding/json"
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

// LogSink доставляет уведомления в журнал. Доставка fire-and-forget:
// каждое уведомление разворачивается в человекочитаемую запись по типу.
// Payload, не соответствующий типу, считается ошибкой доставки.
type LogSink struct {
	logger *log.Entry
}

// NewLogSink создаёт sink, пишущий уведомления в журнал.
func NewLogSink(logger *log.Entry) *LogSink {
	if logger == nil {
		logger = log.WithField("component", "notify-log-sink")
	}
	return &LogSink{logger: logger}
}

func (s *LogSink) Deliver(ctx context.Context, notification Notification) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	entry := s.logger.WithFields(log.Fields{
		"kind":         string(notification.Kind),
		"aggregate_id": notification.AggregateID,
	})

	switch notification.Kind {
	case domain.NotificationOrderConfirmed:
		var body struct {
			OrderID   string `json:"order_id"`
			UserID    string `json:"user_id"`
			Total     string `json:"total"`
			ItemCount int    `json:"item_count"`
		}
		if err := decodePayload(notification, &body); err != nil {
			return err
		}
		entry.WithFields(log.Fields{
			"user_id": body.UserID,
			"total":   body.Total,
			"items":   body.ItemCount,
		}).Infof("order %s confirmed", body.OrderID)

	case domain.NotificationOrderStatusChanged, domain.NotificationPaymentStatusChanged:
		var body struct {
			OrderID string `json:"order_id"`
			UserID  string `json:"user_id"`
			From    string `json:"from"`
			To      string `json:"to"`
		}
		if err := decodePayload(notification, &body); err != nil {
			return err
		}
		entry.WithFields(log.Fields{
			"user_id": body.UserID,
			"from":    body.From,
			"to":      body.To,
		}).Infof("order %s moved to %s", body.OrderID, body.To)

	case domain.NotificationLowStock:
		var body struct {
			ProductID   string `json:"product_id"`
			ProductName string `json:"product_name"`
			Stock       int32  `json:"stock"`
		}
		if err := decodePayload(notification, &body); err != nil {
			return err
		}
		entry.WithField("stock", body.Stock).Warnf("product %s is running low", body.ProductName)

	case domain.NotificationNewProduct:
		var body struct {
			ProductID   string `json:"product_id"`
			ProductName string `json:"product_name"`
			Price       string `json:"price"`
			Category    string `json:"category"`
		}
		if err := decodePayload(notification, &body); err != nil {
			return err
		}
		entry.WithFields(log.Fields{
			"price":    body.Price,
			"category": body.Category,
		}).Infof("new product %s in catalog", body.ProductName)

	default:
		return fmt.Errorf("%w: %q", ErrUnknownKind, string(notification.Kind))
	}

	return nil
}

func decodePayload(notification Notification, target any) error {
	if len(notification.Payload) == 0 {
		return fmt.Errorf("notification %s has empty payload", notification.Kind)
	}
	if err := json.Unmarshal(notification.Payload, target); err != nil {
		return fmt.Errorf("decode %s payload: %w", notification.Kind, err)
	}
	return nil
}

var _ Sink = (*LogSink)(nil)
