package notify

import (
	"context"
	"encoding/json"
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

// ErrUnknownKind возвращается для уведомления, тип которого магазин не отправляет.
var ErrUnknownKind = fmt.Errorf("unknown notification kind")

// Notification — уведомление, прошедшее транспортный слой и готовое к доставке.
type Notification struct {
	Kind          domain.NotificationKind
	AggregateType string
	AggregateID   string
	Payload       json.RawMessage
}

// Sink доставляет уведомление получателю: почта, мессенджер, журнал.
type Sink interface {
	Deliver(ctx context.Context, notification Notification) error
}

// Dispatcher проверяет тип уведомления и передаёт его в sink.
// Ошибка доставки возвращается наверх: транспорт повторит доставку
// и при исчерпании попыток уведёт сообщение в DLQ.
type Dispatcher struct {
	sink   Sink
	logger *log.Entry
}

// NewDispatcher создаёт диспетчер уведомлений.
func NewDispatcher(sink Sink, logger *log.Entry) *Dispatcher {
	if logger == nil {
		logger = log.WithField("component", "notify-dispatcher")
	}
	return &Dispatcher{sink: sink, logger: logger}
}

// Dispatch доставляет одно уведомление.
func (d *Dispatcher) Dispatch(ctx context.Context, notification Notification) error {
	if !notification.Kind.Known() {
		return fmt.Errorf("%w: %q", ErrUnknownKind, string(notification.Kind))
	}
	if d.sink == nil {
		return fmt.Errorf("notification sink is not configured")
	}

	if err := d.sink.Deliver(ctx, notification); err != nil {
		return fmt.Errorf("deliver %s: %w", notification.Kind, err)
	}

	d.logger.WithFields(log.Fields{
		"kind":         string(notification.Kind),
		"aggregate_id": notification.AggregateID,
	}).Debug("notification delivered")
	return nil
}
