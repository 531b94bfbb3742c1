package domain

import "time"

// NotificationKind классифицирует исходящие уведомления магазина.
type NotificationKind string

const (
	NotificationOrderConfirmed       NotificationKind = "order.confirmed"
	NotificationOrderStatusChanged   NotificationKind = "order.status_changed"
	NotificationPaymentStatusChanged NotificationKind = "order.payment_status_changed"
	NotificationLowStock             NotificationKind = "inventory.low_stock"
	NotificationNewProduct           NotificationKind = "catalog.new_product"
)

// Known сообщает, относится ли значение к уведомлениям, которые магазин отправляет.
func (k NotificationKind) Known() bool {
	switch k {
	case NotificationOrderConfirmed,
		NotificationOrderStatusChanged,
		NotificationPaymentStatusChanged,
		NotificationLowStock,
		NotificationNewProduct:
		return true
	}
	return false
}

// OutboxMessage хранит данные для публикуемого уведомления.
// Доставка best-effort: ошибка публикации никогда не откатывает владеющую операцию.
type OutboxMessage struct {
	ID            string
	AggregateType string
	AggregateID   string
	EventType     string
	Payload       []byte
}

// OutboxStats описывает текущее состояние backlog transactional outbox.
type OutboxStats struct {
	PendingCount    int
	OldestPendingAt time.Time
}

// OutboxPublisher публикует события из transactional outbox.
type OutboxPublisher interface {
	// Publish передаёт событие наружу; должен быть идемпотентным.
	Publish(event OutboxMessage) error
}

// DeadLetter описывает уведомление, доставить которое не удалось:
// либо outbox worker исчерпал попытки публикации, либо consumer
// исчерпал попытки обработки.
type DeadLetter struct {
	Notification OutboxMessage
	Source       string
	Reason       string
	RetryCount   int
	FailedAt     time.Time
}

// DeadLetterPublisher уводит недоставленные уведомления в отдельную очередь
// для последующего разбора и повторной доставки.
type DeadLetterPublisher interface {
	PublishDeadLetter(letter DeadLetter) error
}

// OutboxRepository позволяет сохранять события для последующей публикации.
type OutboxRepository interface {
	Enqueue(msg OutboxMessage) (OutboxMessage, error)
	PullPending(limit int) ([]OutboxMessage, error)
	Stats() (OutboxStats, error)
	MarkSent(id string) error
	MarkFailed(id string) error
}

// TimelineRepository хранит события жизненного цикла заказа.
type TimelineRepository interface {
	Append(event TimelineEvent) error
	List(orderID string) ([]TimelineEvent, error)
}

// IdempotencyRepository хранит состояние обработки запросов по idempotency-key.
type IdempotencyRepository interface {
	CreateProcessing(key, requestHash string, ttlAt time.Time) (IdempotencyRecord, error)
	Get(key string) (IdempotencyRecord, error)
	MarkDone(key string, responseBody []byte, httpStatus int) error
	MarkFailed(key string, responseBody []byte, httpStatus int) error
	DeleteExpired(before time.Time, limit int) (int, error)
	// CountExpired возвращает число записей с ttl <= before, ещё не удалённых.
	CountExpired(before time.Time) (int, error)
}
