package kafka

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/IBM/sarama"
)

// Topics для Kafka
const (
	// TopicNotifications — основной поток уведомлений магазина:
	// подтверждения заказов, смены статусов, низкие остатки, новинки каталога.
	TopicNotifications = "store.notifications"
	// TopicDeadLetterQueue — очередь сообщений, которые не удалось обработать.
	TopicDeadLetterQueue = "store.notifications.dlq"
)

// Kafka headers для retry логики
const (
	HeaderRetryCount    = "x-retry-count"
	HeaderOriginalTopic = "x-original-topic"
	HeaderErrorMessage  = "x-error-message"
	HeaderFailedAt      = "x-failed-at"
)

// NotificationEnvelope — формат сообщения в топике уведомлений.
// Payload зависит от EventType и передаётся как есть из outbox.
type NotificationEnvelope struct {
	ID            string          `json:"id"`
	AggregateType string          `json:"aggregate_type"`
	AggregateID   string          `json:"aggregate_id"`
	EventType     string          `json:"event_type"`
	Payload       json.RawMessage `json:"payload"`
	PublishedAt   time.Time       `json:"published_at"`
}

// ParseNotification парсит NotificationEnvelope из сообщения.
func ParseNotification(message *sarama.ConsumerMessage) (*NotificationEnvelope, error) {
	var envelope NotificationEnvelope
	if err := json.Unmarshal(message.Value, &envelope); err != nil {
		return nil, fmt.Errorf("failed to unmarshal notification: %w", err)
	}
	return &envelope, nil
}

// Источники сообщений в DLQ-топике.
const (
	DeadLetterSourceOutbox   = "outbox-worker"
	DeadLetterSourceConsumer = "notification-consumer"
)

// DeadLetterRecord — единый формат сообщения в DLQ-топике. Его пишут outbox
// worker (брокер недоступен) и consumer уведомлений (обработка не удалась),
// а dlq-reprocess читает при повторной доставке.
type DeadLetterRecord struct {
	ID            string          `json:"id"`
	AggregateType string          `json:"aggregate_type"`
	AggregateID   string          `json:"aggregate_id"`
	EventType     string          `json:"event_type"`
	Payload       json.RawMessage `json:"payload"`
	Source        string          `json:"source"`
	ErrorMessage  string          `json:"error_message"`
	RetryCount    int             `json:"retry_count"`
	FailedAt      time.Time       `json:"failed_at"`
}

// ParseDeadLetter парсит DeadLetterRecord из сообщения DLQ-топика.
func ParseDeadLetter(message *sarama.ConsumerMessage) (*DeadLetterRecord, error) {
	var record DeadLetterRecord
	if err := json.Unmarshal(message.Value, &record); err != nil {
		return nil, fmt.Errorf("failed to unmarshal dead letter: %w", err)
	}
	return &record, nil
}
