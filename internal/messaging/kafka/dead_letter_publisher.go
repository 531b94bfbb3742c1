package kafka

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

// DeadLetterTopicPublisher публикует недоставленные уведомления в DLQ-топик.
type DeadLetterTopicPublisher struct {
	producer *Producer
}

// NewDeadLetterPublisher создаёт Kafka-паблишер для dead letter queue.
func NewDeadLetterPublisher(producer *Producer) domain.DeadLetterPublisher {
	return &DeadLetterTopicPublisher{producer: producer}
}

func (p *DeadLetterTopicPublisher) PublishDeadLetter(letter domain.DeadLetter) error {
	if p == nil || p.producer == nil {
		return fmt.Errorf("kafka dead letter publisher is not initialized")
	}

	failedAt := letter.FailedAt
	if failedAt.IsZero() {
		failedAt = time.Now().UTC()
	}

	record := DeadLetterRecord{
		ID:            letter.Notification.ID,
		AggregateType: letter.Notification.AggregateType,
		AggregateID:   letter.Notification.AggregateID,
		EventType:     letter.Notification.EventType,
		Payload:       json.RawMessage(letter.Notification.Payload),
		Source:        letter.Source,
		ErrorMessage:  letter.Reason,
		RetryCount:    letter.RetryCount,
		FailedAt:      failedAt,
	}

	// Тот же ключ партиционирования, что и у исходного уведомления:
	// порядок событий одного агрегата сохраняется и в DLQ.
	key := letter.Notification.AggregateID
	if key == "" {
		key = letter.Notification.ID
	}

	return p.producer.PublishEvent(TopicDeadLetterQueue, key, record)
}

var _ domain.DeadLetterPublisher = (*DeadLetterTopicPublisher)(nil)
