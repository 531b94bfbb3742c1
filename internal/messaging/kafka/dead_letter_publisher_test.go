package kafka

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/IBM/sarama/mocks"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

func TestDeadLetterPublisher_PublishesRecord(t *testing.T) {
	mockProducer := mocks.NewSyncProducer(t, nil)
	failedAt := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	mockProducer.ExpectSendMessageWithCheckerFunctionAndSucceed(func(value []byte) error {
		var record DeadLetterRecord
		if err := json.Unmarshal(value, &record); err != nil {
			return err
		}
		if record.ID != "msg-1" || record.AggregateID != "order-1" {
			return errors.New("unexpected record identity")
		}
		if record.EventType != string(domain.NotificationOrderConfirmed) {
			return errors.New("unexpected event type " + record.EventType)
		}
		if record.Source != DeadLetterSourceOutbox {
			return errors.New("unexpected source " + record.Source)
		}
		if record.ErrorMessage != "broker unavailable" {
			return errors.New("unexpected error message " + record.ErrorMessage)
		}
		if record.RetryCount != 3 {
			return errors.New("unexpected retry count")
		}
		if !record.FailedAt.Equal(failedAt) {
			return errors.New("failed_at must be preserved")
		}
		return nil
	})

	publisher := NewDeadLetterPublisher(&Producer{
		producer: mockProducer,
		logger:   log.WithField("test", "dead-letter-publisher"),
	})

	err := publisher.PublishDeadLetter(domain.DeadLetter{
		Notification: domain.OutboxMessage{
			ID:            "msg-1",
			AggregateType: "order",
			AggregateID:   "order-1",
			EventType:     string(domain.NotificationOrderConfirmed),
			Payload:       []byte(`{"order_id":"order-1"}`),
		},
		Source:     DeadLetterSourceOutbox,
		Reason:     "broker unavailable",
		RetryCount: 3,
		FailedAt:   failedAt,
	})
	if err != nil {
		t.Fatalf("PublishDeadLetter failed: %v", err)
	}
	if err := mockProducer.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestDeadLetterPublisher_DefaultsFailedAt(t *testing.T) {
	mockProducer := mocks.NewSyncProducer(t, nil)
	mockProducer.ExpectSendMessageWithCheckerFunctionAndSucceed(func(value []byte) error {
		var record DeadLetterRecord
		if err := json.Unmarshal(value, &record); err != nil {
			return err
		}
		if record.FailedAt.IsZero() {
			return errors.New("failed_at must be set")
		}
		return nil
	})

	publisher := NewDeadLetterPublisher(&Producer{
		producer: mockProducer,
		logger:   log.WithField("test", "dead-letter-publisher"),
	})

	err := publisher.PublishDeadLetter(domain.DeadLetter{
		Notification: domain.OutboxMessage{
			ID:        "msg-2",
			EventType: string(domain.NotificationLowStock),
			Payload:   []byte(`{"stock":1}`),
		},
		Source: DeadLetterSourceOutbox,
		Reason: "timeout",
	})
	if err != nil {
		t.Fatalf("PublishDeadLetter failed: %v", err)
	}
	if err := mockProducer.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestDeadLetterPublisher_RequiresProducer(t *testing.T) {
	publisher := NewDeadLetterPublisher(nil)
	if err := publisher.PublishDeadLetter(domain.DeadLetter{}); err == nil {
		t.Fatal("expected error for missing producer")
	}
}
