package app

import (
	"context"
	"strings"

	"github.com/IBM/sarama"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
	"github.com/vladislavdragonenkov/storefront/internal/messaging/kafka"
	"github.com/vladislavdragonenkov/storefront/internal/service/notify"
)

// notificationConsumerGroup — consumer-группа доставки уведомлений.
const notificationConsumerGroup = "store-notifications"

// initKafkaProducer инициализирует Kafka producer если brokers не пустой.
// Возвращает nil, nil если brokers пустой.
func initKafkaProducer(brokers string, logger *log.Entry) (*kafka.Producer, error) {
	if brokers == "" {
		return nil, nil
	}

	brokerList := strings.Split(brokers, ",")
	producer, err := kafka.NewProducer(brokerList)
	if err != nil {
		logger.WithError(err).Warn("failed to create kafka producer, continuing without kafka")
		return nil, err
	}

	logger.WithField("brokers", brokerList).Info("kafka producer initialized")
	return producer, nil
}

// initNotificationConsumer запускает consumer-группу, доставляющую уведомления
// из топика store.notifications через dispatcher. Используется тот же producer,
// что и у outbox worker: ему уходят сообщения, исчерпавшие retry-бюджет.
func initNotificationConsumer(brokers string, producer *kafka.Producer, dispatcher *notify.Dispatcher, logger *log.Entry) (*kafka.Consumer, error) {
	if brokers == "" || dispatcher == nil {
		return nil, nil
	}

	handler := func(ctx context.Context, message *sarama.ConsumerMessage) error {
		envelope, err := kafka.ParseNotification(message)
		if err != nil {
			return err
		}
		return dispatcher.Dispatch(ctx, notify.Notification{
			Kind:          domain.NotificationKind(envelope.EventType),
			AggregateType: envelope.AggregateType,
			AggregateID:   envelope.AggregateID,
			Payload:       envelope.Payload,
		})
	}

	consumer, err := kafka.NewConsumerWithDLQ(
		strings.Split(brokers, ","),
		notificationConsumerGroup,
		[]string{kafka.TopicNotifications},
		handler,
		producer,
		3,
	)
	if err != nil {
		logger.WithError(err).Warn("failed to create notification consumer, continuing without delivery")
		return nil, err
	}

	return consumer, nil
}

// closeKafka закрывает Kafka producer если он не nil.
func closeKafka(producer *kafka.Producer, logger *log.Entry) {
	if producer == nil {
		return
	}

	if err := producer.Close(); err != nil {
		logger.WithError(err).Warn("failed to close kafka producer")
	} else {
		logger.Info("kafka producer closed")
	}
}
