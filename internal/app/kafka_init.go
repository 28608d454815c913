package app

import (
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/orders/internal/messaging/kafka"
)

// initKafkaProducer подключает producer к брокерам из конфигурации.
// Пустой список брокеров отключает публикацию событий: nil, nil.
func initKafkaProducer(cfg Config, logger *log.Entry) (*kafka.Producer, error) {
	brokers := normalizeBrokers(cfg.KafkaBrokers)
	if len(brokers) == 0 {
		logger.Info("kafka brokers not configured, order events stay in outbox")
		return nil, nil
	}

	entry := logger.WithFields(log.Fields{"brokers": brokers, "topic": cfg.KafkaTopic})
	producer, err := kafka.NewProducer(brokers, kafka.DefaultClientID)
	if err != nil {
		entry.WithError(err).Warn("kafka unavailable, continuing without event publishing")
		return nil, err
	}
	entry.Info("kafka producer initialized")
	return producer, nil
}

func closeKafka(producer *kafka.Producer, logger *log.Entry) {
	if producer == nil {
		return
	}
	if err := producer.Close(); err != nil {
		logger.WithError(err).Warn("failed to close kafka producer")
		return
	}
	logger.Info("kafka producer closed")
}
