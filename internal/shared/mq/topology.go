package mq

import (
	"fmt"

	"roadrescue/internal/shared/logger"
)

// Exchange и очереди движка назначений.
const (
	ExchangeServiceTopic = "service_topic"

	QueueServiceAssigned        = "service.assigned"
	QueueServiceStatusChanged   = "service.status_changed"
	QueueServiceLocationUpdated = "service.location_updated"
)

// SetupTopology создает exchange, очереди и bindings движка
func SetupTopology(mq *RabbitMQ, log *logger.Logger) error {
	ch := mq.Channel()
	if ch == nil {
		return fmt.Errorf("rabbitmq channel not available")
	}

	if err := ch.ExchangeDeclare(
		ExchangeServiceTopic, // name
		"topic",              // type
		true,                 // durable
		false,                // auto-deleted
		false,                // internal
		false,                // no-wait
		nil,                  // args
	); err != nil {
		return fmt.Errorf("declare %s: %w", ExchangeServiceTopic, err)
	}

	queues := []string{
		QueueServiceAssigned,
		QueueServiceStatusChanged,
		QueueServiceLocationUpdated,
	}
	for _, q := range queues {
		if _, err := ch.QueueDeclare(q, true, false, false, false, nil); err != nil {
			return fmt.Errorf("declare queue %s: %w", q, err)
		}
		// routing key совпадает с именем очереди
		if err := ch.QueueBind(q, q, ExchangeServiceTopic, false, nil); err != nil {
			return fmt.Errorf("bind queue %s: %w", q, err)
		}
	}

	log.Info(logger.Entry{
		Action:  "topology_setup_complete",
		Message: "all exchanges and queues created",
	})

	return nil
}
