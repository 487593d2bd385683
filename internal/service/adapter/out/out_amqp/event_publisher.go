package out_amqp

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"roadrescue/internal/service/application/ports/out"
	"roadrescue/internal/shared/logger"
	"roadrescue/internal/shared/mq"
)

// ServiceEventPublisher публикует события движка в topic exchange.
// Routing key совпадает с типом события (service.assigned и т.д.).
type ServiceEventPublisher struct {
	mq  *mq.RabbitMQ
	log *logger.Logger
}

func NewServiceEventPublisher(rabbit *mq.RabbitMQ, log *logger.Logger) *ServiceEventPublisher {
	return &ServiceEventPublisher{mq: rabbit, log: log}
}

// envelope — формат сообщения в брокере
type envelope struct {
	EventType string               `json:"event_type"`
	Timestamp time.Time            `json:"timestamp"`
	Data      out.ServiceEventData `json:"data"`
}

func (p *ServiceEventPublisher) PublishServiceEvent(ctx context.Context, eventType string, data out.ServiceEventData) error {
	body, err := json.Marshal(envelope{
		EventType: eventType,
		Timestamp: time.Now().UTC(),
		Data:      data,
	})
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	if err := p.mq.Publish(ctx, mq.ExchangeServiceTopic, eventType, body); err != nil {
		return fmt.Errorf("publish %s: %w", eventType, err)
	}

	p.log.Debug(logger.Entry{
		Action:    "event_published",
		Message:   eventType,
		ServiceID: data.ServiceID,
	})
	return nil
}
