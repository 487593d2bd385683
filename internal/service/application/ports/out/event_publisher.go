package out

import "context"

// ServiceEventData — полезная нагрузка события движка
type ServiceEventData struct {
	ServiceID      string         `json:"service_id"`
	TechnicianID   string         `json:"technician_id,omitempty"`
	Status         string         `json:"status,omitempty"`
	AdditionalData map[string]any `json:"additional_data,omitempty"`
}

// EventPublisher публикует события движка в брокер сообщений.
// Сбой публикации логируется и не проваливает операцию.
type EventPublisher interface {
	PublishServiceEvent(ctx context.Context, eventType string, data ServiceEventData) error
}
