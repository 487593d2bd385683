package out_ws

import (
	"context"
	"fmt"
	"time"

	"roadrescue/internal/service/domain"
	"roadrescue/internal/shared/ws"
)

// RoomName — имя комнаты заявки в хабе
func RoomName(serviceID string) string {
	return fmt.Sprintf("service:%s", serviceID)
}

// ServiceNotifier рассылает события заявки подписчикам ее комнаты.
// Доставка best-effort: отсутствие подписчиков не является ошибкой.
type ServiceNotifier struct {
	hub *ws.Hub
}

func NewServiceNotifier(hub *ws.Hub) *ServiceNotifier {
	return &ServiceNotifier{hub: hub}
}

type locationEvent struct {
	Type      string    `json:"type"`
	ServiceID string    `json:"serviceId"`
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	Timestamp time.Time `json:"timestamp"`
}

type statusEvent struct {
	Type      string    `json:"type"`
	ServiceID string    `json:"serviceId"`
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

type technicianEvent struct {
	Type             string       `json:"type"`
	ServiceID        string       `json:"serviceId"`
	EstimatedArrival *time.Time   `json:"estimatedArrival,omitempty"`
	Note             *domain.Note `json:"note,omitempty"`
	Timestamp        time.Time    `json:"timestamp"`
}

func (n *ServiceNotifier) PublishLocation(_ context.Context, serviceID string, lat, lng float64) error {
	return n.hub.SendToRoomJSON(RoomName(serviceID), locationEvent{
		Type:      "location:update",
		ServiceID: serviceID,
		Latitude:  lat,
		Longitude: lng,
		Timestamp: time.Now().UTC(),
	})
}

func (n *ServiceNotifier) PublishStatus(_ context.Context, serviceID, status string) error {
	return n.hub.SendToRoomJSON(RoomName(serviceID), statusEvent{
		Type:      "status:update",
		ServiceID: serviceID,
		Status:    status,
		Timestamp: time.Now().UTC(),
	})
}

func (n *ServiceNotifier) PublishTechnicianUpdate(_ context.Context, serviceID string, eta *time.Time, note *domain.Note) error {
	return n.hub.SendToRoomJSON(RoomName(serviceID), technicianEvent{
		Type:             "technician:update",
		ServiceID:        serviceID,
		EstimatedArrival: eta,
		Note:             note,
		Timestamp:        time.Now().UTC(),
	})
}
