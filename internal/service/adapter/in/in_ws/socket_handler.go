package in_ws

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"roadrescue/internal/service/adapter/out/out_ws"
	"roadrescue/internal/service/application/ports/in"
	"roadrescue/internal/shared/logger"
	"roadrescue/internal/shared/ws"

	constants "roadrescue/internal/shared/const"
)

// opTimeout — бюджет на одну операцию, инициированную сокетом
const opTimeout = 10 * time.Second

// SocketHandler маршрутизирует входящие WebSocket сообщения в те же
// use case-ы, что и HTTP. Подписка на комнату заявки не проверяет прав:
// как и GET /services/{id}, данные заявки считаются открытыми.
type SocketHandler struct {
	hub        *ws.Hub
	tracking   in.UpdateTrackingUseCase
	transition in.TransitionStatusUseCase
	log        *logger.Logger
}

func NewSocketHandler(
	hub *ws.Hub,
	tracking in.UpdateTrackingUseCase,
	transition in.TransitionStatusUseCase,
	log *logger.Logger,
) *SocketHandler {
	return &SocketHandler{
		hub:        hub,
		tracking:   tracking,
		transition: transition,
		log:        log,
	}
}

// Register подключает обработчик к хабу
func (h *SocketHandler) Register() {
	h.hub.SetMessageHandler(h.handle)
}

type joinPayload struct {
	ServiceID string `json:"serviceId"`
}

type locationPayload struct {
	ServiceID string  `json:"serviceId"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

type statusPayload struct {
	ServiceID string `json:"serviceId"`
	Status    string `json:"status"`
}

type technicianPayload struct {
	ServiceID        string     `json:"serviceId"`
	EstimatedArrival *time.Time `json:"estimatedArrival,omitempty"`
	Note             string     `json:"note,omitempty"`
}

func (h *SocketHandler) handle(client *ws.Client, messageType string, data json.RawMessage) error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	switch messageType {
	case "join:service":
		var p joinPayload
		if err := json.Unmarshal(data, &p); err != nil || p.ServiceID == "" {
			return fmt.Errorf("join:service: bad payload")
		}
		h.hub.JoinRoom(out_ws.RoomName(p.ServiceID), client)
		return client.Send(map[string]string{"status": "joined", "serviceId": p.ServiceID})

	case "leave:service":
		var p joinPayload
		if err := json.Unmarshal(data, &p); err != nil || p.ServiceID == "" {
			return fmt.Errorf("leave:service: bad payload")
		}
		h.hub.LeaveRoom(out_ws.RoomName(p.ServiceID), client)
		return nil

	case "location:update":
		if client.Role != constants.RoleTechnician {
			return fmt.Errorf("location:update: technician role required")
		}
		var p locationPayload
		if err := json.Unmarshal(data, &p); err != nil || p.ServiceID == "" {
			return fmt.Errorf("location:update: bad payload")
		}
		_, err := h.tracking.UpdateLocation(ctx, in.UpdateLocationInput{
			ServiceID:    p.ServiceID,
			TechnicianID: client.UserID,
			Latitude:     p.Latitude,
			Longitude:    p.Longitude,
		})
		return err

	case "status:update":
		var p statusPayload
		if err := json.Unmarshal(data, &p); err != nil || p.ServiceID == "" {
			return fmt.Errorf("status:update: bad payload")
		}
		_, err := h.transition.Execute(ctx, p.ServiceID, p.Status)
		return err

	case "technician:update":
		if client.Role != constants.RoleTechnician {
			return fmt.Errorf("technician:update: technician role required")
		}
		var p technicianPayload
		if err := json.Unmarshal(data, &p); err != nil || p.ServiceID == "" {
			return fmt.Errorf("technician:update: bad payload")
		}
		if p.EstimatedArrival != nil {
			if _, err := h.tracking.UpdateETA(ctx, in.UpdateETAInput{
				ServiceID:        p.ServiceID,
				TechnicianID:     client.UserID,
				EstimatedArrival: *p.EstimatedArrival,
			}); err != nil {
				return err
			}
		}
		if p.Note != "" {
			if _, err := h.tracking.AddNote(ctx, in.AddNoteInput{
				ServiceID:    p.ServiceID,
				TechnicianID: client.UserID,
				Text:         p.Note,
			}); err != nil {
				return err
			}
		}
		return nil

	default:
		h.log.Warn(logger.Entry{
			Action:  "ws_unknown_message",
			Message: messageType,
		})
		return nil
	}
}
