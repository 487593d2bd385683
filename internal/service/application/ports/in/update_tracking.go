package in

import (
	"context"
	"time"

	"roadrescue/internal/service/domain"
)

// Caller — principal, от имени которого выполняется операция
type Caller struct {
	UserID string
	Role   string // customer | technician
}

// UpdateLocationInput — техник сообщает свою позицию по заявке
type UpdateLocationInput struct {
	ServiceID    string
	TechnicianID string
	Latitude     float64
	Longitude    float64
}

// UpdateETAInput — техник сообщает расчетное время прибытия
type UpdateETAInput struct {
	ServiceID        string
	TechnicianID     string
	EstimatedArrival time.Time
}

// AddNoteInput — техник добавляет заметку к tracking-записи
type AddNoteInput struct {
	ServiceID    string
	TechnicianID string
	Text         string
}

// UpdateTrackingUseCase — операции техника над tracking-записью.
// Каждая операция требует, чтобы вызывающий был привязанным к заявке
// техником, иначе domain.ErrUnauthorized.
type UpdateTrackingUseCase interface {
	UpdateLocation(ctx context.Context, input UpdateLocationInput) (*domain.TrackingRecord, error)
	UpdateETA(ctx context.Context, input UpdateETAInput) (*domain.TrackingRecord, error)
	AddNote(ctx context.Context, input AddNoteInput) (*domain.TrackingRecord, error)
}

// TrackingView — tracking-запись, объединенная со сводкой заявки
// для клиентского отображения
type TrackingView struct {
	domain.TrackingRecord
	ServiceType    string                `json:"serviceType"`
	ServiceStatus  string                `json:"serviceStatus"`
	VehicleDetails domain.VehicleDetails `json:"vehicleDetails"`
	Address        string                `json:"address"`
	Technician     *TechnicianSummary    `json:"technician,omitempty"`
}

// GetTrackingUseCase возвращает объединенный tracking-view; доступ только
// владельцу заявки или привязанному технику
type GetTrackingUseCase interface {
	Execute(ctx context.Context, serviceID string, caller Caller) (*TrackingView, error)
}
