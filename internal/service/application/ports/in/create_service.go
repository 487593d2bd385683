package in

import (
	"context"

	"roadrescue/internal/service/domain"
)

// GeoPoint — GeoJSON-точка, как ее присылают клиенты: [lon, lat]
type GeoPoint struct {
	Type        string    `json:"type"`
	Coordinates []float64 `json:"coordinates"`
}

// TechnicianSummary — краткая карточка назначенного техника для ответа
// клиенту (name, phone, rating, как в populate оригинала)
type TechnicianSummary struct {
	ID     string  `json:"id"`
	Name   string  `json:"name"`
	Phone  string  `json:"phone"`
	Rating float64 `json:"rating"`
}

// ServiceView — заявка с развернутой карточкой техника
type ServiceView struct {
	domain.ServiceRequest
	AssignedTechnician *TechnicianSummary `json:"assignedTechnician"`
}

// CreateServiceInput — вход создания заявки
type CreateServiceInput struct {
	UserID         *string // principal из auth-контекста, если был
	Type           string
	Location       *GeoPoint
	Address        string
	ContactName    string
	ContactPhone   string
	VehicleDetails domain.VehicleDetails
	Description    string
	EstimatedCost  float64
}

// CreateServiceUseCase создает заявку и best-effort пытается назначить
// техника. Отсутствие кандидата не является ошибкой: заявка остается
// pending с assignedTechnician = null.
type CreateServiceUseCase interface {
	Execute(ctx context.Context, input CreateServiceInput) (*ServiceView, error)
}

// SelfAssignUseCase — техник сам забирает заявку, минуя поиск.
// Намеренно без проверки занятости и specialty.
type SelfAssignUseCase interface {
	Execute(ctx context.Context, serviceID, technicianID string) (*ServiceView, error)
}

// TransitionStatusUseCase переводит заявку в новый статус и синхронизирует
// tracking-запись и состояние техника (release при completed)
type TransitionStatusUseCase interface {
	Execute(ctx context.Context, serviceID, newStatus string) (*ServiceView, error)
}

// RateServiceInput — вход оценки завершенной заявки
type RateServiceInput struct {
	ServiceID string
	Rating    int
	Feedback  string
}

// RateServiceUseCase сохраняет оценку и пересчитывает накопленный
// рейтинг техника (скользящее среднее)
type RateServiceUseCase interface {
	Execute(ctx context.Context, input RateServiceInput) (*ServiceView, error)
}

// ServiceQueries — read-путь заявок
type ServiceQueries interface {
	Get(ctx context.Context, serviceID string) (*ServiceView, error)
	List(ctx context.Context) ([]*ServiceView, error)
	ListAssignedTo(ctx context.Context, technicianID string) ([]*ServiceView, error)
}
