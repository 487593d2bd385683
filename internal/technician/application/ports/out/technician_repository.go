package out

import (
	"context"

	"roadrescue/internal/technician/domain"
)

// TechnicianRepository — порт контекста технику: собственный lifecycle
// (локация, удаление) плюс lookup-on-demand для слабых ссылок.
type TechnicianRepository interface {
	FindByID(ctx context.Context, technicianID string) (*domain.Technician, error)

	// UpdateLocation обновляет последнюю известную точку техника
	UpdateLocation(ctx context.Context, technicianID string, lat, lng float64) (*domain.Technician, error)

	// Delete удаляет техника; отклоняется пока current_service_id != null
	Delete(ctx context.Context, technicianID string) error

	// ServiceHistory возвращает упорядоченный список завершенных заявок техника
	ServiceHistory(ctx context.Context, technicianID string) ([]string, error)
}
