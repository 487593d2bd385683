package out

import (
	"context"
	"time"

	"roadrescue/internal/service/domain"
)

// ServiceRepository — порт хранилища заявок
type ServiceRepository interface {
	Create(ctx context.Context, service *domain.ServiceRequest) error
	FindByID(ctx context.Context, serviceID string) (*domain.ServiceRequest, error)

	// FindAll возвращает все заявки, новые первыми
	FindAll(ctx context.Context) ([]*domain.ServiceRequest, error)

	// FindByTechnician возвращает заявки, назначенные технику, новые первыми
	FindByTechnician(ctx context.Context, technicianID string) ([]*domain.ServiceRequest, error)

	// AssignTechnician привязывает техника и переводит заявку в assigned
	AssignTechnician(ctx context.Context, serviceID, technicianID string) error

	// UpdateStatus сохраняет новый статус; completionTime заполняется
	// только при завершении
	UpdateStatus(ctx context.Context, serviceID, status string, completionTime *time.Time) error

	UpdateEstimatedArrival(ctx context.Context, serviceID string, eta time.Time) error

	// UpdateRating сохраняет оценку и отзыв клиента
	UpdateRating(ctx context.Context, serviceID string, rating int, feedback string) error
}
