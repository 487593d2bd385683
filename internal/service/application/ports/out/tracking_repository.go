package out

import (
	"context"

	"roadrescue/internal/service/domain"
)

// TrackingRepository — порт хранилища tracking-записей
type TrackingRepository interface {
	Create(ctx context.Context, record *domain.TrackingRecord) error

	// FindByServiceID возвращает активную запись заявки
	// (domain.ErrTrackingNotFound если назначения еще не было)
	FindByServiceID(ctx context.Context, serviceID string) (*domain.TrackingRecord, error)

	// Update перезаписывает изменяемые поля записи (кроме notes)
	Update(ctx context.Context, record *domain.TrackingRecord) error

	// UpdateLocation обновляет последнюю известную точку техника по заявке
	UpdateLocation(ctx context.Context, serviceID string, lat, lng float64) (*domain.TrackingRecord, error)

	// AppendNote добавляет заметку в конец append-only списка
	AppendNote(ctx context.Context, serviceID string, note domain.Note) (*domain.TrackingRecord, error)
}
