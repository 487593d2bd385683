package out

import (
	"context"
	"time"

	"roadrescue/internal/service/domain"
)

// RealtimeNotifier — канал push-уведомлений комнаты service:<id>.
// Доставка best-effort, at-most-once; без персистентности и replay.
type RealtimeNotifier interface {
	// PublishLocation рассылает обновление позиции техника по заявке
	PublishLocation(ctx context.Context, serviceID string, lat, lng float64) error

	// PublishStatus рассылает смену статуса заявки
	PublishStatus(ctx context.Context, serviceID, status string) error

	// PublishTechnicianUpdate рассылает ETA и/или новую заметку техника
	PublishTechnicianUpdate(ctx context.Context, serviceID string, eta *time.Time, note *domain.Note) error
}
