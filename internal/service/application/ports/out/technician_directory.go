package out

import (
	"context"

	techdomain "roadrescue/internal/technician/domain"
)

// TechnicianDirectory — взгляд движка назначений на справочник техников:
// geo-поиск кандидатов и атомарные переходы состояния занятости.
type TechnicianDirectory interface {
	FindByID(ctx context.Context, technicianID string) (*techdomain.Technician, error)

	// FindNearestAvailable — ближайший доступный техник в радиусе с
	// заявленной specialty (пустая строка = без фильтра по specialty).
	// nil без ошибки означает отсутствие кандидатов.
	FindNearestAvailable(ctx context.Context, lat, lng, radiusMeters float64, specialty string) (*techdomain.Technician, error)

	// FindTopRatedNearby — доступный техник с максимальным рейтингом
	// в радиусе (путь emergency-заявок)
	FindTopRatedNearby(ctx context.Context, lat, lng, radiusMeters float64) (*techdomain.Technician, error)

	// FindTopRatedAvailable — доступный техник с максимальным рейтингом
	// без учета расстояния
	FindTopRatedAvailable(ctx context.Context) (*techdomain.Technician, error)

	// FindAvailableBySpecialty — доступный техник с заявленной specialty
	// без ограничения по расстоянию (путь заявок без координат).
	// nil без ошибки означает отсутствие кандидатов.
	FindAvailableBySpecialty(ctx context.Context, specialty string) (*techdomain.Technician, error)

	// FindMostRecent — последний зарегистрированный техник, без фильтров.
	// Намеренно слабый fallback: может вернуть занятого или
	// неподходящего техника.
	FindMostRecent(ctx context.Context) (*techdomain.Technician, error)

	// Reserve помечает техника занятым (безусловно, как в оригинале)
	Reserve(ctx context.Context, technicianID, serviceID string) error

	// ReserveIfAvailable — условное бронирование (strict-режим движка);
	// возвращает techdomain.ErrTechnicianNotAvailable при конфликте
	ReserveIfAvailable(ctx context.Context, technicianID, serviceID string) error

	// Release освобождает техника при завершении заявки: available,
	// current_service_id = null, total_services += 1, история пополняется
	Release(ctx context.Context, technicianID, serviceID string) error

	UpdateRating(ctx context.Context, technicianID string, rating float64) error

	UpdateLocation(ctx context.Context, technicianID string, lat, lng float64) (*techdomain.Technician, error)
}
