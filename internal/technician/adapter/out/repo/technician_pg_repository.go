package repo

import (
	"context"
	"errors"
	"fmt"

	"roadrescue/internal/shared/logger"
	"roadrescue/internal/technician/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const technicianColumns = `
	id, name, email, phone, latitude, longitude, status, current_service_id,
	rating, total_services, specialties, vehicle, license_plate,
	created_at, updated_at
`

// TechnicianPgRepository — PostgreSQL справочник техников. Реализует и
// порт контекста техника, и порт TechnicianDirectory движка назначений
// (geo-поиск через PostGIS).
type TechnicianPgRepository struct {
	pool *pgxpool.Pool
	log  *logger.Logger
}

// NewTechnicianPgRepository создает новый экземпляр репозитория
func NewTechnicianPgRepository(pool *pgxpool.Pool, log *logger.Logger) *TechnicianPgRepository {
	return &TechnicianPgRepository{
		pool: pool,
		log:  log,
	}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTechnician(row rowScanner) (*domain.Technician, error) {
	t := &domain.Technician{}
	err := row.Scan(
		&t.ID,
		&t.Name,
		&t.Email,
		&t.Phone,
		&t.Latitude,
		&t.Longitude,
		&t.Status,
		&t.CurrentServiceID,
		&t.Rating,
		&t.TotalServices,
		&t.Specialties,
		&t.Vehicle,
		&t.LicensePlate,
		&t.CreatedAt,
		&t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return t, nil
}

// FindByID возвращает техника по ID
func (r *TechnicianPgRepository) FindByID(ctx context.Context, technicianID string) (*domain.Technician, error) {
	query := `SELECT ` + technicianColumns + ` FROM technicians WHERE id = $1`

	t, err := scanTechnician(r.pool.QueryRow(ctx, query, technicianID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrTechnicianNotFound
		}
		r.log.Error(logger.Entry{
			Action:  "db_find_technician_failed",
			Message: err.Error(),
			Error:   &logger.ErrObj{Msg: err.Error()},
		})
		return nil, fmt.Errorf("query technician by id: %w", err)
	}
	return t, nil
}

// FindNearestAvailable возвращает ближайшего доступного техника в радиусе,
// опционально отфильтрованного по specialty. nil без ошибки = кандидатов нет.
func (r *TechnicianPgRepository) FindNearestAvailable(
	ctx context.Context,
	lat, lng float64,
	radiusMeters float64,
	specialty string,
) (*domain.Technician, error) {
	query := `
		SELECT ` + technicianColumns + `,
		       ST_Distance(
		         ST_MakePoint(longitude, latitude)::geography,
		         ST_MakePoint($1, $2)::geography
		       ) AS distance_m
		FROM technicians
		WHERE status = 'available'
		  AND ($3 = '' OR $3 = ANY(specialties))
		  AND ST_DWithin(
		        ST_MakePoint(longitude, latitude)::geography,
		        ST_MakePoint($1, $2)::geography,
		        $4
		      )
		ORDER BY distance_m
		LIMIT 1
	`

	t := &domain.Technician{}
	var distanceM float64
	err := r.pool.QueryRow(ctx, query, lng, lat, specialty, radiusMeters).Scan(
		&t.ID,
		&t.Name,
		&t.Email,
		&t.Phone,
		&t.Latitude,
		&t.Longitude,
		&t.Status,
		&t.CurrentServiceID,
		&t.Rating,
		&t.TotalServices,
		&t.Specialties,
		&t.Vehicle,
		&t.LicensePlate,
		&t.CreatedAt,
		&t.UpdatedAt,
		&distanceM,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("query nearest technician: %w", err)
	}
	return t, nil
}

// FindTopRatedNearby возвращает доступного техника с максимальным рейтингом
// в радиусе (emergency-путь). nil без ошибки = кандидатов нет.
func (r *TechnicianPgRepository) FindTopRatedNearby(
	ctx context.Context,
	lat, lng float64,
	radiusMeters float64,
) (*domain.Technician, error) {
	query := `
		SELECT ` + technicianColumns + `
		FROM technicians
		WHERE status = 'available'
		  AND ST_DWithin(
		        ST_MakePoint(longitude, latitude)::geography,
		        ST_MakePoint($1, $2)::geography,
		        $3
		      )
		ORDER BY rating DESC, id
		LIMIT 1
	`

	t, err := scanTechnician(r.pool.QueryRow(ctx, query, lng, lat, radiusMeters))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("query top rated nearby technician: %w", err)
	}
	return t, nil
}

// FindTopRatedAvailable возвращает доступного техника с максимальным
// рейтингом без учета расстояния. nil без ошибки = кандидатов нет.
func (r *TechnicianPgRepository) FindTopRatedAvailable(ctx context.Context) (*domain.Technician, error) {
	query := `
		SELECT ` + technicianColumns + `
		FROM technicians
		WHERE status = 'available'
		ORDER BY rating DESC, id
		LIMIT 1
	`

	t, err := scanTechnician(r.pool.QueryRow(ctx, query))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("query top rated technician: %w", err)
	}
	return t, nil
}

// FindAvailableBySpecialty возвращает доступного техника с заявленной
// specialty без ограничения по расстоянию (заявка без координат).
// nil без ошибки = кандидатов нет.
func (r *TechnicianPgRepository) FindAvailableBySpecialty(ctx context.Context, specialty string) (*domain.Technician, error) {
	query := `
		SELECT ` + technicianColumns + `
		FROM technicians
		WHERE status = 'available'
		  AND $1 = ANY(specialties)
		ORDER BY created_at, id
		LIMIT 1
	`

	t, err := scanTechnician(r.pool.QueryRow(ctx, query, specialty))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("query available technician by specialty: %w", err)
	}
	return t, nil
}

// FindMostRecent возвращает последнего зарегистрированного техника без
// каких-либо фильтров. Слабый fallback обычного назначения: может вернуть
// занятого или неподходящего по specialty техника.
func (r *TechnicianPgRepository) FindMostRecent(ctx context.Context) (*domain.Technician, error) {
	query := `
		SELECT ` + technicianColumns + `
		FROM technicians
		ORDER BY created_at DESC
		LIMIT 1
	`

	t, err := scanTechnician(r.pool.QueryRow(ctx, query))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("query most recent technician: %w", err)
	}
	return t, nil
}

// Reserve помечает техника занятым и привязывает к заявке.
// Безусловный UPDATE: повторяет read-then-write поведение оригинала.
func (r *TechnicianPgRepository) Reserve(ctx context.Context, technicianID, serviceID string) error {
	query := `
		UPDATE technicians
		SET status = 'busy', current_service_id = $2, updated_at = now()
		WHERE id = $1
	`

	tag, err := r.pool.Exec(ctx, query, technicianID, serviceID)
	if err != nil {
		return fmt.Errorf("reserve technician: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrTechnicianNotFound
	}
	return nil
}

// ReserveIfAvailable — условное бронирование (set busy where status=available).
// Опциональное strict-расширение против гонки двух параллельных назначений.
func (r *TechnicianPgRepository) ReserveIfAvailable(ctx context.Context, technicianID, serviceID string) error {
	query := `
		UPDATE technicians
		SET status = 'busy', current_service_id = $2, updated_at = now()
		WHERE id = $1 AND status = 'available'
	`

	tag, err := r.pool.Exec(ctx, query, technicianID, serviceID)
	if err != nil {
		return fmt.Errorf("reserve technician: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrTechnicianNotAvailable
	}
	return nil
}

// Release освобождает техника после завершения заявки: available,
// current_service_id = null, total_services += 1, запись в историю.
func (r *TechnicianPgRepository) Release(ctx context.Context, technicianID, serviceID string) error {
	query := `
		UPDATE technicians
		SET status = 'available',
		    current_service_id = NULL,
		    total_services = total_services + 1,
		    updated_at = now()
		WHERE id = $1
	`

	tag, err := r.pool.Exec(ctx, query, technicianID)
	if err != nil {
		return fmt.Errorf("release technician: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrTechnicianNotFound
	}

	historyQuery := `
		INSERT INTO technician_service_history (technician_id, service_id)
		VALUES ($1, $2)
	`
	if _, err := r.pool.Exec(ctx, historyQuery, technicianID, serviceID); err != nil {
		return fmt.Errorf("append service history: %w", err)
	}

	return nil
}

// UpdateRating перезаписывает накопленный рейтинг техника
func (r *TechnicianPgRepository) UpdateRating(ctx context.Context, technicianID string, rating float64) error {
	query := `UPDATE technicians SET rating = $2, updated_at = now() WHERE id = $1`

	tag, err := r.pool.Exec(ctx, query, technicianID, rating)
	if err != nil {
		return fmt.Errorf("update technician rating: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrTechnicianNotFound
	}
	return nil
}

// UpdateLocation обновляет последнюю известную точку техника
func (r *TechnicianPgRepository) UpdateLocation(ctx context.Context, technicianID string, lat, lng float64) (*domain.Technician, error) {
	query := `
		UPDATE technicians
		SET latitude = $2, longitude = $3, updated_at = now()
		WHERE id = $1
		RETURNING ` + technicianColumns

	t, err := scanTechnician(r.pool.QueryRow(ctx, query, technicianID, lat, lng))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrTechnicianNotFound
		}
		return nil, fmt.Errorf("update technician location: %w", err)
	}
	return t, nil
}

// Delete удаляет техника. Отклоняется пока за ним числится активная заявка.
func (r *TechnicianPgRepository) Delete(ctx context.Context, technicianID string) error {
	t, err := r.FindByID(ctx, technicianID)
	if err != nil {
		return err
	}
	if t.CurrentServiceID != nil {
		return domain.ErrTechnicianHasActiveService
	}

	if _, err := r.pool.Exec(ctx, `DELETE FROM technicians WHERE id = $1`, technicianID); err != nil {
		return fmt.Errorf("delete technician: %w", err)
	}
	return nil
}

// ServiceHistory возвращает упорядоченный список завершенных заявок техника
func (r *TechnicianPgRepository) ServiceHistory(ctx context.Context, technicianID string) ([]string, error) {
	query := `
		SELECT service_id
		FROM technician_service_history
		WHERE technician_id = $1
		ORDER BY position
	`

	rows, err := r.pool.Query(ctx, query, technicianID)
	if err != nil {
		return nil, fmt.Errorf("query service history: %w", err)
	}
	defer rows.Close()

	var history []string
	for rows.Next() {
		var serviceID string
		if err := rows.Scan(&serviceID); err != nil {
			return nil, fmt.Errorf("scan service history row: %w", err)
		}
		history = append(history, serviceID)
	}
	return history, rows.Err()
}
