package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"roadrescue/internal/service/domain"
	"roadrescue/internal/shared/logger"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const trackingColumns = `
	id, service_id, technician_id, status, latitude, longitude,
	estimated_arrival, actual_arrival, start_time, completion_time,
	notes, distance, duration, created_at, updated_at
`

// TrackingPgRepository — PostgreSQL хранилище tracking-записей.
// Заметки лежат JSONB-массивом и пополняются конкатенацией на стороне
// базы, без перечитывания списка.
type TrackingPgRepository struct {
	pool *pgxpool.Pool
	log  *logger.Logger
}

// NewTrackingPgRepository создает новый экземпляр репозитория
func NewTrackingPgRepository(pool *pgxpool.Pool, log *logger.Logger) *TrackingPgRepository {
	return &TrackingPgRepository{
		pool: pool,
		log:  log,
	}
}

func scanTracking(row rowScanner) (*domain.TrackingRecord, error) {
	t := &domain.TrackingRecord{}
	var notes []byte
	err := row.Scan(
		&t.ID,
		&t.ServiceID,
		&t.TechnicianID,
		&t.Status,
		&t.Latitude,
		&t.Longitude,
		&t.EstimatedArrival,
		&t.ActualArrival,
		&t.StartTime,
		&t.CompletionTime,
		&notes,
		&t.Distance,
		&t.Duration,
		&t.CreatedAt,
		&t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(notes, &t.Notes); err != nil {
		return nil, fmt.Errorf("decode tracking notes: %w", err)
	}
	if t.Notes == nil {
		t.Notes = []domain.Note{}
	}
	return t, nil
}

// Create сохраняет новую tracking-запись
func (r *TrackingPgRepository) Create(ctx context.Context, rec *domain.TrackingRecord) error {
	notes, err := json.Marshal(rec.Notes)
	if err != nil {
		return fmt.Errorf("encode tracking notes: %w", err)
	}

	query := `
		INSERT INTO tracking (
			id, service_id, technician_id, status, latitude, longitude,
			estimated_arrival, actual_arrival, start_time, completion_time,
			notes, distance, duration, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6,
			$7, $8, $9, $10,
			$11, $12, $13, $14, $15
		)
	`

	_, err = r.pool.Exec(ctx, query,
		rec.ID,
		rec.ServiceID,
		rec.TechnicianID,
		rec.Status,
		rec.Latitude,
		rec.Longitude,
		rec.EstimatedArrival,
		rec.ActualArrival,
		rec.StartTime,
		rec.CompletionTime,
		notes,
		rec.Distance,
		rec.Duration,
		rec.CreatedAt,
		rec.UpdatedAt,
	)
	if err != nil {
		r.log.Error(logger.Entry{
			Action:    "db_create_tracking_failed",
			Message:   err.Error(),
			ServiceID: rec.ServiceID,
			Error:     &logger.ErrObj{Msg: err.Error()},
		})
		return fmt.Errorf("insert tracking: %w", err)
	}
	return nil
}

// FindByServiceID возвращает tracking-запись заявки
func (r *TrackingPgRepository) FindByServiceID(ctx context.Context, serviceID string) (*domain.TrackingRecord, error) {
	query := `SELECT ` + trackingColumns + ` FROM tracking WHERE service_id = $1`

	t, err := scanTracking(r.pool.QueryRow(ctx, query, serviceID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrTrackingNotFound
		}
		return nil, fmt.Errorf("query tracking by service: %w", err)
	}
	return t, nil
}

// Update перезаписывает изменяемые поля записи. Notes намеренно
// не трогает: append-only список пополняется только через AppendNote.
func (r *TrackingPgRepository) Update(ctx context.Context, rec *domain.TrackingRecord) error {
	query := `
		UPDATE tracking
		SET technician_id = $2,
		    status = $3,
		    latitude = $4,
		    longitude = $5,
		    estimated_arrival = $6,
		    actual_arrival = $7,
		    start_time = $8,
		    completion_time = $9,
		    distance = $10,
		    duration = $11,
		    updated_at = now()
		WHERE id = $1
	`

	tag, err := r.pool.Exec(ctx, query,
		rec.ID,
		rec.TechnicianID,
		rec.Status,
		rec.Latitude,
		rec.Longitude,
		rec.EstimatedArrival,
		rec.ActualArrival,
		rec.StartTime,
		rec.CompletionTime,
		rec.Distance,
		rec.Duration,
	)
	if err != nil {
		return fmt.Errorf("update tracking: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrTrackingNotFound
	}
	return nil
}

// UpdateLocation обновляет последнюю известную точку техника по заявке
func (r *TrackingPgRepository) UpdateLocation(ctx context.Context, serviceID string, lat, lng float64) (*domain.TrackingRecord, error) {
	query := `
		UPDATE tracking
		SET latitude = $2, longitude = $3, updated_at = now()
		WHERE service_id = $1
		RETURNING ` + trackingColumns

	t, err := scanTracking(r.pool.QueryRow(ctx, query, serviceID, lat, lng))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrTrackingNotFound
		}
		return nil, fmt.Errorf("update tracking location: %w", err)
	}
	return t, nil
}

// AppendNote добавляет заметку в конец JSONB-массива
func (r *TrackingPgRepository) AppendNote(ctx context.Context, serviceID string, note domain.Note) (*domain.TrackingRecord, error) {
	encoded, err := json.Marshal(note)
	if err != nil {
		return nil, fmt.Errorf("encode tracking note: %w", err)
	}

	query := `
		UPDATE tracking
		SET notes = notes || $2::jsonb, updated_at = now()
		WHERE service_id = $1
		RETURNING ` + trackingColumns

	t, err := scanTracking(r.pool.QueryRow(ctx, query, serviceID, encoded))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrTrackingNotFound
		}
		return nil, fmt.Errorf("append tracking note: %w", err)
	}
	return t, nil
}
