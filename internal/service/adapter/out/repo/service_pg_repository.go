package repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"roadrescue/internal/service/domain"
	"roadrescue/internal/shared/logger"

	constants "roadrescue/internal/shared/const"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const serviceColumns = `
	id, user_id, type, status, latitude, longitude, address,
	contact_name, contact_phone,
	vehicle_make, vehicle_model, vehicle_year, vehicle_color, vehicle_plate, vehicle_fuel,
	description, assigned_technician_id,
	estimated_arrival, actual_arrival, completion_time,
	cost, payment_status, rating, feedback, priority, created_at
`

// ServicePgRepository — PostgreSQL хранилище заявок
type ServicePgRepository struct {
	pool *pgxpool.Pool
	log  *logger.Logger
}

// NewServicePgRepository создает новый экземпляр репозитория
func NewServicePgRepository(pool *pgxpool.Pool, log *logger.Logger) *ServicePgRepository {
	return &ServicePgRepository{
		pool: pool,
		log:  log,
	}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanService(row rowScanner) (*domain.ServiceRequest, error) {
	s := &domain.ServiceRequest{}
	err := row.Scan(
		&s.ID,
		&s.UserID,
		&s.Type,
		&s.Status,
		&s.Latitude,
		&s.Longitude,
		&s.Address,
		&s.ContactName,
		&s.ContactPhone,
		&s.VehicleDetails.Make,
		&s.VehicleDetails.Model,
		&s.VehicleDetails.Year,
		&s.VehicleDetails.Color,
		&s.VehicleDetails.LicensePlate,
		&s.VehicleDetails.FuelType,
		&s.Description,
		&s.AssignedTechnicianID,
		&s.EstimatedArrival,
		&s.ActualArrival,
		&s.CompletionTime,
		&s.Cost,
		&s.PaymentStatus,
		&s.Rating,
		&s.Feedback,
		&s.Priority,
		&s.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// Create сохраняет новую заявку
func (r *ServicePgRepository) Create(ctx context.Context, svc *domain.ServiceRequest) error {
	query := `
		INSERT INTO services (
			id, user_id, type, status, latitude, longitude, address,
			contact_name, contact_phone,
			vehicle_make, vehicle_model, vehicle_year, vehicle_color, vehicle_plate, vehicle_fuel,
			description, cost, payment_status, priority, created_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7,
			$8, $9,
			$10, $11, $12, $13, $14, $15,
			$16, $17, $18, $19, $20
		)
	`

	_, err := r.pool.Exec(ctx, query,
		svc.ID,
		svc.UserID,
		svc.Type,
		svc.Status,
		svc.Latitude,
		svc.Longitude,
		svc.Address,
		svc.ContactName,
		svc.ContactPhone,
		svc.VehicleDetails.Make,
		svc.VehicleDetails.Model,
		svc.VehicleDetails.Year,
		svc.VehicleDetails.Color,
		svc.VehicleDetails.LicensePlate,
		svc.VehicleDetails.FuelType,
		svc.Description,
		svc.Cost,
		svc.PaymentStatus,
		svc.Priority,
		svc.CreatedAt,
	)
	if err != nil {
		r.log.Error(logger.Entry{
			Action:    "db_create_service_failed",
			Message:   err.Error(),
			ServiceID: svc.ID,
			Error:     &logger.ErrObj{Msg: err.Error()},
		})
		return fmt.Errorf("insert service: %w", err)
	}
	return nil
}

// FindByID возвращает заявку по ID
func (r *ServicePgRepository) FindByID(ctx context.Context, serviceID string) (*domain.ServiceRequest, error) {
	query := `SELECT ` + serviceColumns + ` FROM services WHERE id = $1`

	s, err := scanService(r.pool.QueryRow(ctx, query, serviceID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrServiceNotFound
		}
		return nil, fmt.Errorf("query service by id: %w", err)
	}
	return s, nil
}

// FindAll возвращает все заявки, новые первыми
func (r *ServicePgRepository) FindAll(ctx context.Context) ([]*domain.ServiceRequest, error) {
	query := `SELECT ` + serviceColumns + ` FROM services ORDER BY created_at DESC`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query services: %w", err)
	}
	defer rows.Close()

	return collectServices(rows)
}

// FindByTechnician возвращает заявки, назначенные технику, новые первыми
func (r *ServicePgRepository) FindByTechnician(ctx context.Context, technicianID string) ([]*domain.ServiceRequest, error) {
	query := `
		SELECT ` + serviceColumns + `
		FROM services
		WHERE assigned_technician_id = $1
		ORDER BY created_at DESC
	`

	rows, err := r.pool.Query(ctx, query, technicianID)
	if err != nil {
		return nil, fmt.Errorf("query services by technician: %w", err)
	}
	defer rows.Close()

	return collectServices(rows)
}

func collectServices(rows pgx.Rows) ([]*domain.ServiceRequest, error) {
	var list []*domain.ServiceRequest
	for rows.Next() {
		s, err := scanService(rows)
		if err != nil {
			return nil, fmt.Errorf("scan service row: %w", err)
		}
		list = append(list, s)
	}
	return list, rows.Err()
}

// AssignTechnician привязывает техника и переводит заявку в assigned
func (r *ServicePgRepository) AssignTechnician(ctx context.Context, serviceID, technicianID string) error {
	query := `
		UPDATE services
		SET assigned_technician_id = $2, status = $3
		WHERE id = $1
	`

	tag, err := r.pool.Exec(ctx, query, serviceID, technicianID, constants.ServiceStatusAssigned)
	if err != nil {
		return fmt.Errorf("assign technician: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrServiceNotFound
	}
	return nil
}

// UpdateStatus сохраняет новый статус; completion_time заполняется
// только при завершении
func (r *ServicePgRepository) UpdateStatus(ctx context.Context, serviceID, status string, completionTime *time.Time) error {
	query := `
		UPDATE services
		SET status = $2, completion_time = COALESCE($3, completion_time)
		WHERE id = $1
	`

	tag, err := r.pool.Exec(ctx, query, serviceID, status, completionTime)
	if err != nil {
		return fmt.Errorf("update service status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrServiceNotFound
	}
	return nil
}

// UpdateEstimatedArrival сохраняет расчетное время прибытия техника
func (r *ServicePgRepository) UpdateEstimatedArrival(ctx context.Context, serviceID string, eta time.Time) error {
	query := `UPDATE services SET estimated_arrival = $2 WHERE id = $1`

	tag, err := r.pool.Exec(ctx, query, serviceID, eta)
	if err != nil {
		return fmt.Errorf("update service eta: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrServiceNotFound
	}
	return nil
}

// UpdateRating сохраняет оценку и отзыв клиента
func (r *ServicePgRepository) UpdateRating(ctx context.Context, serviceID string, rating int, feedback string) error {
	query := `UPDATE services SET rating = $2, feedback = $3 WHERE id = $1`

	tag, err := r.pool.Exec(ctx, query, serviceID, rating, feedback)
	if err != nil {
		return fmt.Errorf("update service rating: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrServiceNotFound
	}
	return nil
}
