package usecase

import (
	"context"
	"errors"
	"fmt"

	"roadrescue/internal/service/application/ports/in"
	"roadrescue/internal/service/application/ports/out"
	"roadrescue/internal/service/domain"
	"roadrescue/internal/shared/logger"
	techdomain "roadrescue/internal/technician/domain"

	constants "roadrescue/internal/shared/const"
)

// RateServiceService — оценка завершенной заявки с пересчетом
// накопленного рейтинга техника
type RateServiceService struct {
	services  out.ServiceRepository
	directory out.TechnicianDirectory
	log       *logger.Logger
}

func NewRateServiceService(
	services out.ServiceRepository,
	directory out.TechnicianDirectory,
	log *logger.Logger,
) *RateServiceService {
	return &RateServiceService{services: services, directory: directory, log: log}
}

func (s *RateServiceService) Execute(ctx context.Context, input in.RateServiceInput) (*in.ServiceView, error) {
	if input.Rating < 1 || input.Rating > 5 {
		return nil, domain.ErrInvalidRating
	}

	svc, err := s.services.FindByID(ctx, input.ServiceID)
	if err != nil {
		return nil, err
	}
	if svc.Status != constants.ServiceStatusCompleted {
		return nil, domain.ErrServiceNotCompleted
	}

	if err := s.services.UpdateRating(ctx, svc.ID, input.Rating, input.Feedback); err != nil {
		return nil, fmt.Errorf("save rating: %w", err)
	}
	svc.Rating = &input.Rating
	svc.Feedback = input.Feedback

	if svc.AssignedTechnicianID != nil {
		if err := s.applyToTechnician(ctx, *svc.AssignedTechnicianID, input.Rating); err != nil {
			return nil, err
		}
	}

	s.log.Info(logger.Entry{
		Action:    "service_rated",
		Message:   "customer rated completed service",
		ServiceID: svc.ID,
		Additional: map[string]any{
			"rating": input.Rating,
		},
	})

	return populateView(ctx, svc, s.directory), nil
}

// applyToTechnician пересчитывает скользящее среднее. total_services уже
// увеличен release-ом при завершении, поэтому вес старого рейтинга —
// total-1. Нулевые поля подменяются дефолтами (total=1, rating=5).
func (s *RateServiceService) applyToTechnician(ctx context.Context, technicianID string, score int) error {
	tech, err := s.directory.FindByID(ctx, technicianID)
	if err != nil {
		if errors.Is(err, techdomain.ErrTechnicianNotFound) {
			return nil
		}
		return fmt.Errorf("load technician: %w", err)
	}

	total := tech.TotalServices
	if total == 0 {
		total = 1
	}
	current := tech.Rating
	if current == 0 {
		current = 5
	}
	updated := (current*float64(total-1) + float64(score)) / float64(total)

	if err := s.directory.UpdateRating(ctx, tech.ID, updated); err != nil {
		return fmt.Errorf("update technician rating: %w", err)
	}
	return nil
}
