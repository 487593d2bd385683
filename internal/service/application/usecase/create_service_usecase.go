package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"roadrescue/internal/service/application/ports/in"
	"roadrescue/internal/service/application/ports/out"
	"roadrescue/internal/service/domain"
	"roadrescue/internal/shared/logger"
	techdomain "roadrescue/internal/technician/domain"

	constants "roadrescue/internal/shared/const"

	"github.com/google/uuid"
)

// CreateServiceService — создание заявки с best-effort автоназначением
type CreateServiceService struct {
	services      out.ServiceRepository
	tracking      out.TrackingRepository
	directory     out.TechnicianDirectory
	publisher     out.EventPublisher
	notifier      out.RealtimeNotifier
	log           *logger.Logger
	strictReserve bool
}

func NewCreateServiceService(
	services out.ServiceRepository,
	tracking out.TrackingRepository,
	directory out.TechnicianDirectory,
	publisher out.EventPublisher,
	notifier out.RealtimeNotifier,
	log *logger.Logger,
	strictReserve bool,
) *CreateServiceService {
	return &CreateServiceService{
		services:      services,
		tracking:      tracking,
		directory:     directory,
		publisher:     publisher,
		notifier:      notifier,
		log:           log,
		strictReserve: strictReserve,
	}
}

func (s *CreateServiceService) Execute(ctx context.Context, input in.CreateServiceInput) (*in.ServiceView, error) {
	if input.Type == "" {
		return nil, fmt.Errorf("%w: type", domain.ErrMissingRequiredField)
	}
	if !domain.KnownServiceType(input.Type) {
		return nil, domain.ErrInvalidServiceType
	}
	if input.Address == "" {
		return nil, fmt.Errorf("%w: address", domain.ErrMissingRequiredField)
	}
	if input.Description == "" {
		return nil, fmt.Errorf("%w: description", domain.ErrMissingRequiredField)
	}

	var lat, lng *float64
	if input.Location != nil {
		if len(input.Location.Coordinates) != 2 {
			return nil, domain.ErrInvalidCoordinates
		}
		// GeoJSON: [longitude, latitude]
		lo, la := input.Location.Coordinates[0], input.Location.Coordinates[1]
		if err := domain.ValidateCoordinates(la, lo); err != nil {
			return nil, err
		}
		lat, lng = &la, &lo
	}

	svc := &domain.ServiceRequest{
		ID:             uuid.New().String(),
		UserID:         input.UserID,
		Type:           input.Type,
		Status:         constants.ServiceStatusPending,
		Latitude:       lat,
		Longitude:      lng,
		Address:        input.Address,
		ContactName:    input.ContactName,
		ContactPhone:   input.ContactPhone,
		VehicleDetails: input.VehicleDetails,
		Description:    input.Description,
		Cost:           input.EstimatedCost,
		PaymentStatus:  "pending",
		Priority:       domain.PriorityFor(input.Type),
		CreatedAt:      time.Now().UTC(),
	}

	if err := s.services.Create(ctx, svc); err != nil {
		return nil, fmt.Errorf("create service: %w", err)
	}

	s.log.Info(logger.Entry{
		Action:    "service_created",
		Message:   "service request created",
		ServiceID: svc.ID,
		Additional: map[string]any{
			"type":     svc.Type,
			"priority": svc.Priority,
		},
	})

	if candidate := s.selectCandidate(ctx, svc); candidate != nil {
		if err := reserveAndBind(ctx, svc, candidate, s.services, s.tracking, s.directory, s.strictReserve); err != nil {
			if errors.Is(err, techdomain.ErrTechnicianNotAvailable) {
				// кандидата перехватили между поиском и бронированием;
				// заявка остается pending
				s.log.Warn(logger.Entry{
					Action:    "assignment_conflict",
					Message:   "candidate technician became unavailable",
					ServiceID: svc.ID,
					Additional: map[string]any{
						"technician_id": candidate.ID,
					},
				})
			} else {
				return nil, fmt.Errorf("assign technician: %w", err)
			}
		} else {
			s.announceAssignment(ctx, svc, candidate.ID)
		}
	}

	return populateView(ctx, svc, s.directory), nil
}

// selectCandidate реализует эвристики подбора. Ошибки geo-запросов
// логируются и трактуются как «кандидат не найден»: создание заявки
// из-за них не проваливается.
func (s *CreateServiceService) selectCandidate(ctx context.Context, svc *domain.ServiceRequest) *techdomain.Technician {
	if svc.Type == constants.ServiceTypeEmergency {
		var candidate *techdomain.Technician
		if svc.HasLocation() {
			c, err := s.directory.FindTopRatedNearby(ctx, *svc.Latitude, *svc.Longitude, constants.EmergencySearchRadiusMeters)
			if err != nil {
				s.logSearchFailure(svc.ID, "emergency_nearby", err)
			} else {
				candidate = c
			}
		}
		if candidate == nil {
			c, err := s.directory.FindTopRatedAvailable(ctx)
			if err != nil {
				s.logSearchFailure(svc.ID, "emergency_fallback", err)
			} else {
				candidate = c
			}
		}
		return candidate
	}

	var candidate *techdomain.Technician
	if svc.HasLocation() {
		c, err := s.directory.FindNearestAvailable(ctx, *svc.Latitude, *svc.Longitude, constants.RegularSearchRadiusMeters, svc.Type)
		if err != nil {
			s.logSearchFailure(svc.ID, "nearest_available", err)
		} else {
			candidate = c
		}
	} else {
		// без координат опускается только фильтр по расстоянию;
		// доступность и specialty по-прежнему учитываются
		c, err := s.directory.FindAvailableBySpecialty(ctx, svc.Type)
		if err != nil {
			s.logSearchFailure(svc.ID, "available_by_specialty", err)
		} else {
			candidate = c
		}
	}
	if candidate == nil {
		// fallback без фильтров по доступности и specialty
		c, err := s.directory.FindMostRecent(ctx)
		if err != nil {
			s.logSearchFailure(svc.ID, "most_recent_fallback", err)
		} else {
			candidate = c
		}
	}
	return candidate
}

func (s *CreateServiceService) logSearchFailure(serviceID, stage string, err error) {
	s.log.Warn(logger.Entry{
		Action:    "technician_search_failed",
		Message:   "technician search stage failed, treating as no match",
		ServiceID: serviceID,
		Additional: map[string]any{
			"stage": stage,
			"error": err.Error(),
		},
	})
}

func (s *CreateServiceService) announceAssignment(ctx context.Context, svc *domain.ServiceRequest, technicianID string) {
	if err := s.publisher.PublishServiceEvent(ctx, constants.EventServiceAssigned, out.ServiceEventData{
		ServiceID:    svc.ID,
		TechnicianID: technicianID,
		Status:       svc.Status,
	}); err != nil {
		s.log.Warn(logger.Entry{
			Action:    "event_publish_failed",
			Message:   "failed to publish service.assigned",
			ServiceID: svc.ID,
			Additional: map[string]any{
				"error": err.Error(),
			},
		})
	}
	if err := s.notifier.PublishStatus(ctx, svc.ID, svc.Status); err != nil {
		s.log.Warn(logger.Entry{
			Action:    "notify_failed",
			Message:   "failed to push status update",
			ServiceID: svc.ID,
			Additional: map[string]any{
				"error": err.Error(),
			},
		})
	}

	s.log.Info(logger.Entry{
		Action:    "technician_assigned",
		Message:   "technician assigned to service",
		ServiceID: svc.ID,
		Additional: map[string]any{
			"technician_id": technicianID,
		},
	})
}
