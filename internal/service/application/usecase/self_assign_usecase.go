package usecase

import (
	"context"
	"fmt"

	"roadrescue/internal/service/application/ports/in"
	"roadrescue/internal/service/application/ports/out"
	"roadrescue/internal/shared/logger"

	constants "roadrescue/internal/shared/const"
)

// SelfAssignService — техник забирает заявку сам. Проверок занятости и
// specialty нет намеренно: техник может взять вторую заявку поверх
// текущей, ссылка current_service_id просто перезаписывается.
type SelfAssignService struct {
	services  out.ServiceRepository
	tracking  out.TrackingRepository
	directory out.TechnicianDirectory
	publisher out.EventPublisher
	notifier  out.RealtimeNotifier
	log       *logger.Logger
}

func NewSelfAssignService(
	services out.ServiceRepository,
	tracking out.TrackingRepository,
	directory out.TechnicianDirectory,
	publisher out.EventPublisher,
	notifier out.RealtimeNotifier,
	log *logger.Logger,
) *SelfAssignService {
	return &SelfAssignService{
		services:  services,
		tracking:  tracking,
		directory: directory,
		publisher: publisher,
		notifier:  notifier,
		log:       log,
	}
}

func (s *SelfAssignService) Execute(ctx context.Context, serviceID, technicianID string) (*in.ServiceView, error) {
	svc, err := s.services.FindByID(ctx, serviceID)
	if err != nil {
		return nil, err
	}
	tech, err := s.directory.FindByID(ctx, technicianID)
	if err != nil {
		return nil, err
	}

	if err := reserveAndBind(ctx, svc, tech, s.services, s.tracking, s.directory, false); err != nil {
		return nil, fmt.Errorf("self assign: %w", err)
	}

	if err := s.publisher.PublishServiceEvent(ctx, constants.EventServiceAssigned, out.ServiceEventData{
		ServiceID:    svc.ID,
		TechnicianID: tech.ID,
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
		Action:    "technician_self_assigned",
		Message:   "technician accepted service",
		ServiceID: svc.ID,
		Additional: map[string]any{
			"technician_id": tech.ID,
		},
	})

	return populateView(ctx, svc, s.directory), nil
}
