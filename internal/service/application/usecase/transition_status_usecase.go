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
)

// TransitionStatusService переводит заявку в новый статус.
// Словарь статусов открытый: неизвестная строка логируется и
// сохраняется как есть (совместимость с существующими клиентами).
type TransitionStatusService struct {
	services  out.ServiceRepository
	tracking  out.TrackingRepository
	directory out.TechnicianDirectory
	publisher out.EventPublisher
	notifier  out.RealtimeNotifier
	log       *logger.Logger
}

func NewTransitionStatusService(
	services out.ServiceRepository,
	tracking out.TrackingRepository,
	directory out.TechnicianDirectory,
	publisher out.EventPublisher,
	notifier out.RealtimeNotifier,
	log *logger.Logger,
) *TransitionStatusService {
	return &TransitionStatusService{
		services:  services,
		tracking:  tracking,
		directory: directory,
		publisher: publisher,
		notifier:  notifier,
		log:       log,
	}
}

func (s *TransitionStatusService) Execute(ctx context.Context, serviceID, newStatus string) (*in.ServiceView, error) {
	if newStatus == "" {
		return nil, fmt.Errorf("%w: status", domain.ErrMissingRequiredField)
	}

	svc, err := s.services.FindByID(ctx, serviceID)
	if err != nil {
		return nil, err
	}

	if !domain.KnownServiceStatus(newStatus) && !knownTrackingStatus(newStatus) {
		s.log.Warn(logger.Entry{
			Action:    "unknown_service_status",
			Message:   "accepting status outside the known vocabulary",
			ServiceID: svc.ID,
			Additional: map[string]any{
				"status": newStatus,
			},
		})
	}

	var completionTime *time.Time
	if newStatus == constants.ServiceStatusCompleted {
		now := time.Now().UTC()
		completionTime = &now

		// освобождение техника идет до записи статуса, как в оригинале;
		// исчезнувший техник не блокирует завершение
		if svc.AssignedTechnicianID != nil {
			if err := s.directory.Release(ctx, *svc.AssignedTechnicianID, svc.ID); err != nil {
				if errors.Is(err, techdomain.ErrTechnicianNotFound) {
					s.log.Warn(logger.Entry{
						Action:    "release_skipped",
						Message:   "assigned technician no longer exists",
						ServiceID: svc.ID,
						Additional: map[string]any{
							"technician_id": *svc.AssignedTechnicianID,
						},
					})
				} else {
					return nil, fmt.Errorf("release technician: %w", err)
				}
			}
		}
	}

	if err := s.services.UpdateStatus(ctx, svc.ID, newStatus, completionTime); err != nil {
		return nil, fmt.Errorf("update status: %w", err)
	}
	svc.Status = newStatus
	if completionTime != nil {
		svc.CompletionTime = completionTime
	}

	if err := s.syncTracking(ctx, svc.ID, newStatus); err != nil {
		return nil, err
	}

	if err := s.publisher.PublishServiceEvent(ctx, constants.EventServiceStatusChanged, out.ServiceEventData{
		ServiceID: svc.ID,
		Status:    newStatus,
	}); err != nil {
		s.log.Warn(logger.Entry{
			Action:    "event_publish_failed",
			Message:   "failed to publish service.status_changed",
			ServiceID: svc.ID,
			Additional: map[string]any{
				"error": err.Error(),
			},
		})
	}
	if err := s.notifier.PublishStatus(ctx, svc.ID, newStatus); err != nil {
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
		Action:    "service_status_changed",
		Message:   "service transitioned",
		ServiceID: svc.ID,
		Additional: map[string]any{
			"status": newStatus,
		},
	})

	return populateView(ctx, svc, s.directory), nil
}

// syncTracking зеркалит статус в tracking-запись и проставляет
// milestone-время. Заявки без tracking (назначения не было)
// пропускаются молча.
func (s *TransitionStatusService) syncTracking(ctx context.Context, serviceID, status string) error {
	rec, err := s.tracking.FindByServiceID(ctx, serviceID)
	if err != nil {
		if errors.Is(err, domain.ErrTrackingNotFound) {
			return nil
		}
		return fmt.Errorf("load tracking: %w", err)
	}

	now := time.Now().UTC()
	rec.Status = status
	switch status {
	case constants.TrackingStatusArrived:
		rec.ActualArrival = &now
	case constants.TrackingStatusInProgress:
		rec.StartTime = &now
	case constants.TrackingStatusCompleted:
		rec.CompletionTime = &now
	}

	if err := s.tracking.Update(ctx, rec); err != nil {
		return fmt.Errorf("sync tracking: %w", err)
	}
	return nil
}

func knownTrackingStatus(s string) bool {
	switch s {
	case constants.TrackingStatusAssigned,
		constants.TrackingStatusEnRoute,
		constants.TrackingStatusArrived,
		constants.TrackingStatusInProgress,
		constants.TrackingStatusCompleted:
		return true
	}
	return false
}
