package usecase

import (
	"context"
	"fmt"
	"time"

	"roadrescue/internal/service/application/ports/in"
	"roadrescue/internal/service/application/ports/out"
	"roadrescue/internal/service/domain"
	"roadrescue/internal/shared/logger"

	constants "roadrescue/internal/shared/const"
)

// UpdateTrackingService — операции техника над tracking-записью.
// Каждая операция авторизуется: вызывающий обязан быть техником,
// привязанным к заявке на момент вызова.
type UpdateTrackingService struct {
	services  out.ServiceRepository
	tracking  out.TrackingRepository
	directory out.TechnicianDirectory
	publisher out.EventPublisher
	notifier  out.RealtimeNotifier
	log       *logger.Logger
}

func NewUpdateTrackingService(
	services out.ServiceRepository,
	tracking out.TrackingRepository,
	directory out.TechnicianDirectory,
	publisher out.EventPublisher,
	notifier out.RealtimeNotifier,
	log *logger.Logger,
) *UpdateTrackingService {
	return &UpdateTrackingService{
		services:  services,
		tracking:  tracking,
		directory: directory,
		publisher: publisher,
		notifier:  notifier,
		log:       log,
	}
}

// authorize возвращает заявку, если technicianID — привязанный техник
func (s *UpdateTrackingService) authorize(ctx context.Context, serviceID, technicianID string) (*domain.ServiceRequest, error) {
	svc, err := s.services.FindByID(ctx, serviceID)
	if err != nil {
		return nil, err
	}
	if svc.AssignedTechnicianID == nil || *svc.AssignedTechnicianID != technicianID {
		return nil, domain.ErrUnauthorized
	}
	return svc, nil
}

func (s *UpdateTrackingService) UpdateLocation(ctx context.Context, input in.UpdateLocationInput) (*domain.TrackingRecord, error) {
	if _, err := s.authorize(ctx, input.ServiceID, input.TechnicianID); err != nil {
		return nil, err
	}
	if err := domain.ValidateCoordinates(input.Latitude, input.Longitude); err != nil {
		return nil, err
	}

	// позиция зеркалится в запись техника: она же источник для geo-поиска
	if _, err := s.directory.UpdateLocation(ctx, input.TechnicianID, input.Latitude, input.Longitude); err != nil {
		return nil, fmt.Errorf("update technician location: %w", err)
	}

	rec, err := s.tracking.UpdateLocation(ctx, input.ServiceID, input.Latitude, input.Longitude)
	if err != nil {
		return nil, err
	}

	if err := s.notifier.PublishLocation(ctx, input.ServiceID, input.Latitude, input.Longitude); err != nil {
		s.logPushFailure(input.ServiceID, err)
	}
	if err := s.publisher.PublishServiceEvent(ctx, constants.EventServiceLocationUpdated, out.ServiceEventData{
		ServiceID:    input.ServiceID,
		TechnicianID: input.TechnicianID,
		AdditionalData: map[string]any{
			"latitude":  input.Latitude,
			"longitude": input.Longitude,
		},
	}); err != nil {
		s.log.Warn(logger.Entry{
			Action:    "event_publish_failed",
			Message:   "failed to publish service.location_updated",
			ServiceID: input.ServiceID,
			Additional: map[string]any{
				"error": err.Error(),
			},
		})
	}

	return rec, nil
}

func (s *UpdateTrackingService) UpdateETA(ctx context.Context, input in.UpdateETAInput) (*domain.TrackingRecord, error) {
	if _, err := s.authorize(ctx, input.ServiceID, input.TechnicianID); err != nil {
		return nil, err
	}

	if err := s.services.UpdateEstimatedArrival(ctx, input.ServiceID, input.EstimatedArrival); err != nil {
		return nil, fmt.Errorf("update service eta: %w", err)
	}

	rec, err := s.tracking.FindByServiceID(ctx, input.ServiceID)
	if err != nil {
		return nil, err
	}
	eta := input.EstimatedArrival
	rec.EstimatedArrival = &eta
	if err := s.tracking.Update(ctx, rec); err != nil {
		return nil, fmt.Errorf("update tracking eta: %w", err)
	}

	if err := s.notifier.PublishTechnicianUpdate(ctx, input.ServiceID, &eta, nil); err != nil {
		s.logPushFailure(input.ServiceID, err)
	}

	return rec, nil
}

func (s *UpdateTrackingService) AddNote(ctx context.Context, input in.AddNoteInput) (*domain.TrackingRecord, error) {
	if _, err := s.authorize(ctx, input.ServiceID, input.TechnicianID); err != nil {
		return nil, err
	}
	if input.Text == "" {
		return nil, fmt.Errorf("%w: note", domain.ErrMissingRequiredField)
	}

	note := domain.Note{Text: input.Text, Timestamp: time.Now().UTC()}
	rec, err := s.tracking.AppendNote(ctx, input.ServiceID, note)
	if err != nil {
		return nil, err
	}

	if err := s.notifier.PublishTechnicianUpdate(ctx, input.ServiceID, nil, &note); err != nil {
		s.logPushFailure(input.ServiceID, err)
	}

	return rec, nil
}

func (s *UpdateTrackingService) logPushFailure(serviceID string, err error) {
	s.log.Warn(logger.Entry{
		Action:    "notify_failed",
		Message:   "failed to push tracking update",
		ServiceID: serviceID,
		Additional: map[string]any{
			"error": err.Error(),
		},
	})
}
