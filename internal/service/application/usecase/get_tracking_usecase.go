package usecase

import (
	"context"

	"roadrescue/internal/service/application/ports/in"
	"roadrescue/internal/service/application/ports/out"
	"roadrescue/internal/service/domain"
	"roadrescue/internal/shared/logger"
)

// GetTrackingService собирает объединенный tracking-view заявки
type GetTrackingService struct {
	services  out.ServiceRepository
	tracking  out.TrackingRepository
	directory out.TechnicianDirectory
	log       *logger.Logger
}

func NewGetTrackingService(
	services out.ServiceRepository,
	tracking out.TrackingRepository,
	directory out.TechnicianDirectory,
	log *logger.Logger,
) *GetTrackingService {
	return &GetTrackingService{services: services, tracking: tracking, directory: directory, log: log}
}

func (s *GetTrackingService) Execute(ctx context.Context, serviceID string, caller in.Caller) (*in.TrackingView, error) {
	svc, err := s.services.FindByID(ctx, serviceID)
	if err != nil {
		return nil, err
	}

	if !canViewTracking(svc, caller) {
		return nil, domain.ErrUnauthorized
	}

	rec, err := s.tracking.FindByServiceID(ctx, serviceID)
	if err != nil {
		return nil, err
	}

	view := &in.TrackingView{
		TrackingRecord: *rec,
		ServiceType:    svc.Type,
		ServiceStatus:  svc.Status,
		VehicleDetails: svc.VehicleDetails,
		Address:        svc.Address,
	}
	if t, err := s.directory.FindByID(ctx, rec.TechnicianID); err == nil {
		view.Technician = &in.TechnicianSummary{
			ID:     t.ID,
			Name:   t.Name,
			Phone:  t.Phone,
			Rating: t.Rating,
		}
	}
	return view, nil
}

// canViewTracking: владелец заявки и привязанный техник видят tracking;
// заявки без владельца (созданные без аутентификации) доступны любому
// аутентифицированному вызывающему.
func canViewTracking(svc *domain.ServiceRequest, caller in.Caller) bool {
	if svc.AssignedTechnicianID != nil && *svc.AssignedTechnicianID == caller.UserID {
		return true
	}
	if svc.UserID != nil {
		return *svc.UserID == caller.UserID
	}
	return caller.UserID != ""
}
