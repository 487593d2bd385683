package usecase

import (
	"context"

	"roadrescue/internal/service/application/ports/in"
	"roadrescue/internal/service/application/ports/out"
)

// ServiceQueryService — read-путь заявок
type ServiceQueryService struct {
	services  out.ServiceRepository
	directory out.TechnicianDirectory
}

func NewServiceQueryService(services out.ServiceRepository, directory out.TechnicianDirectory) *ServiceQueryService {
	return &ServiceQueryService{services: services, directory: directory}
}

func (s *ServiceQueryService) Get(ctx context.Context, serviceID string) (*in.ServiceView, error) {
	svc, err := s.services.FindByID(ctx, serviceID)
	if err != nil {
		return nil, err
	}
	return populateView(ctx, svc, s.directory), nil
}

func (s *ServiceQueryService) List(ctx context.Context) ([]*in.ServiceView, error) {
	list, err := s.services.FindAll(ctx)
	if err != nil {
		return nil, err
	}
	views := make([]*in.ServiceView, 0, len(list))
	for _, svc := range list {
		views = append(views, populateView(ctx, svc, s.directory))
	}
	return views, nil
}

func (s *ServiceQueryService) ListAssignedTo(ctx context.Context, technicianID string) ([]*in.ServiceView, error) {
	list, err := s.services.FindByTechnician(ctx, technicianID)
	if err != nil {
		return nil, err
	}
	views := make([]*in.ServiceView, 0, len(list))
	for _, svc := range list {
		views = append(views, populateView(ctx, svc, s.directory))
	}
	return views, nil
}
