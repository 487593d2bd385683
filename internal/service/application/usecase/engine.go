package usecase

import (
	"context"
	"errors"
	"time"

	"roadrescue/internal/service/application/ports/in"
	"roadrescue/internal/service/application/ports/out"
	"roadrescue/internal/service/domain"
	constants "roadrescue/internal/shared/const"
	techdomain "roadrescue/internal/technician/domain"

	"github.com/google/uuid"
)

// reserveAndBind атомарно (в порядке записей оригинала: техник → заявка →
// tracking) привязывает техника к заявке. При strictReserve бронирование
// условное (set busy where status=available); иначе повторяется
// read-then-write последовательность референса.
func reserveAndBind(
	ctx context.Context,
	svc *domain.ServiceRequest,
	tech *techdomain.Technician,
	services out.ServiceRepository,
	tracking out.TrackingRepository,
	directory out.TechnicianDirectory,
	strictReserve bool,
) error {
	var err error
	if strictReserve {
		err = directory.ReserveIfAvailable(ctx, tech.ID, svc.ID)
	} else {
		err = directory.Reserve(ctx, tech.ID, svc.ID)
	}
	if err != nil {
		return err
	}

	if err := services.AssignTechnician(ctx, svc.ID, tech.ID); err != nil {
		return err
	}
	svc.AssignedTechnicianID = &tech.ID
	svc.Status = constants.ServiceStatusAssigned

	// tracking: создать при первом назначении, пересинхронизировать
	// при повторном (self-assign поверх существующей записи)
	rec, err := tracking.FindByServiceID(ctx, svc.ID)
	switch {
	case err == nil:
		// последняя отправленная позиция сохраняется: меняются только
		// техник и статус
		rec.TechnicianID = tech.ID
		rec.Status = constants.TrackingStatusAssigned
		return tracking.Update(ctx, rec)
	case errors.Is(err, domain.ErrTrackingNotFound):
		now := time.Now().UTC()
		rec = &domain.TrackingRecord{
			ID:           uuid.New().String(),
			ServiceID:    svc.ID,
			TechnicianID: tech.ID,
			Status:       constants.TrackingStatusAssigned,
			Latitude:     tech.Latitude,
			Longitude:    tech.Longitude,
			Notes:        []domain.Note{},
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		return tracking.Create(ctx, rec)
	default:
		return err
	}
}

// populateView разворачивает слабую ссылку на техника в краткую карточку
// (name, phone, rating). Недоступность техника не считается ошибкой.
func populateView(ctx context.Context, svc *domain.ServiceRequest, directory out.TechnicianDirectory) *in.ServiceView {
	view := &in.ServiceView{ServiceRequest: *svc}
	if svc.AssignedTechnicianID != nil {
		if t, err := directory.FindByID(ctx, *svc.AssignedTechnicianID); err == nil {
			view.AssignedTechnician = &in.TechnicianSummary{
				ID:     t.ID,
				Name:   t.Name,
				Phone:  t.Phone,
				Rating: t.Rating,
			}
		}
	}
	return view
}
