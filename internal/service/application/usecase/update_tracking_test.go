package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"roadrescue/internal/service/application/ports/in"
	"roadrescue/internal/service/domain"

	constants "roadrescue/internal/shared/const"
)

func TestUpdateLocationRequiresBoundTechnician(t *testing.T) {
	f := newFixture()
	f.directory.add(availableTechnician("bound", 55.76, 37.62, 4.0, constants.ServiceTypeTowing))
	f.directory.add(availableTechnician("stranger", 59.93, 30.33, 4.0))
	serviceID := assignedService(t, f)

	before, _ := f.tracking.FindByServiceID(context.Background(), serviceID)
	f.notifier.pushed = nil // интересуют только push'и самого вызова

	_, err := f.updateTracking().UpdateLocation(context.Background(), in.UpdateLocationInput{
		ServiceID:    serviceID,
		TechnicianID: "stranger",
		Latitude:     55.70,
		Longitude:    37.50,
	})
	if !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("err = %v, want ErrUnauthorized", err)
	}

	// отказ в авторизации ничего не мутирует
	after, _ := f.tracking.FindByServiceID(context.Background(), serviceID)
	if after.Latitude != before.Latitude || after.Longitude != before.Longitude {
		t.Error("tracking mutated by unauthorized caller")
	}
	if len(f.notifier.pushed) != 0 {
		t.Errorf("no notifications expected, got %+v", f.notifier.pushed)
	}
}

func TestUpdateLocationMirrorsTechnicianRow(t *testing.T) {
	f := newFixture()
	f.directory.add(availableTechnician("bound", 55.76, 37.62, 4.0, constants.ServiceTypeTowing))
	serviceID := assignedService(t, f)

	rec, err := f.updateTracking().UpdateLocation(context.Background(), in.UpdateLocationInput{
		ServiceID:    serviceID,
		TechnicianID: "bound",
		Latitude:     55.70,
		Longitude:    37.50,
	})
	if err != nil {
		t.Fatalf("UpdateLocation: %v", err)
	}
	if rec.Latitude != 55.70 || rec.Longitude != 37.50 {
		t.Errorf("tracking location = (%v, %v)", rec.Latitude, rec.Longitude)
	}

	tech, _ := f.directory.FindByID(context.Background(), "bound")
	if tech.Latitude != 55.70 || tech.Longitude != 37.50 {
		t.Errorf("technician row not mirrored: (%v, %v)", tech.Latitude, tech.Longitude)
	}

	var gotPush bool
	for _, p := range f.notifier.pushed {
		if p.kind == "location" && p.serviceID == serviceID && p.lat == 55.70 {
			gotPush = true
		}
	}
	if !gotPush {
		t.Errorf("location push missing: %+v", f.notifier.pushed)
	}

	var gotEvent bool
	for _, e := range f.publisher.events {
		if e.eventType == constants.EventServiceLocationUpdated {
			gotEvent = true
		}
	}
	if !gotEvent {
		t.Errorf("service.location_updated missing: %+v", f.publisher.events)
	}
}

func TestUpdateLocationRejectsInvalidCoordinates(t *testing.T) {
	f := newFixture()
	f.directory.add(availableTechnician("bound", 55.76, 37.62, 4.0, constants.ServiceTypeTowing))
	serviceID := assignedService(t, f)

	_, err := f.updateTracking().UpdateLocation(context.Background(), in.UpdateLocationInput{
		ServiceID:    serviceID,
		TechnicianID: "bound",
		Latitude:     95,
		Longitude:    37.50,
	})
	if !errors.Is(err, domain.ErrInvalidCoordinates) {
		t.Fatalf("err = %v, want ErrInvalidCoordinates", err)
	}
}

func TestUpdateETAMirrorsService(t *testing.T) {
	f := newFixture()
	f.directory.add(availableTechnician("bound", 55.76, 37.62, 4.0, constants.ServiceTypeTowing))
	serviceID := assignedService(t, f)

	eta := time.Now().UTC().Add(25 * time.Minute).Truncate(time.Second)
	rec, err := f.updateTracking().UpdateETA(context.Background(), in.UpdateETAInput{
		ServiceID:        serviceID,
		TechnicianID:     "bound",
		EstimatedArrival: eta,
	})
	if err != nil {
		t.Fatalf("UpdateETA: %v", err)
	}
	if rec.EstimatedArrival == nil || !rec.EstimatedArrival.Equal(eta) {
		t.Errorf("tracking eta = %v, want %v", rec.EstimatedArrival, eta)
	}

	svc, _ := f.services.FindByID(context.Background(), serviceID)
	if svc.EstimatedArrival == nil || !svc.EstimatedArrival.Equal(eta) {
		t.Errorf("service eta not mirrored: %v", svc.EstimatedArrival)
	}

	var gotPush bool
	for _, p := range f.notifier.pushed {
		if p.kind == "technician" && p.eta != nil && p.eta.Equal(eta) {
			gotPush = true
		}
	}
	if !gotPush {
		t.Errorf("technician:update push missing: %+v", f.notifier.pushed)
	}
}

func TestAddNotePreservesOrder(t *testing.T) {
	f := newFixture()
	f.directory.add(availableTechnician("bound", 55.76, 37.62, 4.0, constants.ServiceTypeTowing))
	serviceID := assignedService(t, f)

	uc := f.updateTracking()
	for _, text := range []string{"need a spare wheel", "wheel replaced"} {
		if _, err := uc.AddNote(context.Background(), in.AddNoteInput{
			ServiceID:    serviceID,
			TechnicianID: "bound",
			Text:         text,
		}); err != nil {
			t.Fatalf("AddNote(%q): %v", text, err)
		}
	}

	rec, _ := f.tracking.FindByServiceID(context.Background(), serviceID)
	if len(rec.Notes) != 2 {
		t.Fatalf("notes = %d, want 2", len(rec.Notes))
	}
	if rec.Notes[0].Text != "need a spare wheel" || rec.Notes[1].Text != "wheel replaced" {
		t.Errorf("notes out of order: %+v", rec.Notes)
	}
	if rec.Notes[0].Timestamp.IsZero() {
		t.Error("note timestamp not set")
	}
}

func TestAddNoteRejectsEmptyText(t *testing.T) {
	f := newFixture()
	f.directory.add(availableTechnician("bound", 55.76, 37.62, 4.0, constants.ServiceTypeTowing))
	serviceID := assignedService(t, f)

	_, err := f.updateTracking().AddNote(context.Background(), in.AddNoteInput{
		ServiceID:    serviceID,
		TechnicianID: "bound",
	})
	if !errors.Is(err, domain.ErrMissingRequiredField) {
		t.Fatalf("err = %v, want ErrMissingRequiredField", err)
	}
}

func TestGetTrackingAuthorization(t *testing.T) {
	f := newFixture()
	f.directory.add(availableTechnician("bound", 55.76, 37.62, 4.0, constants.ServiceTypeTowing))

	owner := "customer-1"
	input := towingInput(55.75, 37.62)
	input.UserID = &owner
	view, err := f.createService().Execute(context.Background(), input)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	uc := f.getTracking()

	if _, err := uc.Execute(context.Background(), view.ID, in.Caller{UserID: owner, Role: constants.RoleCustomer}); err != nil {
		t.Errorf("owner must see tracking: %v", err)
	}
	if _, err := uc.Execute(context.Background(), view.ID, in.Caller{UserID: "bound", Role: constants.RoleTechnician}); err != nil {
		t.Errorf("bound technician must see tracking: %v", err)
	}
	if _, err := uc.Execute(context.Background(), view.ID, in.Caller{UserID: "somebody", Role: constants.RoleCustomer}); !errors.Is(err, domain.ErrUnauthorized) {
		t.Errorf("stranger: err = %v, want ErrUnauthorized", err)
	}
}

func TestGetTrackingOwnerlessServiceIsOpen(t *testing.T) {
	f := newFixture()
	f.directory.add(availableTechnician("bound", 55.76, 37.62, 4.0, constants.ServiceTypeTowing))
	serviceID := assignedService(t, f)

	// заявка без владельца (создана без токена) видна любому
	// аутентифицированному вызывающему
	got, err := f.getTracking().Execute(context.Background(), serviceID, in.Caller{UserID: "anyone", Role: constants.RoleCustomer})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if got.ServiceType != constants.ServiceTypeTowing {
		t.Errorf("serviceType = %q", got.ServiceType)
	}
	if got.Technician == nil || got.Technician.ID != "bound" {
		t.Errorf("technician summary = %+v", got.Technician)
	}
	if got.Address == "" || got.ServiceStatus == "" {
		t.Errorf("merged view incomplete: %+v", got)
	}
}

func TestGetTrackingMissingRecord(t *testing.T) {
	f := newFixture()
	view, err := f.createService().Execute(context.Background(), towingInput(55.75, 37.62))
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	_, err = f.getTracking().Execute(context.Background(), view.ID, in.Caller{UserID: "anyone", Role: constants.RoleCustomer})
	if !errors.Is(err, domain.ErrTrackingNotFound) {
		t.Fatalf("err = %v, want ErrTrackingNotFound", err)
	}
}
