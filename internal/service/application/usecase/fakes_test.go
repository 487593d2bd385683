package usecase

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"roadrescue/internal/service/application/ports/out"
	"roadrescue/internal/service/domain"
	"roadrescue/internal/shared/logger"
	techdomain "roadrescue/internal/technician/domain"

	constants "roadrescue/internal/shared/const"
)

// ---------------------------------------------------------------------------
// In-memory реализации out-портов для тестов движка
// ---------------------------------------------------------------------------

type fakeServiceRepo struct {
	mu       sync.Mutex
	services map[string]*domain.ServiceRequest
	failAll  bool
}

func newFakeServiceRepo() *fakeServiceRepo {
	return &fakeServiceRepo{services: map[string]*domain.ServiceRequest{}}
}

func (r *fakeServiceRepo) Create(_ context.Context, svc *domain.ServiceRequest) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failAll {
		return fmt.Errorf("storage down")
	}
	cp := *svc
	r.services[svc.ID] = &cp
	return nil
}

func (r *fakeServiceRepo) FindByID(_ context.Context, serviceID string) (*domain.ServiceRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	svc, ok := r.services[serviceID]
	if !ok {
		return nil, domain.ErrServiceNotFound
	}
	cp := *svc
	return &cp, nil
}

func (r *fakeServiceRepo) FindAll(_ context.Context) ([]*domain.ServiceRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var list []*domain.ServiceRequest
	for _, svc := range r.services {
		cp := *svc
		list = append(list, &cp)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].CreatedAt.After(list[j].CreatedAt) })
	return list, nil
}

func (r *fakeServiceRepo) FindByTechnician(_ context.Context, technicianID string) ([]*domain.ServiceRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var list []*domain.ServiceRequest
	for _, svc := range r.services {
		if svc.AssignedTechnicianID != nil && *svc.AssignedTechnicianID == technicianID {
			cp := *svc
			list = append(list, &cp)
		}
	}
	sort.Slice(list, func(i, j int) bool { return list[i].CreatedAt.After(list[j].CreatedAt) })
	return list, nil
}

func (r *fakeServiceRepo) AssignTechnician(_ context.Context, serviceID, technicianID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	svc, ok := r.services[serviceID]
	if !ok {
		return domain.ErrServiceNotFound
	}
	id := technicianID
	svc.AssignedTechnicianID = &id
	svc.Status = constants.ServiceStatusAssigned
	return nil
}

func (r *fakeServiceRepo) UpdateStatus(_ context.Context, serviceID, status string, completionTime *time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	svc, ok := r.services[serviceID]
	if !ok {
		return domain.ErrServiceNotFound
	}
	svc.Status = status
	if completionTime != nil {
		svc.CompletionTime = completionTime
	}
	return nil
}

func (r *fakeServiceRepo) UpdateEstimatedArrival(_ context.Context, serviceID string, eta time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	svc, ok := r.services[serviceID]
	if !ok {
		return domain.ErrServiceNotFound
	}
	svc.EstimatedArrival = &eta
	return nil
}

func (r *fakeServiceRepo) UpdateRating(_ context.Context, serviceID string, rating int, feedback string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	svc, ok := r.services[serviceID]
	if !ok {
		return domain.ErrServiceNotFound
	}
	svc.Rating = &rating
	svc.Feedback = feedback
	return nil
}

type fakeTrackingRepo struct {
	mu      sync.Mutex
	records map[string]*domain.TrackingRecord // keyed by service ID
}

func newFakeTrackingRepo() *fakeTrackingRepo {
	return &fakeTrackingRepo{records: map[string]*domain.TrackingRecord{}}
}

func (r *fakeTrackingRepo) Create(_ context.Context, rec *domain.TrackingRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *rec
	cp.Notes = append([]domain.Note{}, rec.Notes...)
	r.records[rec.ServiceID] = &cp
	return nil
}

func (r *fakeTrackingRepo) FindByServiceID(_ context.Context, serviceID string) (*domain.TrackingRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[serviceID]
	if !ok {
		return nil, domain.ErrTrackingNotFound
	}
	cp := *rec
	cp.Notes = append([]domain.Note{}, rec.Notes...)
	return &cp, nil
}

func (r *fakeTrackingRepo) Update(_ context.Context, rec *domain.TrackingRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.records[rec.ServiceID]
	if !ok {
		return domain.ErrTrackingNotFound
	}
	notes := stored.Notes
	cp := *rec
	cp.Notes = notes
	cp.UpdatedAt = time.Now().UTC()
	r.records[rec.ServiceID] = &cp
	return nil
}

func (r *fakeTrackingRepo) UpdateLocation(_ context.Context, serviceID string, lat, lng float64) (*domain.TrackingRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[serviceID]
	if !ok {
		return nil, domain.ErrTrackingNotFound
	}
	rec.Latitude = lat
	rec.Longitude = lng
	rec.UpdatedAt = time.Now().UTC()
	cp := *rec
	cp.Notes = append([]domain.Note{}, rec.Notes...)
	return &cp, nil
}

func (r *fakeTrackingRepo) AppendNote(_ context.Context, serviceID string, note domain.Note) (*domain.TrackingRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[serviceID]
	if !ok {
		return nil, domain.ErrTrackingNotFound
	}
	rec.Notes = append(rec.Notes, note)
	rec.UpdatedAt = time.Now().UTC()
	cp := *rec
	cp.Notes = append([]domain.Note{}, rec.Notes...)
	return &cp, nil
}

type fakeDirectory struct {
	mu          sync.Mutex
	technicians map[string]*techdomain.Technician
	history     map[string][]string
	searchErr   error // имитация отказа geo-запросов
}

func newFakeDirectory() *fakeDirectory {
	return &fakeDirectory{
		technicians: map[string]*techdomain.Technician{},
		history:     map[string][]string{},
	}
}

func (d *fakeDirectory) add(t *techdomain.Technician) {
	d.mu.Lock()
	defer d.mu.Unlock()
	cp := *t
	d.technicians[t.ID] = &cp
}

func (d *fakeDirectory) FindByID(_ context.Context, technicianID string) (*techdomain.Technician, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	t, ok := d.technicians[technicianID]
	if !ok {
		return nil, techdomain.ErrTechnicianNotFound
	}
	cp := *t
	return &cp, nil
}

// haversineMeters — расстояние между двумя точками по сфере
func haversineMeters(lat1, lng1, lat2, lng2 float64) float64 {
	const earthRadius = 6371000.0
	toRad := func(deg float64) float64 { return deg * math.Pi / 180 }
	dLat := toRad(lat2 - lat1)
	dLng := toRad(lng2 - lng1)
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(lat1))*math.Cos(toRad(lat2))*math.Sin(dLng/2)*math.Sin(dLng/2)
	return 2 * earthRadius * math.Asin(math.Sqrt(a))
}

func (d *fakeDirectory) FindNearestAvailable(_ context.Context, lat, lng, radiusMeters float64, specialty string) (*techdomain.Technician, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.searchErr != nil {
		return nil, d.searchErr
	}
	var best *techdomain.Technician
	bestDist := math.MaxFloat64
	for _, t := range d.technicians {
		if t.Status != constants.TechnicianAvailable {
			continue
		}
		if specialty != "" && !t.HasSpecialty(specialty) {
			continue
		}
		dist := haversineMeters(lat, lng, t.Latitude, t.Longitude)
		if dist > radiusMeters {
			continue
		}
		if dist < bestDist {
			bestDist = dist
			best = t
		}
	}
	if best == nil {
		return nil, nil
	}
	cp := *best
	return &cp, nil
}

func (d *fakeDirectory) FindTopRatedNearby(_ context.Context, lat, lng, radiusMeters float64) (*techdomain.Technician, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.searchErr != nil {
		return nil, d.searchErr
	}
	var best *techdomain.Technician
	for _, t := range d.technicians {
		if t.Status != constants.TechnicianAvailable {
			continue
		}
		if haversineMeters(lat, lng, t.Latitude, t.Longitude) > radiusMeters {
			continue
		}
		if best == nil || t.Rating > best.Rating {
			best = t
		}
	}
	if best == nil {
		return nil, nil
	}
	cp := *best
	return &cp, nil
}

func (d *fakeDirectory) FindTopRatedAvailable(_ context.Context) (*techdomain.Technician, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.searchErr != nil {
		return nil, d.searchErr
	}
	var best *techdomain.Technician
	for _, t := range d.technicians {
		if t.Status != constants.TechnicianAvailable {
			continue
		}
		if best == nil || t.Rating > best.Rating {
			best = t
		}
	}
	if best == nil {
		return nil, nil
	}
	cp := *best
	return &cp, nil
}

func (d *fakeDirectory) FindAvailableBySpecialty(_ context.Context, specialty string) (*techdomain.Technician, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.searchErr != nil {
		return nil, d.searchErr
	}
	var earliest *techdomain.Technician
	for _, t := range d.technicians {
		if t.Status != constants.TechnicianAvailable || !t.HasSpecialty(specialty) {
			continue
		}
		if earliest == nil || t.CreatedAt.Before(earliest.CreatedAt) {
			earliest = t
		}
	}
	if earliest == nil {
		return nil, nil
	}
	cp := *earliest
	return &cp, nil
}

func (d *fakeDirectory) FindMostRecent(_ context.Context) (*techdomain.Technician, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.searchErr != nil {
		return nil, d.searchErr
	}
	var latest *techdomain.Technician
	for _, t := range d.technicians {
		if latest == nil || t.CreatedAt.After(latest.CreatedAt) {
			latest = t
		}
	}
	if latest == nil {
		return nil, nil
	}
	cp := *latest
	return &cp, nil
}

func (d *fakeDirectory) Reserve(_ context.Context, technicianID, serviceID string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	t, ok := d.technicians[technicianID]
	if !ok {
		return techdomain.ErrTechnicianNotFound
	}
	id := serviceID
	t.Status = constants.TechnicianBusy
	t.CurrentServiceID = &id
	return nil
}

func (d *fakeDirectory) ReserveIfAvailable(_ context.Context, technicianID, serviceID string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	t, ok := d.technicians[technicianID]
	if !ok || t.Status != constants.TechnicianAvailable {
		return techdomain.ErrTechnicianNotAvailable
	}
	id := serviceID
	t.Status = constants.TechnicianBusy
	t.CurrentServiceID = &id
	return nil
}

func (d *fakeDirectory) Release(_ context.Context, technicianID, serviceID string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	t, ok := d.technicians[technicianID]
	if !ok {
		return techdomain.ErrTechnicianNotFound
	}
	t.Status = constants.TechnicianAvailable
	t.CurrentServiceID = nil
	t.TotalServices++
	d.history[technicianID] = append(d.history[technicianID], serviceID)
	return nil
}

func (d *fakeDirectory) UpdateRating(_ context.Context, technicianID string, rating float64) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	t, ok := d.technicians[technicianID]
	if !ok {
		return techdomain.ErrTechnicianNotFound
	}
	t.Rating = rating
	return nil
}

func (d *fakeDirectory) UpdateLocation(_ context.Context, technicianID string, lat, lng float64) (*techdomain.Technician, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	t, ok := d.technicians[technicianID]
	if !ok {
		return nil, techdomain.ErrTechnicianNotFound
	}
	t.Latitude = lat
	t.Longitude = lng
	cp := *t
	return &cp, nil
}

type publishedEvent struct {
	eventType    string
	serviceID    string
	technicianID string
	status       string
}

type fakePublisher struct {
	mu     sync.Mutex
	events []publishedEvent
	err    error
}

func (p *fakePublisher) PublishServiceEvent(_ context.Context, eventType string, data out.ServiceEventData) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, publishedEvent{
		eventType:    eventType,
		serviceID:    data.ServiceID,
		technicianID: data.TechnicianID,
		status:       data.Status,
	})
	return nil
}

type notification struct {
	kind      string // location | status | technician
	serviceID string
	status    string
	lat, lng  float64
	eta       *time.Time
	note      *domain.Note
}

type fakeNotifier struct {
	mu     sync.Mutex
	pushed []notification
	err    error
}

func (n *fakeNotifier) PublishLocation(_ context.Context, serviceID string, lat, lng float64) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return n.err
	}
	n.pushed = append(n.pushed, notification{kind: "location", serviceID: serviceID, lat: lat, lng: lng})
	return nil
}

func (n *fakeNotifier) PublishStatus(_ context.Context, serviceID, status string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return n.err
	}
	n.pushed = append(n.pushed, notification{kind: "status", serviceID: serviceID, status: status})
	return nil
}

func (n *fakeNotifier) PublishTechnicianUpdate(_ context.Context, serviceID string, eta *time.Time, note *domain.Note) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return n.err
	}
	n.pushed = append(n.pushed, notification{kind: "technician", serviceID: serviceID, eta: eta, note: note})
	return nil
}

// ---------------------------------------------------------------------------
// Общая тестовая арматура
// ---------------------------------------------------------------------------

type fixture struct {
	services  *fakeServiceRepo
	tracking  *fakeTrackingRepo
	directory *fakeDirectory
	publisher *fakePublisher
	notifier  *fakeNotifier
	log       *logger.Logger
}

func newFixture() *fixture {
	return &fixture{
		services:  newFakeServiceRepo(),
		tracking:  newFakeTrackingRepo(),
		directory: newFakeDirectory(),
		publisher: &fakePublisher{},
		notifier:  &fakeNotifier{},
		log:       logger.NewLogger("roadrescue-test"),
	}
}

func (f *fixture) createService() *CreateServiceService {
	return NewCreateServiceService(f.services, f.tracking, f.directory, f.publisher, f.notifier, f.log, false)
}

func (f *fixture) createServiceStrict() *CreateServiceService {
	return NewCreateServiceService(f.services, f.tracking, f.directory, f.publisher, f.notifier, f.log, true)
}

func (f *fixture) selfAssign() *SelfAssignService {
	return NewSelfAssignService(f.services, f.tracking, f.directory, f.publisher, f.notifier, f.log)
}

func (f *fixture) transition() *TransitionStatusService {
	return NewTransitionStatusService(f.services, f.tracking, f.directory, f.publisher, f.notifier, f.log)
}

func (f *fixture) rate() *RateServiceService {
	return NewRateServiceService(f.services, f.directory, f.log)
}

func (f *fixture) updateTracking() *UpdateTrackingService {
	return NewUpdateTrackingService(f.services, f.tracking, f.directory, f.publisher, f.notifier, f.log)
}

func (f *fixture) getTracking() *GetTrackingService {
	return NewGetTrackingService(f.services, f.tracking, f.directory, f.log)
}

func (f *fixture) queries() *ServiceQueryService {
	return NewServiceQueryService(f.services, f.directory)
}

func availableTechnician(id string, lat, lng, rating float64, specialties ...string) *techdomain.Technician {
	return &techdomain.Technician{
		ID:          id,
		Name:        "Tech " + id,
		Email:       id + "@example.com",
		Phone:       "+10000000000",
		Latitude:    lat,
		Longitude:   lng,
		Status:      constants.TechnicianAvailable,
		Rating:      rating,
		Specialties: specialties,
		CreatedAt:   time.Now().UTC(),
	}
}
