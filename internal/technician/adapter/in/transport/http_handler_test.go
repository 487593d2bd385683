package transport

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"roadrescue/internal/shared/logger"
	"roadrescue/internal/technician/domain"
)

// fakeTechnicianRepo — in-memory реализация порта для тестов handler'а
type fakeTechnicianRepo struct {
	technicians map[string]*domain.Technician
	history     map[string][]string
}

func newFakeTechnicianRepo() *fakeTechnicianRepo {
	return &fakeTechnicianRepo{
		technicians: map[string]*domain.Technician{},
		history:     map[string][]string{},
	}
}

func (f *fakeTechnicianRepo) FindByID(_ context.Context, id string) (*domain.Technician, error) {
	t, ok := f.technicians[id]
	if !ok {
		return nil, domain.ErrTechnicianNotFound
	}
	copied := *t
	return &copied, nil
}

func (f *fakeTechnicianRepo) UpdateLocation(_ context.Context, id string, lat, lng float64) (*domain.Technician, error) {
	t, ok := f.technicians[id]
	if !ok {
		return nil, domain.ErrTechnicianNotFound
	}
	t.Latitude = lat
	t.Longitude = lng
	copied := *t
	return &copied, nil
}

func (f *fakeTechnicianRepo) Delete(_ context.Context, id string) error {
	t, ok := f.technicians[id]
	if !ok {
		return domain.ErrTechnicianNotFound
	}
	if t.CurrentServiceID != nil {
		return domain.ErrTechnicianHasActiveService
	}
	delete(f.technicians, id)
	return nil
}

func (f *fakeTechnicianRepo) ServiceHistory(_ context.Context, id string) ([]string, error) {
	return f.history[id], nil
}

func newTestServer(t *testing.T, repo *fakeTechnicianRepo) *httptest.Server {
	t.Helper()

	handler := NewHTTPHandler(repo, logger.NewLogger("roadrescue-test"))
	mux := http.NewServeMux()
	passthrough := func(next http.HandlerFunc) http.HandlerFunc { return next }
	handler.RegisterRoutes(mux, passthrough)

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func doJSON(t *testing.T, method, url, body string) *http.Response {
	t.Helper()

	req, err := http.NewRequest(method, url, strings.NewReader(body))
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestUpdateLocationEndpoint(t *testing.T) {
	repo := newFakeTechnicianRepo()
	repo.technicians["tech-1"] = &domain.Technician{ID: "tech-1", Name: "Igor"}
	srv := newTestServer(t, repo)

	resp := doJSON(t, http.MethodPut, srv.URL+"/technicians/tech-1/location",
		`{"latitude": 55.75, "longitude": 37.62}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var updated domain.Technician
	if err := json.NewDecoder(resp.Body).Decode(&updated); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if updated.Latitude != 55.75 || updated.Longitude != 37.62 {
		t.Errorf("location = (%v, %v), want (55.75, 37.62)", updated.Latitude, updated.Longitude)
	}

	resp = doJSON(t, http.MethodPut, srv.URL+"/technicians/tech-1/location",
		`{"latitude": 91, "longitude": 0}`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("invalid latitude: status = %d, want 400", resp.StatusCode)
	}

	resp = doJSON(t, http.MethodPut, srv.URL+"/technicians/ghost/location",
		`{"latitude": 55.75, "longitude": 37.62}`)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("unknown technician: status = %d, want 404", resp.StatusCode)
	}
}

func TestDeleteEndpointRejectsBusyTechnician(t *testing.T) {
	repo := newFakeTechnicianRepo()
	serviceID := "svc-1"
	repo.technicians["busy"] = &domain.Technician{ID: "busy", CurrentServiceID: &serviceID}
	repo.technicians["idle"] = &domain.Technician{ID: "idle"}
	srv := newTestServer(t, repo)

	resp := doJSON(t, http.MethodDelete, srv.URL+"/technicians/busy", "")
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("busy technician: status = %d, want 400", resp.StatusCode)
	}
	if _, ok := repo.technicians["busy"]; !ok {
		t.Error("busy technician was deleted")
	}

	resp = doJSON(t, http.MethodDelete, srv.URL+"/technicians/idle", "")
	if resp.StatusCode != http.StatusOK {
		t.Errorf("idle technician: status = %d, want 200", resp.StatusCode)
	}
	if _, ok := repo.technicians["idle"]; ok {
		t.Error("idle technician still present after delete")
	}

	resp = doJSON(t, http.MethodDelete, srv.URL+"/technicians/ghost", "")
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("unknown technician: status = %d, want 404", resp.StatusCode)
	}
}

func TestServiceHistoryEndpoint(t *testing.T) {
	repo := newFakeTechnicianRepo()
	repo.history["tech-1"] = []string{"svc-1", "svc-2"}
	srv := newTestServer(t, repo)

	resp := doJSON(t, http.MethodGet, srv.URL+"/technicians/tech-1/history", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var payload struct {
		ServiceHistory []string `json:"serviceHistory"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(payload.ServiceHistory) != 2 || payload.ServiceHistory[0] != "svc-1" || payload.ServiceHistory[1] != "svc-2" {
		t.Errorf("serviceHistory = %v, want [svc-1 svc-2]", payload.ServiceHistory)
	}

	// техник без истории получает пустой список, не null
	resp = doJSON(t, http.MethodGet, srv.URL+"/technicians/fresh/history", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	var raw map[string]json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if string(raw["serviceHistory"]) != "[]" {
		t.Errorf("empty history serialized as %s, want []", raw["serviceHistory"])
	}
}
