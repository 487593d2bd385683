package transport

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"roadrescue/internal/service/application/ports/in"
	"roadrescue/internal/service/domain"
	"roadrescue/internal/shared/logger"
	techdomain "roadrescue/internal/technician/domain"
)

const maxBodySize = 1 << 20 // 1MB

// HTTPHandler обрабатывает HTTP запросы движка заявок
type HTTPHandler struct {
	create     in.CreateServiceUseCase
	selfAssign in.SelfAssignUseCase
	transition in.TransitionStatusUseCase
	rate       in.RateServiceUseCase
	queries    in.ServiceQueries
	tracking   in.UpdateTrackingUseCase
	trackView  in.GetTrackingUseCase
	log        *logger.Logger
}

// NewHTTPHandler создает новый HTTP handler
func NewHTTPHandler(
	create in.CreateServiceUseCase,
	selfAssign in.SelfAssignUseCase,
	transition in.TransitionStatusUseCase,
	rate in.RateServiceUseCase,
	queries in.ServiceQueries,
	tracking in.UpdateTrackingUseCase,
	trackView in.GetTrackingUseCase,
	log *logger.Logger,
) *HTTPHandler {
	return &HTTPHandler{
		create:     create,
		selfAssign: selfAssign,
		transition: transition,
		rate:       rate,
		queries:    queries,
		tracking:   tracking,
		trackView:  trackView,
		log:        log,
	}
}

// RegisterRoutes регистрирует маршруты движка заявок.
// Создание и read-путь заявок намеренно без аутентификации
// (совместимость с существующими клиентами).
func (h *HTTPHandler) RegisterRoutes(mux *http.ServeMux, mw *Middleware) {
	mux.HandleFunc("POST /services", mw.Optional(h.handleCreateService))
	mux.HandleFunc("GET /services", h.handleListServices)
	mux.HandleFunc("GET /services/{id}", h.handleGetService)
	mux.HandleFunc("GET /services/assigned/me", mw.TechnicianOnly(h.handleListAssigned))
	mux.HandleFunc("PUT /services/{id}/status", h.handleUpdateStatus)
	mux.HandleFunc("PUT /services/{id}/rate", h.handleRateService)
	mux.HandleFunc("PUT /services/{id}/assign/self", mw.TechnicianOnly(h.handleSelfAssign))

	mux.HandleFunc("GET /tracking/{serviceId}", mw.Authenticated(h.handleGetTracking))
	mux.HandleFunc("PUT /tracking/{serviceId}/location", mw.TechnicianOnly(h.handleUpdateLocation))
	mux.HandleFunc("PUT /tracking/{serviceId}/eta", mw.TechnicianOnly(h.handleUpdateETA))
	mux.HandleFunc("POST /tracking/{serviceId}/notes", mw.TechnicianOnly(h.handleAddNote))
}

// CreateServiceRequest — HTTP DTO создания заявки
type CreateServiceRequest struct {
	Type           string                `json:"type"`
	Location       *in.GeoPoint          `json:"location"`
	Address        string                `json:"address"`
	ContactName    string                `json:"contactName"`
	ContactPhone   string                `json:"contactPhone"`
	VehicleDetails domain.VehicleDetails `json:"vehicleDetails"`
	Description    string                `json:"description"`
	EstimatedCost  float64               `json:"estimatedCost"`
}

func (h *HTTPHandler) handleCreateService(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	var req CreateServiceRequest
	if err := dec.Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request format")
		return
	}

	input := in.CreateServiceInput{
		Type:           req.Type,
		Location:       req.Location,
		Address:        req.Address,
		ContactName:    req.ContactName,
		ContactPhone:   req.ContactPhone,
		VehicleDetails: req.VehicleDetails,
		Description:    req.Description,
		EstimatedCost:  req.EstimatedCost,
	}
	if userID, ok := UserIDFromContext(r.Context()); ok {
		input.UserID = &userID
	}

	view, err := h.create.Execute(r.Context(), input)
	if err != nil {
		h.handleUseCaseError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, view)
}

func (h *HTTPHandler) handleListServices(w http.ResponseWriter, r *http.Request) {
	views, err := h.queries.List(r.Context())
	if err != nil {
		h.handleUseCaseError(w, err)
		return
	}
	if views == nil {
		views = []*in.ServiceView{}
	}
	respondJSON(w, http.StatusOK, views)
}

func (h *HTTPHandler) handleGetService(w http.ResponseWriter, r *http.Request) {
	view, err := h.queries.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		h.handleUseCaseError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, view)
}

func (h *HTTPHandler) handleListAssigned(w http.ResponseWriter, r *http.Request) {
	technicianID, _ := UserIDFromContext(r.Context())

	views, err := h.queries.ListAssignedTo(r.Context(), technicianID)
	if err != nil {
		h.handleUseCaseError(w, err)
		return
	}
	if views == nil {
		views = []*in.ServiceView{}
	}
	respondJSON(w, http.StatusOK, views)
}

// UpdateStatusRequest — HTTP DTO смены статуса
type UpdateStatusRequest struct {
	Status string `json:"status"`
}

func (h *HTTPHandler) handleUpdateStatus(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)

	var req UpdateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request format")
		return
	}

	view, err := h.transition.Execute(r.Context(), r.PathValue("id"), req.Status)
	if err != nil {
		h.handleUseCaseError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, view)
}

// RateServiceRequest — HTTP DTO оценки заявки
type RateServiceRequest struct {
	Rating   int    `json:"rating"`
	Feedback string `json:"feedback"`
}

func (h *HTTPHandler) handleRateService(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)

	var req RateServiceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request format")
		return
	}

	view, err := h.rate.Execute(r.Context(), in.RateServiceInput{
		ServiceID: r.PathValue("id"),
		Rating:    req.Rating,
		Feedback:  req.Feedback,
	})
	if err != nil {
		h.handleUseCaseError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, view)
}

func (h *HTTPHandler) handleSelfAssign(w http.ResponseWriter, r *http.Request) {
	technicianID, _ := UserIDFromContext(r.Context())

	view, err := h.selfAssign.Execute(r.Context(), r.PathValue("id"), technicianID)
	if err != nil {
		h.handleUseCaseError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, view)
}

func (h *HTTPHandler) handleGetTracking(w http.ResponseWriter, r *http.Request) {
	userID, _ := UserIDFromContext(r.Context())
	role, _ := RoleFromContext(r.Context())

	view, err := h.trackView.Execute(r.Context(), r.PathValue("serviceId"), in.Caller{
		UserID: userID,
		Role:   role,
	})
	if err != nil {
		h.handleUseCaseError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, view)
}

// TrackingLocationRequest — HTTP DTO позиции техника. Клиенты присылают
// GeoJSON-объект location; плоские latitude/longitude принимаются тоже.
type TrackingLocationRequest struct {
	Location  *in.GeoPoint `json:"location"`
	Latitude  float64      `json:"latitude"`
	Longitude float64      `json:"longitude"`
}

func (h *HTTPHandler) handleUpdateLocation(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)

	var req TrackingLocationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request format")
		return
	}

	var lat, lng float64
	switch {
	case req.Location != nil:
		if len(req.Location.Coordinates) != 2 {
			respondError(w, http.StatusBadRequest, "location must carry [longitude, latitude]")
			return
		}
		// GeoJSON: [longitude, latitude]
		lng, lat = req.Location.Coordinates[0], req.Location.Coordinates[1]
	case req.Latitude != 0 || req.Longitude != 0:
		lat, lng = req.Latitude, req.Longitude
	default:
		respondError(w, http.StatusBadRequest, "location is required")
		return
	}

	technicianID, _ := UserIDFromContext(r.Context())
	rec, err := h.tracking.UpdateLocation(r.Context(), in.UpdateLocationInput{
		ServiceID:    r.PathValue("serviceId"),
		TechnicianID: technicianID,
		Latitude:     lat,
		Longitude:    lng,
	})
	if err != nil {
		h.handleUseCaseError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, rec)
}

// TrackingETARequest — HTTP DTO расчетного времени прибытия
type TrackingETARequest struct {
	EstimatedArrival time.Time `json:"estimatedArrival"`
}

func (h *HTTPHandler) handleUpdateETA(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)

	var req TrackingETARequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request format")
		return
	}
	if req.EstimatedArrival.IsZero() {
		respondError(w, http.StatusBadRequest, "estimatedArrival is required")
		return
	}

	technicianID, _ := UserIDFromContext(r.Context())
	rec, err := h.tracking.UpdateETA(r.Context(), in.UpdateETAInput{
		ServiceID:        r.PathValue("serviceId"),
		TechnicianID:     technicianID,
		EstimatedArrival: req.EstimatedArrival,
	})
	if err != nil {
		h.handleUseCaseError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, rec)
}

// TrackingNoteRequest — HTTP DTO заметки техника
type TrackingNoteRequest struct {
	Text string `json:"text"`
}

func (h *HTTPHandler) handleAddNote(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)

	var req TrackingNoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request format")
		return
	}

	technicianID, _ := UserIDFromContext(r.Context())
	rec, err := h.tracking.AddNote(r.Context(), in.AddNoteInput{
		ServiceID:    r.PathValue("serviceId"),
		TechnicianID: technicianID,
		Text:         req.Text,
	})
	if err != nil {
		h.handleUseCaseError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, rec)
}

// handleUseCaseError переводит доменные ошибки в HTTP статусы
func (h *HTTPHandler) handleUseCaseError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrServiceNotFound),
		errors.Is(err, domain.ErrTrackingNotFound),
		errors.Is(err, techdomain.ErrTechnicianNotFound):
		respondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrUnauthorized):
		respondError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, domain.ErrInvalidServiceType),
		errors.Is(err, domain.ErrInvalidCoordinates),
		errors.Is(err, domain.ErrMissingRequiredField),
		errors.Is(err, domain.ErrInvalidRating),
		errors.Is(err, domain.ErrServiceNotCompleted),
		errors.Is(err, techdomain.ErrTechnicianNotAvailable):
		respondError(w, http.StatusBadRequest, err.Error())
	default:
		h.log.Error(logger.Entry{
			Action:  "request_failed",
			Message: err.Error(),
			Error:   &logger.ErrObj{Msg: err.Error()},
		})
		respondError(w, http.StatusInternalServerError, "internal server error")
	}
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
