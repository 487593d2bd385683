package transport

import (
	"encoding/json"
	"errors"
	"net/http"

	"roadrescue/internal/shared/logger"
	"roadrescue/internal/technician/application/ports/out"
	"roadrescue/internal/technician/domain"
)

const maxBodySize = 1 << 20 // 1MB

// HTTPHandler обрабатывает HTTP запросы контекста техника
type HTTPHandler struct {
	repo out.TechnicianRepository
	log  *logger.Logger
}

// NewHTTPHandler создает новый HTTP handler
func NewHTTPHandler(repo out.TechnicianRepository, log *logger.Logger) *HTTPHandler {
	return &HTTPHandler{
		repo: repo,
		log:  log,
	}
}

// RegisterRoutes регистрирует маршруты контекста техника
func (h *HTTPHandler) RegisterRoutes(mux *http.ServeMux, technicianAuth func(http.HandlerFunc) http.HandlerFunc) {
	mux.HandleFunc("PUT /technicians/{id}/location", technicianAuth(h.handleUpdateLocation))
	mux.HandleFunc("GET /technicians/{id}/history", technicianAuth(h.handleServiceHistory))
	mux.HandleFunc("DELETE /technicians/{id}", technicianAuth(h.handleDelete))
}

// UpdateLocationRequest — HTTP DTO обновления позиции техника
type UpdateLocationRequest struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// handleUpdateLocation обрабатывает PUT /technicians/{id}/location
func (h *HTTPHandler) handleUpdateLocation(w http.ResponseWriter, r *http.Request) {
	technicianID := r.PathValue("id")

	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)

	var req UpdateLocationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid request format")
		return
	}

	if req.Latitude == 0 && req.Longitude == 0 {
		h.respondError(w, http.StatusBadRequest, "latitude and longitude are required")
		return
	}
	if err := domain.ValidateCoordinates(req.Latitude, req.Longitude); err != nil {
		h.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	technician, err := h.repo.UpdateLocation(r.Context(), technicianID, req.Latitude, req.Longitude)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrTechnicianNotFound):
			h.respondError(w, http.StatusNotFound, "technician not found")
		default:
			h.log.Error(logger.Entry{
				Action:  "update_technician_location_failed",
				Message: err.Error(),
				Error:   &logger.ErrObj{Msg: err.Error()},
			})
			h.respondError(w, http.StatusInternalServerError, "internal server error")
		}
		return
	}

	h.respondJSON(w, http.StatusOK, technician)
}

// handleServiceHistory обрабатывает GET /technicians/{id}/history
func (h *HTTPHandler) handleServiceHistory(w http.ResponseWriter, r *http.Request) {
	technicianID := r.PathValue("id")

	history, err := h.repo.ServiceHistory(r.Context(), technicianID)
	if err != nil {
		h.log.Error(logger.Entry{
			Action:  "technician_history_failed",
			Message: err.Error(),
			Error:   &logger.ErrObj{Msg: err.Error()},
		})
		h.respondError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if history == nil {
		history = []string{}
	}

	h.respondJSON(w, http.StatusOK, map[string]any{"serviceHistory": history})
}

// handleDelete обрабатывает DELETE /technicians/{id}
func (h *HTTPHandler) handleDelete(w http.ResponseWriter, r *http.Request) {
	technicianID := r.PathValue("id")

	if err := h.repo.Delete(r.Context(), technicianID); err != nil {
		switch {
		case errors.Is(err, domain.ErrTechnicianNotFound):
			h.respondError(w, http.StatusNotFound, "technician not found")
		case errors.Is(err, domain.ErrTechnicianHasActiveService):
			h.respondError(w, http.StatusBadRequest, "technician has an active service")
		default:
			h.log.Error(logger.Entry{
				Action:  "delete_technician_failed",
				Message: err.Error(),
				Error:   &logger.ErrObj{Msg: err.Error()},
			})
			h.respondError(w, http.StatusInternalServerError, "internal server error")
		}
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]string{"message": "technician deleted"})
}

func (h *HTTPHandler) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error(logger.Entry{
			Action:  "encode_response_failed",
			Message: err.Error(),
			Error:   &logger.ErrObj{Msg: err.Error()},
		})
	}
}

func (h *HTTPHandler) respondError(w http.ResponseWriter, status int, message string) {
	h.respondJSON(w, status, map[string]string{"error": message})
}
