package vehicles

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/dealerdesk/dealerdesk/internal/http/middleware"
	"github.com/dealerdesk/dealerdesk/internal/httputil"
	"github.com/dealerdesk/dealerdesk/pkg/auth"
	"github.com/dealerdesk/dealerdesk/pkg/domain"
	"github.com/dealerdesk/dealerdesk/pkg/repository"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
	maxImages       = 20
)

// Handler handles vehicle listing endpoints. Reads are public; writes go
// through the permission table.
type Handler struct {
	logger   *slog.Logger
	vehicles *repository.VehiclesRepository
	audit    auth.AuditStore
}

// NewHandler creates a new vehicles handler.
func NewHandler(logger *slog.Logger, vehicles *repository.VehiclesRepository, audit auth.AuditStore) *Handler {
	return &Handler{logger: logger, vehicles: vehicles, audit: audit}
}

// VehicleRequest represents a create or update payload.
type VehicleRequest struct {
	Make        string   `json:"make"`
	Model       string   `json:"model"`
	Year        int      `json:"year"`
	Price       float64  `json:"price"`
	Mileage     int      `json:"mileage"`
	Description string   `json:"description"`
	Images      []string `json:"images"`
	Status      string   `json:"status"`
}

func (req *VehicleRequest) validate() string {
	if req.Make == "" || req.Model == "" {
		return "make and model are required"
	}
	if req.Year < 1900 || req.Year > time.Now().Year()+1 {
		return "year is out of range"
	}
	if req.Price < 0 {
		return "price must not be negative"
	}
	if req.Mileage < 0 {
		return "mileage must not be negative"
	}
	if req.Description != "" && (len(req.Description) < 10 || len(req.Description) > 5000) {
		return "description must be between 10 and 5000 characters"
	}
	if len(req.Images) > maxImages {
		return "too many images"
	}
	if req.Status != "" && !domain.VehicleStatus(req.Status).Valid() {
		return "invalid status"
	}
	return ""
}

// List returns listings newest first.
// GET /v1/vehicles?status=&limit=&cursor=
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	limit := defaultPageSize
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > maxPageSize {
			httputil.Error(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}

	var status *domain.VehicleStatus
	if v := r.URL.Query().Get("status"); v != "" {
		s := domain.VehicleStatus(v)
		if !s.Valid() {
			httputil.Error(w, http.StatusBadRequest, "invalid status")
			return
		}
		status = &s
	}

	var cursor *uuid.UUID
	if v := r.URL.Query().Get("cursor"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			httputil.Error(w, http.StatusBadRequest, "invalid cursor")
			return
		}
		cursor = &id
	}

	items, err := h.vehicles.List(r.Context(), status, limit, cursor)
	if err != nil {
		h.logger.Error("failed to list vehicles", "error", err)
		httputil.Error(w, http.StatusInternalServerError, "internal error")
		return
	}

	resp := map[string]any{"vehicles": items}
	if len(items) == limit {
		resp["next_cursor"] = items[len(items)-1].ID.String()
	}
	httputil.JSON(w, http.StatusOK, resp)
}

// Get returns a single listing.
// GET /v1/vehicles/{id}
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid vehicle id")
		return
	}

	vehicle, err := h.vehicles.GetByID(r.Context(), id)
	if err != nil {
		httputil.DomainError(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, vehicle)
}

// Create adds a listing.
// POST /v1/vehicles
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req VehicleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if msg := req.validate(); msg != "" {
		httputil.Error(w, http.StatusBadRequest, msg)
		return
	}

	now := time.Now()
	vehicle := &domain.Vehicle{
		ID:          uuid.New(),
		Make:        req.Make,
		Model:       req.Model,
		Year:        req.Year,
		Price:       req.Price,
		Mileage:     req.Mileage,
		Description: req.Description,
		Images:      req.Images,
		Status:      domain.VehicleAvailable,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if req.Status != "" {
		vehicle.Status = domain.VehicleStatus(req.Status)
	}

	if err := h.vehicles.Create(r.Context(), vehicle); err != nil {
		h.logger.Error("failed to create vehicle", "error", err)
		httputil.Error(w, http.StatusInternalServerError, "internal error")
		return
	}

	h.recordAudit(r, domain.AuditCreate, vehicle.ID, req)
	httputil.JSON(w, http.StatusCreated, vehicle)
}

// Update replaces a listing's mutable fields.
// PUT /v1/vehicles/{id}
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid vehicle id")
		return
	}

	var req VehicleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if msg := req.validate(); msg != "" {
		httputil.Error(w, http.StatusBadRequest, msg)
		return
	}

	vehicle, err := h.vehicles.GetByID(r.Context(), id)
	if err != nil {
		httputil.DomainError(w, err)
		return
	}

	vehicle.Make = req.Make
	vehicle.Model = req.Model
	vehicle.Year = req.Year
	vehicle.Price = req.Price
	vehicle.Mileage = req.Mileage
	vehicle.Description = req.Description
	vehicle.Images = req.Images
	if req.Status != "" {
		vehicle.Status = domain.VehicleStatus(req.Status)
	}

	if err := h.vehicles.Update(r.Context(), vehicle); err != nil {
		httputil.DomainError(w, err)
		return
	}

	h.recordAudit(r, domain.AuditUpdate, id, req)
	httputil.JSON(w, http.StatusOK, vehicle)
}

// Delete removes a listing.
// DELETE /v1/vehicles/{id}
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid vehicle id")
		return
	}

	if err := h.vehicles.Delete(r.Context(), id); err != nil {
		httputil.DomainError(w, err)
		return
	}

	h.recordAudit(r, domain.AuditDelete, id, nil)
	httputil.JSON(w, http.StatusOK, map[string]string{"message": "vehicle deleted"})
}

func (h *Handler) recordAudit(r *http.Request, action string, entityID uuid.UUID, changes any) {
	if h.audit == nil {
		return
	}
	actorID, _ := middleware.GetUserID(r.Context())

	var raw json.RawMessage
	if changes != nil {
		if b, err := json.Marshal(changes); err == nil {
			raw = b
		}
	}

	entry := &domain.AuditEntry{
		ID:        uuid.New(),
		ActorID:   actorID,
		Action:    action,
		Entity:    "vehicle",
		EntityID:  entityID.String(),
		Changes:   raw,
		CreatedAt: time.Now(),
	}
	if err := h.audit.Create(r.Context(), entry); err != nil {
		h.logger.Error("failed to record audit entry", "error", err, "action", action, "entity_id", entityID)
	}
}
