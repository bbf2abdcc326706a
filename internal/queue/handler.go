package queue

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/bissquit/barber-queue/internal/domain"
	"github.com/bissquit/barber-queue/internal/pkg/httputil"
	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
)

var errorMappings = []httputil.ErrorMapping{
	{Error: ErrDuplicateEntry, Status: http.StatusConflict, Message: "this phone number is already waiting in the queue"},
	{Error: ErrInvalidTransition, Status: http.StatusConflict},
	{Error: ErrBarberUnavailable, Status: http.StatusConflict, Message: "barber is not accepting walk-ins right now"},
	{Error: ErrEntryNotFound, Status: http.StatusNotFound, Message: "queue entry not found"},
	{Error: ErrBarberNotFound, Status: http.StatusNotFound, Message: "barber not found"},
	{Error: ErrNotOwner, Status: http.StatusForbidden, Message: "queue belongs to another barber"},
	{Error: ErrPersistence, Status: http.StatusServiceUnavailable, Message: "queue temporarily unavailable, please retry"},
}

// Handler handles HTTP requests for the queue module.
type Handler struct {
	service   *Service
	validator *validator.Validate
}

// NewHandler creates a new queue handler.
func NewHandler(service *Service) *Handler {
	return &Handler{
		service:   service,
		validator: validator.New(),
	}
}

// RegisterPublicRoutes registers routes available to customers and barbers.
func (h *Handler) RegisterPublicRoutes(r chi.Router) {
	r.Post("/barbers/{barberID}/queue", h.Join)
	r.Get("/barbers/{barberID}/queue", h.GetQueue)
}

// RegisterStreamRoutes registers long-lived streaming routes.
// They must not be mounted behind a request timeout.
func (h *Handler) RegisterStreamRoutes(r chi.Router) {
	r.Get("/barbers/{barberID}/queue/stream", h.StreamQueue)
}

// RegisterBarberRoutes registers routes that require a barber token.
func (h *Handler) RegisterBarberRoutes(r chi.Router) {
	r.Post("/queue/{entryID}/start", h.Start)
	r.Post("/queue/{entryID}/complete", h.Complete)
	r.Post("/barbers/{barberID}/queue/recompute", h.Recompute)
	r.Put("/barbers/{barberID}/availability", h.UpdateAvailability)
}

// JoinRequest represents request body for joining a queue.
type JoinRequest struct {
	CustomerName string `json:"customer_name" validate:"required,max=100"`
	Phone        string `json:"phone" validate:"required,e164"`
}

// AvailabilityRequest represents request body for updating barber availability.
type AvailabilityRequest struct {
	AcceptsWalkIns *bool `json:"accepts_walkins" validate:"required"`
	IsAvailable    *bool `json:"is_available" validate:"required"`
}

// Join handles POST /barbers/{barberID}/queue.
func (h *Handler) Join(w http.ResponseWriter, r *http.Request) {
	var req JoinRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid json")
		return
	}
	req.CustomerName = strings.TrimSpace(req.CustomerName)
	req.Phone = domain.NormalizePhone(req.Phone)

	if err := h.validator.Struct(req); err != nil {
		httputil.ValidationError(w, err)
		return
	}

	entry, err := h.service.Join(r.Context(), JoinInput{
		BarberID:     chi.URLParam(r, "barberID"),
		CustomerName: req.CustomerName,
		Phone:        req.Phone,
	})
	if err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	httputil.Success(w, http.StatusCreated, entry)
}

// GetQueue handles GET /barbers/{barberID}/queue.
func (h *Handler) GetQueue(w http.ResponseWriter, r *http.Request) {
	view, err := h.service.View(r.Context(), chi.URLParam(r, "barberID"), httputil.GetViewer(r))
	if err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	httputil.Success(w, http.StatusOK, view)
}

// Start handles POST /queue/{entryID}/start.
func (h *Handler) Start(w http.ResponseWriter, r *http.Request) {
	entry, err := h.service.Start(r.Context(), chi.URLParam(r, "entryID"), httputil.GetViewer(r))
	if err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	httputil.Success(w, http.StatusOK, entry)
}

// Complete handles POST /queue/{entryID}/complete.
func (h *Handler) Complete(w http.ResponseWriter, r *http.Request) {
	entry, err := h.service.Complete(r.Context(), chi.URLParam(r, "entryID"), httputil.GetViewer(r))
	if err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	httputil.Success(w, http.StatusOK, entry)
}

// Recompute handles POST /barbers/{barberID}/queue/recompute.
func (h *Handler) Recompute(w http.ResponseWriter, r *http.Request) {
	entries, err := h.service.Recompute(r.Context(), chi.URLParam(r, "barberID"), httputil.GetViewer(r))
	if err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	httputil.Success(w, http.StatusOK, entries)
}

// UpdateAvailability handles PUT /barbers/{barberID}/availability.
func (h *Handler) UpdateAvailability(w http.ResponseWriter, r *http.Request) {
	var req AvailabilityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid json")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		httputil.ValidationError(w, err)
		return
	}

	barber, err := h.service.UpdateAvailability(r.Context(), chi.URLParam(r, "barberID"), httputil.GetViewer(r),
		*req.AcceptsWalkIns, *req.IsAvailable)
	if err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	httputil.Success(w, http.StatusOK, barber)
}
