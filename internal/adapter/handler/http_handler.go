package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/camilaepierce/BakerBelongingsBackend-sub001/internal/core/domain"
	"github.com/camilaepierce/BakerBelongingsBackend-sub001/internal/core/service"
)

// RosterReloader is implemented by rosters that can re-read their backing
// file while the server runs.
type RosterReloader interface {
	Reload() error
}

type HTTPHandler struct {
	loans   *service.ReservationService
	sweeper *service.Sweeper
	roster  RosterReloader // optional
}

// maxLoanDays bounds the requested loan length; 0 still means the default
// period.
const maxLoanDays = 3650

type CheckoutHTTPRequest struct {
	Kerb string `json:"kerb"`
	Item string `json:"item"`
	Days int    `json:"days"` // 0 means the default loan period
}

type CheckinHTTPRequest struct {
	Item string `json:"item"`
}

type ActionHTTPResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type ItemHTTPResponse struct {
	Name         string  `json:"name"`
	Description  string  `json:"description,omitempty"`
	Category     string  `json:"category,omitempty"`
	Available    bool    `json:"available"`
	LastKerb     *string `json:"last_kerb,omitempty"`
	LastCheckout *string `json:"last_checkout,omitempty"`
}

type ReservationHTTPResponse struct {
	Item         string    `json:"item"`
	Kerb         string    `json:"kerb"`
	CheckedOutAt time.Time `json:"checked_out_at"`
	Expiry       time.Time `json:"expiry"`
}

type RemindersHTTPResponse struct {
	Notified []string `json:"notified"`
	Count    int      `json:"count"`
}

func NewHTTPHandler(loans *service.ReservationService, sweeper *service.Sweeper, roster RosterReloader) *HTTPHandler {
	return &HTTPHandler{loans: loans, sweeper: sweeper, roster: roster}
}

// NewRouter builds the chi router with the standard middleware chain.
func NewRouter() *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))
	return r
}

// Register mounts every route on the router.
func (h *HTTPHandler) Register(r chi.Router) {
	r.Get("/health", h.HealthCheck)
	r.Route("/api", func(r chi.Router) {
		r.Get("/items", h.ListItems)
		r.Get("/items/{name}", h.GetItem)
		r.Get("/reservations", h.ListReservations)
		r.Post("/checkout", h.Checkout)
		r.Post("/checkin", h.Checkin)
		r.Post("/reminders/run", h.RunReminders)
		r.Post("/roster/reload", h.ReloadRoster)
	})
}

func (h *HTTPHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	var req CheckoutHTTPRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ActionHTTPResponse{
			Success: false,
			Message: "invalid request body",
		})
		return
	}

	if req.Kerb == "" || req.Item == "" {
		writeJSON(w, http.StatusBadRequest, ActionHTTPResponse{
			Success: false,
			Message: "kerb and item are required",
		})
		return
	}

	if req.Days < 0 || req.Days > maxLoanDays {
		writeJSON(w, http.StatusBadRequest, ActionHTTPResponse{
			Success: false,
			Message: "days must be between 0 and 3650",
		})
		return
	}

	period := time.Duration(req.Days) * 24 * time.Hour
	if err := h.loans.Checkout(r.Context(), req.Kerb, req.Item, period); err != nil {
		status, message := loanStatus(err)
		writeJSON(w, status, ActionHTTPResponse{Success: false, Message: message})
		return
	}

	writeJSON(w, http.StatusOK, ActionHTTPResponse{
		Success: true,
		Message: "item checked out",
	})
}

func (h *HTTPHandler) Checkin(w http.ResponseWriter, r *http.Request) {
	var req CheckinHTTPRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ActionHTTPResponse{
			Success: false,
			Message: "invalid request body",
		})
		return
	}

	if req.Item == "" {
		writeJSON(w, http.StatusBadRequest, ActionHTTPResponse{
			Success: false,
			Message: "item is required",
		})
		return
	}

	if err := h.loans.Checkin(r.Context(), req.Item); err != nil {
		status, message := loanStatus(err)
		writeJSON(w, status, ActionHTTPResponse{Success: false, Message: message})
		return
	}

	writeJSON(w, http.StatusOK, ActionHTTPResponse{
		Success: true,
		Message: "item checked in",
	})
}

func (h *HTTPHandler) ListItems(w http.ResponseWriter, r *http.Request) {
	items, err := h.loans.Items(r.Context())
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, ActionHTTPResponse{
			Success: false,
			Message: "internal error",
		})
		return
	}

	out := make([]ItemHTTPResponse, 0, len(items))
	for _, it := range items {
		out = append(out, toItemResponse(it))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *HTTPHandler) GetItem(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	item, err := h.loans.Item(r.Context(), name)
	if err != nil {
		status, message := loanStatus(err)
		writeJSON(w, status, ActionHTTPResponse{Success: false, Message: message})
		return
	}
	writeJSON(w, http.StatusOK, toItemResponse(*item))
}

func (h *HTTPHandler) ListReservations(w http.ResponseWriter, r *http.Request) {
	active := h.loans.Reservations()
	out := make([]ReservationHTTPResponse, 0, len(active))
	for _, res := range active {
		out = append(out, ReservationHTTPResponse{
			Item:         res.Item,
			Kerb:         res.Kerb,
			CheckedOutAt: res.CheckedOutAt,
			Expiry:       res.Expiry,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *HTTPHandler) RunReminders(w http.ResponseWriter, r *http.Request) {
	notified, err := h.sweeper.NotifyOverdue(r.Context())
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, ActionHTTPResponse{
			Success: false,
			Message: "reminder sweep failed",
		})
		return
	}
	writeJSON(w, http.StatusOK, RemindersHTTPResponse{Notified: notified, Count: len(notified)})
}

func (h *HTTPHandler) ReloadRoster(w http.ResponseWriter, r *http.Request) {
	if h.roster == nil {
		writeJSON(w, http.StatusNotFound, ActionHTTPResponse{
			Success: false,
			Message: "roster reload not supported",
		})
		return
	}
	if err := h.roster.Reload(); err != nil {
		writeJSON(w, http.StatusInternalServerError, ActionHTTPResponse{
			Success: false,
			Message: "roster reload failed",
		})
		return
	}
	writeJSON(w, http.StatusOK, ActionHTTPResponse{Success: true, Message: "roster reloaded"})
}

func (h *HTTPHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func toItemResponse(it domain.Item) ItemHTTPResponse {
	resp := ItemHTTPResponse{
		Name:        it.Name,
		Description: it.Description,
		Category:    it.Category,
		Available:   it.Available,
		LastKerb:    it.LastKerb,
	}
	if it.LastCheckout != nil {
		due := it.LastCheckout.Format(time.DateOnly)
		resp.LastCheckout = &due
	}
	return resp
}

func loanStatus(err error) (int, string) {
	switch {
	case errors.Is(err, service.ErrItemNotFound):
		return http.StatusNotFound, "item not found"
	case errors.Is(err, service.ErrNotEligible):
		return http.StatusForbidden, "kerb is not eligible to check out items"
	case errors.Is(err, service.ErrAlreadyReserved):
		return http.StatusConflict, "item is already checked out"
	case errors.Is(err, service.ErrNotReserved):
		return http.StatusConflict, "item is not checked out"
	case errors.Is(err, service.ErrInvalidPeriod):
		return http.StatusBadRequest, "loan period must be positive"
	default:
		return http.StatusInternalServerError, "internal error"
	}
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
