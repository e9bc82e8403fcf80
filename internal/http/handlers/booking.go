package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/wolfman30/careportal/internal/booking"
	"github.com/wolfman30/careportal/internal/portal"
	"github.com/wolfman30/careportal/internal/wizard"
	"github.com/wolfman30/careportal/pkg/logging"
)

// BookingHandler exposes the booking wizard sessions.
type BookingHandler struct {
	service *booking.Service
	access  portal.AccessTable
	logger  *logging.Logger
}

func NewBookingHandler(service *booking.Service, access portal.AccessTable, logger *logging.Logger) *BookingHandler {
	if service == nil {
		panic("handlers: booking service required")
	}
	if access == nil {
		access = portal.DefaultAccess()
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &BookingHandler{service: service, access: access, logger: logger.Component("booking_handler")}
}

type setFieldsRequest struct {
	Fields map[string]string `json:"fields"`
}

// sessionErrorResponse carries the session alongside a transition error so
// the client can render the failure without a second request.
type sessionErrorResponse struct {
	Error   string               `json:"error"`
	Session *booking.SessionView `json:"session,omitempty"`
}

// Routes mounts the booking endpoints.
func (h *BookingHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/flows", h.ListFlows)
	r.Post("/{flow}", h.Start)
	r.Route("/sessions/{sessionID}", func(s chi.Router) {
		s.Get("/", h.Get)
		s.Delete("/", h.Dismiss)
		s.Patch("/fields", h.SetFields)
		s.Post("/selections", h.Toggle)
		s.Post("/advance", h.Advance)
		s.Post("/retreat", h.Retreat)
		s.Post("/confirm", h.Confirm)
		s.Post("/reset", h.Reset)
	})
	return r
}

// ListFlows returns the flows the caller's role may start.
// GET /api/bookings/flows
func (h *BookingHandler) ListFlows(w http.ResponseWriter, r *http.Request) {
	role, ok := callerRole(w, r)
	if !ok {
		return
	}
	flows := []wizard.Flow{}
	for _, f := range h.service.Flows() {
		if h.access.CanBook(role, f.Name) {
			flows = append(flows, f)
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"flows": flows})
}

// Start opens a new session.
// POST /api/bookings/{flow}
func (h *BookingHandler) Start(w http.ResponseWriter, r *http.Request) {
	role, ok := callerRole(w, r)
	if !ok {
		return
	}
	flow := strings.TrimSpace(chi.URLParam(r, "flow"))
	if !h.access.CanBook(role, flow) {
		writeError(w, http.StatusForbidden, "flow not available to this portal")
		return
	}
	sess, err := h.service.Start(r.Context(), flow, string(role))
	if err != nil {
		h.writeSessionError(w, nil, err)
		return
	}
	writeJSON(w, http.StatusCreated, sess.View())
}

// Get returns the session view.
// GET /api/bookings/sessions/{sessionID}
func (h *BookingHandler) Get(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.ownedSession(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, sess.View())
}

// SetFields applies scalar inputs; an empty value clears the field.
// PATCH /api/bookings/sessions/{sessionID}/fields
func (h *BookingHandler) SetFields(w http.ResponseWriter, r *http.Request) {
	var req setFieldsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.Fields) == 0 {
		writeError(w, http.StatusBadRequest, "fields required")
		return
	}
	h.transition(w, r, func(id string) (*booking.Session, error) {
		return h.service.SetFields(r.Context(), id, req.Fields)
	})
}

// Toggle adds or removes one selection.
// POST /api/bookings/sessions/{sessionID}/selections
func (h *BookingHandler) Toggle(w http.ResponseWriter, r *http.Request) {
	var item wizard.Selection
	if err := json.NewDecoder(r.Body).Decode(&item); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(item.ID) == "" {
		writeError(w, http.StatusBadRequest, "selection id required")
		return
	}
	h.transition(w, r, func(id string) (*booking.Session, error) {
		return h.service.Toggle(r.Context(), id, item)
	})
}

// POST /api/bookings/sessions/{sessionID}/advance
func (h *BookingHandler) Advance(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, func(id string) (*booking.Session, error) {
		return h.service.Advance(r.Context(), id)
	})
}

// POST /api/bookings/sessions/{sessionID}/retreat
func (h *BookingHandler) Retreat(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, func(id string) (*booking.Session, error) {
		return h.service.Retreat(r.Context(), id)
	})
}

// POST /api/bookings/sessions/{sessionID}/reset
func (h *BookingHandler) Reset(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, func(id string) (*booking.Session, error) {
		return h.service.Reset(r.Context(), id)
	})
}

// Confirm submits the booking.
// POST /api/bookings/sessions/{sessionID}/confirm
func (h *BookingHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, func(id string) (*booking.Session, error) {
		return h.service.Confirm(r.Context(), id)
	})
}

// Dismiss discards the session.
// DELETE /api/bookings/sessions/{sessionID}
func (h *BookingHandler) Dismiss(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.ownedSession(w, r)
	if !ok {
		return
	}
	if err := h.service.Dismiss(r.Context(), sess.ID); err != nil {
		h.writeSessionError(w, sess, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *BookingHandler) transition(w http.ResponseWriter, r *http.Request, fn func(id string) (*booking.Session, error)) {
	owned, ok := h.ownedSession(w, r)
	if !ok {
		return
	}
	sess, err := fn(owned.ID)
	if err != nil {
		h.writeSessionError(w, sess, err)
		return
	}
	writeJSON(w, http.StatusOK, sess.View())
}

// ownedSession loads the session and hides it from other portals.
func (h *BookingHandler) ownedSession(w http.ResponseWriter, r *http.Request) (*booking.Session, bool) {
	role, ok := callerRole(w, r)
	if !ok {
		return nil, false
	}
	id := strings.TrimSpace(chi.URLParam(r, "sessionID"))
	sess, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.writeSessionError(w, nil, err)
		return nil, false
	}
	if role != portal.RoleAdmin && sess.Role != string(role) {
		writeError(w, http.StatusNotFound, "session not found")
		return nil, false
	}
	return sess, true
}

func (h *BookingHandler) writeSessionError(w http.ResponseWriter, sess *booking.Session, err error) {
	var view *booking.SessionView
	if sess != nil {
		v := sess.View()
		view = &v
	}
	var (
		verr *wizard.ValidationError
		serr *wizard.SubmissionError
	)
	switch {
	case errors.As(err, &verr):
		writeJSON(w, http.StatusUnprocessableEntity, sessionErrorResponse{Error: err.Error(), Session: view})
	case errors.As(err, &serr):
		writeJSON(w, http.StatusBadGateway, sessionErrorResponse{Error: err.Error(), Session: view})
	case errors.Is(err, booking.ErrSubmitInFlight), errors.Is(err, booking.ErrAlreadySubmitted):
		writeJSON(w, http.StatusConflict, sessionErrorResponse{Error: err.Error(), Session: view})
	case errors.Is(err, booking.ErrSessionNotFound):
		writeError(w, http.StatusNotFound, "session not found")
	case errors.Is(err, wizard.ErrUnknownFlow):
		writeError(w, http.StatusNotFound, "unknown flow")
	default:
		h.logger.Error("booking request failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
