package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"petbuddy-realtime/internal/booking"
	"petbuddy-realtime/internal/chat"
	"petbuddy-realtime/internal/protocol"
	"petbuddy-realtime/internal/websocket"

	"github.com/go-chi/chi/v5"
)

type jsonResponse struct {
	Status  string      `json:"status"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

func writeJSON(w http.ResponseWriter, statusCode int, message string, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(jsonResponse{Status: "success", Message: message, Data: data}); err != nil {
		log.Printf("❌ Failed to write response: %v", err)
	}
}

func writeJSONError(w http.ResponseWriter, statusCode int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(jsonResponse{Status: "error", Message: message})
}

// writeError maps a component error to its HTTP status.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusBadGateway
	switch {
	case errors.Is(err, protocol.ErrMalformed),
		errors.Is(err, booking.ErrInvalidBooking),
		errors.Is(err, booking.ErrUnknownAction):
		status = http.StatusBadRequest
	case errors.Is(err, chat.ErrSenderMismatch),
		errors.Is(err, booking.ErrForbidden):
		status = http.StatusForbidden
	case errors.Is(err, booking.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, booking.ErrConflict):
		status = http.StatusConflict
	}
	if status == http.StatusBadGateway {
		log.Printf("❌ %s %s failed: %v", r.Method, r.URL.Path, err)
	}
	writeJSONError(w, status, err.Error())
}

func decodeBody(r *http.Request, dst interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return fmt.Errorf("%w: %v", protocol.ErrMalformed, err)
	}
	return nil
}

// --- health ---

type healthResponse struct {
	Status      string `json:"status"`
	Connections int    `json:"connections"`
	Unhealthy   int    `json:"unhealthy_connections"`
	Rooms       int    `json:"rooms"`
	Uptime      string `json:"uptime"`

	Config           map[string]interface{}           `json:"config,omitempty"`
	ConnectionHealth map[string]websocket.HealthStats `json:"connection_health,omitempty"`
}

// health reports hub totals. ?verbose=true adds per-connection ping/pong stats.
func (h *handlers) health(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{Status: "ok", Uptime: h.Metrics.Uptime().Round(time.Second).String()}
	if h.Hub != nil {
		stats := h.Hub.Stats()
		resp.Connections, resp.Rooms = stats.Connections, stats.Rooms

		conns := h.Hub.Manager.HealthStats()
		for _, s := range conns {
			if !s.IsHealthy {
				resp.Unhealthy++
			}
		}
		if verbose, _ := strconv.ParseBool(r.URL.Query().Get("verbose")); verbose {
			resp.ConnectionHealth = conns
		}
	}
	if h.ConfigSummary != nil {
		resp.Config = h.ConfigSummary()
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// --- chat ---

func (h *handlers) chatHistory(w http.ResponseWriter, r *http.Request) {
	ticketID := chi.URLParam(r, "ticketId")
	if err := h.Validator.ValidateRoomKey(ticketID); err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeJSONError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = n
	}

	history, err := h.Relay.History(r.Context(), ticketID, limit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, "", history)
}

func (h *handlers) chatSend(w http.ResponseWriter, r *http.Request) {
	caller, _ := CallerFrom(r.Context())

	var req protocol.SendMessage
	if err := decodeBody(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if err := req.Validate(); err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.Validator.ValidateRoomKey(req.TicketID); err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	req.SenderName = h.Validator.SanitizeDisplayName(req.SenderName)

	// ไม่มี socket ต้นทาง จึงส่งให้สมาชิกทุกคนในห้อง
	msg, _, err := h.Relay.Send(r.Context(), "", caller, req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, "message sent", msg)
}

// --- bookings ---

func (h *handlers) createBooking(w http.ResponseWriter, r *http.Request) {
	caller, _ := CallerFrom(r.Context())

	var req booking.CreateRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	b, err := h.Bookings.Create(r.Context(), caller, req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, "booking created", b)
}

func (h *handlers) listBookings(w http.ResponseWriter, r *http.Request) {
	caller, _ := CallerFrom(r.Context())

	status := booking.Status(r.URL.Query().Get("status"))
	switch status {
	case "", booking.StatusPending, booking.StatusConfirmed, booking.StatusCompleted, booking.StatusCancelled:
	default:
		writeJSONError(w, http.StatusBadRequest, fmt.Sprintf("unknown status %q", status))
		return
	}

	bookings, err := h.Bookings.List(r.Context(), caller, status)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, "", bookings)
}

func (h *handlers) getBooking(w http.ResponseWriter, r *http.Request) {
	caller, _ := CallerFrom(r.Context())

	b, err := h.Bookings.Get(r.Context(), caller, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, "", b)
}

func (h *handlers) transitionBooking(w http.ResponseWriter, r *http.Request) {
	action, err := booking.ParseAction(chi.URLParam(r, "action"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	h.applyAction(w, r, action)
}

// pethouseBookingAction serves the older accept/cancel routes used by pethouse dashboards.
func (h *handlers) pethouseBookingAction(w http.ResponseWriter, r *http.Request) {
	action, err := booking.ParseAction(chi.URLParam(r, "action"))
	if err != nil || action == booking.ActionComplete {
		writeJSONError(w, http.StatusNotFound, "unknown pethouse booking action")
		return
	}
	h.applyAction(w, r, action)
}

func (h *handlers) applyAction(w http.ResponseWriter, r *http.Request, action booking.Action) {
	caller, _ := CallerFrom(r.Context())

	b, err := h.Bookings.Transition(r.Context(), caller, chi.URLParam(r, "id"), action)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, fmt.Sprintf("booking %s", b.Status), b)
}
