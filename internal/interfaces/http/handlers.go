package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/edgewatch/edgewatch/internal/app"
	"github.com/edgewatch/edgewatch/internal/guard"
	"github.com/edgewatch/edgewatch/internal/telemetry/metrics"
)

// Handlers binds the API routes to the engine's operations.
type Handlers struct {
	engine       *app.Engine
	metrics      *metrics.Registry
	breakerState func() string
	version      string
	started      time.Time
}

// NewHandlers builds the handler set. breakerState may be nil when no
// provider client is attached (tests, offline mode).
func NewHandlers(engine *app.Engine, reg *metrics.Registry, breakerState func() string, version string) *Handlers {
	return &Handlers{
		engine:       engine,
		metrics:      reg,
		breakerState: breakerState,
		version:      version,
		started:      time.Now(),
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

// statusFor maps engine errors onto HTTP status codes. Guard rejections are
// conflicts, everything else a bad request from the operator's side.
func statusFor(err error) int {
	if errors.Is(err, guard.ErrNotCommitted) || errors.Is(err, guard.ErrDayLocked) {
		return http.StatusConflict
	}
	return http.StatusBadRequest
}

// Health reports liveness plus the provider circuit state and request
// totals read back from the metrics registry.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	resp := map[string]any{
		"status":         "ok",
		"version":        h.version,
		"uptime_seconds": int(time.Since(h.started).Seconds()),
	}
	if h.breakerState != nil {
		resp["provider_breaker"] = h.breakerState()
	}
	if h.metrics != nil {
		resp["provider_requests_total"] = h.metrics.CounterValue("edgewatch_provider_requests_total")
		resp["refresh_cycles_total"] = h.metrics.CounterValue("edgewatch_refresh_cycles_total")
	}
	writeJSON(w, http.StatusOK, resp)
}

// Metrics returns the Prometheus scrape handler, or a 404 handler when the
// registry is absent.
func (h *Handlers) Metrics() http.Handler {
	if h.metrics == nil {
		return http.NotFoundHandler()
	}
	return h.metrics.Handler()
}

// State returns the full dashboard snapshot.
func (h *Handlers) State(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.engine.State())
}

// Asset returns a single ranked candidate by symbol.
func (h *Handlers) Asset(w http.ResponseWriter, r *http.Request) {
	symbol := mux.Vars(r)["symbol"]
	for _, a := range h.engine.State().Assets {
		if a.Snapshot.Symbol == symbol {
			writeJSON(w, http.StatusOK, a)
			return
		}
	}
	writeJSON(w, http.StatusNotFound, errorResponse{Error: "symbol not in current candidates: " + symbol})
}

// Commit accepts a contract draft and makes it today's binding contract.
func (h *Handlers) Commit(w http.ResponseWriter, r *http.Request) {
	var draft guard.ContractDraft
	if err := json.NewDecoder(r.Body).Decode(&draft); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	contract, err := h.engine.CommitToday(r.Context(), draft)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusCreated, contract)
}

// Trades lists today's journal.
func (h *Handlers) Trades(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.engine.State().Day)
}

// LogTrade appends one trade to the journal.
func (h *Handlers) LogTrade(w http.ResponseWriter, r *http.Request) {
	var in app.TradeInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	rec, err := h.engine.LogTrade(r.Context(), in)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusCreated, rec)
}

// EndSession locks the rest of the day.
func (h *Handlers) EndSession(w http.ResponseWriter, r *http.Request) {
	if err := h.engine.EndSession(r.Context()); err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, h.engine.State().Day)
}

// ResetDay clears the journal and lifts the lock.
func (h *Handlers) ResetDay(w http.ResponseWriter, r *http.Request) {
	if err := h.engine.ResetDay(r.Context()); err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, h.engine.State().Day)
}

type overrideRequest struct {
	Enabled bool `json:"enabled"`
}

// Override toggles the transient manual override.
func (h *Handlers) Override(w http.ResponseWriter, r *http.Request) {
	var req overrideRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	h.engine.SetOverride(req.Enabled)
	writeJSON(w, http.StatusOK, map[string]bool{"override": req.Enabled})
}

// Refresh triggers one refresh cycle synchronously.
func (h *Handlers) Refresh(w http.ResponseWriter, r *http.Request) {
	if err := h.engine.Refresh(r.Context()); err != nil {
		// The cycle failed but previous results are retained; surface both.
		writeJSON(w, http.StatusBadGateway, map[string]any{
			"error": err.Error(),
			"state": h.engine.State(),
		})
		return
	}
	writeJSON(w, http.StatusOK, h.engine.State())
}

// NotFound is the catch-all for unknown routes.
func (h *Handlers) NotFound(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, http.StatusNotFound, errorResponse{Error: "route not found: " + r.URL.Path})
}
