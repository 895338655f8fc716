// Package v1 provides the REST handlers for display control.
package v1

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/chuckbuilds/ledmatrix/internal/logger"
	"github.com/chuckbuilds/ledmatrix/internal/provider"
	"github.com/chuckbuilds/ledmatrix/internal/rotation"
)

// DisplayService is the rotation controller surface the API needs.
type DisplayService interface {
	CurrentMode() string
	CurrentState() rotation.State
	ShowOnDemand(mode string, duration time.Duration, pinned bool) bool
	ClearOnDemand()
	GetOnDemandInfo() rotation.OnDemandInfo
}

// ModeInfo describes one registered display mode
type ModeInfo struct {
	Name            string `json:"name"`
	Provider        string `json:"provider"`
	DisplayDuration string `json:"display_duration"`
	LivePriority    bool   `json:"live_priority"`
}

// ModesResponse lists the registered display modes in rotation order
type ModesResponse struct {
	Modes []ModeInfo `json:"modes"`
}

// OnDemandView is the JSON view of an on-demand override
type OnDemandView struct {
	Active    bool   `json:"active"`
	Mode      string `json:"mode,omitempty"`
	Duration  string `json:"duration,omitempty"`
	Elapsed   string `json:"elapsed,omitempty"`
	Remaining string `json:"remaining,omitempty"`
	Pinned    bool   `json:"pinned"`
}

// DisplayResponse reports what the display is currently showing
type DisplayResponse struct {
	Mode     string       `json:"mode"`
	State    string       `json:"state"`
	OnDemand OnDemandView `json:"on_demand"`
}

// ShowRequest is the body of a display override request
type ShowRequest struct {
	// Duration the override stays up, e.g. "30s". Empty means until
	// cleared.
	Duration string `json:"duration,omitempty"`

	// Pinned overrides never expire regardless of duration.
	Pinned bool `json:"pinned,omitempty"`
}

// ErrorResponse represents a standardized error response
type ErrorResponse struct {
	Error string `json:"error"`
}

// Routes defines the routes for the display control API
type Routes struct {
	service  DisplayService
	registry *provider.Registry
}

// NewRoutes creates a new Routes instance
func NewRoutes(svc DisplayService, registry *provider.Registry) *Routes {
	return &Routes{
		service:  svc,
		registry: registry,
	}
}

// Router creates a new router for the display control API
func Router(svc DisplayService, registry *provider.Registry) http.Handler {
	routes := NewRoutes(svc, registry)

	r := chi.NewRouter()

	r.Get("/modes", routes.listModes)
	r.Get("/display", routes.getDisplay)
	r.Post("/display/{mode}", routes.showMode)
	r.Delete("/display", routes.clearDisplay)

	return r
}

// listModes handles GET /api/v1/modes
func (rr *Routes) listModes(w http.ResponseWriter, _ *http.Request) {
	resp := ModesResponse{Modes: []ModeInfo{}}
	for _, mode := range rr.registry.Modes() {
		reg, ok := rr.registry.Lookup(mode)
		if !ok {
			continue
		}
		resp.Modes = append(resp.Modes, ModeInfo{
			Name:            mode,
			Provider:        reg.Provider.Name(),
			DisplayDuration: reg.Provider.DisplayDuration().String(),
			LivePriority:    reg.LivePriority,
		})
	}

	rr.writeJSONResponse(w, resp)
}

// getDisplay handles GET /api/v1/display
func (rr *Routes) getDisplay(w http.ResponseWriter, _ *http.Request) {
	info := rr.service.GetOnDemandInfo()

	resp := DisplayResponse{
		Mode:     rr.service.CurrentMode(),
		State:    string(rr.service.CurrentState()),
		OnDemand: onDemandView(info),
	}

	rr.writeJSONResponse(w, resp)
}

// showMode handles POST /api/v1/display/{mode}
func (rr *Routes) showMode(w http.ResponseWriter, r *http.Request) {
	mode := chi.URLParam(r, "mode")
	if strings.TrimSpace(mode) == "" {
		rr.writeErrorResponse(w, "Mode is required", http.StatusBadRequest)
		return
	}

	var req ShowRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			rr.writeErrorResponse(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
			return
		}
	}

	var duration time.Duration
	if req.Duration != "" {
		parsed, err := time.ParseDuration(req.Duration)
		if err != nil {
			rr.writeErrorResponse(w, "Invalid duration: "+err.Error(), http.StatusBadRequest)
			return
		}
		duration = parsed
	}

	if !rr.service.ShowOnDemand(mode, duration, req.Pinned) {
		rr.writeErrorResponse(w, "Unknown mode: "+mode, http.StatusNotFound)
		return
	}

	rr.writeJSONResponse(w, onDemandView(rr.service.GetOnDemandInfo()))
}

// clearDisplay handles DELETE /api/v1/display
func (rr *Routes) clearDisplay(w http.ResponseWriter, _ *http.Request) {
	rr.service.ClearOnDemand()
	w.WriteHeader(http.StatusNoContent)
}

// onDemandView converts controller info to its JSON form
func onDemandView(info rotation.OnDemandInfo) OnDemandView {
	view := OnDemandView{
		Active: info.Active,
		Mode:   info.Mode,
		Pinned: info.Pinned,
	}
	if !info.Active {
		return view
	}
	view.Elapsed = info.Elapsed.String()
	if info.Duration > 0 {
		view.Duration = info.Duration.String()
		view.Remaining = info.Remaining.String()
	}
	return view
}

// writeJSONResponse writes a JSON response with the given data
func (*Routes) writeJSONResponse(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Errorf("Failed to encode JSON response: %v", err)
	}
}

// writeErrorResponse writes a standardized error response
func (*Routes) writeErrorResponse(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(ErrorResponse{Error: message}); err != nil {
		logger.Errorf("Failed to encode error response: %v", err)
	}
}
