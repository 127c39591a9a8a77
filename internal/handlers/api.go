package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/ternarybob/arbor"

	"rapports-sync/internal/common"
	"rapports-sync/internal/interfaces"
)

// APIHandlers exposes the sync engine and its housekeeping over HTTP for
// the local UI.
type APIHandlers struct {
	cfg       *common.Config
	runner    interfaces.SyncRunner
	state     interfaces.StateStore
	updates   interfaces.UpdateChecker
	hub       *WebSocketHub
	logger    arbor.ILogger
	startTime time.Time
}

func NewAPIHandlers(cfg *common.Config, runner interfaces.SyncRunner, state interfaces.StateStore, updates interfaces.UpdateChecker, hub *WebSocketHub, logger arbor.ILogger) *APIHandlers {
	return &APIHandlers{
		cfg:       cfg,
		runner:    runner,
		state:     state,
		updates:   updates,
		hub:       hub,
		logger:    logger,
		startTime: time.Now(),
	}
}

func (h *APIHandlers) HealthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status": "ok",
		"uptime": time.Since(h.startTime).String(),
	})
}

func (h *APIHandlers) VersionHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"version": common.GetVersion(),
		"build":   common.GetBuild(),
		"commit":  common.GetGitCommit(),
	})
}

func (h *APIHandlers) StatusHandler(w http.ResponseWriter, r *http.Request) {
	lastStart, lastEnd, err := h.state.LastWindow()
	if err != nil {
		h.logger.Warn().Err(err).Msg("Could not read last sync window")
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"running":     h.runner.IsRunning(),
		"environment": h.cfg.Collector.Environment,
		"last_window": map[string]string{"start": lastStart, "end": lastEnd},
	})
}

type syncRequest struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// SyncHandler runs one sync over the requested window. It blocks for the
// duration of the run; progress and selection prompts travel over the
// websocket in the meantime.
func (h *APIHandlers) SyncHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "POST required")
		return
	}

	var req syncRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	loc, err := h.cfg.Location()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	start, err := time.ParseInLocation("2006-01-02", req.Start, loc)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid start date, expected YYYY-MM-DD")
		return
	}
	end, err := time.ParseInLocation("2006-01-02", req.End, loc)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid end date, expected YYYY-MM-DD")
		return
	}

	report, err := h.runner.Run(r.Context(), start, end)
	if err != nil {
		h.logger.Error().Err(err).Msg("Sync run failed")
		writeJSON(w, statusForError(err), map[string]interface{}{
			"error": common.ErrorMessage(err),
		})
		return
	}

	h.hub.SendReport(report)
	writeJSON(w, http.StatusOK, report)
}

func (h *APIHandlers) UpdateHandler(w http.ResponseWriter, r *http.Request) {
	if !h.cfg.Update.Enabled {
		writeJSON(w, http.StatusOK, map[string]interface{}{"update": nil})
		return
	}

	info, err := h.updates.Check(r.Context())
	if err != nil {
		h.logger.Warn().Err(err).Msg("Update check failed")
		writeJSON(w, http.StatusOK, map[string]interface{}{"update": nil})
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"update": info})
}

type dismissRequest struct {
	Version string `json:"version"`
}

func (h *APIHandlers) UpdateDismissHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "POST required")
		return
	}

	var req dismissRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Version == "" {
		writeError(w, http.StatusBadRequest, "version is required")
		return
	}

	if err := h.updates.Dismiss(req.Version); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"dismissed": req.Version})
}

func statusForError(err error) int {
	var se *common.SyncError
	if !errors.As(err, &se) {
		return http.StatusInternalServerError
	}

	switch se.Type {
	case common.ErrorTypePastPeriod, common.ErrorTypeConfiguration:
		return http.StatusBadRequest
	case common.ErrorTypeCredential:
		return http.StatusUnauthorized
	case common.ErrorTypeUpstream:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]interface{}{"error": message})
}
