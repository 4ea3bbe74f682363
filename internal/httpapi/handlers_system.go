package httpapi

import (
	"net/http"

	"authgrid.org/internal/telemetry"
)

const serviceName = "authgrid-api"

func (a *API) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"service": serviceName,
	})
}

func (a *API) handleReadyz(w http.ResponseWriter, r *http.Request) {
	if a.ready != nil {
		if err := a.ready(r.Context()); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]any{
				"status": "not_ready",
				"error":  err.Error(),
			})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "ready"})
}

type telemetryRequest struct {
	Events []telemetry.Event `json:"events"`
}

func (a *API) handleTelemetryEvents(w http.ResponseWriter, r *http.Request) {
	if a.telemetry == nil {
		writeError(w, r, http.StatusServiceUnavailable, "telemetry ingestion unavailable")
		return
	}
	var req telemetryRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	accepted, err := a.telemetry.Ingest(r.Context(), req.Events)
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]any{"accepted": accepted})
}
