package handler

import (
	"net/http"

	"github.com/edvin/healops/internal/api/response"
	"github.com/edvin/healops/internal/core"
)

type Incident struct {
	projector *core.Projector
}

func NewIncident(projector *core.Projector) *Incident {
	return &Incident{projector: projector}
}

// List returns every incident in the UI schema, newest-first.
func (h *Incident) List(w http.ResponseWriter, r *http.Request) {
	items, err := h.projector.Incidents(r.Context())
	if err != nil {
		response.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}
	response.WriteJSON(w, http.StatusOK, map[string]any{"items": items})
}

// Summary returns the dashboard aggregates.
func (h *Incident) Summary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.projector.Summarize(r.Context())
	if err != nil {
		response.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}
	response.WriteJSON(w, http.StatusOK, summary)
}
