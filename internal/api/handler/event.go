package handler

import (
	"context"
	"net/http"

	"github.com/edvin/healops/internal/api/request"
	"github.com/edvin/healops/internal/api/response"
	"github.com/edvin/healops/internal/event"
	"github.com/edvin/healops/internal/platform"
	"github.com/edvin/healops/internal/store"
)

// Lifecycle is the slice of the engine the webhook handler needs.
type Lifecycle interface {
	Handle(ctx context.Context, evt event.Event) error
}

type Event struct {
	normalizer *event.Normalizer
	engine     Lifecycle
}

func NewEvent(normalizer *event.Normalizer, engine Lifecycle) *Event {
	return &Event{normalizer: normalizer, engine: engine}
}

// Ingest accepts a raw envelope over HTTP. Unsupported kinds are acknowledged
// and dropped; only store unavailability asks the caller to redeliver.
func (h *Event) Ingest(w http.ResponseWriter, r *http.Request) {
	var req request.IngestEvent
	if err := request.Decode(r, &req); err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	// Webhook callers may omit an event id; assign one so the stored
	// incident still carries a usable dedupe key.
	if req.ID == "" {
		req.ID = platform.NewID()
	}

	evt := h.normalizer.Normalize(event.Envelope{
		ID:         req.ID,
		DetailType: req.DetailType,
		Source:     req.Source,
		Time:       req.Time,
		Region:     req.Region,
		Resources:  req.Resources,
		Detail:     req.Detail,
	})

	if err := h.engine.Handle(r.Context(), evt); err != nil {
		if store.IsUnavailable(err) {
			response.WriteError(w, http.StatusServiceUnavailable, "store unavailable, retry later")
			return
		}
		response.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	status := "accepted"
	if evt.Kind() == event.KindUnrecognized {
		status = "ignored"
	}
	response.WriteJSON(w, http.StatusAccepted, map[string]string{"status": status, "event_id": req.ID})
}
