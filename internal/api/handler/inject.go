package handler

import (
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/edvin/healops/internal/api/response"
)

const (
	burnDefaultSeconds = 30
	burnMinSeconds     = 5
	burnMaxSeconds     = 120
)

// Inject hosts the fault-injection endpoints used to exercise the detection
// pipeline against a live deployment.
type Inject struct {
	logger zerolog.Logger
}

func NewInject(logger zerolog.Logger) *Inject {
	return &Inject{logger: logger.With().Str("component", "inject").Logger()}
}

// Crash acknowledges the request, then terminates the process so the
// orchestrator observes a task stop and restarts it.
func (h *Inject) Crash(w http.ResponseWriter, _ *http.Request) {
	h.logger.Warn().Msg("crash injected, exiting")
	response.WriteJSON(w, http.StatusOK, map[string]string{"status": "crashing"})

	go func() {
		// Give the response a moment to flush before dying.
		time.Sleep(250 * time.Millisecond)
		os.Exit(1)
	}()
}

// BurnCPU spins a busy loop for the requested number of seconds to drive
// CPU-based alarms and autoscaling. The duration is clamped so a typo cannot
// wedge a task indefinitely.
func (h *Inject) BurnCPU(w http.ResponseWriter, r *http.Request) {
	seconds, err := parseBurnSeconds(r.URL.Query().Get("seconds"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, "seconds must be an integer")
		return
	}

	h.logger.Warn().Int("seconds", seconds).Msg("cpu burn injected")

	deadline := time.Now().Add(time.Duration(seconds) * time.Second)
	go func() {
		for time.Now().Before(deadline) {
		}
	}()

	response.WriteJSON(w, http.StatusOK, map[string]any{"status": "burning", "seconds": seconds})
}

// parseBurnSeconds parses and clamps the requested burn duration.
func parseBurnSeconds(raw string) (int, error) {
	if raw == "" {
		return burnDefaultSeconds, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, err
	}
	if n < burnMinSeconds {
		n = burnMinSeconds
	}
	if n > burnMaxSeconds {
		n = burnMaxSeconds
	}
	return n, nil
}
