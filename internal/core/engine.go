package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/edvin/healops/internal/event"
	"github.com/edvin/healops/internal/metrics"
	"github.com/edvin/healops/internal/model"
	"github.com/edvin/healops/internal/scaling"
	"github.com/edvin/healops/internal/store"
)

// Detection sources recorded on incidents.
const (
	detectedByEventBridge = "EventBridge"
	detectedByCloudWatch  = "CloudWatch"
)

// Engine is the incident lifecycle state machine. Each invocation handles one
// normalized event and is stateless apart from the shared store; same-service
// races converge through the store's conditional writes.
type Engine struct {
	store   store.Store
	scaling scaling.Provider
	logger  zerolog.Logger
}

// NewEngine creates the engine. The scaling provider is optional; without it
// alarm incidents simply carry no before/after evidence.
func NewEngine(st store.Store, sp scaling.Provider, logger zerolog.Logger) *Engine {
	return &Engine{
		store:   st,
		scaling: sp,
		logger:  logger.With().Str("component", "engine").Logger(),
	}
}

// Handle decides, per event, whether to open a new incident, resolve an
// existing one, enrich it with scaling evidence, or ignore the event.
// A non-nil error means the event must be redelivered (store unavailable);
// everything else is recovered locally.
func (e *Engine) Handle(ctx context.Context, evt event.Event) error {
	switch ev := evt.(type) {
	case event.TaskLifecycleEvent:
		return e.handleTask(ctx, ev)
	case event.ServiceStabilizedEvent:
		return e.handleStabilized(ctx, ev)
	case event.AlarmStateEvent:
		return e.handleAlarm(ctx, ev)
	case event.UnrecognizedEvent:
		metrics.RecordEvent(string(ev.Kind()), metrics.OutcomeDropped)
		return nil
	default:
		return fmt.Errorf("unhandled event kind %q", evt.Kind())
	}
}

func (e *Engine) handleTask(ctx context.Context, ev event.TaskLifecycleEvent) error {
	if !ev.Stopped() {
		// A task reaching RUNNING is not authoritative recovery evidence:
		// a replacement task can flap, and says nothing about the service
		// stabilizing at desired capacity. Recovery is only confirmed by an
		// explicit steady-state signal.
		e.logger.Debug().
			Str("service", ev.Service).
			Str("last_status", ev.LastStatus).
			Msg("non-stopped task event ignored")
		metrics.RecordEvent(string(ev.Kind()), metrics.OutcomeIgnored)
		return nil
	}

	inc := &model.Incident{
		Service:           ev.Service,
		DetectionTime:     ev.OccurredAt,
		IncidentType:      model.TypeTaskStopped,
		Cluster:           ev.Cluster,
		Component:         model.DefaultComponent,
		DetectedBy:        detectedByEventBridge,
		FailureReason:     ev.StopReason,
		HealingAction:     model.HealingSchedulerRestart,
		TaskRef:           ev.TaskRef,
		TaskLastStatus:    ev.LastStatus,
		TaskDesiredStatus: ev.DesiredStatus,
		SourceEventID:     ev.SourceID,
		ExitCode:          ev.ExitCode,
	}

	created, err := e.store.PutOpen(ctx, inc)
	if err != nil {
		return fmt.Errorf("open task incident: %w", err)
	}
	if !created {
		e.logger.Info().
			Str("service", ev.Service).
			Str("source_event_id", ev.SourceID).
			Msg("duplicate task stopped event, incident already open")
		metrics.RecordEvent(string(ev.Kind()), metrics.OutcomeDeduped)
		return nil
	}

	e.logger.Info().
		Str("service", ev.Service).
		Time("detection_time", inc.DetectionTime).
		Str("failure_reason", ev.StopReason).
		Msg("incident opened: task stopped")
	metrics.RecordEvent(string(ev.Kind()), metrics.OutcomeOpened)
	return nil
}

func (e *Engine) handleStabilized(ctx context.Context, ev event.ServiceStabilizedEvent) error {
	open, err := e.store.FindLatestOpen(ctx, ev.Service, model.Exact(model.TypeTaskStopped))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			// Expected under duplicate or out-of-order delivery.
			e.logger.Warn().
				Str("service", ev.Service).
				Msg("steady state signal with no open task incident")
			metrics.RecordEvent(string(ev.Kind()), metrics.OutcomeNoMatch)
			return nil
		}
		return fmt.Errorf("match task incident: %w", err)
	}

	return e.resolve(ctx, string(ev.Kind()), open, ev.OccurredAt, model.HealingSteadyState, model.ScalingEvidence{})
}

func (e *Engine) handleAlarm(ctx context.Context, ev event.AlarmStateEvent) error {
	switch ev.NewState {
	case event.AlarmStateAlarm:
		return e.openAlarm(ctx, ev)
	case event.AlarmStateOK:
		return e.resolveAlarm(ctx, ev)
	default:
		metrics.RecordEvent(string(ev.Kind()), metrics.OutcomeDropped)
		return nil
	}
}

func (e *Engine) openAlarm(ctx context.Context, ev event.AlarmStateEvent) error {
	inc := &model.Incident{
		Service:       ev.Service,
		DetectionTime: ev.OccurredAt,
		IncidentType:  model.AlarmIncidentType(ev.AlarmName),
		Cluster:       ev.Cluster,
		Component:     model.DefaultComponent,
		DetectedBy:    detectedByCloudWatch,
		HealingAction: model.HealingAutoScaling,
		AlarmName:     ev.AlarmName,
		Region:        ev.Region,
		SourceEventID: ev.SourceID,
	}

	if counts, ok := e.snapshot(ctx, ev.Cluster, ev.Service); ok {
		inc.Evidence.DesiredBefore = &counts.Desired
		inc.Evidence.RunningBefore = &counts.Running
		inc.Evidence.PendingBefore = &counts.Pending
	}

	created, err := e.store.PutOpen(ctx, inc)
	if err != nil {
		return fmt.Errorf("open alarm incident: %w", err)
	}
	if !created {
		e.logger.Info().
			Str("service", ev.Service).
			Str("alarm", ev.AlarmName).
			Msg("duplicate alarm event, incident already open")
		metrics.RecordEvent(string(ev.Kind()), metrics.OutcomeDeduped)
		return nil
	}

	e.logger.Info().
		Str("service", ev.Service).
		Str("alarm", ev.AlarmName).
		Str("incident_type", inc.IncidentType).
		Msg("incident opened: alarm firing")
	metrics.RecordEvent(string(ev.Kind()), metrics.OutcomeOpened)
	return nil
}

func (e *Engine) resolveAlarm(ctx context.Context, ev event.AlarmStateEvent) error {
	// Any alarm-sourced incident is resolvable by the generic selector: the
	// incident type carries the specific alarm name, but OK transitions
	// must close whichever alarm incident is most recent for the service.
	open, err := e.store.FindLatestOpen(ctx, ev.Service, model.AnyAlarm())
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			e.logger.Warn().
				Str("service", ev.Service).
				Str("alarm", ev.AlarmName).
				Msg("alarm OK with no open alarm incident")
			metrics.RecordEvent(string(ev.Kind()), metrics.OutcomeNoMatch)
			return nil
		}
		return fmt.Errorf("match alarm incident: %w", err)
	}

	var evidence model.ScalingEvidence
	if counts, ok := e.snapshot(ctx, ev.Cluster, ev.Service); ok {
		evidence.DesiredAfter = &counts.Desired
		evidence.RunningAfter = &counts.Running
		evidence.PendingAfter = &counts.Pending
	}

	return e.resolve(ctx, string(ev.Kind()), open, ev.OccurredAt, model.HealingAutoScaling, evidence)
}

func (e *Engine) resolve(ctx context.Context, kind string, open *model.Incident, healedAt time.Time, healingAction string, evidence model.ScalingEvidence) error {
	err := e.store.Resolve(ctx, open.Service, open.DetectionTime, healedAt, healingAction, evidence)
	switch {
	case errors.Is(err, store.ErrClockAnomaly):
		// Redelivery cannot repair clock skew; flag it loudly and move on.
		e.logger.Error().
			Str("service", open.Service).
			Time("detection_time", open.DetectionTime).
			Time("healed_time", healedAt).
			Msg("resolve rejected: healed time precedes detection time")
		metrics.RecordClockAnomaly()
		metrics.RecordEvent(kind, metrics.OutcomeFailed)
		return nil
	case errors.Is(err, store.ErrNotFound):
		// The record vanished between match and resolve; treat like no match.
		metrics.RecordEvent(kind, metrics.OutcomeNoMatch)
		return nil
	case err != nil:
		return fmt.Errorf("resolve incident: %w", err)
	}

	e.logger.Info().
		Str("service", open.Service).
		Str("incident_type", open.IncidentType).
		Time("detection_time", open.DetectionTime).
		Int64("mttr_seconds", int64(healedAt.Sub(open.DetectionTime)/time.Second)).
		Str("healing_action", healingAction).
		Msg("incident resolved")
	metrics.RecordEvent(kind, metrics.OutcomeResolved)
	return nil
}

// snapshot fetches current task counts, best-effort. A failed snapshot is
// missing evidence, never a processing failure.
func (e *Engine) snapshot(ctx context.Context, cluster, service string) (scaling.Counts, bool) {
	if e.scaling == nil || cluster == "" || service == "" || service == "unknown" {
		return scaling.Counts{}, false
	}
	counts, err := e.scaling.ServiceCounts(ctx, cluster, service)
	if err != nil {
		e.logger.Warn().Err(err).
			Str("cluster", cluster).
			Str("service", service).
			Msg("scaling snapshot unavailable")
		return scaling.Counts{}, false
	}
	return counts, true
}
