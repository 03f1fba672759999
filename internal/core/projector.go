package core

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/edvin/healops/internal/model"
	"github.com/edvin/healops/internal/store"
)

// UIIncident is the dashboard-facing incident schema: stored records
// reformatted with normalized field names and a human-readable MTTR.
type UIIncident struct {
	Service       string `json:"service"`
	IncidentType  string `json:"incident_type"`
	FailureReason string `json:"failure_reason,omitempty"`

	FailureTime string  `json:"failure_time"`
	HealedTime  *string `json:"healed_time"`
	MTTRSeconds *int64  `json:"mttr_seconds"`
	MTTRHuman   string  `json:"mttr_human"`

	Component     string `json:"component"`
	Detection     string `json:"detection,omitempty"`
	HealingAction string `json:"healing_action,omitempty"`
	Status        string `json:"status"`

	DesiredBefore *int64 `json:"desired_before,omitempty"`
	DesiredAfter  *int64 `json:"desired_after,omitempty"`
	RunningBefore *int64 `json:"running_before,omitempty"`
	RunningAfter  *int64 `json:"running_after,omitempty"`
	PendingBefore *int64 `json:"pending_before,omitempty"`
	PendingAfter  *int64 `json:"pending_after,omitempty"`
	ScaleDelta    *int64 `json:"scale_delta,omitempty"`
	AlarmName     string `json:"alarm_name,omitempty"`

	Cluster           string `json:"cluster,omitempty"`
	Region            string `json:"region,omitempty"`
	ExitCode          *int64 `json:"exit_code,omitempty"`
	TaskRef           string `json:"task_ref,omitempty"`
	TaskLastStatus    string `json:"task_last_status,omitempty"`
	TaskDesiredStatus string `json:"task_desired_status,omitempty"`
	SourceEventID     string `json:"source_event_id,omitempty"`
}

// Summary is the dashboard aggregate over all incidents.
type Summary struct {
	TotalIncidents    int         `json:"total_incidents"`
	OpenIncidents     int         `json:"open_incidents"`
	ResolvedIncidents int         `json:"resolved_incidents"`
	AvgMTTRSeconds    *int64      `json:"avg_mttr_seconds"`
	AvgMTTRHuman      string      `json:"avg_mttr_human"`
	Latest            *UIIncident `json:"latest"`
}

// Projector builds the dashboard read model from full store scans. It is a
// thin consumer: staleness relative to in-flight writes is accepted.
type Projector struct {
	store store.Store
}

func NewProjector(st store.Store) *Projector {
	return &Projector{store: st}
}

// Incidents returns every incident in UI schema, newest-first.
func (p *Projector) Incidents(ctx context.Context) ([]UIIncident, error) {
	records, err := p.scan(ctx)
	if err != nil {
		return nil, err
	}

	items := make([]UIIncident, 0, len(records))
	for _, rec := range records {
		items = append(items, formatIncident(rec))
	}
	return items, nil
}

// Summarize computes the dashboard aggregates: totals, open/resolved counts,
// and the integer mean MTTR over resolved incidents (nil when none).
func (p *Projector) Summarize(ctx context.Context) (Summary, error) {
	records, err := p.scan(ctx)
	if err != nil {
		return Summary{}, err
	}

	var s Summary
	s.TotalIncidents = len(records)

	var mttrSum, mttrCount int64
	for _, rec := range records {
		switch normalizeStatus(rec.Status) {
		case model.StatusResolved:
			s.ResolvedIncidents++
			if rec.MTTRSeconds != nil {
				mttrSum += *rec.MTTRSeconds
				mttrCount++
			}
		default:
			s.OpenIncidents++
		}
	}
	if mttrCount > 0 {
		avg := mttrSum / mttrCount
		s.AvgMTTRSeconds = &avg
	}
	s.AvgMTTRHuman = HumanizeSeconds(s.AvgMTTRSeconds)

	if len(records) > 0 {
		latest := formatIncident(records[0])
		s.Latest = &latest
	}
	return s, nil
}

func (p *Projector) scan(ctx context.Context) ([]model.Incident, error) {
	records, err := p.store.ScanAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("scan incidents: %w", err)
	}
	// The store already orders newest-first; keep the display contract
	// independent of that detail.
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].DetectionTime.After(records[j].DetectionTime)
	})
	return records, nil
}

func formatIncident(rec model.Incident) UIIncident {
	ui := UIIncident{
		Service:           rec.Service,
		IncidentType:      rec.IncidentType,
		FailureReason:     rec.FailureReason,
		FailureTime:       rec.DetectionTime.UTC().Format(time.RFC3339),
		MTTRSeconds:       rec.MTTRSeconds,
		MTTRHuman:         HumanizeSeconds(rec.MTTRSeconds),
		Component:         rec.Component,
		Detection:         rec.DetectedBy,
		HealingAction:     rec.HealingAction,
		Status:            normalizeStatus(rec.Status),
		DesiredBefore:     rec.Evidence.DesiredBefore,
		DesiredAfter:      rec.Evidence.DesiredAfter,
		RunningBefore:     rec.Evidence.RunningBefore,
		RunningAfter:      rec.Evidence.RunningAfter,
		PendingBefore:     rec.Evidence.PendingBefore,
		PendingAfter:      rec.Evidence.PendingAfter,
		ScaleDelta:        rec.Evidence.ScaleDelta,
		AlarmName:         rec.AlarmName,
		Cluster:           rec.Cluster,
		Region:            rec.Region,
		ExitCode:          rec.ExitCode,
		TaskRef:           rec.TaskRef,
		TaskLastStatus:    rec.TaskLastStatus,
		TaskDesiredStatus: rec.TaskDesiredStatus,
		SourceEventID:     rec.SourceEventID,
	}
	if ui.Component == "" {
		ui.Component = model.DefaultComponent
	}
	if rec.HealedTime != nil {
		healed := rec.HealedTime.UTC().Format(time.RFC3339)
		ui.HealedTime = &healed
	}
	return ui
}

func normalizeStatus(status string) string {
	if status == "" {
		return model.StatusOpen
	}
	return status
}

// HumanizeSeconds renders a duration for display: "42s", "3m 12s", or an
// em dash when unset.
func HumanizeSeconds(seconds *int64) string {
	if seconds == nil {
		return "—"
	}
	s := *seconds
	if s < 60 {
		return fmt.Sprintf("%ds", s)
	}
	return fmt.Sprintf("%dm %ds", s/60, s%60)
}
