package model

import "time"

// Incident statuses.
const (
	StatusOpen     = "OPEN"
	StatusResolved = "RESOLVED"
)

// Well-known incident types. Alarm-sourced incidents use a per-alarm
// discriminator produced by AlarmIncidentType.
const (
	TypeTaskStopped = "TASK_STOPPED"
	AlarmTypePrefix = "ALARM_"
)

// Healing actions recorded on incidents.
const (
	HealingSchedulerRestart = "ECS_SCHEDULER_RESTART"
	HealingSteadyState      = "SERVICE_STEADY_STATE"
	HealingAutoScaling      = "APPLICATION_AUTO_SCALING"
)

// DefaultComponent is substituted by the read projector when a stored
// record carries no component.
const DefaultComponent = "ECS"

// Incident is the durable record of one detected service disruption,
// keyed by (Service, DetectionTime).
type Incident struct {
	Service       string    `json:"service" db:"service"`
	DetectionTime time.Time `json:"detection_time" db:"detection_time"`
	IncidentType  string    `json:"incident_type" db:"incident_type"`
	Status        string    `json:"status" db:"status"`

	Cluster       string `json:"cluster,omitempty" db:"cluster"`
	Component     string `json:"component,omitempty" db:"component"`
	DetectedBy    string `json:"detected_by,omitempty" db:"detected_by"`
	FailureReason string `json:"failure_reason,omitempty" db:"failure_reason"`
	HealingAction string `json:"healing_action,omitempty" db:"healing_action"`

	AlarmName         string `json:"alarm_name,omitempty" db:"alarm_name"`
	Region            string `json:"region,omitempty" db:"region"`
	TaskRef           string `json:"task_ref,omitempty" db:"task_ref"`
	TaskLastStatus    string `json:"task_last_status,omitempty" db:"task_last_status"`
	TaskDesiredStatus string `json:"task_desired_status,omitempty" db:"task_desired_status"`
	SourceEventID     string `json:"source_event_id,omitempty" db:"source_event_id"`
	ExitCode          *int64 `json:"exit_code,omitempty" db:"exit_code"`

	HealedTime  *time.Time `json:"healed_time,omitempty" db:"healed_time"`
	MTTRSeconds *int64     `json:"mttr_seconds,omitempty" db:"mttr_seconds"`

	Evidence ScalingEvidence `json:"evidence"`
}

// ScalingEvidence holds before/after snapshots of the service's task counts
// bracketing an alarm-triggered incident. All fields are optional; ScaleDelta
// is only set when both desired counts are known.
type ScalingEvidence struct {
	DesiredBefore *int64 `json:"desired_before,omitempty" db:"desired_before"`
	DesiredAfter  *int64 `json:"desired_after,omitempty" db:"desired_after"`
	RunningBefore *int64 `json:"running_before,omitempty" db:"running_before"`
	RunningAfter  *int64 `json:"running_after,omitempty" db:"running_after"`
	PendingBefore *int64 `json:"pending_before,omitempty" db:"pending_before"`
	PendingAfter  *int64 `json:"pending_after,omitempty" db:"pending_after"`
	ScaleDelta    *int64 `json:"scale_delta,omitempty" db:"scale_delta"`
}

// Resolved reports whether the incident has reached its terminal state.
func (i *Incident) Resolved() bool {
	return i.Status == StatusResolved
}
