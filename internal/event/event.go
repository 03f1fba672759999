package event

import "time"

// Kind identifies the closed set of normalized event kinds.
type Kind string

const (
	KindTaskLifecycle     Kind = "task_lifecycle"
	KindAlarmState        Kind = "alarm_state"
	KindServiceStabilized Kind = "service_stabilized"
	KindUnrecognized      Kind = "unrecognized"
)

// Alarm states carried by AlarmStateEvent.
const (
	AlarmStateAlarm = "ALARM"
	AlarmStateOK    = "OK"
)

// ECS task statuses the engine cares about.
const (
	TaskStopped = "STOPPED"
	TaskRunning = "RUNNING"
)

// Event is one normalized inbound signal.
type Event interface {
	Kind() Kind
}

// TaskLifecycleEvent is an ECS task state change.
type TaskLifecycleEvent struct {
	Service       string
	Cluster       string
	LastStatus    string
	DesiredStatus string
	TaskRef       string
	StopReason    string
	ExitCode      *int64
	SourceID      string
	OccurredAt    time.Time
}

func (TaskLifecycleEvent) Kind() Kind { return KindTaskLifecycle }

// Stopped reports whether the task has stopped or is being stopped.
func (e TaskLifecycleEvent) Stopped() bool {
	return e.LastStatus == TaskStopped || e.DesiredStatus == TaskStopped
}

// AlarmStateEvent is a metric-alarm state transition.
type AlarmStateEvent struct {
	AlarmName  string
	NewState   string
	Cluster    string
	Service    string
	Region     string
	SourceID   string
	OccurredAt time.Time
}

func (AlarmStateEvent) Kind() Kind { return KindAlarmState }

// ServiceStabilizedEvent is the explicit steady-state signal: the service's
// running task count has reached its desired count. This is the only
// authoritative recovery evidence for task-lifecycle incidents.
type ServiceStabilizedEvent struct {
	Service    string
	Cluster    string
	SourceID   string
	OccurredAt time.Time
}

func (ServiceStabilizedEvent) Kind() Kind { return KindServiceStabilized }

// UnrecognizedEvent is anything the normalizer could not map to a supported
// kind. It is acknowledged and dropped, never a delivery failure.
type UnrecognizedEvent struct {
	DetailType string
	Reason     string
}

func (UnrecognizedEvent) Kind() Kind { return KindUnrecognized }
