package event

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edvin/healops/internal/config"
)

func newTestNormalizer(rules config.AlarmRules) *Normalizer {
	return NewNormalizer(rules, zerolog.Nop())
}

func envelope(t *testing.T, detailType, ts string, detail any, resources ...string) Envelope {
	t.Helper()
	raw, err := json.Marshal(detail)
	require.NoError(t, err)
	return Envelope{
		ID:         "evt-1",
		DetailType: detailType,
		Time:       ts,
		Region:     "eu-north-1",
		Resources:  resources,
		Detail:     raw,
	}
}

func TestNormalizeTaskStopped(t *testing.T) {
	n := newTestNormalizer(config.AlarmRules{})
	exit := int64(137)
	env := envelope(t, DetailTaskStateChange, "2025-01-01T00:00:00Z", map[string]any{
		"lastStatus":    "STOPPED",
		"desiredStatus": "STOPPED",
		"clusterArn":    "arn:aws:ecs:eu-north-1:1:cluster/prod",
		"group":         "service:checkout",
		"taskArn":       "arn:aws:ecs:eu-north-1:1:task/prod/abc123",
		"stoppedReason": "Essential container in task exited",
		"containers":    []map[string]any{{"exitCode": exit}},
	})

	evt := n.Normalize(env)
	task, ok := evt.(TaskLifecycleEvent)
	require.True(t, ok)

	assert.Equal(t, "checkout", task.Service)
	assert.Equal(t, "prod", task.Cluster)
	assert.True(t, task.Stopped())
	assert.Equal(t, "Essential container in task exited", task.StopReason)
	require.NotNil(t, task.ExitCode)
	assert.Equal(t, exit, *task.ExitCode)
	assert.Equal(t, "evt-1", task.SourceID)
	assert.Equal(t, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), task.OccurredAt)
}

func TestNormalizeTaskRunningIsNotStopped(t *testing.T) {
	n := newTestNormalizer(config.AlarmRules{})
	env := envelope(t, DetailTaskStateChange, "2025-01-01T00:00:05Z", map[string]any{
		"lastStatus":    "RUNNING",
		"desiredStatus": "RUNNING",
		"group":         "service:checkout",
	})

	task, ok := n.Normalize(env).(TaskLifecycleEvent)
	require.True(t, ok)
	assert.False(t, task.Stopped())
}

func TestNormalizeAlarmStructuredName(t *testing.T) {
	n := newTestNormalizer(config.AlarmRules{DefaultService: "fallback"})
	env := envelope(t, DetailAlarmStateChange, "2025-01-01T00:00:00Z", map[string]any{
		"alarmName": "TargetTracking-service/my-cluster/my-service-AlarmHigh-1234",
		"state":     map[string]any{"value": "ALARM"},
	})

	alarm, ok := n.Normalize(env).(AlarmStateEvent)
	require.True(t, ok)

	assert.Equal(t, "my-cluster", alarm.Cluster)
	assert.Equal(t, "my-service", alarm.Service)
	assert.Equal(t, AlarmStateAlarm, alarm.NewState)
	assert.Equal(t, "eu-north-1", alarm.Region)
}

func TestNormalizeAlarmDelimitedName(t *testing.T) {
	n := newTestNormalizer(config.AlarmRules{DefaultService: "fallback"})
	env := envelope(t, DetailAlarmStateChange, "2025-01-01T00:00:00Z", map[string]any{
		"alarmName": "checkout-AlarmHigh",
		"state":     map[string]any{"value": "OK"},
	})

	alarm, ok := n.Normalize(env).(AlarmStateEvent)
	require.True(t, ok)
	assert.Equal(t, "checkout", alarm.Service)
	assert.Empty(t, alarm.Cluster)
}

func TestNormalizeAlarmOverride(t *testing.T) {
	n := newTestNormalizer(config.AlarmRules{
		DefaultService: "fallback",
		Overrides: map[string]config.AlarmTarget{
			"billing-latency-p99": {Cluster: "prod", Service: "billing"},
		},
	})
	env := envelope(t, DetailAlarmStateChange, "2025-01-01T00:00:00Z", map[string]any{
		"alarmName": "billing-latency-p99",
		"state":     map[string]any{"value": "ALARM"},
	})

	alarm, ok := n.Normalize(env).(AlarmStateEvent)
	require.True(t, ok)
	assert.Equal(t, "billing", alarm.Service)
	assert.Equal(t, "prod", alarm.Cluster)
}

func TestNormalizeAlarmDimensionsFallback(t *testing.T) {
	n := newTestNormalizer(config.AlarmRules{DefaultService: "fallback"})
	env := envelope(t, DetailAlarmStateChange, "2025-01-01T00:00:00Z", map[string]any{
		"alarmName": "cpu_high",
		"state":     map[string]any{"value": "ALARM"},
		"configuration": map[string]any{
			"metrics": []map[string]any{{
				"metricStat": map[string]any{
					"metric": map[string]any{
						"dimensions": map[string]string{
							"ClusterName": "prod",
							"ServiceName": "checkout",
						},
					},
				},
			}},
		},
	})

	alarm, ok := n.Normalize(env).(AlarmStateEvent)
	require.True(t, ok)
	assert.Equal(t, "checkout", alarm.Service)
	assert.Equal(t, "prod", alarm.Cluster)
}

func TestNormalizeAlarmDefaultService(t *testing.T) {
	n := newTestNormalizer(config.AlarmRules{DefaultService: "fallback"})
	env := envelope(t, DetailAlarmStateChange, "2025-01-01T00:00:00Z", map[string]any{
		"alarmName": "opaque_alarm",
		"state":     map[string]any{"value": "ALARM"},
	})

	alarm, ok := n.Normalize(env).(AlarmStateEvent)
	require.True(t, ok)
	assert.Equal(t, "fallback", alarm.Service)
}

func TestNormalizeAlarmUnsupportedState(t *testing.T) {
	n := newTestNormalizer(config.AlarmRules{})
	env := envelope(t, DetailAlarmStateChange, "2025-01-01T00:00:00Z", map[string]any{
		"alarmName": "cpu_high",
		"state":     map[string]any{"value": "INSUFFICIENT_DATA"},
	})

	_, ok := n.Normalize(env).(UnrecognizedEvent)
	assert.True(t, ok)
}

func TestNormalizeServiceSteadyState(t *testing.T) {
	n := newTestNormalizer(config.AlarmRules{})
	env := envelope(t, DetailServiceAction, "2025-01-01T00:00:42Z", map[string]any{
		"eventName":  "SERVICE_STEADY_STATE",
		"clusterArn": "arn:aws:ecs:eu-north-1:1:cluster/prod",
	}, "arn:aws:ecs:eu-north-1:1:service/prod/checkout")

	evt, ok := n.Normalize(env).(ServiceStabilizedEvent)
	require.True(t, ok)
	assert.Equal(t, "checkout", evt.Service)
	assert.Equal(t, "prod", evt.Cluster)
}

func TestNormalizeServiceActionOtherEvents(t *testing.T) {
	n := newTestNormalizer(config.AlarmRules{})
	env := envelope(t, DetailServiceAction, "2025-01-01T00:00:00Z", map[string]any{
		"eventName": "SERVICE_TASK_START_IMPAIRED",
	})

	_, ok := n.Normalize(env).(UnrecognizedEvent)
	assert.True(t, ok)
}

func TestNormalizeUnsupportedKind(t *testing.T) {
	n := newTestNormalizer(config.AlarmRules{})
	env := envelope(t, "EC2 Instance State-change Notification", "2025-01-01T00:00:00Z", map[string]any{})

	unrec, ok := n.Normalize(env).(UnrecognizedEvent)
	require.True(t, ok)
	assert.Equal(t, "EC2 Instance State-change Notification", unrec.DetailType)
}

func TestNormalizeMalformedDetail(t *testing.T) {
	n := newTestNormalizer(config.AlarmRules{})
	env := Envelope{DetailType: DetailTaskStateChange, Detail: json.RawMessage(`{"containers": "nope"}`)}

	_, ok := n.Normalize(env).(UnrecognizedEvent)
	assert.True(t, ok)
}

func TestCanonicalTime(t *testing.T) {
	// Zoned timestamps convert to UTC, naive ones are assumed UTC already.
	zoned := CanonicalTime("2025-01-01T02:00:00+02:00")
	assert.Equal(t, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), zoned)

	naive := CanonicalTime("2025-01-01T00:00:00")
	assert.Equal(t, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), naive)

	sub := CanonicalTime("2025-01-01T00:00:00.750Z")
	assert.Equal(t, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), sub)
}
