package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTypeSelector_Exact(t *testing.T) {
	sel := Exact(TypeTaskStopped)

	assert.True(t, sel.Matches("TASK_STOPPED"))
	assert.False(t, sel.Matches("TASK_STOPPED_X"))
	assert.False(t, sel.Matches("ALARM_CPUHIGH"))
}

func TestTypeSelector_Wildcard(t *testing.T) {
	sel := AnyAlarm()

	assert.True(t, sel.Matches("ALARM_CPUHIGH"))
	assert.True(t, sel.Matches("ALARM_MEMHIGH"))
	assert.False(t, sel.Matches("TASK_STOPPED"))
}

func TestTypeSelector_WildcardIsSuffixOnly(t *testing.T) {
	// A bare "*" matches everything; a wildcard in the middle is literal.
	assert.True(t, TypeSelector("*").Matches("ALARM_CPUHIGH"))
	assert.False(t, TypeSelector("AL*RM").Matches("ALARM"))
}

func TestAlarmIncidentType(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"cpu-high", "ALARM_CPU_HIGH"},
		{"TargetTracking-service/my-cluster/my-service-AlarmHigh-1234",
			"ALARM_TARGETTRACKING_SERVICE_MY_CLUSTER_MY_SERVICE_ALARMHIGH_1234"},
		{"--cpu--high--", "ALARM_CPU_HIGH"},
		{"CPUUtilization", "ALARM_CPUUTILIZATION"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, AlarmIncidentType(tt.name), tt.name)
	}
}

func TestAlarmIncidentTypeMatchedByAnyAlarm(t *testing.T) {
	assert.True(t, AnyAlarm().Matches(AlarmIncidentType("cpu-high")))
}
