package model

import "strings"

// Wildcard is the trailing marker that turns a type selector into a prefix
// match. The string form is an external contract: resolve-class events carry
// selectors like "ALARM_*" so that any alarm-sourced incident can be matched
// by a single generic selector when the alarm returns to OK.
const Wildcard = "*"

// TypeSelector matches incident types either exactly or, when it ends in the
// wildcard marker, by prefix on the text before the marker.
type TypeSelector string

// Exact returns a selector that only matches incidentType itself.
func Exact(incidentType string) TypeSelector {
	return TypeSelector(incidentType)
}

// AnyAlarm matches every alarm-sourced incident type.
func AnyAlarm() TypeSelector {
	return TypeSelector(AlarmTypePrefix + Wildcard)
}

// Matches applies the selector rule to an incident type.
func (s TypeSelector) Matches(incidentType string) bool {
	sel := string(s)
	if strings.HasSuffix(sel, Wildcard) {
		return strings.HasPrefix(incidentType, strings.TrimSuffix(sel, Wildcard))
	}
	return incidentType == sel
}

// AlarmIncidentType derives the incident-type discriminator for an alarm:
// "ALARM_" plus the alarm name uppercased with runs of non-alphanumeric
// characters collapsed to single underscores.
func AlarmIncidentType(alarmName string) string {
	var b strings.Builder
	b.WriteString(AlarmTypePrefix)
	pending := false
	for _, r := range strings.ToUpper(alarmName) {
		switch {
		case r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			if pending && b.Len() > len(AlarmTypePrefix) {
				b.WriteByte('_')
			}
			pending = false
			b.WriteRune(r)
		default:
			pending = true
		}
	}
	return b.String()
}
