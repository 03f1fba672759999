package event

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/edvin/healops/internal/config"
)

// Envelope is the raw EventBridge-style event envelope. DetailType selects
// the payload shape nested under Detail.
type Envelope struct {
	ID         string          `json:"id"`
	DetailType string          `json:"detail-type"`
	Source     string          `json:"source,omitempty"`
	Time       string          `json:"time"`
	Region     string          `json:"region,omitempty"`
	Resources  []string        `json:"resources,omitempty"`
	Detail     json.RawMessage `json:"detail"`
}

// Supported envelope detail types.
const (
	DetailTaskStateChange  = "ECS Task State Change"
	DetailAlarmStateChange = "CloudWatch Alarm State Change"
	DetailServiceAction    = "ECS Service Action"
)

const steadyStateEventName = "SERVICE_STEADY_STATE"

// Normalizer turns raw envelopes into typed events. It never fails: anything
// that does not conform to a supported shape comes back as UnrecognizedEvent.
type Normalizer struct {
	rules  config.AlarmRules
	logger zerolog.Logger
}

func NewNormalizer(rules config.AlarmRules, logger zerolog.Logger) *Normalizer {
	return &Normalizer{
		rules:  rules,
		logger: logger.With().Str("component", "normalizer").Logger(),
	}
}

// Normalize maps an envelope onto the closed set of event kinds.
func (n *Normalizer) Normalize(env Envelope) Event {
	switch env.DetailType {
	case DetailTaskStateChange:
		return n.normalizeTask(env)
	case DetailAlarmStateChange:
		return n.normalizeAlarm(env)
	case DetailServiceAction:
		return n.normalizeServiceAction(env)
	default:
		n.logger.Debug().Str("detail_type", env.DetailType).Msg("unsupported envelope kind, dropping")
		return UnrecognizedEvent{DetailType: env.DetailType, Reason: "unsupported detail-type"}
	}
}

type taskDetail struct {
	LastStatus    string `json:"lastStatus"`
	DesiredStatus string `json:"desiredStatus"`
	ClusterArn    string `json:"clusterArn"`
	Group         string `json:"group"`
	TaskArn       string `json:"taskArn"`
	StoppedReason string `json:"stoppedReason"`
	Containers    []struct {
		ExitCode *int64 `json:"exitCode"`
	} `json:"containers"`
}

func (n *Normalizer) normalizeTask(env Envelope) Event {
	var d taskDetail
	if err := json.Unmarshal(env.Detail, &d); err != nil {
		n.logger.Warn().Err(err).Msg("malformed task state change detail, dropping")
		return UnrecognizedEvent{DetailType: env.DetailType, Reason: "malformed detail"}
	}

	service := strings.TrimPrefix(d.Group, "service:")
	if service == "" {
		service = "unknown"
	}

	evt := TaskLifecycleEvent{
		Service:       service,
		Cluster:       arnTail(d.ClusterArn),
		LastStatus:    d.LastStatus,
		DesiredStatus: d.DesiredStatus,
		TaskRef:       d.TaskArn,
		StopReason:    d.StoppedReason,
		SourceID:      env.ID,
		OccurredAt:    CanonicalTime(env.Time),
	}
	if len(d.Containers) > 0 {
		evt.ExitCode = d.Containers[0].ExitCode
	}
	return evt
}

type alarmDetail struct {
	AlarmName string `json:"alarmName"`
	State     struct {
		Value string `json:"value"`
	} `json:"state"`
	Configuration struct {
		Metrics []struct {
			MetricStat struct {
				Metric struct {
					Dimensions map[string]string `json:"dimensions"`
				} `json:"metric"`
			} `json:"metricStat"`
		} `json:"metrics"`
	} `json:"configuration"`
}

func (n *Normalizer) normalizeAlarm(env Envelope) Event {
	var d alarmDetail
	if err := json.Unmarshal(env.Detail, &d); err != nil {
		n.logger.Warn().Err(err).Msg("malformed alarm state change detail, dropping")
		return UnrecognizedEvent{DetailType: env.DetailType, Reason: "malformed detail"}
	}
	if d.AlarmName == "" {
		return UnrecognizedEvent{DetailType: env.DetailType, Reason: "missing alarmName"}
	}
	state := d.State.Value
	if state != AlarmStateAlarm && state != AlarmStateOK {
		return UnrecognizedEvent{DetailType: env.DetailType, Reason: "unsupported alarm state " + state}
	}

	cluster, service := n.resolveAlarmTarget(d)

	return AlarmStateEvent{
		AlarmName:  d.AlarmName,
		NewState:   state,
		Cluster:    cluster,
		Service:    service,
		Region:     env.Region,
		SourceID:   env.ID,
		OccurredAt: CanonicalTime(env.Time),
	}
}

// resolveAlarmTarget extracts the cluster and service an alarm refers to,
// ordered by specificity. Later steps are strictly lower-confidence
// fallbacks and never override an earlier hit:
//  1. the structured naming convention "<prefix>service/<cluster>/<service>-Alarm...",
//  2. the "<service>-Alarm..." delimiter convention,
//  3. an operator-supplied override from the rules file,
//  4. metric dimensions (ServiceName / ClusterName),
//  5. the configured default service name.
func (n *Normalizer) resolveAlarmTarget(d alarmDetail) (cluster, service string) {
	if c, s, ok := parseStructuredAlarmName(d.AlarmName); ok {
		return c, s
	}
	if s, ok := parseDelimitedAlarmName(d.AlarmName); ok {
		return "", s
	}
	if target, ok := n.rules.Overrides[d.AlarmName]; ok {
		return target.Cluster, target.Service
	}
	var dims map[string]string
	if len(d.Configuration.Metrics) > 0 {
		dims = d.Configuration.Metrics[0].MetricStat.Metric.Dimensions
	}
	if s := dims["ServiceName"]; s != "" {
		return dims["ClusterName"], s
	}
	return "", n.rules.DefaultService
}

// parseStructuredAlarmName handles autoscaling-style names such as
// "TargetTracking-service/my-cluster/my-service-AlarmHigh-1234".
func parseStructuredAlarmName(name string) (cluster, service string, ok bool) {
	idx := strings.Index(name, "service/")
	if idx < 0 {
		return "", "", false
	}
	rest := name[idx+len("service/"):]
	slash := strings.Index(rest, "/")
	if slash < 0 {
		return "", "", false
	}
	cluster = rest[:slash]
	service = rest[slash+1:]
	if a := strings.Index(service, "-Alarm"); a >= 0 {
		service = service[:a]
	}
	if cluster == "" || service == "" {
		return "", "", false
	}
	return cluster, service, true
}

// parseDelimitedAlarmName handles plain "<service>-Alarm..." names.
func parseDelimitedAlarmName(name string) (service string, ok bool) {
	if strings.Contains(name, "/") {
		return "", false
	}
	idx := strings.Index(name, "-Alarm")
	if idx <= 0 {
		return "", false
	}
	return name[:idx], true
}

type serviceActionDetail struct {
	EventName  string `json:"eventName"`
	ClusterArn string `json:"clusterArn"`
}

func (n *Normalizer) normalizeServiceAction(env Envelope) Event {
	var d serviceActionDetail
	if err := json.Unmarshal(env.Detail, &d); err != nil {
		n.logger.Warn().Err(err).Msg("malformed service action detail, dropping")
		return UnrecognizedEvent{DetailType: env.DetailType, Reason: "malformed detail"}
	}
	if d.EventName != steadyStateEventName {
		return UnrecognizedEvent{DetailType: env.DetailType, Reason: "unsupported service action " + d.EventName}
	}

	service := ""
	for _, res := range env.Resources {
		if strings.Contains(res, ":service/") {
			service = arnTail(res)
			break
		}
	}
	if service == "" {
		return UnrecognizedEvent{DetailType: env.DetailType, Reason: "steady state signal without service resource"}
	}

	return ServiceStabilizedEvent{
		Service:    service,
		Cluster:    arnTail(d.ClusterArn),
		SourceID:   env.ID,
		OccurredAt: CanonicalTime(env.Time),
	}
}

// arnTail returns the final path segment of an ARN, or the input unchanged
// when it carries no path.
func arnTail(arn string) string {
	if arn == "" {
		return ""
	}
	if idx := strings.LastIndex(arn, "/"); idx >= 0 {
		return arn[idx+1:]
	}
	return arn
}

// CanonicalTime parses an envelope timestamp into second-precision UTC.
// Timestamps arriving without a zone suffix are assumed already UTC. An
// unparseable or empty timestamp falls back to the current wall clock so a
// sloppy producer cannot stall detection.
func CanonicalTime(s string) time.Time {
	if s != "" {
		if t, err := time.Parse(time.RFC3339, s); err == nil {
			return t.UTC().Truncate(time.Second)
		}
		if t, err := time.Parse("2006-01-02T15:04:05", s); err == nil {
			return t.UTC().Truncate(time.Second)
		}
	}
	return time.Now().UTC().Truncate(time.Second)
}
