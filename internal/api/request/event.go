package request

import "encoding/json"

// IngestEvent is the webhook form of the inbound event envelope.
type IngestEvent struct {
	ID         string          `json:"id"`
	DetailType string          `json:"detail-type" validate:"required"`
	Source     string          `json:"source"`
	Time       string          `json:"time"`
	Region     string          `json:"region"`
	Resources  []string        `json:"resources"`
	Detail     json.RawMessage `json:"detail" validate:"required"`
}
