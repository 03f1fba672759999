// Package store provides the durable incident record store: an append/update
// abstraction keyed by (service, detection_time), queryable newest-first per
// service.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/edvin/healops/internal/model"
)

// ErrNotFound is returned when no record exists for the requested key, or no
// open record matches a selector within the scan window.
var ErrNotFound = errors.New("incident not found")

// ErrClockAnomaly is returned when a resolve would produce a negative MTTR,
// i.e. the healed time precedes the detection time. The record is left
// untouched; a negative duration is never stored.
var ErrClockAnomaly = errors.New("healed time precedes detection time")

// UnavailableError wraps a transient store I/O failure that survived bounded
// retry. Callers should arrange redelivery rather than drop the event.
type UnavailableError struct {
	Op  string
	Err error
}

func (e *UnavailableError) Error() string {
	return fmt.Sprintf("store unavailable during %s: %v", e.Op, e.Err)
}

func (e *UnavailableError) Unwrap() error { return e.Err }

// IsUnavailable reports whether err is a transient store failure.
func IsUnavailable(err error) bool {
	var ue *UnavailableError
	return errors.As(err, &ue)
}

// Store is the incident record store consumed by the lifecycle engine and
// the read projector.
type Store interface {
	// PutOpen inserts a new OPEN incident. The write is conditional: a
	// record with the same (service, detection_time) key or the same
	// source event id is left untouched, and created=false is returned.
	PutOpen(ctx context.Context, inc *model.Incident) (created bool, err error)

	// FindLatestOpen returns the most recent OPEN incident for the service
	// whose type matches the selector, scanning at most a bounded window of
	// recent records. ErrNotFound when no open match exists in the window.
	FindLatestOpen(ctx context.Context, service string, sel model.TypeSelector) (*model.Incident, error)

	// Resolve transitions exactly one record from OPEN to RESOLVED, setting
	// healed_time and mttr_seconds and merging the after-snapshot evidence.
	// Already-resolved records are a no-op, not an error. ErrNotFound when
	// the key does not exist; ErrClockAnomaly when mttr would be negative.
	Resolve(ctx context.Context, service string, detectionTime, healedAt time.Time, healingAction string, evidence model.ScalingEvidence) error

	// ScanAll returns every record, newest-first by detection time. Used
	// only by the read projector.
	ScanAll(ctx context.Context) ([]model.Incident, error)
}
