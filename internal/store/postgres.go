package store

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/sethvargo/go-retry"

	"github.com/edvin/healops/internal/model"
)

// DB is the subset of pgxpool.Pool the store uses.
type DB interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// findWindow caps how many recent records FindLatestOpen scans per service.
// No open match within the window means "not found"; we never page further.
const findWindow = 25

const (
	maxRetries   = 3
	retryBackoff = 100 * time.Millisecond
)

// Postgres implements Store on top of a pgx connection pool.
type Postgres struct {
	db DB
}

func NewPostgres(db DB) *Postgres {
	return &Postgres{db: db}
}

const incidentColumns = `service, detection_time, incident_type, status,
	cluster, component, detected_by, failure_reason, healing_action,
	alarm_name, region, task_ref, task_last_status, task_desired_status,
	source_event_id, exit_code, healed_time, mttr_seconds,
	desired_before, desired_after, running_before, running_after,
	pending_before, pending_after, scale_delta`

func (p *Postgres) PutOpen(ctx context.Context, inc *model.Incident) (bool, error) {
	inc.Status = model.StatusOpen
	inc.DetectionTime = inc.DetectionTime.UTC().Truncate(time.Second)

	var tag pgconn.CommandTag
	err := p.withRetry(ctx, "put_open", func(ctx context.Context) error {
		var err error
		tag, err = p.db.Exec(ctx,
			`INSERT INTO incidents (service, detection_time, incident_type, status,
			                        cluster, component, detected_by, failure_reason, healing_action,
			                        alarm_name, region, task_ref, task_last_status, task_desired_status,
			                        source_event_id, exit_code,
			                        desired_before, running_before, pending_before)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
			 ON CONFLICT DO NOTHING`,
			inc.Service, inc.DetectionTime, inc.IncidentType, inc.Status,
			inc.Cluster, inc.Component, inc.DetectedBy, inc.FailureReason, inc.HealingAction,
			inc.AlarmName, inc.Region, inc.TaskRef, inc.TaskLastStatus, inc.TaskDesiredStatus,
			inc.SourceEventID, inc.ExitCode,
			inc.Evidence.DesiredBefore, inc.Evidence.RunningBefore, inc.Evidence.PendingBefore,
		)
		return err
	})
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (p *Postgres) FindLatestOpen(ctx context.Context, service string, sel model.TypeSelector) (*model.Incident, error) {
	var match *model.Incident
	err := p.withRetry(ctx, "find_latest_open", func(ctx context.Context) error {
		rows, err := p.db.Query(ctx,
			`SELECT `+incidentColumns+`
			 FROM incidents
			 WHERE service = $1 AND status = $2
			 ORDER BY detection_time DESC
			 LIMIT $3`,
			service, model.StatusOpen, findWindow,
		)
		if err != nil {
			return err
		}
		defer rows.Close()

		match = nil
		for rows.Next() {
			inc, err := scanIncident(rows)
			if err != nil {
				return err
			}
			if sel.Matches(inc.IncidentType) {
				match = inc
				break
			}
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	if match == nil {
		return nil, ErrNotFound
	}
	return match, nil
}

func (p *Postgres) Resolve(ctx context.Context, service string, detectionTime, healedAt time.Time, healingAction string, evidence model.ScalingEvidence) error {
	detectionTime = detectionTime.UTC().Truncate(time.Second)
	healedAt = healedAt.UTC().Truncate(time.Second)

	if healedAt.Before(detectionTime) {
		return ErrClockAnomaly
	}
	mttr := int64(healedAt.Sub(detectionTime) / time.Second)

	var tag pgconn.CommandTag
	err := p.withRetry(ctx, "resolve", func(ctx context.Context) error {
		var err error
		tag, err = p.db.Exec(ctx,
			`UPDATE incidents
			 SET status = $3,
			     healed_time = $4,
			     mttr_seconds = $5,
			     healing_action = COALESCE(NULLIF($6, ''), healing_action),
			     desired_after = $7,
			     running_after = $8,
			     pending_after = $9,
			     scale_delta = CASE
			         WHEN $7::bigint IS NOT NULL AND desired_before IS NOT NULL
			         THEN $7::bigint - desired_before
			     END
			 WHERE service = $1 AND detection_time = $2 AND status = $10`,
			service, detectionTime,
			model.StatusResolved, healedAt, mttr, healingAction,
			evidence.DesiredAfter, evidence.RunningAfter, evidence.PendingAfter,
			model.StatusOpen,
		)
		return err
	})
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 1 {
		return nil
	}

	// Nothing transitioned: either the key is missing or the record was
	// already resolved (repeated resolve events are expected and a no-op).
	var status string
	err = p.withRetry(ctx, "resolve_check", func(ctx context.Context) error {
		return p.db.QueryRow(ctx,
			`SELECT status FROM incidents WHERE service = $1 AND detection_time = $2`,
			service, detectionTime,
		).Scan(&status)
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return err
	}
	return nil
}

func (p *Postgres) ScanAll(ctx context.Context) ([]model.Incident, error) {
	var incidents []model.Incident
	err := p.withRetry(ctx, "scan_all", func(ctx context.Context) error {
		rows, err := p.db.Query(ctx,
			`SELECT `+incidentColumns+`
			 FROM incidents
			 ORDER BY detection_time DESC`,
		)
		if err != nil {
			return err
		}
		defer rows.Close()

		incidents = incidents[:0]
		for rows.Next() {
			inc, err := scanIncident(rows)
			if err != nil {
				return err
			}
			incidents = append(incidents, *inc)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return incidents, nil
}

// scanIncident decodes one row. Numeric columns are declared BIGINT and
// scanned into typed integer pointers here, at the store boundary; business
// logic never probes loosely typed values.
func scanIncident(row pgx.Row) (*model.Incident, error) {
	var inc model.Incident
	err := row.Scan(
		&inc.Service, &inc.DetectionTime, &inc.IncidentType, &inc.Status,
		&inc.Cluster, &inc.Component, &inc.DetectedBy, &inc.FailureReason, &inc.HealingAction,
		&inc.AlarmName, &inc.Region, &inc.TaskRef, &inc.TaskLastStatus, &inc.TaskDesiredStatus,
		&inc.SourceEventID, &inc.ExitCode, &inc.HealedTime, &inc.MTTRSeconds,
		&inc.Evidence.DesiredBefore, &inc.Evidence.DesiredAfter,
		&inc.Evidence.RunningBefore, &inc.Evidence.RunningAfter,
		&inc.Evidence.PendingBefore, &inc.Evidence.PendingAfter,
		&inc.Evidence.ScaleDelta,
	)
	if err != nil {
		return nil, err
	}
	inc.DetectionTime = inc.DetectionTime.UTC()
	if inc.HealedTime != nil {
		t := inc.HealedTime.UTC()
		inc.HealedTime = &t
	}
	return &inc, nil
}

// withRetry runs fn with bounded backoff, wrapping terminal failures in
// UnavailableError so the caller can arrange redelivery. pgx.ErrNoRows and
// context cancellation are surfaced as-is.
func (p *Postgres) withRetry(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	backoff := retry.WithMaxRetries(maxRetries, retry.NewFibonacci(retryBackoff))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		err := fn(ctx)
		if err == nil {
			return nil
		}
		if errors.Is(err, pgx.ErrNoRows) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}
		return retry.RetryableError(err)
	})
	if err == nil || errors.Is(err, pgx.ErrNoRows) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return &UnavailableError{Op: op, Err: err}
}
