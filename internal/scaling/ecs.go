// Package scaling reads desired/running/pending task counts for a service,
// used as before/after evidence bracketing alarm-triggered incidents.
package scaling

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ecs"
	"github.com/rs/zerolog"
)

// Counts is a snapshot of a service's task counts.
type Counts struct {
	Desired int64
	Running int64
	Pending int64
}

// Provider supplies task-count snapshots. Implementations are best-effort;
// callers treat failures as missing evidence, never as a processing failure.
type Provider interface {
	ServiceCounts(ctx context.Context, cluster, service string) (Counts, error)
}

type ecsAPI interface {
	DescribeServices(ctx context.Context, params *ecs.DescribeServicesInput, optFns ...func(*ecs.Options)) (*ecs.DescribeServicesOutput, error)
}

// ECS reads counts from the container orchestrator via DescribeServices.
type ECS struct {
	client ecsAPI
	logger zerolog.Logger
}

func NewECS(cfg aws.Config, logger zerolog.Logger) *ECS {
	return &ECS{
		client: ecs.NewFromConfig(cfg),
		logger: logger.With().Str("component", "scaling").Logger(),
	}
}

func (e *ECS) ServiceCounts(ctx context.Context, cluster, service string) (Counts, error) {
	out, err := e.client.DescribeServices(ctx, &ecs.DescribeServicesInput{
		Cluster:  aws.String(cluster),
		Services: []string{service},
	})
	if err != nil {
		return Counts{}, fmt.Errorf("describe service %s/%s: %w", cluster, service, err)
	}
	if len(out.Services) == 0 {
		return Counts{}, fmt.Errorf("service %s/%s not found", cluster, service)
	}

	svc := out.Services[0]
	return Counts{
		Desired: int64(svc.DesiredCount),
		Running: int64(svc.RunningCount),
		Pending: int64(svc.PendingCount),
	}, nil
}
