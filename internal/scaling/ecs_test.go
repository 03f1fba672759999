package scaling

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/ecs"
	"github.com/aws/aws-sdk-go-v2/service/ecs/types"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeECS struct {
	out *ecs.DescribeServicesOutput
	err error
}

func (f *fakeECS) DescribeServices(ctx context.Context, params *ecs.DescribeServicesInput, optFns ...func(*ecs.Options)) (*ecs.DescribeServicesOutput, error) {
	return f.out, f.err
}

func TestServiceCounts(t *testing.T) {
	e := &ECS{
		client: &fakeECS{out: &ecs.DescribeServicesOutput{
			Services: []types.Service{{DesiredCount: 3, RunningCount: 2, PendingCount: 1}},
		}},
		logger: zerolog.Nop(),
	}

	counts, err := e.ServiceCounts(context.Background(), "prod", "checkout")
	require.NoError(t, err)
	assert.Equal(t, Counts{Desired: 3, Running: 2, Pending: 1}, counts)
}

func TestServiceCounts_Missing(t *testing.T) {
	e := &ECS{client: &fakeECS{out: &ecs.DescribeServicesOutput{}}, logger: zerolog.Nop()}

	_, err := e.ServiceCounts(context.Background(), "prod", "gone")
	assert.Error(t, err)
}

func TestServiceCounts_APIError(t *testing.T) {
	e := &ECS{client: &fakeECS{err: errors.New("throttled")}, logger: zerolog.Nop()}

	_, err := e.ServiceCounts(context.Background(), "prod", "checkout")
	assert.Error(t, err)
}
