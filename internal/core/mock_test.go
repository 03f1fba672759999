package core

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/edvin/healops/internal/model"
	"github.com/edvin/healops/internal/scaling"
)

// ---------- Mock Store ----------

type mockStore struct {
	mock.Mock
}

func (m *mockStore) PutOpen(ctx context.Context, inc *model.Incident) (bool, error) {
	args := m.Called(ctx, inc)
	return args.Bool(0), args.Error(1)
}

func (m *mockStore) FindLatestOpen(ctx context.Context, service string, sel model.TypeSelector) (*model.Incident, error) {
	args := m.Called(ctx, service, sel)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Incident), args.Error(1)
}

func (m *mockStore) Resolve(ctx context.Context, service string, detectionTime, healedAt time.Time, healingAction string, evidence model.ScalingEvidence) error {
	args := m.Called(ctx, service, detectionTime, healedAt, healingAction, evidence)
	return args.Error(0)
}

func (m *mockStore) ScanAll(ctx context.Context) ([]model.Incident, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Incident), args.Error(1)
}

// ---------- Mock scaling provider ----------

type mockScaling struct {
	mock.Mock
}

func (m *mockScaling) ServiceCounts(ctx context.Context, cluster, service string) (scaling.Counts, error) {
	args := m.Called(ctx, cluster, service)
	return args.Get(0).(scaling.Counts), args.Error(1)
}
