package store

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/mock"

	"github.com/edvin/healops/internal/model"
)

// ---------- Mock DB ----------

// mockDB implements the DB interface for testing.
type mockDB struct {
	mock.Mock
}

func (m *mockDB) Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
	args := m.Called(ctx, sql, arguments)
	return args.Get(0).(pgconn.CommandTag), args.Error(1)
}

func (m *mockDB) Query(ctx context.Context, sql string, arguments ...any) (pgx.Rows, error) {
	args := m.Called(ctx, sql, arguments)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(pgx.Rows), args.Error(1)
}

func (m *mockDB) QueryRow(ctx context.Context, sql string, arguments ...any) pgx.Row {
	args := m.Called(ctx, sql, arguments)
	return args.Get(0).(pgx.Row)
}

// ---------- Mock Row ----------

type mockRow struct {
	scanFunc func(dest ...any) error
}

func (m *mockRow) Scan(dest ...any) error {
	return m.scanFunc(dest...)
}

// ---------- Mock Rows ----------

// mockRows implements pgx.Rows, yielding one scan function per row.
type mockRows struct {
	callIndex int
	scanFuncs []func(dest ...any) error
	err       error
}

func newMockRows(scanFuncs ...func(dest ...any) error) *mockRows {
	return &mockRows{scanFuncs: scanFuncs}
}

func (m *mockRows) Next() bool {
	return m.callIndex < len(m.scanFuncs)
}

func (m *mockRows) Scan(dest ...any) error {
	if m.callIndex < len(m.scanFuncs) {
		fn := m.scanFuncs[m.callIndex]
		m.callIndex++
		return fn(dest...)
	}
	return nil
}

func (m *mockRows) Err() error                                    { return m.err }
func (m *mockRows) Close()                                        {}
func (m *mockRows) CommandTag() pgconn.CommandTag                 { return pgconn.CommandTag{} }
func (m *mockRows) FieldDescriptions() []pgconn.FieldDescription  { return nil }
func (m *mockRows) RawValues() [][]byte                           { return nil }
func (m *mockRows) Values() ([]any, error)                        { return nil, nil }
func (m *mockRows) Conn() *pgx.Conn                               { return nil }

// scanFromIncident fills scan destinations in incidentColumns order.
func scanFromIncident(inc model.Incident) func(dest ...any) error {
	return func(dest ...any) error {
		*(dest[0].(*string)) = inc.Service
		*(dest[1].(*time.Time)) = inc.DetectionTime
		*(dest[2].(*string)) = inc.IncidentType
		*(dest[3].(*string)) = inc.Status
		*(dest[4].(*string)) = inc.Cluster
		*(dest[5].(*string)) = inc.Component
		*(dest[6].(*string)) = inc.DetectedBy
		*(dest[7].(*string)) = inc.FailureReason
		*(dest[8].(*string)) = inc.HealingAction
		*(dest[9].(*string)) = inc.AlarmName
		*(dest[10].(*string)) = inc.Region
		*(dest[11].(*string)) = inc.TaskRef
		*(dest[12].(*string)) = inc.TaskLastStatus
		*(dest[13].(*string)) = inc.TaskDesiredStatus
		*(dest[14].(*string)) = inc.SourceEventID
		*(dest[15].(**int64)) = inc.ExitCode
		*(dest[16].(**time.Time)) = inc.HealedTime
		*(dest[17].(**int64)) = inc.MTTRSeconds
		*(dest[18].(**int64)) = inc.Evidence.DesiredBefore
		*(dest[19].(**int64)) = inc.Evidence.DesiredAfter
		*(dest[20].(**int64)) = inc.Evidence.RunningBefore
		*(dest[21].(**int64)) = inc.Evidence.RunningAfter
		*(dest[22].(**int64)) = inc.Evidence.PendingBefore
		*(dest[23].(**int64)) = inc.Evidence.PendingAfter
		*(dest[24].(**int64)) = inc.Evidence.ScaleDelta
		return nil
	}
}
