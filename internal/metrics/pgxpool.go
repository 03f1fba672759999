package metrics

import (
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
)

// RegisterPgxPoolMetrics exposes incident-store connection pool statistics
// as Prometheus gauges.
func RegisterPgxPoolMetrics(pool *pgxpool.Pool) {
	prometheus.MustRegister(
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "healops_store_acquired_conns",
			Help: "Number of currently acquired incident-store connections",
		}, func() float64 {
			return float64(pool.Stat().AcquiredConns())
		}),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "healops_store_max_conns",
			Help: "Maximum number of incident-store connections",
		}, func() float64 {
			return float64(pool.Stat().MaxConns())
		}),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "healops_store_idle_conns",
			Help: "Number of idle incident-store connections",
		}, func() float64 {
			return float64(pool.Stat().IdleConns())
		}),
	)
}
