package scheduler

import (
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/duebook/duebook/internal/clock"
	obligationrepo "github.com/duebook/duebook/internal/obligation/repository"
	obsmetrics "github.com/duebook/duebook/internal/observability/metrics"
	tenantservice "github.com/duebook/duebook/internal/tenant/service"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"gorm.io/gorm"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	statements := []string{
		`CREATE TABLE IF NOT EXISTS clients (
			id BIGINT PRIMARY KEY,
			org_id BIGINT NOT NULL,
			name TEXT NOT NULL,
			email TEXT,
			tax_id TEXT,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			deleted_at TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS obligations (
			id BIGINT PRIMARY KEY,
			org_id BIGINT NOT NULL,
			client_id BIGINT,
			title TEXT NOT NULL,
			amount NUMERIC NOT NULL,
			due_date TIMESTAMP NOT NULL,
			settled_at TIMESTAMP,
			payment_method TEXT,
			notes TEXT,
			status TEXT NOT NULL DEFAULT 'PENDING',
			is_recurring BOOLEAN NOT NULL DEFAULT FALSE,
			frequency TEXT,
			recurring_day_of_month SMALLINT,
			recurring_end_date TIMESTAMP,
			parent_id BIGINT,
			requires_invoice BOOLEAN NOT NULL DEFAULT FALSE,
			invoice_attached_at TIMESTAMP,
			invoice_attached_by TEXT,
			canceled_at TIMESTAMP,
			metadata TEXT,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS ux_obligations_parent_due
			ON obligations (parent_id, due_date)
			WHERE parent_id IS NOT NULL`,
	}
	for _, stmt := range statements {
		require.NoError(t, db.Exec(stmt).Error)
	}
	return db
}

func newTestScheduler(t *testing.T, db *gorm.DB, now time.Time) (*Scheduler, *clock.FakeClock) {
	t.Helper()

	registry := prometheus.NewRegistry()
	restore := swapPrometheusRegistry(registry)
	t.Cleanup(restore)
	obsmetrics.ResetSchedulerMetricsForTest()

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	log := zaptest.NewLogger(t)
	fakeClock := clock.NewFakeClock(now)

	sched, err := New(Params{
		DB:        db,
		Log:       log,
		Repo:      obligationrepo.Provide(db),
		TenantSvc: tenantservice.NewService(tenantservice.ServiceParam{DB: db, Log: log}),
		GenID:     node,
		Clock:     fakeClock,
		Config:    Config{BatchSize: 10},
	})
	require.NoError(t, err)
	return sched, fakeClock
}

func swapPrometheusRegistry(registry *prometheus.Registry) func() {
	oldRegisterer := prometheus.DefaultRegisterer
	oldGatherer := prometheus.DefaultGatherer
	prometheus.DefaultRegisterer = registry
	prometheus.DefaultGatherer = registry
	return func() {
		prometheus.DefaultRegisterer = oldRegisterer
		prometheus.DefaultGatherer = oldGatherer
		obsmetrics.ResetSchedulerMetricsForTest()
	}
}
