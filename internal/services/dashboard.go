package services

import (
	"context"
	"fmt"

	"financehub/internal/aggregate"
	"financehub/internal/cache"
	"financehub/internal/core"
	"financehub/internal/ledger"
	"financehub/internal/log"

	"golang.org/x/sync/errgroup"
)

// UpcomingWindowDays is how far ahead the dashboard lists scheduled bills.
const UpcomingWindowDays = 30

// Dashboard is the read model behind the home screen. It is computed from
// one snapshot, so every figure refers to the same store version.
type Dashboard struct {
	Version   uint64                     `json:"version"`
	Today     core.Date                  `json:"today"`
	Summary   aggregate.Summary          `json:"summary"`
	Accounts  []aggregate.AccountBalance `json:"accounts"`
	Chart     []core.MonthOverview       `json:"chart"`
	Breakdown []core.CategoryAmount      `json:"breakdown"`
	Health    aggregate.Health           `json:"health"`
	Progress  aggregate.Progress         `json:"progress"`
	Budgets   []aggregate.BudgetStatus   `json:"budgets"`
	Upcoming  []aggregate.UpcomingBill   `json:"upcoming"`
}

// SnapshotSource is the read side of the ledger. *ledger.Coordinator
// satisfies it.
type SnapshotSource interface {
	Snapshot() ledger.Snapshot
	Today() core.Date
}

// DashboardService computes dashboards and caches them per store version,
// day and chart width.
type DashboardService struct {
	source SnapshotSource
	cache  cache.Cache[*Dashboard]
	levels aggregate.LevelTracker
	logger *log.Logger
}

func NewDashboardService(source SnapshotSource, c cache.Cache[*Dashboard], logger *log.Logger) *DashboardService {
	if logger == nil {
		logger = log.Discard()
	}
	return &DashboardService{
		source: source,
		cache:  c,
		logger: logger.WithComponent(log.ComponentDashboard),
	}
}

func dashboardKey(version uint64, today core.Date, months int) string {
	return fmt.Sprintf("%d|%s|%d", version, today, months)
}

// Get returns the dashboard for the current snapshot. months <= 0 uses the
// default chart width.
func (d *DashboardService) Get(ctx context.Context, months int) (*Dashboard, error) {
	if months <= 0 {
		months = aggregate.DefaultChartMonths
	}
	snap := d.source.Snapshot()
	today := d.source.Today()
	key := dashboardKey(snap.Version, today, months)

	if cached, ok := d.cache.Get(key); ok {
		return cached, nil
	}

	dash, err := d.compute(ctx, &snap, today, months)
	if err != nil {
		return nil, err
	}
	d.cache.Set(key, dash)
	d.logger.DebugContext(ctx, "Dashboard computed", log.FieldVersion, snap.Version, "months", months)
	return dash, nil
}

func (d *DashboardService) compute(ctx context.Context, s *ledger.Snapshot, today core.Date, months int) (*Dashboard, error) {
	dash := &Dashboard{Version: s.Version, Today: today}

	// Every task reads the shared snapshot and writes its own field.
	g, ctx := errgroup.WithContext(ctx)
	run := func(fn func()) {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			fn()
			return nil
		})
	}
	run(func() { dash.Summary = aggregate.ComputeSummary(s, today) })
	run(func() { dash.Accounts = aggregate.AccountBalances(s) })
	run(func() { dash.Chart = aggregate.MonthlyChartData(s, today, months) })
	run(func() { dash.Breakdown = aggregate.CategoryBreakdown(s, today) })
	run(func() { dash.Health = aggregate.HealthScore(s, today) })
	run(func() { dash.Budgets = aggregate.BudgetUsage(s, today) })
	run(func() { dash.Upcoming = aggregate.Upcoming(s, today, UpcomingWindowDays) })
	run(func() { dash.Progress = aggregate.Gamification(s.TransactionList(), s.GoalList()) })

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("compute dashboard: %w", err)
	}
	dash.Progress = d.levels.Observe(dash.Progress)
	return dash, nil
}

// Invalidate drops every cached dashboard.
func (d *DashboardService) Invalidate() {
	d.cache.Purge()
}

// Level is the highest level reported so far.
func (d *DashboardService) Level() int {
	return d.levels.Level()
}
