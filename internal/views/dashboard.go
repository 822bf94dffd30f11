package views

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"votify/internal/domain/stats"
	"votify/internal/events"
	"votify/internal/syncer"
)

type DashboardAPI interface {
	DashboardTotals(ctx context.Context) (stats.Totals, error)
	DashboardMonthly(ctx context.Context) ([]stats.MonthPoint, error)
	DashboardStatus(ctx context.Context) ([]stats.StatusCount, error)
	DashboardEngagement(ctx context.Context) ([]stats.Bucket, error)
}

// Dashboard loads the four admin panels concurrently. A panel whose request
// fails keeps its previous content; the load fails only when all four do.
type Dashboard struct {
	api   DashboardAPI
	cache *syncer.Cache[stats.Dashboard]
	b     *binding
	log   *slog.Logger
	once  sync.Once
}

func NewDashboard(api DashboardAPI, src Source, opts Options) *Dashboard {
	d := &Dashboard{api: api, b: newBinding(src)}
	d.log = opts.Logger
	if d.log == nil {
		d.log = slog.Default()
	}
	d.cache = syncer.NewCache(d.fetch, opts.cacheOptions("dashboard"))
	return d
}

func (d *Dashboard) fetch(ctx context.Context) (stats.Dashboard, error) {
	next := d.cache.Value()

	var (
		totals     stats.Totals
		monthly    []stats.MonthPoint
		status     []stats.StatusCount
		engagement []stats.Bucket
		errs       [4]error
	)

	var g errgroup.Group
	g.Go(func() error {
		totals, errs[0] = d.api.DashboardTotals(ctx)
		return errs[0]
	})
	g.Go(func() error {
		monthly, errs[1] = d.api.DashboardMonthly(ctx)
		return errs[1]
	})
	g.Go(func() error {
		status, errs[2] = d.api.DashboardStatus(ctx)
		return errs[2]
	})
	g.Go(func() error {
		engagement, errs[3] = d.api.DashboardEngagement(ctx)
		return errs[3]
	})
	if err := g.Wait(); err == nil {
		return stats.Dashboard{Totals: totals, Monthly: monthly, Status: status, Engagement: engagement}, nil
	}

	failed := 0
	panels := [4]string{"totals", "monthly", "status", "engagement"}
	for i, err := range errs {
		if err != nil {
			failed++
			d.log.Warn("dashboard panel failed", "panel", panels[i], "err", err)
		}
	}
	if failed == len(errs) {
		return next, fmt.Errorf("load dashboard: %w", errors.Join(errs[:]...))
	}

	if errs[0] == nil {
		next.Totals = totals
	}
	if errs[1] == nil {
		next.Monthly = monthly
	}
	if errs[2] == nil {
		next.Status = status
	}
	if errs[3] == nil {
		next.Engagement = engagement
	}
	return next, nil
}

func (d *Dashboard) Open(ctx context.Context) error {
	d.once.Do(func() {
		d.b.on(events.DashboardChanged, func(events.Event) {
			d.b.background(func(ctx context.Context) {
				_, _ = d.cache.Load(ctx, false, true)
			})
		})
	})
	_, err := d.cache.Load(ctx, true, false)
	return err
}

func (d *Dashboard) Refresh(ctx context.Context) error {
	_, err := d.cache.Load(ctx, true, false)
	return err
}

func (d *Dashboard) Close() {
	d.b.close()
	d.cache.Close()
}

func (d *Dashboard) Data() stats.Dashboard { return d.cache.Value() }

func (d *Dashboard) Loading() bool { return d.cache.Loading() }
