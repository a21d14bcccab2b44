package dashboard

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

type Service struct {
	source Source
	cache  *Cache
	group  singleflight.Group
	now    func() time.Time
}

func NewService(source Source, cache *Cache) *Service {
	return &Service{source: source, cache: cache, now: time.Now}
}

// Summary returns the cached counters. Concurrent misses share one build.
func (s *Service) Summary(ctx context.Context) (Summary, error) {
	ch := s.group.DoChan("summary", func() (any, error) {
		return s.cache.Fetch(context.WithoutCancel(ctx), s.build)
	})
	select {
	case <-ctx.Done():
		return Summary{}, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return Summary{}, res.Err
		}
		return res.Val.(Summary), nil
	}
}

// Invalidate drops the cached summary after bulk changes.
func (s *Service) Invalidate(ctx context.Context) error {
	return s.cache.Bump(ctx)
}

func (s *Service) build(ctx context.Context) (Summary, error) {
	out := Summary{GeneratedAt: s.now().UTC()}
	g, ctx := errgroup.WithContext(ctx)
	counters := map[Metric]*int64{
		MetricCustomers:       &out.Customers,
		MetricActiveCycles:    &out.ActiveCycles,
		MetricUnpaidBills:     &out.UnpaidBills,
		MetricOverdueBills:    &out.OverdueBills,
		MetricPendingPayments: &out.PendingPayments,
		MetricOpenTickets:     &out.OpenTickets,
	}
	for metric, dest := range counters {
		g.Go(func() error {
			n, err := s.source.Count(ctx, metric)
			if err != nil {
				return err
			}
			*dest = n
			return nil
		})
	}
	g.Go(func() error {
		total, err := s.source.Outstanding(ctx)
		if err != nil {
			return err
		}
		out.Outstanding = total
		return nil
	})
	if err := g.Wait(); err != nil {
		return Summary{}, err
	}
	return out, nil
}
