package index

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
)

// InfoClient fetches the raw administrative index listing from the store.
type InfoClient interface {
	IndexListing(ctx context.Context) (string, error)
}

// RefreshError reports a failed refresh cycle. It is recoverable: the
// previous catalog snapshot stays in service and the periodic schedule, if
// any, continues unaffected.
type RefreshError struct {
	cause error
}

// Error implements the error interface.
func (e *RefreshError) Error() string {
	return fmt.Sprintf("index catalog refresh failed: %v", e.cause)
}

// Unwrap returns the underlying cause.
func (e *RefreshError) Unwrap() error { return e.cause }

// Refresher keeps a Catalog in sync with the store's secondary indexes. At
// most one refresh cycle runs at a time; concurrent RefreshNow callers attach
// to the in-flight cycle instead of racing each other to replace the catalog.
type Refresher struct {
	catalog *Catalog
	info    InfoClient
	log     zerolog.Logger
	metrics *refreshMetrics

	group     singleflight.Group
	done      chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

// NewRefresher creates a new Refresher feeding the given catalog.
func NewRefresher(catalog *Catalog, info InfoClient, opts ...RefresherOption) *Refresher {
	r := &Refresher{
		catalog: catalog,
		info:    info,
		log:     zerolog.Nop(),
		done:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// RefresherOption configures a Refresher.
type RefresherOption func(*Refresher)

// WithLogger sets the logger.
func WithLogger(log zerolog.Logger) RefresherOption {
	return func(r *Refresher) {
		r.log = log
	}
}

// WithMetrics registers refresh metrics on the given registerer.
func WithMetrics(reg prometheus.Registerer) RefresherOption {
	return func(r *Refresher) {
		r.metrics = newRefreshMetrics(reg)
	}
}

// RefreshNow runs one synchronous refresh cycle and returns once the catalog
// reflects the fetched listing. A call made while another refresh is in
// flight joins that cycle and returns its result.
func (r *Refresher) RefreshNow(ctx context.Context) error {
	_, err, _ := r.group.Do("refresh", func() (any, error) {
		return nil, r.refresh(ctx)
	})
	return err
}

func (r *Refresher) refresh(ctx context.Context) error {
	start := time.Now()

	raw, err := r.info.IndexListing(ctx)
	if err != nil {
		return r.fail(&RefreshError{cause: err})
	}
	defs, err := ParseListing(raw)
	if err != nil {
		return r.fail(&RefreshError{cause: err})
	}

	r.catalog.Replace(defs)
	if r.metrics != nil {
		r.metrics.refreshes.Inc()
		r.metrics.duration.Observe(time.Since(start).Seconds())
		r.metrics.indexes.Set(float64(len(defs)))
	}
	r.log.Debug().Int("indexes", len(defs)).Dur("took", time.Since(start)).
		Msg("index catalog refreshed")
	return nil
}

func (r *Refresher) fail(err *RefreshError) error {
	if r.metrics != nil {
		r.metrics.failures.Inc()
	}
	r.log.Error().Err(err).Msg("keeping previous index catalog snapshot")
	return err
}

// ScheduleEvery starts a background task refreshing the catalog at the given
// interval. A non-positive interval means manual-only refreshing and starts
// nothing. Cycle failures are logged and the schedule keeps running.
func (r *Refresher) ScheduleEvery(interval time.Duration) {
	if interval <= 0 {
		return
	}

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-r.done:
				return
			case <-ticker.C:
				// Errors already logged; nothing to do but wait for the next tick.
				_ = r.RefreshNow(context.Background())
			}
		}
	}()
}

// Close stops any periodic schedule and waits for it to wind down.
func (r *Refresher) Close() {
	r.closeOnce.Do(func() {
		close(r.done)
	})
	r.wg.Wait()
}
