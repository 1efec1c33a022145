// Package fieldkv is the client kit for a record-oriented key-value store
// whose records hold named bins with nested list/map content. It wires the
// query stack together: a context-path DSL, a refreshable secondary-index
// catalog, a qualifier algebra, a query planner and a plan executor.
//
// Construction is explicit: every dependency is passed in, nothing is
// discovered.
package fieldkv

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/fieldkv/fieldkv-go/executor"
	"github.com/fieldkv/fieldkv-go/index"
	"github.com/fieldkv/fieldkv-go/internal/logger"
	"github.com/fieldkv/fieldkv-go/model"
	"github.com/fieldkv/fieldkv-go/planner"
	"github.com/fieldkv/fieldkv-go/qualifier"
)

// Client composes the query stack over a store's info and record interfaces.
type Client struct {
	catalog   *index.Catalog
	refresher *index.Refresher
	executor  *executor.Executor
	policy    planner.Policy
	log       zerolog.Logger
}

type clientConfig struct {
	policy          planner.Policy
	refreshInterval time.Duration
	log             zerolog.Logger
	registerer      prometheus.Registerer
}

// Option configures a Client.
type Option func(*clientConfig)

// WithPolicy sets the planning policy. The default disables scans, which
// makes un-indexed queries fail loudly instead of degrading.
func WithPolicy(policy planner.Policy) Option {
	return func(c *clientConfig) {
		c.policy = policy
	}
}

// WithRefreshInterval schedules periodic index catalog refreshes. A
// non-positive interval, the default, means manual refreshes only.
func WithRefreshInterval(interval time.Duration) Option {
	return func(c *clientConfig) {
		c.refreshInterval = interval
	}
}

// WithLogger sets the logger for all components.
func WithLogger(log zerolog.Logger) Option {
	return func(c *clientConfig) {
		c.log = log
	}
}

// WithLogWriter builds a logger writing to w at the given level.
func WithLogWriter(w io.Writer, level string) Option {
	return func(c *clientConfig) {
		c.log = logger.New(w, level, false)
	}
}

// WithMetrics registers client metrics on the given registerer.
func WithMetrics(reg prometheus.Registerer) Option {
	return func(c *clientConfig) {
		c.registerer = reg
	}
}

// New builds a Client: a fresh catalog, a refresher over the info client, and
// an executor over the record source. The catalog is primed with one
// synchronous refresh before New returns, so indexes declared before startup
// are immediately plannable.
func New(ctx context.Context, info index.InfoClient, source executor.RecordSource, opts ...Option) (*Client, error) {
	cfg := clientConfig{
		log: zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	catalog := index.NewCatalog()
	refresherOpts := []index.RefresherOption{index.WithLogger(cfg.log)}
	if cfg.registerer != nil {
		refresherOpts = append(refresherOpts, index.WithMetrics(cfg.registerer))
	}
	refresher := index.NewRefresher(catalog, info, refresherOpts...)

	if err := refresher.RefreshNow(ctx); err != nil {
		return nil, fmt.Errorf("priming index catalog: %w", err)
	}
	refresher.ScheduleEvery(cfg.refreshInterval)

	return &Client{
		catalog:   catalog,
		refresher: refresher,
		executor:  executor.New(source, catalog, cfg.policy, executor.WithLogger(cfg.log)),
		policy:    cfg.policy,
		log:       cfg.log,
	}, nil
}

// Catalog returns the live index catalog.
func (c *Client) Catalog() *index.Catalog {
	return c.catalog
}

// RefreshIndexes synchronously refreshes the index catalog. Useful right
// after declaring a new index, so it is plannable before the next scheduled
// refresh.
func (c *Client) RefreshIndexes(ctx context.Context) error {
	return c.refresher.RefreshNow(ctx)
}

// Plan decides the execution strategy for the tree without executing it.
func (c *Client) Plan(set string, tree qualifier.Qualifier) (planner.QueryPlan, error) {
	return planner.Plan(set, tree, c.catalog, c.policy)
}

// Run plans and executes a qualifier tree against the given set.
func (c *Client) Run(ctx context.Context, set string, tree qualifier.Qualifier) ([]*model.Record, error) {
	return c.executor.Run(ctx, set, tree)
}

// Query plans and executes a filter expression against the given set.
func (c *Client) Query(ctx context.Context, set, filter string) ([]*model.Record, error) {
	return c.executor.Query(ctx, set, filter)
}

// Close stops the background refresh schedule.
func (c *Client) Close() {
	c.refresher.Close()
}
