// Package dashboard owns the loaded session and turns month selections
// into views.
package dashboard

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"finanzas/internal/cache"
	"finanzas/internal/chart"
	"finanzas/internal/core"
	"finanzas/internal/history"
	"finanzas/internal/ledger"
	"finanzas/internal/log"
	"finanzas/internal/source"
)

var (
	ErrNotLoaded    = errors.New("no data loaded")
	ErrUnknownMonth = errors.New("month has no records")
)

const recordTimeout = 5 * time.Second

// View is what the page renders for one month.
type View struct {
	Session  *Session
	Selected core.MonthKey
	Summary  core.MonthSummary
	// Chart is a snapshot; the controller keeps the live handle.
	Chart *chart.Chart
}

type Options struct {
	Parse     ledger.Options
	Recorder  history.Recorder
	Logger    *log.Logger
	CacheSize int
	CacheTTL  time.Duration
}

type Controller struct {
	src      source.Source
	parse    ledger.Options
	recorder history.Recorder
	logger   *log.Logger
	events   *log.StructuredLogger
	now      func() time.Time

	loads     singleflight.Group
	summaries *cache.LRUCache[core.MonthSummary]

	mu      sync.RWMutex
	session *Session
	lastErr error

	chartMu sync.Mutex
	chart   *chart.Chart
}

func New(src source.Source, opts Options) *Controller {
	if opts.Recorder == nil {
		opts.Recorder = history.Nop{}
	}
	if opts.Logger == nil {
		opts.Logger = log.New(log.DefaultConfig())
	}
	if opts.CacheSize <= 0 {
		opts.CacheSize = 64
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = 10 * time.Minute
	}
	logger := opts.Logger.WithComponent(log.ComponentDashboard)
	return &Controller{
		src:       src,
		parse:     opts.Parse,
		recorder:  opts.Recorder,
		logger:    logger,
		events:    log.NewStructuredLogger(logger),
		now:       time.Now,
		summaries: cache.NewLRUCache[core.MonthSummary](opts.CacheSize, opts.CacheTTL),
	}
}

// Load fetches and parses the source into a new session. Concurrent calls
// share one fetch. On failure the current session is dropped.
//
// The load runs detached from ctx: a caller that gives up stops waiting
// with ctx.Err() but the fetch finishes under the source's own timeout and
// the session is left alone.
func (c *Controller) Load(ctx context.Context) (*Session, error) {
	ch := c.loads.DoChan("load", func() (any, error) {
		return c.load(context.WithoutCancel(ctx))
	})
	select {
	case <-ctx.Done():
		c.logger.WarnContext(ctx, "Caller left before the load finished", log.FieldError, ctx.Err())
		return nil, ctx.Err()
	case res := <-ch:
		if res.Shared {
			c.logger.DebugContext(ctx, "Joined in-flight load")
		}
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*Session), nil
	}
}

func (c *Controller) load(ctx context.Context) (*Session, error) {
	ev := history.NewLoadEvent(c.src.Name(), c.now())

	text, err := c.src.Fetch(ctx)
	if err != nil {
		err = fmt.Errorf("fetch %s: %w", c.src.Name(), err)
		c.fail(ctx, &ev, err, log.OpFetch, log.ErrorTypeNetwork)
		return nil, err
	}

	res, err := c.parse.Parse(text)
	if err != nil {
		err = fmt.Errorf("parse %s: %w", c.src.Name(), err)
		c.fail(ctx, &ev, err, log.OpParse, log.ErrorTypeValidation)
		return nil, err
	}

	finished := c.now()
	s := NewSession(ev.ID, c.src.Name(), finished, res)
	c.install(s, nil)

	ev.Succeed(len(res.Records), res.Messages(), finished)
	c.events.LogLoad(ctx, ev.ID, ev.Source, ev.Records, ev.DiagnosticCount, len(s.months), ev.Duration.Milliseconds())
	c.record(ctx, ev)
	return s, nil
}

func (c *Controller) fail(ctx context.Context, ev *history.LoadEvent, err error, op, errType string) {
	c.install(nil, err)
	ev.Fail(err, c.now())
	c.events.LogError(ctx, "Load failed, session cleared", err, op, errType,
		log.NewFields().WithLoad(ev.ID, ev.Source, 0, 0, 0))
	c.record(ctx, *ev)
}

// install swaps the session and drops everything derived from the old one.
func (c *Controller) install(s *Session, err error) {
	c.mu.Lock()
	c.session = s
	c.lastErr = err
	c.mu.Unlock()

	c.summaries.Purge()

	c.chartMu.Lock()
	c.chart.Release()
	c.chart = nil
	c.chartMu.Unlock()
}

func (c *Controller) record(ctx context.Context, ev history.LoadEvent) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), recordTimeout)
	defer cancel()
	if err := c.recorder.RecordLoad(ctx, ev); err != nil {
		c.logger.WarnContext(ctx, "Failed to record load history",
			log.FieldLoadID, ev.ID, log.FieldError, err)
	}
}

// Session returns the current session or nil.
func (c *Controller) Session() *Session {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.session
}

// LastError is the reason the most recent load failed, if it did.
func (c *Controller) LastError() error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastErr
}

func (c *Controller) Ready() bool { return c.Session() != nil }

// Months lists the selectable months, or nil when nothing is loaded.
func (c *Controller) Months() []core.MonthKey {
	if s := c.Session(); s != nil {
		return s.Months()
	}
	return nil
}

// Diagnostics lists the rejected rows of the current session.
func (c *Controller) Diagnostics() []ledger.Diagnostic {
	if s := c.Session(); s != nil {
		return s.Diagnostics()
	}
	return nil
}

// Select summarizes month and redraws the chart. The previously drawn chart
// is released first.
func (c *Controller) Select(month core.MonthKey) (View, error) {
	s := c.Session()
	if s == nil {
		return View{}, ErrNotLoaded
	}
	if !s.HasMonth(month) {
		return View{}, fmt.Errorf("%s: %w", month.Label(), ErrUnknownMonth)
	}

	key := s.ID() + "/" + month.String()
	summary, ok := c.summaries.Get(key)
	if !ok {
		summary = s.summarize(month)
		c.summaries.Set(key, summary)
	}

	c.chartMu.Lock()
	c.chart.Release()
	c.chart = chart.Pie(summary.Categories)
	snapshot := *c.chart
	c.chartMu.Unlock()

	return View{Session: s, Selected: month, Summary: summary, Chart: &snapshot}, nil
}

// SelectDefault selects the first month of the session.
func (c *Controller) SelectDefault() (View, error) {
	s := c.Session()
	if s == nil {
		return View{}, ErrNotLoaded
	}
	m, ok := s.DefaultMonth()
	if !ok {
		return View{Session: s}, ErrUnknownMonth
	}
	return c.Select(m)
}

// SummaryCache exposes the summary cache for periodic sweeping.
func (c *Controller) SummaryCache() cache.Cleaner { return c.summaries }

func (c *Controller) currentChart() *chart.Chart {
	c.chartMu.Lock()
	defer c.chartMu.Unlock()
	return c.chart
}
