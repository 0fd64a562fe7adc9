// Package datascreen holds the state behind one category's indicator data
// management screen: the records fetched for the category, split into the
// annual and inflation tables, the filter option lists built from them,
// and the actions that change records and then fetch again.
//
// A Screen is shared by concurrent requests from the same browser
// session. Store calls run without holding the screen lock; only the
// state they produce is applied under it.
package datascreen

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dalemusser/stratadata/internal/app/datasource"
	"github.com/dalemusser/stratadata/internal/app/system/events"
	"github.com/dalemusser/stratadata/internal/app/system/metrics"
	"github.com/dalemusser/stratadata/internal/app/tableview"
	"github.com/dalemusser/stratadata/internal/domain/models"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Defaults applied by New to zero Config fields.
const (
	DefaultFullFetchLimit  = 10000
	DefaultBulkConcurrency = 4
)

// ErrUnknownTable is returned for a table kind the screen does not have.
var ErrUnknownTable = errors.New("unknown table")

// Config wires a Screen to its collaborators.
type Config struct {
	Category    models.Category
	Backend     datasource.Backend
	Credentials datasource.Credentials
	Events      events.Publisher
	Metrics     *metrics.Metrics
	Logger      *zap.Logger

	DefaultLimit    int
	FullFetchLimit  int
	BulkConcurrency int

	Now func() time.Time
}

func (c Config) withDefaults() Config {
	if c.DefaultLimit <= 0 {
		c.DefaultLimit = tableview.DefaultLimit
	}
	if c.FullFetchLimit <= 0 {
		c.FullFetchLimit = DefaultFullFetchLimit
	}
	if c.BulkConcurrency <= 0 {
		c.BulkConcurrency = DefaultBulkConcurrency
	}
	if c.Events == nil {
		c.Events = events.Nop{}
	}
	if c.Logger == nil {
		c.Logger = zap.NewNop()
	}
	if c.Now == nil {
		c.Now = time.Now
	}
	return c
}

// Screen is the management screen state for one category.
type Screen struct {
	cfg Config
	log *zap.Logger

	mu         sync.Mutex
	annual     *tableview.Table
	inflation  *tableview.Table
	indicators []models.Indicator
	options    FilterOptions
	stats      datasource.Statistics
	years      []int
	loaded     bool
	stale      bool
	loadedAt   time.Time

	// requested is bumped for every fetch; a response is applied only if
	// no newer fetch was requested while it was in flight.
	requested uint64

	// settled is closed and replaced each time the newest fetch finishes.
	// settledToken and settledErr describe that fetch.
	settled      chan struct{}
	settledToken uint64
	settledErr   error
}

// New creates a screen with empty tables. Nothing is fetched until the
// first Snapshot or Refresh.
func New(cfg Config) *Screen {
	cfg = cfg.withDefaults()
	return &Screen{
		cfg:       cfg,
		log:       cfg.Logger.With(zap.String("category", string(cfg.Category))),
		annual:    tableview.NewTable(tableview.KindAnnual, cfg.DefaultLimit),
		inflation: tableview.NewTable(tableview.KindInflation, cfg.DefaultLimit),
		settled:   make(chan struct{}),
	}
}

// Category returns the category the screen manages.
func (s *Screen) Category() models.Category { return s.cfg.Category }

// Snapshot is everything the client needs to render the screen.
type Snapshot struct {
	Category       models.Category       `json:"category"`
	Annual         tableview.View        `json:"annual"`
	Inflation      tableview.View        `json:"inflation"`
	Options        FilterOptions         `json:"options"`
	Statistics     datasource.Statistics `json:"statistics"`
	AvailableYears []int                 `json:"available_years"`
	Indicators     []models.Indicator    `json:"indicators"`
	LoadedAt       time.Time             `json:"loaded_at"`
	Stale          bool                  `json:"stale"`
}

// Refresh fetches every record of the category and the category's
// indicators, then rebuilds both tables. When several refreshes overlap,
// only the most recently requested one is applied; the others return nil
// without touching state. A failed fetch leaves state unchanged.
func (s *Screen) Refresh(ctx context.Context) error {
	s.mu.Lock()
	s.requested++
	token := s.requested
	s.mu.Unlock()

	started := time.Now()
	res, inds, err := s.load(ctx)
	s.cfg.Metrics.Fetch(string(s.cfg.Category), started, err)

	s.mu.Lock()
	defer s.mu.Unlock()

	if token != s.requested {
		s.cfg.Metrics.StaleFetch(string(s.cfg.Category))
		s.log.Debug("discarding superseded fetch", zap.Uint64("token", token), zap.Uint64("latest", s.requested))
		return nil
	}
	if err != nil {
		if s.loaded {
			s.stale = true
		}
		err = fmt.Errorf("refresh %s: %w", s.cfg.Category, err)
		s.settle(token, err)
		return err
	}
	s.apply(res, inds)
	s.settle(token, nil)
	return nil
}

// settle records the outcome of the newest fetch and wakes awaitLoad
// callers. Caller holds s.mu.
func (s *Screen) settle(token uint64, err error) {
	s.settledToken = token
	s.settledErr = err
	close(s.settled)
	s.settled = make(chan struct{})
}

// awaitLoad blocks until the screen holds data or the newest fetch has
// failed. It is used when a caller's own first fetch was superseded, so
// the data it needs is still in flight.
func (s *Screen) awaitLoad(ctx context.Context) error {
	for {
		s.mu.Lock()
		if s.loaded {
			s.mu.Unlock()
			return nil
		}
		if s.settledToken == s.requested && s.settledErr != nil {
			err := s.settledErr
			s.mu.Unlock()
			return err
		}
		ch := s.settled
		s.mu.Unlock()

		select {
		case <-ch:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// load runs the record fetch and the indicator listing concurrently.
func (s *Screen) load(ctx context.Context) (datasource.Result, []models.Indicator, error) {
	var (
		res  datasource.Result
		inds []models.Indicator
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		res, err = s.cfg.Backend.Fetch(gctx, datasource.Query{
			Category: s.cfg.Category,
			Page:     1,
			Limit:    s.cfg.FullFetchLimit,
		})
		return err
	})
	g.Go(func() error {
		var err error
		inds, err = s.cfg.Backend.ListIndicators(gctx, s.cfg.Category)
		return err
	})
	if err := g.Wait(); err != nil {
		return datasource.Result{}, nil, err
	}
	if res.Pagination.TotalItems > len(res.Data) {
		s.log.Warn("full-category fetch truncated",
			zap.Int("fetched", len(res.Data)),
			zap.Int("total", res.Pagination.TotalItems),
			zap.Int("limit", s.cfg.FullFetchLimit))
	}
	return res, inds, nil
}

// apply installs a fetch result. Caller holds s.mu.
func (s *Screen) apply(res datasource.Result, inds []models.Indicator) {
	var annual, inflation []models.IndicatorDataRecord
	for _, r := range res.Data {
		if r.IsInflation() {
			inflation = append(inflation, r)
		} else {
			annual = append(annual, r)
		}
	}

	pruned := s.annual.SetRecords(annual) + s.inflation.SetRecords(inflation)
	if pruned > 0 {
		s.log.Debug("pruned selection of vanished records", zap.Int("pruned", pruned))
	}

	s.indicators = inds
	s.options = buildOptions(annual, inflation)
	s.stats = res.Statistics
	s.years = res.AvailableYears
	s.loaded = true
	s.stale = false
	s.loadedAt = s.cfg.Now()
}

// ensureLoaded fetches when nothing has been loaded yet or the last
// refresh after a change failed. A failed refresh of an already loaded
// screen is logged and the old state served, marked stale. On a screen
// that was never loaded it returns only once data is in place or the
// newest fetch has failed.
func (s *Screen) ensureLoaded(ctx context.Context) error {
	s.mu.Lock()
	need := !s.loaded || s.stale
	loaded := s.loaded
	s.mu.Unlock()
	if !need {
		return nil
	}
	if err := s.Refresh(ctx); err != nil {
		if !loaded {
			return err
		}
		s.log.Warn("refresh failed; serving stale data", zap.Error(err))
		return nil
	}
	if !loaded {
		return s.awaitLoad(ctx)
	}
	return nil
}

// Snapshot returns the current screen, fetching first if needed.
func (s *Screen) Snapshot(ctx context.Context) (Snapshot, error) {
	if err := s.ensureLoaded(ctx); err != nil {
		return Snapshot{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked(), nil
}

// Load makes sure the screen has data before a table transition. It
// fetches only when nothing is loaded or the data is stale.
func (s *Screen) Load(ctx context.Context) error {
	return s.ensureLoaded(ctx)
}

func (s *Screen) snapshotLocked() Snapshot {
	return Snapshot{
		Category:       s.cfg.Category,
		Annual:         s.annual.View(),
		Inflation:      s.inflation.View(),
		Options:        s.options.clone(),
		Statistics:     s.stats,
		AvailableYears: append([]int(nil), s.years...),
		Indicators:     append([]models.Indicator(nil), s.indicators...),
		LoadedAt:       s.loadedAt,
		Stale:          s.stale,
	}
}

// Records passes a query straight to the record source, scoped to the
// screen's category. It does not change screen state.
func (s *Screen) Records(ctx context.Context, q datasource.Query) (datasource.Result, error) {
	q.Category = s.cfg.Category
	started := time.Now()
	res, err := s.cfg.Backend.Fetch(ctx, q)
	s.cfg.Metrics.Fetch(string(s.cfg.Category), started, err)
	return res, err
}

// Indicators returns the category's indicators, fetching if needed.
func (s *Screen) Indicators(ctx context.Context) ([]models.Indicator, error) {
	if err := s.ensureLoaded(ctx); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.Indicator(nil), s.indicators...), nil
}

/*─────────────────────────────────────────────────────────────────────────────*
| Table state                                                                  |
*─────────────────────────────────────────────────────────────────────────────*/

func (s *Screen) table(kind tableview.Kind) (*tableview.Table, error) {
	switch kind {
	case tableview.KindAnnual:
		return s.annual, nil
	case tableview.KindInflation:
		return s.inflation, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownTable, kind)
}

// WithTable runs fn against one table under the screen lock and returns
// the re-derived view. fn must not call back into the screen. If fn fails
// the table is expected to be unchanged; the controller and selection
// guarantee that for their own errors.
func (s *Screen) WithTable(kind tableview.Kind, fn func(t *tableview.Table) error) (tableview.View, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, err := s.table(kind)
	if err != nil {
		return tableview.View{}, err
	}
	if err := fn(t); err != nil {
		return tableview.View{}, err
	}
	return t.View(), nil
}

// Toggle flips selection of a record in one table. Only records in that
// table can be selected.
func (s *Screen) Toggle(kind tableview.Kind, id string) (tableview.View, error) {
	return s.WithTable(kind, func(t *tableview.Table) error {
		if !t.Contains(id) {
			return fmt.Errorf("toggle %s: %w", id, datasource.ErrNotFound)
		}
		t.Selection().Toggle(id)
		return nil
	})
}

// locate reports which table holds id. Caller holds s.mu.
func (s *Screen) locate(id string) (*tableview.Table, bool) {
	if s.annual.Contains(id) {
		return s.annual, true
	}
	if s.inflation.Contains(id) {
		return s.inflation, true
	}
	return nil, false
}
