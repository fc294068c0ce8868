// Package app wires the signal engines, the guard and the persistence
// layer into one refreshable decision engine. All shared result maps are
// guarded by a single mutex; refresh cycles merge per-key so overlapping
// cycles resolve last-write-wins without partial states.
package app

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/edgewatch/edgewatch/internal/config"
	"github.com/edgewatch/edgewatch/internal/domain"
	"github.com/edgewatch/edgewatch/internal/guard"
	"github.com/edgewatch/edgewatch/internal/ledger"
	"github.com/edgewatch/edgewatch/internal/store"
	"github.com/edgewatch/edgewatch/internal/telemetry/metrics"
)

// SnapshotSource supplies the current ticker row for every watchlist asset.
type SnapshotSource interface {
	Snapshots(ctx context.Context, ids []string) ([]domain.AssetSnapshot, error)
}

// IntradaySource supplies ~24h of hourly price samples, oldest first.
type IntradaySource interface {
	RecentPrices(ctx context.Context, id string) ([]float64, error)
}

// CandleSource supplies 1h candles, oldest first.
type CandleSource interface {
	HourlyCandles(ctx context.Context, id string, bars int) ([]domain.Candle, error)
}

// Sources bundles the three upstream feeds.
type Sources struct {
	Snapshots SnapshotSource
	Intraday  IntradaySource
	Candles   CandleSource
}

// Engine is the decision engine. Create with New, drive with Refresh and
// the operator commands, read with State.
type Engine struct {
	cfg     *config.Config
	sources Sources
	store   store.Store
	metrics *metrics.Registry
	now     func() time.Time

	mu          sync.RWMutex
	snapshots   map[string]domain.AssetSnapshot
	scores      map[string]domain.ActivityScore
	ranked      []string
	micro       map[string]domain.MicroMetrics
	structures  map[string]domain.StructureResult
	contract    *guard.CommitmentContract
	day         *ledger.DayState
	override    bool
	degraded    bool
	lastError   string
	lastRefresh time.Time

	onUpdate func(State)
}

// New builds an engine. The metrics registry may be nil in tests.
func New(cfg *config.Config, sources Sources, st store.Store, reg *metrics.Registry) *Engine {
	return &Engine{
		cfg:        cfg,
		sources:    sources,
		store:      st,
		metrics:    reg,
		now:        time.Now,
		snapshots:  make(map[string]domain.AssetSnapshot),
		scores:     make(map[string]domain.ActivityScore),
		micro:      make(map[string]domain.MicroMetrics),
		structures: make(map[string]domain.StructureResult),
	}
}

// SetUpdateHook registers a callback invoked with a fresh state snapshot
// after every refresh and operator command. Used by the websocket hub.
func (e *Engine) SetUpdateHook(fn func(State)) {
	e.mu.Lock()
	e.onUpdate = fn
	e.mu.Unlock()
}

// Start loads today's persisted records. Stale records (previous day key)
// are discarded by the load helpers, which is the whole day-rollover story.
func (e *Engine) Start(ctx context.Context) error {
	today := ledger.DayKey(e.now())

	contract, err := store.ContractForDay(ctx, e.store, today)
	if err != nil {
		return err
	}
	day, err := store.DayStateFor(ctx, e.store, today)
	if err != nil {
		return err
	}

	e.mu.Lock()
	e.contract = contract
	e.day = day
	e.mu.Unlock()

	log.Info().
		Str("day", today).
		Bool("committed", contract != nil).
		Int("trades", len(day.Trades)).
		Msg("engine state loaded")
	return nil
}

// ensureTodayLocked rolls contract and day over when the calendar day has
// changed since they were loaded. Caller must hold e.mu.
func (e *Engine) ensureTodayLocked(ctx context.Context) error {
	today := ledger.DayKey(e.now())
	if e.day != nil && e.day.DayKey == today {
		return nil
	}

	contract, err := store.ContractForDay(ctx, e.store, today)
	if err != nil {
		return err
	}
	day, err := store.DayStateFor(ctx, e.store, today)
	if err != nil {
		return err
	}
	e.contract = contract
	e.day = day
	log.Info().Str("day", today).Msg("day rollover")
	return nil
}

func (e *Engine) notify() {
	e.mu.RLock()
	fn := e.onUpdate
	e.mu.RUnlock()
	if fn != nil {
		fn(e.State())
	}
}
