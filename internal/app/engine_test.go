package app

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edgewatch/edgewatch/internal/config"
	"github.com/edgewatch/edgewatch/internal/domain"
	"github.com/edgewatch/edgewatch/internal/guard"
	"github.com/edgewatch/edgewatch/internal/ledger"
	"github.com/edgewatch/edgewatch/internal/session"
	"github.com/edgewatch/edgewatch/internal/store"
)

type fakeSources struct {
	mu        sync.Mutex
	snaps     []domain.AssetSnapshot
	snapErr   error
	prices    map[string][]float64
	priceErr  map[string]error
	candles   map[string][]domain.Candle
	candleErr map[string]error
}

func (f *fakeSources) Snapshots(_ context.Context, _ []string) ([]domain.AssetSnapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.snapErr != nil {
		return nil, f.snapErr
	}
	return append([]domain.AssetSnapshot(nil), f.snaps...), nil
}

func (f *fakeSources) RecentPrices(_ context.Context, id string) ([]float64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.priceErr[id]; err != nil {
		return nil, err
	}
	return f.prices[id], nil
}

func (f *fakeSources) HourlyCandles(_ context.Context, id string, _ int) ([]domain.Candle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.candleErr[id]; err != nil {
		return nil, err
	}
	return f.candles[id], nil
}

// steadyCandles yields a clean structure: support pivots at 100, a
// resistance pivot at 106.
func steadyCandles() []domain.Candle {
	return []domain.Candle{
		{High: 103, Low: 101},
		{High: 103, Low: 101},
		{High: 102, Low: 100},
		{High: 106, Low: 102},
		{High: 103, Low: 101},
		{High: 102, Low: 100.2},
		{High: 102.5, Low: 100},
		{High: 106, Low: 101},
		{High: 103, Low: 101.5},
		{High: 103, Low: 101.5},
		{High: 103, Low: 101.5},
	}
}

func quietPrices() []float64 {
	return []float64{100, 100.2, 100.1, 100.4, 100.3, 100.5, 100.4, 100.5}
}

type testRig struct {
	engine  *Engine
	sources *fakeSources
	clock   *fakeClock
}

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) set(t time.Time) {
	c.mu.Lock()
	c.t = t
	c.mu.Unlock()
}

func newTestRig(t *testing.T) *testRig {
	t.Helper()

	cfg := config.Default()
	cfg.Watchlist = []string{"bitcoin", "ethereum", "solana"}
	cfg.TopN = 2

	sources := &fakeSources{
		snaps: []domain.AssetSnapshot{
			{Symbol: "bitcoin", Price: 100.5, Change24hPct: 5, Volume24h: 3e9},
			{Symbol: "ethereum", Price: 100.8, Change24hPct: 2, Volume24h: 2e9},
			{Symbol: "solana", Price: 150, Change24hPct: -1, Volume24h: 1e9},
		},
		prices: map[string][]float64{
			"bitcoin":  quietPrices(),
			"ethereum": quietPrices(),
		},
		priceErr: map[string]error{},
		candles: map[string][]domain.Candle{
			"bitcoin":  steadyCandles(),
			"ethereum": steadyCandles(),
		},
		candleErr: map[string]error{},
	}

	// 17:00 local on a weekday: EUROPE session, quality TRADE.
	clock := &fakeClock{t: time.Date(2026, 8, 21, 17, 0, 0, 0, time.Local)}

	eng := New(cfg, Sources{Snapshots: sources, Intraday: sources, Candles: sources}, store.NewMemory(), nil)
	eng.now = clock.now
	require.NoError(t, eng.Start(context.Background()))

	return &testRig{engine: eng, sources: sources, clock: clock}
}

func commitTestContract(t *testing.T, rig *testRig) {
	t.Helper()
	_, err := rig.engine.CommitToday(context.Background(), guard.ContractDraft{
		MaxTrades:            2,
		MaxDailyLossR:        2,
		MaxConsecutiveLosses: 2,
		RiskPct:              1,
		AllowedSessions:      map[string]bool{session.KeyEurope: true, session.KeyOverlap: true},
	})
	require.NoError(t, err)
}

func TestRefresh_PopulatesRankedResults(t *testing.T) {
	rig := newTestRig(t)
	require.NoError(t, rig.engine.Refresh(context.Background()))

	st := rig.engine.State()
	require.Len(t, st.Assets, 2, "top-N candidates only")
	assert.Equal(t, "bitcoin", st.Assets[0].Snapshot.Symbol, "highest combined score first")

	btc := st.Assets[0]
	require.NotNil(t, btc.Micro)
	require.NotNil(t, btc.Structure)
	assert.Equal(t, domain.EntryValid, btc.Micro.Quality)
	assert.Equal(t, domain.StructureOK, btc.Structure.Label)
	assert.False(t, st.Degraded)
}

func TestRefresh_Idempotent(t *testing.T) {
	rig := newTestRig(t)
	require.NoError(t, rig.engine.Refresh(context.Background()))
	first := rig.engine.State()

	require.NoError(t, rig.engine.Refresh(context.Background()))
	second := rig.engine.State()

	assert.Equal(t, first.Assets, second.Assets, "identical upstream data must yield identical results")
}

func TestRefresh_IntradayFailureKeepsPreviousClassification(t *testing.T) {
	rig := newTestRig(t)
	require.NoError(t, rig.engine.Refresh(context.Background()))

	rig.sources.mu.Lock()
	rig.sources.priceErr["bitcoin"] = errors.New("upstream 502")
	rig.sources.mu.Unlock()

	require.NoError(t, rig.engine.Refresh(context.Background()))

	st := rig.engine.State()
	require.NotNil(t, st.Assets[0].Micro, "previous classification preserved")
	assert.Equal(t, domain.EntryValid, st.Assets[0].Micro.Quality)
}

func TestRefresh_CandleFailureYieldsUnavailableStructure(t *testing.T) {
	rig := newTestRig(t)
	rig.sources.mu.Lock()
	rig.sources.candleErr["bitcoin"] = errors.New("upstream timeout")
	rig.sources.mu.Unlock()

	require.NoError(t, rig.engine.Refresh(context.Background()))

	st := rig.engine.State()
	btc := st.Assets[0]
	require.NotNil(t, btc.Structure)
	assert.Equal(t, domain.StructureWait, btc.Structure.Label)
	assert.Equal(t, domain.StructureSourceUnavailable, btc.Structure.Source)
	assert.Nil(t, btc.Structure.Support)

	// The sibling asset is unaffected.
	eth := st.Assets[1]
	require.NotNil(t, eth.Structure)
	assert.Equal(t, domain.StructureOK, eth.Structure.Label)
}

func TestRefresh_SnapshotFailureRetainsPreviousState(t *testing.T) {
	rig := newTestRig(t)
	require.NoError(t, rig.engine.Refresh(context.Background()))

	rig.sources.mu.Lock()
	rig.sources.snapErr = errors.New("provider down")
	rig.sources.mu.Unlock()

	err := rig.engine.Refresh(context.Background())
	require.Error(t, err)

	st := rig.engine.State()
	assert.True(t, st.Degraded)
	assert.NotEmpty(t, st.LastError)
	require.Len(t, st.Assets, 2, "previous snapshot retained")
}

func TestTradeFlow_LockIsStickyUntilReset(t *testing.T) {
	rig := newTestRig(t)
	ctx := context.Background()

	// Uncommitted day rejects trades outright.
	_, err := rig.engine.LogTrade(ctx, TradeInput{Symbol: "bitcoin", Side: domain.SideLong, Entry: 100, Stop: 95, Exit: 110})
	assert.ErrorIs(t, err, guard.ErrNotCommitted)

	commitTestContract(t, rig)

	_, err = rig.engine.LogTrade(ctx, TradeInput{Symbol: "bitcoin", Side: domain.SideLong, Entry: 100, Stop: 95, Exit: 110, RulesFollowed: true})
	require.NoError(t, err)

	// Second trade hits the 2-trade cap and locks the day.
	_, err = rig.engine.LogTrade(ctx, TradeInput{Symbol: "ethereum", Side: domain.SideShort, Entry: 100, Stop: 105, Exit: 95, RulesFollowed: true})
	require.NoError(t, err)

	st := rig.engine.State()
	assert.Equal(t, guard.StateLocked, st.Guard.State)
	assert.True(t, st.Day.Locked)

	// Further appends are rejected, override or not.
	_, err = rig.engine.LogTrade(ctx, TradeInput{Symbol: "solana", Side: domain.SideLong, Entry: 100, Stop: 95, Exit: 110})
	assert.ErrorIs(t, err, guard.ErrDayLocked)
	rig.engine.SetOverride(true)
	_, err = rig.engine.LogTrade(ctx, TradeInput{Symbol: "solana", Side: domain.SideLong, Entry: 100, Stop: 95, Exit: 110})
	assert.ErrorIs(t, err, guard.ErrDayLocked)
	rig.engine.SetOverride(false)

	// Reset clears the journal and returns to ACTIVE.
	require.NoError(t, rig.engine.ResetDay(ctx))
	st = rig.engine.State()
	assert.Equal(t, guard.StateActive, st.Guard.State)
	assert.Empty(t, st.Day.Trades)
}

func TestLogTrade_RejectsInvalidR(t *testing.T) {
	rig := newTestRig(t)
	commitTestContract(t, rig)

	_, err := rig.engine.LogTrade(context.Background(), TradeInput{
		Symbol: "bitcoin", Side: domain.SideLong, Entry: 100, Stop: 100, Exit: 110,
	})
	require.Error(t, err)

	st := rig.engine.State()
	assert.Empty(t, st.Day.Trades, "invalid trade never reaches the ledger")
}

func TestEndSession_LocksManually(t *testing.T) {
	rig := newTestRig(t)
	commitTestContract(t, rig)

	require.NoError(t, rig.engine.EndSession(context.Background()))

	st := rig.engine.State()
	assert.Equal(t, guard.StateLocked, st.Guard.State)
	assert.Equal(t, "session ended manually", st.Day.LockedReason)
}

func TestDayRollover_DiscardsContractAndJournal(t *testing.T) {
	rig := newTestRig(t)
	ctx := context.Background()
	commitTestContract(t, rig)

	_, err := rig.engine.LogTrade(ctx, TradeInput{Symbol: "bitcoin", Side: domain.SideLong, Entry: 100, Stop: 95, Exit: 90})
	require.NoError(t, err)

	// Next calendar day: the persisted records carry yesterday's key and
	// must be treated as absent.
	rig.clock.set(rig.clock.now().Add(24 * time.Hour))

	_, err = rig.engine.LogTrade(ctx, TradeInput{Symbol: "bitcoin", Side: domain.SideLong, Entry: 100, Stop: 95, Exit: 110})
	assert.ErrorIs(t, err, guard.ErrNotCommitted)

	st := rig.engine.State()
	assert.Equal(t, guard.StateUncommitted, st.Guard.State)
	assert.Empty(t, st.Day.Trades)
}

func TestState_RolloverWithoutCommands(t *testing.T) {
	rig := newTestRig(t)
	ctx := context.Background()
	require.NoError(t, rig.engine.Refresh(ctx))
	commitTestContract(t, rig)

	_, err := rig.engine.LogTrade(ctx, TradeInput{Symbol: "bitcoin", Side: domain.SideLong, Entry: 100, Stop: 95, Exit: 110})
	require.NoError(t, err)

	// Pure reads across midnight must gate against the new day even though
	// no command has rolled the records over yet.
	rig.clock.set(rig.clock.now().Add(24 * time.Hour))

	st := rig.engine.State()
	assert.Equal(t, guard.StateUncommitted, st.Guard.State)
	assert.False(t, st.Guard.TradingAllowed)
	assert.Nil(t, st.Contract)
	assert.Equal(t, ledger.DayKey(rig.clock.now()), st.Day.DayKey)
	assert.Empty(t, st.Day.Trades)
	for _, a := range st.Assets {
		assert.False(t, a.Action.Allowed)
	}
}

func TestResetDay_AfterRolloverDropsStaleContract(t *testing.T) {
	rig := newTestRig(t)
	ctx := context.Background()
	commitTestContract(t, rig)

	rig.clock.set(rig.clock.now().Add(24 * time.Hour))
	require.NoError(t, rig.engine.ResetDay(ctx))

	st := rig.engine.State()
	assert.Equal(t, guard.StateUncommitted, st.Guard.State)
	assert.Nil(t, st.Contract)
	assert.Equal(t, ledger.DayKey(rig.clock.now()), st.Day.DayKey)
}

func TestUpdateHook_FiresInCommandOrder(t *testing.T) {
	rig := newTestRig(t)

	var mu sync.Mutex
	var states []guard.State
	var overrides []bool
	rig.engine.SetUpdateHook(func(st State) {
		mu.Lock()
		states = append(states, st.Guard.State)
		overrides = append(overrides, st.Guard.Override)
		mu.Unlock()
	})

	commitTestContract(t, rig)
	rig.engine.SetOverride(true)
	rig.engine.SetOverride(false)

	// The hook fires synchronously after each command, so every snapshot
	// is recorded by the time the command returns, in command order.
	mu.Lock()
	defer mu.Unlock()
	require.Len(t, states, 3)
	assert.Equal(t, []guard.State{guard.StateActive, guard.StateActive, guard.StateActive}, states)
	assert.Equal(t, []bool{false, true, false}, overrides)
}

func TestState_ActionGating(t *testing.T) {
	rig := newTestRig(t)
	ctx := context.Background()
	require.NoError(t, rig.engine.Refresh(ctx))

	// No contract: nothing is actionable.
	st := rig.engine.State()
	assert.False(t, st.Guard.TradingAllowed)
	for _, a := range st.Assets {
		assert.False(t, a.Action.Allowed)
	}

	commitTestContract(t, rig)
	st = rig.engine.State()
	assert.True(t, st.Guard.TradingAllowed)
	assert.True(t, st.Assets[0].Action.Allowed, "VALID entry + OK structure is actionable")
}
