package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/edgewatch/edgewatch/internal/domain"
	"github.com/edgewatch/edgewatch/internal/microstats"
	"github.com/edgewatch/edgewatch/internal/score"
	"github.com/edgewatch/edgewatch/internal/structure"
)

// Refresh runs one full cycle: snapshot fetch, activity scoring, top-N
// ranking, then parallel per-asset intraday and candle fetches. A single
// asset's fetch failure degrades only that asset; only a failed snapshot
// fetch fails the cycle, and even then the previous results are retained.
func (e *Engine) Refresh(ctx context.Context) error {
	start := time.Now()
	err := e.refresh(ctx)

	if e.metrics != nil {
		e.metrics.RefreshDuration.Observe(time.Since(start).Seconds())
		result := "ok"
		if err != nil {
			result = "error"
		}
		e.metrics.RefreshCycles.WithLabelValues(result).Inc()
	}
	e.notify()
	return err
}

func (e *Engine) refresh(ctx context.Context) error {
	snaps, err := e.sources.Snapshots.Snapshots(ctx, e.cfg.Watchlist)
	if err != nil {
		e.mu.Lock()
		e.degraded = true
		e.lastError = err.Error()
		e.mu.Unlock()
		log.Error().Err(err).Msg("snapshot fetch failed, retaining previous results")
		return fmt.Errorf("snapshot fetch: %w", err)
	}

	top := score.Rank(snaps, e.cfg.TopN)

	type microResult struct {
		symbol  string
		metrics domain.MicroMetrics
		ok      bool
	}
	type structResult struct {
		symbol string
		result domain.StructureResult
	}

	microResults := make([]microResult, len(top))
	structResults := make([]structResult, len(top))

	priceOf := make(map[string]float64, len(snaps))
	for _, s := range snaps {
		priceOf[s.Symbol] = s.Price
	}

	var wg sync.WaitGroup
	for i, t := range top {
		wg.Add(2)

		go func(i int, symbol string) {
			defer wg.Done()
			samples, err := e.sources.Intraday.RecentPrices(ctx, symbol)
			if err != nil {
				// Keep the previous classification for this asset.
				log.Warn().Err(err).Str("symbol", symbol).Msg("intraday fetch failed")
				microResults[i] = microResult{symbol: symbol}
				return
			}
			microResults[i] = microResult{symbol: symbol, metrics: microstats.Classify(samples), ok: true}
		}(i, t.Symbol)

		go func(i int, symbol string) {
			defer wg.Done()
			candles, err := e.sources.Candles.HourlyCandles(ctx, symbol, e.cfg.CandleBars)
			if err != nil {
				log.Warn().Err(err).Str("symbol", symbol).Msg("candle fetch failed")
				structResults[i] = structResult{symbol: symbol, result: domain.UnavailableStructure()}
				return
			}
			structResults[i] = structResult{symbol: symbol, result: structure.Evaluate(candles, priceOf[symbol])}
		}(i, t.Symbol)
	}
	wg.Wait()

	// Merge per key: new results overwrite only their own symbols, so an
	// overlapping cycle resolves last-write-wins without partial rows.
	e.mu.Lock()
	for _, s := range snaps {
		e.snapshots[s.Symbol] = s
	}
	baseline := score.BaselineVolume(snaps)
	for _, s := range snaps {
		sc := score.Activity(s, baseline)
		e.scores[s.Symbol] = sc
	}
	ranked := make([]string, len(top))
	for i, t := range top {
		ranked[i] = t.Symbol
	}
	e.ranked = ranked
	for _, m := range microResults {
		if m.ok {
			e.micro[m.symbol] = m.metrics
		}
	}
	for _, s := range structResults {
		e.structures[s.symbol] = s.result
	}
	e.degraded = false
	e.lastError = ""
	e.lastRefresh = e.now()
	e.mu.Unlock()

	if e.metrics != nil {
		e.metrics.AssetsScored.Set(float64(len(snaps)))
	}
	log.Info().
		Int("assets", len(snaps)).
		Int("candidates", len(top)).
		Msg("refresh cycle complete")
	return nil
}
