package providers

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"strings"

	"github.com/edgewatch/edgewatch/internal/domain"
)

// marketRow mirrors one row of the /coins/markets response. Change and
// volume are nullable upstream; nil means unknown and scores as zero.
type marketRow struct {
	ID           string   `json:"id"`
	Symbol       string   `json:"symbol"`
	CurrentPrice float64  `json:"current_price"`
	Change24hPct *float64 `json:"price_change_percentage_24h"`
	Volume24h    *float64 `json:"total_volume"`
}

// chartResponse mirrors /coins/{id}/market_chart: [timestamp, value] pairs.
type chartResponse struct {
	Prices [][2]float64 `json:"prices"`
}

// Snapshots fetches the current ticker row for every watchlist asset in
// one request. Assets the provider does not know are simply missing from
// the result; the caller treats them as unavailable.
func (c *Client) Snapshots(ctx context.Context, ids []string) ([]domain.AssetSnapshot, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	q := url.Values{}
	q.Set("vs_currency", "usd")
	q.Set("ids", strings.Join(ids, ","))

	var rows []marketRow
	if err := c.getJSON(ctx, "/coins/markets", q, &rows); err != nil {
		return nil, fmt.Errorf("fetch market snapshots: %w", err)
	}

	out := make([]domain.AssetSnapshot, 0, len(rows))
	for _, r := range rows {
		snap := domain.AssetSnapshot{Symbol: r.ID, Price: r.CurrentPrice}
		if r.Change24hPct != nil {
			snap.Change24hPct = *r.Change24hPct
		}
		if r.Volume24h != nil {
			snap.Volume24h = *r.Volume24h
		}
		out = append(out, snap)
	}
	return out, nil
}

// RecentPrices fetches ~24h of hourly price samples for one asset,
// chronological oldest first.
func (c *Client) RecentPrices(ctx context.Context, id string) ([]float64, error) {
	q := url.Values{}
	q.Set("vs_currency", "usd")
	q.Set("days", "1")

	var chart chartResponse
	if err := c.getJSON(ctx, "/coins/"+id+"/market_chart", q, &chart); err != nil {
		return nil, fmt.Errorf("fetch intraday prices for %s: %w", id, err)
	}
	if len(chart.Prices) == 0 {
		return nil, fmt.Errorf("no intraday prices for %s", id)
	}

	sort.SliceStable(chart.Prices, func(i, j int) bool {
		return chart.Prices[i][0] < chart.Prices[j][0]
	})
	prices := make([]float64, len(chart.Prices))
	for i, p := range chart.Prices {
		prices[i] = p[1]
	}
	return prices, nil
}

// HourlyCandles fetches up to bars 1h candles for one asset, chronological
// oldest first. The bar count is capped at the provider maximum. An empty
// response is an error, never zero-filled candles.
func (c *Client) HourlyCandles(ctx context.Context, id string, bars int) ([]domain.Candle, error) {
	if bars <= 0 || bars > c.maxBars {
		bars = c.maxBars
	}
	days := (bars + 23) / 24

	q := url.Values{}
	q.Set("vs_currency", "usd")
	q.Set("days", fmt.Sprintf("%d", days))

	// /coins/{id}/ohlc rows: [timestamp, open, high, low, close].
	var rows [][5]float64
	if err := c.getJSON(ctx, "/coins/"+id+"/ohlc", q, &rows); err != nil {
		return nil, fmt.Errorf("fetch 1h candles for %s: %w", id, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("no candles for %s", id)
	}

	sort.SliceStable(rows, func(i, j int) bool { return rows[i][0] < rows[j][0] })
	if len(rows) > bars {
		rows = rows[len(rows)-bars:]
	}
	candles := make([]domain.Candle, len(rows))
	for i, r := range rows {
		candles[i] = domain.Candle{High: r[2], Low: r[3]}
	}
	return candles, nil
}
