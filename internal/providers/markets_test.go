package providers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := NewClient("test", Config{
		BaseURL:        srv.URL,
		RequestTimeout: 2 * time.Second,
		RPS:            100,
		Burst:          10,
		MaxCandleBars:  168,
	}, nil)
	require.NoError(t, err)
	return c
}

func TestSnapshots_NullFieldsDegradeToZero(t *testing.T) {
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/coins/markets", r.URL.Path)
		assert.Equal(t, "bitcoin,ethereum", r.URL.Query().Get("ids"))
		w.Write([]byte(`[
			{"id":"bitcoin","symbol":"btc","current_price":64000,"price_change_percentage_24h":2.5,"total_volume":3.1e10},
			{"id":"ethereum","symbol":"eth","current_price":3000,"price_change_percentage_24h":null,"total_volume":null}
		]`))
	}))

	snaps, err := c.Snapshots(context.Background(), []string{"bitcoin", "ethereum"})
	require.NoError(t, err)
	require.Len(t, snaps, 2)

	assert.Equal(t, 64000.0, snaps[0].Price)
	assert.Equal(t, 2.5, snaps[0].Change24hPct)

	assert.Equal(t, "ethereum", snaps[1].Symbol)
	assert.Zero(t, snaps[1].Change24hPct)
	assert.Zero(t, snaps[1].Volume24h)
}

func TestSnapshots_HTTPErrorPropagates(t *testing.T) {
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))

	_, err := c.Snapshots(context.Background(), []string{"bitcoin"})
	assert.Error(t, err)
}

func TestRecentPrices_ChronologicalOrder(t *testing.T) {
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/coins/bitcoin/market_chart", r.URL.Path)
		// Served newest first on purpose; the client must sort.
		w.Write([]byte(`{"prices":[[3000,103],[1000,101],[2000,102]]}`))
	}))

	prices, err := c.RecentPrices(context.Background(), "bitcoin")
	require.NoError(t, err)
	assert.Equal(t, []float64{101, 102, 103}, prices)
}

func TestRecentPrices_EmptyIsError(t *testing.T) {
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"prices":[]}`))
	}))

	_, err := c.RecentPrices(context.Background(), "bitcoin")
	assert.Error(t, err)
}

func TestHourlyCandles_SortedAndTrimmed(t *testing.T) {
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/coins/bitcoin/ohlc", r.URL.Path)
		w.Write([]byte(`[
			[2000, 100, 106, 99, 105],
			[1000, 99, 101, 98, 100],
			[3000, 105, 110, 104, 108]
		]`))
	}))

	candles, err := c.HourlyCandles(context.Background(), "bitcoin", 2)
	require.NoError(t, err)
	require.Len(t, candles, 2, "trimmed to the newest requested bars")
	assert.Equal(t, 106.0, candles[0].High)
	assert.Equal(t, 110.0, candles[1].High)
	assert.Equal(t, 104.0, candles[1].Low)
}

func TestHourlyCandles_EmptyIsError(t *testing.T) {
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[]`))
	}))

	_, err := c.HourlyCandles(context.Background(), "bitcoin", 48)
	assert.Error(t, err)
}
