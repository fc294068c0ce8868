// Package providers implements the upstream market-data clients: the
// watchlist snapshot feed, the ~24h hourly price series and the 1h OHLC
// candles. All calls are rate limited per host and run behind a circuit
// breaker; failures surface as errors, never as zero-filled data.
package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/edgewatch/edgewatch/internal/infrastructure/breakers"
	"github.com/edgewatch/edgewatch/internal/net/ratelimit"
	"github.com/edgewatch/edgewatch/internal/telemetry/metrics"
)

// Config tunes the shared HTTP behavior of one provider client.
type Config struct {
	BaseURL        string
	RequestTimeout time.Duration
	RPS            float64
	Burst          int
	MaxCandleBars  int
}

// DefaultConfig targets the public CoinGecko-compatible API at free-tier
// request rates.
func DefaultConfig() Config {
	return Config{
		BaseURL:        "https://api.coingecko.com/api/v3",
		RequestTimeout: 10 * time.Second,
		RPS:            0.5,
		Burst:          2,
		MaxCandleBars:  168,
	}
}

// Client is the shared transport: http client + limiter + breaker.
type Client struct {
	name    string
	baseURL *url.URL
	http    *http.Client
	limiter *ratelimit.Limiter
	breaker *breakers.Breaker
	metrics *metrics.Registry
	maxBars int
}

// NewClient builds a provider client. metrics may be nil in tests.
func NewClient(name string, cfg Config, reg *metrics.Registry) (*Client, error) {
	base, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse provider base url: %w", err)
	}
	maxBars := cfg.MaxCandleBars
	if maxBars <= 0 {
		maxBars = DefaultConfig().MaxCandleBars
	}
	return &Client{
		name:    name,
		baseURL: base,
		http:    &http.Client{Timeout: cfg.RequestTimeout},
		limiter: ratelimit.NewLimiter(cfg.RPS, cfg.Burst),
		breaker: breakers.New(name),
		metrics: reg,
		maxBars: maxBars,
	}, nil
}

// BreakerState exposes the provider circuit state for the health endpoint.
func (c *Client) BreakerState() string {
	return c.breaker.State()
}

// getJSON runs one rate-limited, breaker-guarded GET and decodes the body
// into dst.
func (c *Client) getJSON(ctx context.Context, path string, query url.Values, dst any) error {
	if err := c.limiter.Wait(ctx, c.baseURL.Host); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}

	u := *c.baseURL
	u.Path = u.Path + path
	u.RawQuery = query.Encode()

	start := time.Now()
	_, err := c.breaker.Execute(func() (any, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "application/json")

		resp, err := c.http.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("HTTP %d from %s", resp.StatusCode, u.Host)
		}
		if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
			return nil, fmt.Errorf("decode response: %w", err)
		}
		return nil, nil
	})
	duration := time.Since(start)

	if c.metrics != nil {
		c.metrics.RecordProviderCall(c.name, err == nil, duration)
	}
	if err != nil {
		log.Warn().Err(err).Str("provider", c.name).Str("path", path).Msg("provider request failed")
		return err
	}

	log.Debug().Str("provider", c.name).Str("path", path).Dur("duration", duration).Msg("provider request ok")
	return nil
}
