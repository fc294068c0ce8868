// Package breakers wraps sony/gobreaker around the upstream provider
// calls. A flapping provider trips open quickly so refresh cycles degrade
// to their fallbacks instead of stalling on a dead endpoint.
package breakers

import (
	"time"

	"github.com/rs/zerolog/log"
	cb "github.com/sony/gobreaker"
)

// Breaker is a named circuit breaker with provider-tuned trip rules.
type Breaker struct {
	cb *cb.CircuitBreaker
}

// New builds a breaker: trips on 3 consecutive failures, or on a >20%
// failure rate once 10 requests have been seen; retries after 30s.
func New(name string) *Breaker {
	st := cb.Settings{Name: name}
	st.Interval = 60 * time.Second
	st.Timeout = 30 * time.Second
	st.ReadyToTrip = func(counts cb.Counts) bool {
		if counts.ConsecutiveFailures >= 3 {
			return true
		}
		if counts.Requests < 10 {
			return false
		}
		return float64(counts.TotalFailures)/float64(counts.Requests) > 0.2
	}
	st.OnStateChange = func(name string, from, to cb.State) {
		log.Warn().
			Str("breaker", name).
			Str("from", from.String()).
			Str("to", to.String()).
			Msg("provider circuit breaker state change")
	}
	return &Breaker{cb: cb.NewCircuitBreaker(st)}
}

// Execute runs fn under the breaker.
func (b *Breaker) Execute(fn func() (any, error)) (any, error) {
	return b.cb.Execute(fn)
}

// State exposes the current breaker state for health reporting.
func (b *Breaker) State() string {
	return b.cb.State().String()
}
