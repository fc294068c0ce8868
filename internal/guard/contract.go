// Package guard combines the session clock, the operator's daily
// commitment contract and the day's trade outcomes into allow/deny
// decisions. It never scores anything; it only gates.
package guard

import (
	"errors"
	"fmt"
	"time"

	"github.com/edgewatch/edgewatch/internal/session"
)

var (
	// ErrNotCommitted rejects operator actions that require today's contract.
	ErrNotCommitted = errors.New("no commitment contract for today")
	// ErrDayLocked rejects trade appends once the day is locked.
	ErrDayLocked = errors.New("trading day is locked")
)

// CommitmentContract is the operator's self-declared risk contract for one
// calendar day. Immutable once committed; a re-commit replaces it wholesale.
type CommitmentContract struct {
	DayKey               string          `json:"day_key"`
	CommittedAt          time.Time       `json:"committed_at"`
	MaxTrades            int             `json:"max_trades"`
	MaxDailyLossR        float64         `json:"max_daily_loss_r"`
	MaxConsecutiveLosses int             `json:"max_consecutive_losses"`
	RiskPct              float64         `json:"risk_pct"`
	AllowedSessions      map[string]bool `json:"allowed_sessions"`
}

// ContractDraft is the operator-supplied part of a contract; Commit stamps
// the day key and timestamp.
type ContractDraft struct {
	MaxTrades            int             `json:"max_trades"`
	MaxDailyLossR        float64         `json:"max_daily_loss_r"`
	MaxConsecutiveLosses int             `json:"max_consecutive_losses"`
	RiskPct              float64         `json:"risk_pct"`
	AllowedSessions      map[string]bool `json:"allowed_sessions"`
}

// Validate enforces basic sanity on a draft before it becomes binding.
func (d ContractDraft) Validate() error {
	if d.MaxTrades < 1 {
		return fmt.Errorf("max trades must be at least 1, got %d", d.MaxTrades)
	}
	if d.MaxDailyLossR == 0 {
		return fmt.Errorf("max daily loss must be non-zero")
	}
	if d.MaxConsecutiveLosses < 1 {
		return fmt.Errorf("max consecutive losses must be at least 1, got %d", d.MaxConsecutiveLosses)
	}
	if d.RiskPct <= 0 || d.RiskPct > 100 {
		return fmt.Errorf("risk percent must be in (0, 100], got %v", d.RiskPct)
	}
	for key := range d.AllowedSessions {
		switch key {
		case session.KeyAsia, session.KeyEurope, session.KeyOverlap, session.KeyUS, session.KeyOffPeak:
		default:
			return fmt.Errorf("unknown session key %q", key)
		}
	}
	return nil
}

// Commit turns a validated draft into today's binding contract.
func (d ContractDraft) Commit(now time.Time, dayKey string) (*CommitmentContract, error) {
	if err := d.Validate(); err != nil {
		return nil, err
	}
	allowed := make(map[string]bool, len(d.AllowedSessions))
	for k, v := range d.AllowedSessions {
		allowed[k] = v
	}
	return &CommitmentContract{
		DayKey:               dayKey,
		CommittedAt:          now,
		MaxTrades:            d.MaxTrades,
		MaxDailyLossR:        d.MaxDailyLossR,
		MaxConsecutiveLosses: d.MaxConsecutiveLosses,
		RiskPct:              d.RiskPct,
		AllowedSessions:      allowed,
	}, nil
}

// SessionAllowed reports whether the contract permits acting in the given
// session window.
func (c *CommitmentContract) SessionAllowed(key string) bool {
	return c != nil && c.AllowedSessions[key]
}
