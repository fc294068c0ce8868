package guard

import (
	"fmt"
	"math"

	"github.com/edgewatch/edgewatch/internal/domain"
	"github.com/edgewatch/edgewatch/internal/ledger"
	"github.com/edgewatch/edgewatch/internal/session"
)

// State of the trading day.
type State string

const (
	StateUncommitted State = "UNCOMMITTED"
	StateActive      State = "ACTIVE"
	StateLocked      State = "LOCKED"
)

// Inputs for a guard evaluation. Contract may be nil (uncommitted day);
// Day may be nil (no trades yet).
type Inputs struct {
	Contract *CommitmentContract
	Day      *ledger.DayState
	Session  session.Info
	Override bool
}

// Verdict is the global trading-allowed decision.
type Verdict struct {
	State          State    `json:"state"`
	TradingAllowed bool     `json:"trading_allowed"`
	LockReason     string   `json:"lock_reason,omitempty"`
	Reasons        []string `json:"reasons"`
	Override       bool     `json:"override"`
}

// Decision is a per-asset allow/deny with reasons.
type Decision struct {
	Allowed bool     `json:"allowed"`
	Reasons []string `json:"reasons"`
}

// DeriveLock re-derives the lock condition from the trade list on every
// evaluation. Keeping this a pure derivation (instead of an incrementally
// maintained counter) means the lock can never drift from the ledger.
func DeriveLock(c *CommitmentContract, day *ledger.DayState) (bool, string) {
	if c == nil || day == nil {
		return false, ""
	}
	if len(day.Trades) >= c.MaxTrades {
		return true, fmt.Sprintf("trade cap reached (%d/%d)", len(day.Trades), c.MaxTrades)
	}
	if cum := day.CumulativeR(); cum <= -math.Abs(c.MaxDailyLossR) {
		return true, fmt.Sprintf("daily loss cap hit (%.2fR)", cum)
	}
	if losses := day.ConsecutiveLosses(); losses >= c.MaxConsecutiveLosses {
		return true, fmt.Sprintf("consecutive loss cap hit (%d)", losses)
	}
	return false, ""
}

// Evaluate computes the day state and the global trading-allowed predicate.
// Override bypasses session-quality and allowed-session blocks only; it
// never unlocks an uncommitted or locked day.
func Evaluate(in Inputs) Verdict {
	v := Verdict{Override: in.Override}

	if in.Contract == nil {
		v.State = StateUncommitted
		v.Reasons = []string{"commit today's contract before trading"}
		return v
	}

	locked, reason := DeriveLock(in.Contract, in.Day)
	if in.Day != nil && in.Day.Locked {
		locked = true
		if reason == "" {
			reason = in.Day.LockedReason
		}
	}
	if locked {
		v.State = StateLocked
		v.LockReason = reason
		v.Reasons = []string{"day is locked: " + reason}
		return v
	}

	v.State = StateActive

	if in.Session.Quality == session.QualityWait && !in.Override {
		v.Reasons = append(v.Reasons, "session quality is WAIT")
	}
	if !in.Contract.SessionAllowed(in.Session.Key) && !in.Override {
		v.Reasons = append(v.Reasons, fmt.Sprintf("session %s not enabled in contract", in.Session.Name))
	}

	v.TradingAllowed = len(v.Reasons) == 0
	if v.TradingAllowed {
		v.Reasons = []string{"clear to trade"}
	}
	return v
}

// ActionAllowed gates a single asset: the global verdict must allow
// trading, and unless override is on, the asset must have a non-blocking
// entry quality and an OK structure.
func ActionAllowed(v Verdict, quality domain.EntryQuality, structLabel domain.StructureLabel) Decision {
	if !v.TradingAllowed {
		return Decision{Allowed: false, Reasons: v.Reasons}
	}
	if v.Override {
		return Decision{Allowed: true, Reasons: []string{"manual override active"}}
	}

	var reasons []string
	if quality == domain.EntryNoEdge {
		reasons = append(reasons, "entry quality NO_EDGE")
	}
	if structLabel != domain.StructureOK {
		reasons = append(reasons, fmt.Sprintf("structure %s, need OK", structLabel))
	}
	if len(reasons) > 0 {
		return Decision{Allowed: false, Reasons: reasons}
	}
	return Decision{Allowed: true, Reasons: []string{"all checks passed"}}
}
