package app

import (
	"time"

	"github.com/edgewatch/edgewatch/internal/domain"
	"github.com/edgewatch/edgewatch/internal/guard"
	"github.com/edgewatch/edgewatch/internal/ledger"
	"github.com/edgewatch/edgewatch/internal/session"
)

// AssetState is one ranked candidate with everything the operator sees.
type AssetState struct {
	Snapshot  domain.AssetSnapshot    `json:"snapshot"`
	Score     domain.ActivityScore    `json:"score"`
	Micro     *domain.MicroMetrics    `json:"micro,omitempty"`
	Structure *domain.StructureResult `json:"structure,omitempty"`
	Action    guard.Decision          `json:"action"`
}

// DaySummary is the journal with its derived metrics.
type DaySummary struct {
	DayKey            string               `json:"day_key"`
	State             guard.State          `json:"state"`
	Locked            bool                 `json:"locked"`
	LockedReason      string               `json:"locked_reason,omitempty"`
	Trades            []ledger.TradeRecord `json:"trades"`
	CumulativeR       float64              `json:"cumulative_r"`
	ConsecutiveLosses int                  `json:"consecutive_losses"`
}

// State is the full dashboard snapshot handed to the HTTP API and the
// websocket hub.
type State struct {
	Time        time.Time                 `json:"time"`
	Session     session.Info              `json:"session"`
	Guard       guard.Verdict             `json:"guard"`
	Contract    *guard.CommitmentContract `json:"contract,omitempty"`
	Day         DaySummary                `json:"day"`
	Assets      []AssetState              `json:"assets"`
	Degraded    bool                      `json:"degraded"`
	LastError   string                    `json:"last_error,omitempty"`
	LastRefresh time.Time                 `json:"last_refresh"`
}

// State assembles a consistent snapshot under the read lock. The guard
// verdict is evaluated live here, never cached, and records keyed to a
// previous day are treated as absent the same way the load helpers
// discard them. A pure read never mutates the engine; the actual
// rollover happens in the next mutating command.
func (e *Engine) State() State {
	now := e.now()
	sess := session.Current(now)
	today := ledger.DayKey(now)

	e.mu.RLock()
	defer e.mu.RUnlock()

	contract := e.contract
	if contract != nil && contract.DayKey != today {
		contract = nil
	}
	day := e.day
	if day == nil || day.DayKey != today {
		day = ledger.NewDayState(today)
	}

	verdict := guard.Evaluate(guard.Inputs{
		Contract: contract,
		Day:      day,
		Session:  sess,
		Override: e.override,
	})
	if e.metrics != nil {
		e.metrics.SetGuardState(string(verdict.State))
	}

	st := State{
		Time:        now,
		Session:     sess,
		Guard:       verdict,
		Contract:    contract,
		Degraded:    e.degraded,
		LastError:   e.lastError,
		LastRefresh: e.lastRefresh,
		Day: DaySummary{
			DayKey:            day.DayKey,
			State:             verdict.State,
			Locked:            day.Locked,
			LockedReason:      day.LockedReason,
			Trades:            append([]ledger.TradeRecord(nil), day.Trades...),
			CumulativeR:       day.CumulativeR(),
			ConsecutiveLosses: day.ConsecutiveLosses(),
		},
	}

	st.Assets = make([]AssetState, 0, len(e.ranked))
	for _, symbol := range e.ranked {
		as := AssetState{
			Snapshot: e.snapshots[symbol],
			Score:    e.scores[symbol],
		}
		quality := domain.EntryValid
		if m, ok := e.micro[symbol]; ok {
			metricsCopy := m
			as.Micro = &metricsCopy
			quality = m.Quality
		}
		structLabel := domain.StructureWait
		if s, ok := e.structures[symbol]; ok {
			structCopy := s
			as.Structure = &structCopy
			structLabel = s.Label
		}
		as.Action = guard.ActionAllowed(verdict, quality, structLabel)
		st.Assets = append(st.Assets, as)
	}
	return st
}

// Override reports the transient override toggle.
func (e *Engine) Override() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.override
}
