package app

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/edgewatch/edgewatch/internal/domain"
	"github.com/edgewatch/edgewatch/internal/guard"
	"github.com/edgewatch/edgewatch/internal/ledger"
)

// Each command runs its locked section, releases the mutex, then notifies
// synchronously so websocket clients see snapshots in command order.

// CommitToday turns a draft into today's binding contract, replacing any
// previous commitment wholesale.
func (e *Engine) CommitToday(ctx context.Context, draft guard.ContractDraft) (*guard.CommitmentContract, error) {
	contract, err := e.commitToday(ctx, draft)
	if err != nil {
		return nil, err
	}
	e.notify()
	return contract, nil
}

func (e *Engine) commitToday(ctx context.Context, draft guard.ContractDraft) (*guard.CommitmentContract, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.ensureTodayLocked(ctx); err != nil {
		return nil, err
	}

	now := e.now()
	contract, err := draft.Commit(now, ledger.DayKey(now))
	if err != nil {
		return nil, err
	}
	if err := e.store.SaveContract(ctx, contract); err != nil {
		return nil, fmt.Errorf("persist contract: %w", err)
	}
	e.contract = contract

	log.Info().
		Int("max_trades", contract.MaxTrades).
		Float64("max_daily_loss_r", contract.MaxDailyLossR).
		Msg("daily contract committed")
	return contract, nil
}

// TradeInput is the operator-entered part of a journal entry.
type TradeInput struct {
	Symbol        string      `json:"symbol"`
	Side          domain.Side `json:"side"`
	Entry         float64     `json:"entry"`
	Stop          float64     `json:"stop"`
	Exit          float64     `json:"exit"`
	RulesFollowed bool        `json:"rules_followed"`
	Note          string      `json:"note"`
}

// LogTrade validates and appends one trade to today's journal, then
// re-derives the lock condition. Rejected outright when the day is locked
// or uncommitted; an undefined R never reaches the ledger.
func (e *Engine) LogTrade(ctx context.Context, in TradeInput) (ledger.TradeRecord, error) {
	rec, err := e.logTrade(ctx, in)
	if err != nil {
		return ledger.TradeRecord{}, err
	}
	e.notify()
	return rec, nil
}

func (e *Engine) logTrade(ctx context.Context, in TradeInput) (ledger.TradeRecord, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.ensureTodayLocked(ctx); err != nil {
		return ledger.TradeRecord{}, err
	}

	if e.contract == nil {
		return ledger.TradeRecord{}, guard.ErrNotCommitted
	}
	if locked, _ := guard.DeriveLock(e.contract, e.day); locked || e.day.Locked {
		return ledger.TradeRecord{}, guard.ErrDayLocked
	}

	rec, err := ledger.NewTradeRecord(e.now(), in.Symbol, in.Side, in.Entry, in.Stop, in.Exit, in.RulesFollowed, in.Note)
	if err != nil {
		return ledger.TradeRecord{}, err
	}
	e.day.Trades = append(e.day.Trades, rec)

	if locked, reason := guard.DeriveLock(e.contract, e.day); locked {
		e.day.Locked = true
		e.day.LockedReason = reason
		log.Warn().Str("reason", reason).Msg("day locked")
	}
	if err := e.store.SaveDay(ctx, e.day); err != nil {
		return ledger.TradeRecord{}, fmt.Errorf("persist day state: %w", err)
	}

	if e.metrics != nil {
		e.metrics.TradesLogged.Inc()
	}
	log.Info().
		Str("symbol", rec.Symbol).
		Str("side", string(rec.Side)).
		Float64("r", rec.RMultiple).
		Msg("trade logged")
	return rec, nil
}

// EndSession locks the rest of the day manually.
func (e *Engine) EndSession(ctx context.Context) error {
	if err := e.endSession(ctx); err != nil {
		return err
	}
	e.notify()
	return nil
}

func (e *Engine) endSession(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.ensureTodayLocked(ctx); err != nil {
		return err
	}

	e.day.Locked = true
	e.day.LockedReason = "session ended manually"
	if err := e.store.SaveDay(ctx, e.day); err != nil {
		return fmt.Errorf("persist day state: %w", err)
	}
	log.Info().Msg("session ended manually")
	return nil
}

// ResetDay clears the journal and the lock. The only way back from a
// locked day short of waiting for tomorrow.
func (e *Engine) ResetDay(ctx context.Context) error {
	if err := e.resetDay(ctx); err != nil {
		return err
	}
	e.notify()
	return nil
}

func (e *Engine) resetDay(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	// Roll over first so a reset after midnight also drops yesterday's
	// contract rather than resurrecting it under a fresh journal.
	if err := e.ensureTodayLocked(ctx); err != nil {
		return err
	}

	e.day = ledger.NewDayState(ledger.DayKey(e.now()))
	if err := e.store.SaveDay(ctx, e.day); err != nil {
		return fmt.Errorf("persist day state: %w", err)
	}
	log.Warn().Msg("day reset: journal cleared and lock lifted")
	return nil
}

// SetOverride toggles the transient manual override. It survives neither
// a restart nor a day rollover by design of never being persisted.
func (e *Engine) SetOverride(v bool) {
	e.mu.Lock()
	e.override = v
	e.mu.Unlock()
	log.Info().Bool("override", v).Msg("manual override toggled")
	e.notify()
}
