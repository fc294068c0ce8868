// Package store persists the two day-keyed operator records: the
// commitment contract and the day's trade journal. Backends are
// interchangeable; the day-key discard rule lives here at load time, not
// inside any backend.
package store

import (
	"context"

	"github.com/edgewatch/edgewatch/internal/guard"
	"github.com/edgewatch/edgewatch/internal/ledger"
)

// Store is the key-value persistence contract. Load methods return
// (nil, nil) when no record exists; Save overwrites wholesale.
type Store interface {
	LoadContract(ctx context.Context) (*guard.CommitmentContract, error)
	SaveContract(ctx context.Context, c *guard.CommitmentContract) error
	LoadDay(ctx context.Context) (*ledger.DayState, error)
	SaveDay(ctx context.Context, d *ledger.DayState) error
	Close() error
}

// ContractForDay loads the stored contract and discards it when its day
// key does not match today. A stale contract is treated as absent, never
// migrated.
func ContractForDay(ctx context.Context, s Store, dayKey string) (*guard.CommitmentContract, error) {
	c, err := s.LoadContract(ctx)
	if err != nil {
		return nil, err
	}
	if c == nil || c.DayKey != dayKey {
		return nil, nil
	}
	return c, nil
}

// DayStateFor loads the stored journal for today, replacing an absent or
// stale record with a fresh empty day.
func DayStateFor(ctx context.Context, s Store, dayKey string) (*ledger.DayState, error) {
	d, err := s.LoadDay(ctx)
	if err != nil {
		return nil, err
	}
	if d == nil || d.DayKey != dayKey {
		return ledger.NewDayState(dayKey), nil
	}
	return d, nil
}
