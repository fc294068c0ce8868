// Package ledger holds the append-only daily trade record and the
// R-multiple math derived from it. Cumulative stats are always recomputed
// from the trade list, never cached, so they cannot drift from the ledger.
package ledger

import (
	"errors"
	"fmt"
	"math"

	"github.com/edgewatch/edgewatch/internal/domain"
)

// ErrInvalidTrade is returned when the R computation is undefined:
// non-finite prices or a stop on the wrong side of the entry. Callers must
// reject the trade at the boundary instead of recording a NaN.
var ErrInvalidTrade = errors.New("invalid trade input")

// ComputeR normalizes trade profit/loss by the initial risk distance.
// +2R means the move earned twice the distance risked to the stop.
func ComputeR(side domain.Side, entry, stop, exit float64) (float64, error) {
	for _, v := range []float64{entry, stop, exit} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return 0, fmt.Errorf("%w: non-finite price", ErrInvalidTrade)
		}
	}

	var risk, reward float64
	switch side {
	case domain.SideLong:
		risk = entry - stop
		reward = exit - entry
	case domain.SideShort:
		risk = stop - entry
		reward = entry - exit
	default:
		return 0, fmt.Errorf("%w: unknown side %q", ErrInvalidTrade, side)
	}

	if risk <= 0 {
		return 0, fmt.Errorf("%w: stop must sit on the risk side of entry", ErrInvalidTrade)
	}
	return reward / risk, nil
}
