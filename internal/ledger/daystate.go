package ledger

import (
	"time"

	"github.com/google/uuid"

	"github.com/edgewatch/edgewatch/internal/domain"
)

// DayKeyFormat keys persisted records by local calendar day.
const DayKeyFormat = "2006-01-02"

// DayKey returns the calendar-day key for t in its own location.
func DayKey(t time.Time) string {
	return t.Format(DayKeyFormat)
}

// TradeRecord is one manually journaled trade. Immutable once created.
type TradeRecord struct {
	ID            string      `json:"id"`
	Timestamp     time.Time   `json:"timestamp"`
	Symbol        string      `json:"symbol"`
	Side          domain.Side `json:"side"`
	Entry         float64     `json:"entry"`
	Stop          float64     `json:"stop"`
	Exit          float64     `json:"exit"`
	RMultiple     float64     `json:"r_multiple"`
	RulesFollowed bool        `json:"rules_followed"`
	Note          string      `json:"note,omitempty"`
}

// NewTradeRecord validates the prices, computes the R-multiple and stamps
// an ID. Returns ErrInvalidTrade on undefined R.
func NewTradeRecord(now time.Time, symbol string, side domain.Side, entry, stop, exit float64, rulesFollowed bool, note string) (TradeRecord, error) {
	r, err := ComputeR(side, entry, stop, exit)
	if err != nil {
		return TradeRecord{}, err
	}
	return TradeRecord{
		ID:            uuid.NewString(),
		Timestamp:     now,
		Symbol:        symbol,
		Side:          side,
		Entry:         entry,
		Stop:          stop,
		Exit:          exit,
		RMultiple:     r,
		RulesFollowed: rulesFollowed,
		Note:          note,
	}, nil
}

// DayState is the persisted per-day journal. Trades are append-only;
// Locked flips true once and stays until an explicit day reset.
type DayState struct {
	DayKey       string        `json:"day_key"`
	Locked       bool          `json:"locked"`
	LockedReason string        `json:"locked_reason,omitempty"`
	Trades       []TradeRecord `json:"trades"`
}

// NewDayState returns the empty journal for the given day.
func NewDayState(dayKey string) *DayState {
	return &DayState{DayKey: dayKey}
}

// CumulativeR sums the R-multiples of every logged trade.
func (d *DayState) CumulativeR() float64 {
	var sum float64
	for _, t := range d.Trades {
		sum += t.RMultiple
	}
	return sum
}

// ConsecutiveLosses counts the trailing run of losing trades. Any
// break-even or winning trade resets the streak.
func (d *DayState) ConsecutiveLosses() int {
	n := 0
	for i := len(d.Trades) - 1; i >= 0; i-- {
		if d.Trades[i].RMultiple >= 0 {
			break
		}
		n++
	}
	return n
}
