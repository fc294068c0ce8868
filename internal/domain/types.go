// Package domain holds the shared value types passed between the scoring,
// classification and structure engines. Everything here is ephemeral: results
// are recomputed each refresh cycle and held in per-symbol maps.
package domain

// EntryQuality classifies whether current price action is safe to enter now.
type EntryQuality string

const (
	EntryValid    EntryQuality = "VALID"
	EntryExtended EntryQuality = "EXTENDED"
	EntryNoEdge   EntryQuality = "NO_EDGE"
)

// StructureLabel is the verdict of the support/resistance evaluation.
type StructureLabel string

const (
	StructureOK     StructureLabel = "OK"
	StructureWait   StructureLabel = "WAIT"
	StructureNoEdge StructureLabel = "NO_EDGE"
)

// Side of a manually logged trade.
type Side string

const (
	SideLong  Side = "LONG"
	SideShort Side = "SHORT"
)

// AssetSnapshot is one row of the watchlist ticker feed. Change and volume
// default to zero when the upstream reports null; scoring treats that as
// flat/no participation.
type AssetSnapshot struct {
	Symbol       string  `json:"symbol"`
	Price        float64 `json:"price"`
	Change24hPct float64 `json:"change_24h_pct"`
	Volume24h    float64 `json:"volume_24h"`
}

// ActivityScore is the 0-100 momentum/participation score for one asset.
type ActivityScore struct {
	Symbol    string   `json:"symbol"`
	Score15m  float64  `json:"score_15m"`
	Score1h   float64  `json:"score_1h"`
	Combined  float64  `json:"combined"`
	VolFactor float64  `json:"vol_factor"`
	Reasons   []string `json:"reasons"`
}

// MicroMetrics carries the short-horizon return statistics and the entry
// quality derived from them.
type MicroMetrics struct {
	Ret1h          float64      `json:"ret_1h"`
	Ret4h          float64      `json:"ret_4h"`
	DropFromHigh6h float64      `json:"drop_from_high_6h"`
	SpikeFromLow6h float64      `json:"spike_from_low_6h"`
	Quality        EntryQuality `json:"quality"`
	Reasons        []string     `json:"reasons"`
}

// Candle is a single 1h bar. Only the extremes matter for pivot detection.
type Candle struct {
	High float64 `json:"high"`
	Low  float64 `json:"low"`
}

// PivotZone is a rounded price level with the number of pivot touches that
// merged into it. Touches ≥2 is considered a confirmed level.
type PivotZone struct {
	Price   float64 `json:"price"`
	Touches int     `json:"touches"`
}

// Structure result sources.
const (
	StructureSourceComputed    = "computed"
	StructureSourceUnavailable = "unavailable"
)

// StructureResult is the room-to-2R evaluation for one asset. Support,
// Resistance and RoomTo2R are nil when the evaluation never got that far
// (no levels, or candle data unavailable).
type StructureResult struct {
	OK         bool           `json:"ok"`
	Label      StructureLabel `json:"label"`
	Reasons    []string       `json:"reasons"`
	Support    *PivotZone     `json:"support,omitempty"`
	Resistance *PivotZone     `json:"resistance,omitempty"`
	RoomTo2R   *float64       `json:"room_to_2r,omitempty"`
	Source     string         `json:"source"`
}

// UnavailableStructure is the fixed fallback used when the candle source
// fails or returns nothing usable.
func UnavailableStructure() StructureResult {
	return StructureResult{
		OK:      false,
		Label:   StructureWait,
		Reasons: []string{"candle data unavailable"},
		Source:  StructureSourceUnavailable,
	}
}
