// Package session maps wall-clock local time onto the fixed intraday trading
// windows and their quality tier. Everything is a pure function of the
// supplied time so the clock is trivially testable.
package session

import (
	"fmt"
	"time"
)

// Quality is the tradability tier of the current window.
type Quality string

const (
	QualityTrade     Quality = "TRADE"
	QualitySelective Quality = "SELECTIVE"
	QualityWait      Quality = "WAIT"
)

// Stable keys for the commitment contract's allowed-sessions set.
const (
	KeyAsia    = "asia"
	KeyEurope  = "europe"
	KeyOverlap = "overlap"
	KeyUS      = "us"
	KeyOffPeak = "offpeak"
)

// Info describes the current session window.
type Info struct {
	Key        string    `json:"key"`
	Name       string    `json:"name"`
	Quality    Quality   `json:"quality"`
	Note       string    `json:"note"`
	NextChange time.Time `json:"next_change"`
	Countdown  string    `json:"countdown"`
}

// window is a half-open [from, to) range in minutes since local midnight.
// The overlap window crossing midnight is represented as two entries
// sharing a definition.
type window struct {
	from, to int
	def      sessionDef
}

type sessionDef struct {
	key     string
	name    string
	quality Quality
	note    string
}

var (
	asiaDef    = sessionDef{KeyAsia, "ASIA", QualitySelective, "thin tape, majors only"}
	europeDef  = sessionDef{KeyEurope, "EUROPE", QualityTrade, "primary session"}
	overlapDef = sessionDef{KeyOverlap, "EU-US OVERLAP", QualityTrade, "peak liquidity window"}
	usDef      = sessionDef{KeyUS, "US", QualityTrade, "momentum follows the US open"}
	offDef     = sessionDef{KeyOffPeak, "OFF-PEAK", QualityWait, "dead hours, stand aside"}
)

var windows = []window{
	{0, 60, overlapDef}, // tail of the overlap crossing midnight
	{60, 360, usDef},
	{360, 420, offDef},
	{420, 960, asiaDef},
	{960, 1260, europeDef},
	{1260, 1440, overlapDef},
}

// Current resolves the session window containing now, including the instant
// of the next window boundary and a floored HH:MM:SS countdown to it.
func Current(now time.Time) Info {
	minute := now.Hour()*60 + now.Minute()

	def := offDef
	for _, w := range windows {
		if minute >= w.from && minute < w.to {
			def = w.def
			break
		}
	}

	next := nextBoundary(now, minute)
	return Info{
		Key:        def.key,
		Name:       def.name,
		Quality:    def.quality,
		Note:       def.note,
		NextChange: next,
		Countdown:  FormatCountdown(next.Sub(now)),
	}
}

// nextBoundary returns the wall-clock instant of the next window transition.
// The 1440 boundary is not a transition: the overlap continues through
// midnight and ends at 01:00.
func nextBoundary(now time.Time, minute int) time.Time {
	boundaries := []int{60, 360, 420, 960, 1260}
	day := now
	target := -1
	for _, b := range boundaries {
		if b > minute {
			target = b
			break
		}
	}
	if target < 0 { // past 21:00, next change is 01:00 tomorrow
		target = boundaries[0]
		day = now.AddDate(0, 0, 1)
	}
	return time.Date(day.Year(), day.Month(), day.Day(), target/60, target%60, 0, 0, now.Location())
}

// FormatCountdown renders a duration as HH:MM:SS, floored to zero at or
// past the boundary.
func FormatCountdown(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int(d.Seconds())
	return fmt.Sprintf("%02d:%02d:%02d", total/3600, (total%3600)/60, total%60)
}
