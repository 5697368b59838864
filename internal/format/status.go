// Package format turns row values into display cells: text plus a
// severity tier the renderer maps onto a style. Everything here is pure.
package format

import (
	"fmt"
	"math"
)

// Tier is the severity classification used to pick a display style.
type Tier int

const (
	TierEmpty Tier = iota
	TierNominal
	TierTransitional
	TierCritical
)

func (t Tier) String() string {
	switch t {
	case TierNominal:
		return "nominal"
	case TierTransitional:
		return "transitional"
	case TierCritical:
		return "critical"
	default:
		return "empty"
	}
}

// Placeholder is rendered for absent values.
const Placeholder = "-"

// DangerMarker is appended to positive danger counts.
const DangerMarker = "!"

// Cell is one formatted value.
type Cell struct {
	Text string
	Tier Tier
}

const statusRunning = "RUNNING"

var transitionalStatuses = map[string]struct{}{
	"STARTING": {},
	"STOPPED":  {},
	"STOPPING": {},
	"EXITED":   {},
}

// ClassifyStatus maps a raw lifecycle status onto a tier.
func ClassifyStatus(status string) Tier {
	if status == "" {
		return TierEmpty
	}
	if status == statusRunning {
		return TierNominal
	}
	if _, ok := transitionalStatuses[status]; ok {
		return TierTransitional
	}
	return TierCritical
}

// ActiveStatus formats the status column of the active and assigned tables.
func ActiveStatus(status string) Cell {
	tier := ClassifyStatus(status)
	if tier == TierEmpty {
		return Cell{Text: Placeholder, Tier: TierEmpty}
	}
	return Cell{Text: status, Tier: tier}
}

// PendingStatus formats the status column of the pending table. Pending
// rows are never tier classified.
func PendingStatus(status string) Cell {
	return Cell{Text: "waiting to be " + status, Tier: TierTransitional}
}

// DangerCount marks positive integers as critical and passes every other
// value through untouched. Only numeric values count: a numeric string is
// passed through, as is a float with a fractional part.
func DangerCount(value any) Cell {
	if n, ok := positiveInteger(value); ok {
		return Cell{Text: fmt.Sprintf("%d %s", n, DangerMarker), Tier: TierCritical}
	}
	if value == nil {
		return Cell{Text: "", Tier: TierEmpty}
	}
	return Cell{Text: fmt.Sprint(value), Tier: TierEmpty}
}

func positiveInteger(value any) (int64, bool) {
	switch v := value.(type) {
	case int:
		return int64(v), v > 0
	case int32:
		return int64(v), v > 0
	case int64:
		return v, v > 0
	case uint:
		return int64(v), v > 0
	case uint32:
		return int64(v), v > 0
	case uint64:
		return int64(v), v > 0
	case float32:
		return floatInteger(float64(v))
	case float64:
		return floatInteger(v)
	default:
		return 0, false
	}
}

func floatInteger(v float64) (int64, bool) {
	if math.IsNaN(v) || math.IsInf(v, 0) || v != math.Trunc(v) || v <= 0 {
		return 0, false
	}
	return int64(v), true
}

// Disabled formats the enabled/disabled flag.
func Disabled(disabled bool) Cell {
	if disabled {
		return Cell{Text: "DISABLED", Tier: TierCritical}
	}
	return Cell{Text: "ENABLED", Tier: TierNominal}
}

// NoWrap returns the value, or the placeholder when it is empty.
func NoWrap(value string) Cell {
	if value == "" {
		return Cell{Text: Placeholder, Tier: TierEmpty}
	}
	return Cell{Text: value, Tier: TierEmpty}
}
