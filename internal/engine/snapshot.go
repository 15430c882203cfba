package engine

import (
	"time"

	"pam-dwin-bridge/internal/scaling"
)

// Snapshot is the bridge state exported to telemetry after each completed
// cycle. Nil values were not available.
type Snapshot struct {
	Valid     bool // at least one cycle completed
	Cycle     uint64
	UpdatedAt time.Time

	Function scaling.FunctionCode
	ValueA   *float64 // scaled
	ValueB   *float64 // scaled
	CurrentA *float64 // raw instrument reading
	CurrentB *float64 // raw instrument reading
	Mode     scaling.ElectricalMode
}

// reading is a raw register value that may be missing
type reading struct {
	value float64
	ok    bool
}

func (r reading) ptr() *float64 {
	if !r.ok {
		return nil
	}
	v := r.value
	return &v
}

func scaledPtr(r reading, mode scaling.ElectricalMode, fn scaling.FunctionCode) *float64 {
	if !r.ok {
		return nil
	}
	v, ok := scaling.Scale(r.value, mode, fn)
	if !ok {
		return nil
	}
	return &v
}
