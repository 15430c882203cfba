// Package scaling converts raw instrument readings into physical units.
package scaling

import "fmt"

// FunctionCode identifies the measurement layout the instrument runs
type FunctionCode int

const (
	FunctionSingle FunctionCode = 195 // one value on channel A
	FunctionDual   FunctionCode = 196 // both channels
)

func (f FunctionCode) String() string {
	switch f {
	case FunctionSingle:
		return "single(195)"
	case FunctionDual:
		return "dual(196)"
	default:
		return fmt.Sprintf("unknown(%d)", int(f))
	}
}

// ElectricalMode is the input mode of one instrument channel
type ElectricalMode int

const (
	ModeUnknown ElectricalMode = iota
	ModeVoltage
	ModeCurrent
)

func (m ElectricalMode) String() string {
	switch m {
	case ModeVoltage:
		return "V"
	case ModeCurrent:
		return "C"
	default:
		return "None"
	}
}

// Known reports whether the mode was determined
func (m ElectricalMode) Known() bool {
	return m == ModeVoltage || m == ModeCurrent
}

// Calibration constants. The dual-function current loop and the single
// function linear calibration are distinct and must stay separate.
const (
	voltageDivisor = 1000.0

	dualCurrentGain   = 0.0016
	dualCurrentOffset = 4.0

	singleCurrentGain   = 0.0008
	singleCurrentOffset = 12.0

	currentMin = 4.0
	currentMax = 20.0
)

// Scale maps a raw reading to a physical value.
// The boolean is false when the channel mode is unknown and the value must not be sent.
func Scale(raw float64, mode ElectricalMode, function FunctionCode) (float64, bool) {
	switch mode {
	case ModeVoltage:
		return raw / voltageDivisor, true
	case ModeCurrent:
		if function == FunctionDual {
			return raw*dualCurrentGain + dualCurrentOffset, true
		}
		return clamp(raw*singleCurrentGain+singleCurrentOffset, currentMin, currentMax), true
	default:
		return 0, false
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
