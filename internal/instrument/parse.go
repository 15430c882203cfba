package instrument

import (
	"math"
	"strconv"
	"strings"

	"pam-dwin-bridge/internal/scaling"
)

// OperatingMode is the global instrument configuration
type OperatingMode int

const (
	OperatingUnknown OperatingMode = iota
	OperatingStandard
	OperatingExpanded
)

func (m OperatingMode) String() string {
	switch m {
	case OperatingStandard:
		return "STD"
	case OperatingExpanded:
		return "EXP"
	default:
		return "None"
	}
}

const promptMarker = ">"

// ExtractNumber returns the first whitespace-delimited token that parses as a
// finite float, ignoring prompt markers.
func ExtractNumber(resp string) (float64, bool) {
	for _, token := range strings.Fields(strings.ReplaceAll(resp, promptMarker, "")) {
		v, err := strconv.ParseFloat(token, 64)
		if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		return v, true
	}
	return 0, false
}

// ExtractElectricalMode looks for the voltage marker first, then the current marker
func ExtractElectricalMode(resp string) scaling.ElectricalMode {
	switch {
	case strings.Contains(resp, "V"):
		return scaling.ModeVoltage
	case strings.Contains(resp, "C"):
		return scaling.ModeCurrent
	default:
		return scaling.ModeUnknown
	}
}

// ExtractOperatingMode matches the STD and EXP markers
func ExtractOperatingMode(resp string) OperatingMode {
	switch {
	case strings.Contains(resp, "STD"):
		return OperatingStandard
	case strings.Contains(resp, "EXP"):
		return OperatingExpanded
	default:
		return OperatingUnknown
	}
}
