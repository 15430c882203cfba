// Package telemetry exports the bridge snapshot, status and diagnostics over MQTT.
package telemetry

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"pam-dwin-bridge/internal/config"
	"pam-dwin-bridge/internal/engine"
	"pam-dwin-bridge/internal/scaling"
)

const undefinedField = "None"

// FormatText renders the line format understood by the existing receivers:
// FUNC:<f>,WA:<v>,WB:<v>,IA:<v>,IB:<v>,MODE:<m> followed by a newline.
func FormatText(snap engine.Snapshot) string {
	fields := []string{
		"FUNC:" + formatFunction(snap),
		"WA:" + formatOptional(snap.ValueA),
		"WB:" + formatOptional(snap.ValueB),
		"IA:" + formatOptional(snap.CurrentA),
		"IB:" + formatOptional(snap.CurrentB),
		"MODE:" + formatMode(snap.Mode),
	}
	return strings.Join(fields, ",") + "\n"
}

// jsonSnapshot is the JSON payload; undefined fields are null
type jsonSnapshot struct {
	Function  *int     `json:"func"`
	ValueA    *float64 `json:"wa"`
	ValueB    *float64 `json:"wb"`
	CurrentA  *float64 `json:"ia"`
	CurrentB  *float64 `json:"ib"`
	Mode      *string  `json:"mode"`
	Cycle     uint64   `json:"cycle"`
	Timestamp string   `json:"timestamp"`
}

// FormatJSON renders the snapshot as a JSON object
func FormatJSON(snap engine.Snapshot) ([]byte, error) {
	payload := jsonSnapshot{
		ValueA:    snap.ValueA,
		ValueB:    snap.ValueB,
		CurrentA:  snap.CurrentA,
		CurrentB:  snap.CurrentB,
		Cycle:     snap.Cycle,
		Timestamp: snap.UpdatedAt.UTC().Format(time.RFC3339Nano),
	}
	if snap.Valid {
		fn := int(snap.Function)
		payload.Function = &fn
	}
	if snap.Mode.Known() {
		mode := snap.Mode.String()
		payload.Mode = &mode
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("error marshaling snapshot: %w", err)
	}
	return data, nil
}

// Format renders the snapshot in the configured payload format
func Format(format string, snap engine.Snapshot) ([]byte, error) {
	switch format {
	case config.PayloadJSON:
		return FormatJSON(snap)
	case config.PayloadText, "":
		return []byte(FormatText(snap)), nil
	default:
		return nil, fmt.Errorf("unknown payload format %q", format)
	}
}

func formatFunction(snap engine.Snapshot) string {
	if !snap.Valid {
		return undefinedField
	}
	return strconv.Itoa(int(snap.Function))
}

func formatMode(mode scaling.ElectricalMode) string {
	if !mode.Known() {
		return undefinedField
	}
	return mode.String()
}

// formatOptional keeps a decimal point on whole numbers (50 -> 50.0)
func formatOptional(v *float64) string {
	if v == nil {
		return undefinedField
	}
	s := strconv.FormatFloat(*v, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}
