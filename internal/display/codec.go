// Package display encodes and writes frames for the HMI display.
package display

import (
	"encoding/binary"
	"math"

	"pam-dwin-bridge/internal/scaling"
)

// Frame constants
const (
	headerHi byte = 0x5A
	headerLo byte = 0xA5

	OpWrite byte = 0x82
	OpRead  byte = 0x83

	pageMarkerHi byte = 0x5A
	pageMarkerLo byte = 0x01
)

// Display register ids
const (
	RegPrimary   uint16 = 0x5500
	RegSecondary uint16 = 0x5600
	RegCurrentA  uint16 = 0x5700
	RegCurrentB  uint16 = 0x5800
	RegAuxiliary uint16 = 0x5900
	RegMode      uint16 = 0x5000
	RegSelector  uint16 = 0x5100
	RegPage      uint16 = 0x0084
)

// Mode register values
const (
	ModeValueVoltage int16 = 0
	ModeValueCurrent int16 = 1
)

// Quantize converts a physical value to the ×10 fixed-point wire integer.
// Halves round to even; out-of-range values are clamped.
func Quantize(v float64) int16 {
	q := math.RoundToEven(v * 10)
	if q > math.MaxInt16 {
		return math.MaxInt16
	}
	if q < math.MinInt16 {
		return math.MinInt16
	}
	return int16(q)
}

// EncodeValue builds a write frame carrying an already quantized value
func EncodeValue(reg uint16, value int16) []byte {
	frame := []byte{headerHi, headerLo, 0x05, OpWrite, 0, 0, 0, 0}
	binary.BigEndian.PutUint16(frame[4:6], reg)
	binary.BigEndian.PutUint16(frame[6:8], uint16(value))
	return frame
}

// ModeValue maps an electrical mode to its display value; anything but voltage reads as current
func ModeValue(mode scaling.ElectricalMode) int16 {
	if mode == scaling.ModeVoltage {
		return ModeValueVoltage
	}
	return ModeValueCurrent
}

// EncodeMode builds the mode register frame
func EncodeMode(mode scaling.ElectricalMode) []byte {
	return EncodeValue(RegMode, ModeValue(mode))
}

// EncodePageSwitch builds the frame that selects a display page
func EncodePageSwitch(page uint16) []byte {
	frame := []byte{headerHi, headerLo, 0x07, OpWrite, 0, 0, pageMarkerHi, pageMarkerLo, 0, 0}
	binary.BigEndian.PutUint16(frame[4:6], RegPage)
	binary.BigEndian.PutUint16(frame[8:10], page)
	return frame
}

// EncodeSelectorRead builds the read request for the selector register
func EncodeSelectorRead() []byte {
	frame := []byte{headerHi, headerLo, 0x03, OpRead, 0, 0}
	binary.BigEndian.PutUint16(frame[4:6], RegSelector)
	return frame
}
