package errors

import (
	"fmt"
)

// ErrorSeverity defines the severity level of an error
type ErrorSeverity int

const (
	SeverityInfo ErrorSeverity = iota
	SeverityWarning
	SeverityError
	SeverityCritical
)

// Diagnostic codes published alongside errors
const (
	CodeOK         = 0
	CodeConfig     = 1
	CodeLink       = 2
	CodeInstrument = 3
	CodeMQTT       = 4
	CodeValidation = 5
	CodeDisplay    = 6
	CodeGeneric    = 99
)

// String returns the string representation of the severity
func (s ErrorSeverity) String() string {
	switch s {
	case SeverityInfo:
		return "INFO"
	case SeverityWarning:
		return "WARNING"
	case SeverityError:
		return "ERROR"
	case SeverityCritical:
		return "CRITICAL"
	default:
		return "UNKNOWN"
	}
}

// BridgeError is the base error type for all bridge errors
type BridgeError struct {
	Op       string        // Operation that failed
	Err      error         // Underlying error
	Severity ErrorSeverity // Error severity
	Code     int           // Diagnostic code
}

// Error implements the error interface
func (e *BridgeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Severity, e.Op, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Severity, e.Op)
}

// Unwrap returns the underlying error
func (e *BridgeError) Unwrap() error {
	return e.Err
}

// LinkError is a fault on one of the serial links
type LinkError struct {
	BridgeError
	Link string // "instrument" or "display"
	Port string
}

// NewLinkError creates a new link error
func NewLinkError(op string, err error, link, port string) *LinkError {
	return &LinkError{
		BridgeError: BridgeError{
			Op:       op,
			Err:      err,
			Severity: SeverityError,
			Code:     CodeLink,
		},
		Link: link,
		Port: port,
	}
}

func (e *LinkError) Error() string {
	if e.Port != "" {
		return fmt.Sprintf("[%s] Link %s (%s): %s: %v", e.Severity, e.Link, e.Port, e.Op, e.Err)
	}
	return fmt.Sprintf("[%s] Link %s: %s: %v", e.Severity, e.Link, e.Op, e.Err)
}

// InstrumentError is a failed command exchange with the instrument
type InstrumentError struct {
	BridgeError
	Command string
}

// NewInstrumentError creates a new instrument error
func NewInstrumentError(command string, err error) *InstrumentError {
	return &InstrumentError{
		BridgeError: BridgeError{
			Op:       "command",
			Err:      err,
			Severity: SeverityWarning,
			Code:     CodeInstrument,
		},
		Command: command,
	}
}

func (e *InstrumentError) Error() string {
	return fmt.Sprintf("[%s] Instrument command %q: %v", e.Severity, e.Command, e.Err)
}

// DisplayError is a failed frame transmission to the display
type DisplayError struct {
	BridgeError
	Register uint16
}

// NewDisplayError creates a new display error
func NewDisplayError(op string, err error, register uint16) *DisplayError {
	return &DisplayError{
		BridgeError: BridgeError{
			Op:       op,
			Err:      err,
			Severity: SeverityWarning,
			Code:     CodeDisplay,
		},
		Register: register,
	}
}

func (e *DisplayError) Error() string {
	return fmt.Sprintf("[%s] Display register 0x%04X: %s: %v", e.Severity, e.Register, e.Op, e.Err)
}

// MQTTError represents errors from MQTT operations
type MQTTError struct {
	BridgeError
	Broker string
	Topic  string
	QoS    byte
}

// NewMQTTError creates a new MQTT error
func NewMQTTError(op string, err error, broker string) *MQTTError {
	return &MQTTError{
		BridgeError: BridgeError{
			Op:       op,
			Err:      err,
			Severity: SeverityError,
			Code:     CodeMQTT,
		},
		Broker: broker,
	}
}

func (e *MQTTError) Error() string {
	if e.Topic != "" {
		return fmt.Sprintf("[%s] MQTT broker '%s' (topic: %s): %s: %v",
			e.Severity, e.Broker, e.Topic, e.Op, e.Err)
	}
	return fmt.Sprintf("[%s] MQTT broker '%s': %s: %v",
		e.Severity, e.Broker, e.Op, e.Err)
}

// ConfigError represents configuration errors
type ConfigError struct {
	BridgeError
	Field string
}

// NewConfigError creates a new configuration error
func NewConfigError(op string, err error, field string) *ConfigError {
	return &ConfigError{
		BridgeError: BridgeError{
			Op:       op,
			Err:      err,
			Severity: SeverityCritical,
			Code:     CodeConfig,
		},
		Field: field,
	}
}

func (e *ConfigError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("[%s] Configuration field '%s': %s: %v",
			e.Severity, e.Field, e.Op, e.Err)
	}
	return fmt.Sprintf("[%s] Configuration: %s: %v", e.Severity, e.Op, e.Err)
}

// ValidationError represents a field that failed validation
type ValidationError struct {
	BridgeError
	Field    string
	Expected interface{}
	Actual   interface{}
}

// NewValidationError creates a new validation error
func NewValidationError(field string, expected, actual interface{}) *ValidationError {
	return &ValidationError{
		BridgeError: BridgeError{
			Op:       "validation",
			Err:      fmt.Errorf("validation failed"),
			Severity: SeverityWarning,
			Code:     CodeValidation,
		},
		Field:    field,
		Expected: expected,
		Actual:   actual,
	}
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("[%s] Field '%s': expected %v, got %v",
		e.Severity, e.Field, e.Expected, e.Actual)
}
