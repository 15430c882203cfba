package errors

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"

	"pam-dwin-bridge/internal/logger"
)

// DefaultPublishTimeout bounds a single diagnostic publish
const DefaultPublishTimeout = 2 * time.Second

// DiagnosticPublisher receives a diagnostic for every handled error
type DiagnosticPublisher interface {
	PublishDiagnostic(ctx context.Context, code int, message string) error
}

// ErrorHandler logs errors by severity and forwards them as diagnostics.
// The publisher is optional; a nil publisher only logs.
// Publishing runs on the caller's goroutine and gives up after the publish
// timeout, so a stalled broker cannot hold the polling loop.
type ErrorHandler struct {
	diagnosticPublisher DiagnosticPublisher
	publishTimeout      time.Duration
}

// NewErrorHandler creates a new error handler
func NewErrorHandler(publisher DiagnosticPublisher) *ErrorHandler {
	return &ErrorHandler{
		diagnosticPublisher: publisher,
		publishTimeout:      DefaultPublishTimeout,
	}
}

// SetPublishTimeout changes the bound on a single diagnostic publish
func (h *ErrorHandler) SetPublishTimeout(timeout time.Duration) {
	if timeout > 0 {
		h.publishTimeout = timeout
	}
}

// SetPublisher attaches a diagnostic publisher after construction
func (h *ErrorHandler) SetPublisher(publisher DiagnosticPublisher) {
	h.diagnosticPublisher = publisher
}

// Handle processes an error with appropriate logging and diagnostics
func (h *ErrorHandler) Handle(ctx context.Context, err error) {
	if err == nil {
		return
	}

	switch e := err.(type) {
	case *LinkError:
		h.logBySeverity("Link", e.Severity, e)
		h.publish(ctx, e.Code, fmt.Sprintf("Link %s: %s", e.Link, e.Op))
	case *InstrumentError:
		h.logBySeverity("Instrument", e.Severity, e)
		h.publish(ctx, e.Code, fmt.Sprintf("Instrument command %q failed", e.Command))
	case *DisplayError:
		h.logBySeverity("Display", e.Severity, e)
		h.publish(ctx, e.Code, fmt.Sprintf("Display register 0x%04X: %s", e.Register, e.Op))
	case *MQTTError:
		h.logBySeverity("MQTT", e.Severity, e)
		// The broker is the diagnostic channel; do not loop back into it.
	case *ConfigError:
		logger.LogError("🔴 CRITICAL Configuration Error: %s", e.Error())
		h.publish(ctx, e.Code, fmt.Sprintf("Config field '%s': %s", e.Field, e.Op))
	case *ValidationError:
		logger.LogWarn("Validation Error: %s", e.Error())
		h.publish(ctx, e.Code, fmt.Sprintf("Validation failed for '%s'", e.Field))
	case *BridgeError:
		h.logBySeverity("Bridge", e.Severity, e)
		h.publish(ctx, e.Code, e.Op)
	default:
		logger.LogError("Untyped Error: %v", err)
		h.publish(ctx, CodeGeneric, err.Error())
	}
}

func (h *ErrorHandler) logBySeverity(kind string, severity ErrorSeverity, err error) {
	switch severity {
	case SeverityCritical:
		logger.LogError("🔴 CRITICAL %s Error: %s", kind, err.Error())
	case SeverityError:
		logger.LogError("%s Error: %s", kind, err.Error())
	case SeverityWarning:
		logger.LogWarn("%s Warning: %s", kind, err.Error())
	default:
		logger.LogInfo("%s Info: %s", kind, err.Error())
	}
}

func (h *ErrorHandler) publish(ctx context.Context, code int, message string) {
	if h.diagnosticPublisher == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, h.publishTimeout)
	defer cancel()
	if err := h.diagnosticPublisher.PublishDiagnostic(ctx, code, message); err != nil {
		logger.LogDebug("Failed to publish diagnostic %d: %v", code, err)
	}
}

// IsRecoverable returns false for configuration errors and anything critical
func IsRecoverable(err error) bool {
	if err == nil {
		return true
	}

	var configErr *ConfigError
	if stderrors.As(err, &configErr) {
		return false
	}
	if severity, ok := severityOf(err); ok {
		return severity != SeverityCritical
	}
	return true
}

// GetDiagnosticCode extracts the diagnostic code from an error
func GetDiagnosticCode(err error) int {
	if err == nil {
		return CodeOK
	}

	var (
		linkErr       *LinkError
		instrumentErr *InstrumentError
		displayErr    *DisplayError
		mqttErr       *MQTTError
		configErr     *ConfigError
		validationErr *ValidationError
		bridgeErr     *BridgeError
	)
	switch {
	case stderrors.As(err, &linkErr):
		return linkErr.Code
	case stderrors.As(err, &instrumentErr):
		return instrumentErr.Code
	case stderrors.As(err, &displayErr):
		return displayErr.Code
	case stderrors.As(err, &mqttErr):
		return mqttErr.Code
	case stderrors.As(err, &configErr):
		return configErr.Code
	case stderrors.As(err, &validationErr):
		return validationErr.Code
	case stderrors.As(err, &bridgeErr):
		return bridgeErr.Code
	default:
		return CodeGeneric
	}
}

func severityOf(err error) (ErrorSeverity, bool) {
	var (
		linkErr       *LinkError
		instrumentErr *InstrumentError
		displayErr    *DisplayError
		mqttErr       *MQTTError
		bridgeErr     *BridgeError
	)
	switch {
	case stderrors.As(err, &linkErr):
		return linkErr.Severity, true
	case stderrors.As(err, &instrumentErr):
		return instrumentErr.Severity, true
	case stderrors.As(err, &displayErr):
		return displayErr.Severity, true
	case stderrors.As(err, &mqttErr):
		return mqttErr.Severity, true
	case stderrors.As(err, &bridgeErr):
		return bridgeErr.Severity, true
	}
	return 0, false
}
