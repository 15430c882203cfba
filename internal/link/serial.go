package link

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"pam-dwin-bridge/internal/config"
	bridgeerrors "pam-dwin-bridge/internal/errors"
	"pam-dwin-bridge/internal/logger"

	"go.bug.st/serial"
)

const readBufferSize = 1024

// port is the subset of serial.Port the link relies on
type port interface {
	io.ReadWriteCloser
	ResetInputBuffer() error
	Drain() error
	SetReadTimeout(t time.Duration) error
}

type portOpener func(name string, mode *serial.Mode) (port, error)

func openSerialPort(name string, mode *serial.Mode) (port, error) {
	return serial.Open(name, mode)
}

// SerialLink is a Link over a local serial device
type SerialLink struct {
	settings config.LinkSettings
	open     portOpener

	mu     sync.Mutex
	port   port
	opened bool // at least one successful open
	hooks  []OpenHook
}

// NewSerialLink creates a closed link; call Open before use
func NewSerialLink(settings config.LinkSettings) *SerialLink {
	return &SerialLink{
		settings: settings,
		open:     openSerialPort,
	}
}

// Name returns the configured link name
func (l *SerialLink) Name() string {
	return l.settings.Name
}

// OnOpen registers a hook called after each successful open
func (l *SerialLink) OnOpen(hook OpenHook) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.hooks = append(l.hooks, hook)
}

// Open opens the port, retrying every reconnect delay until it succeeds or ctx ends
func (l *SerialLink) Open(ctx context.Context) error {
	mode := &serial.Mode{
		BaudRate: l.settings.BaudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}

	var p port
	attempt := 1
	for {
		var err error
		p, err = l.open(l.settings.Port, mode)
		if err == nil {
			if err = p.SetReadTimeout(l.settings.ReadTimeout); err != nil {
				_ = p.Close()
			}
		}
		if err == nil {
			break
		}

		if attempt == 1 {
			logger.LogWarn("⏳ Waiting for %s on %s: %v", l.settings.Name, l.settings.Port, err)
		} else {
			logger.LogDebug("⏳ %s still unavailable (attempt %d): %v", l.settings.Name, attempt, err)
		}

		select {
		case <-ctx.Done():
			return bridgeerrors.NewLinkError("open", ctx.Err(), l.settings.Name, l.settings.Port)
		case <-time.After(l.settings.ReconnectDelay):
			attempt++
		}
	}

	if l.settings.OpenSettle > 0 {
		select {
		case <-ctx.Done():
		case <-time.After(l.settings.OpenSettle):
		}
	}

	l.mu.Lock()
	l.port = p
	reopen := l.opened
	l.opened = true
	hooks := append([]OpenHook(nil), l.hooks...)
	l.mu.Unlock()

	logger.LogInfo("✅ %s connected on %s (%d baud, attempt %d)", l.settings.Name, l.settings.Port, l.settings.BaudRate, attempt)
	for _, hook := range hooks {
		hook(l.settings.Name, reopen)
	}
	return nil
}

// Reopen closes the port, ignoring close errors, and opens it again
func (l *SerialLink) Reopen(ctx context.Context) error {
	logger.LogWarn("🔄 Reopening %s on %s", l.settings.Name, l.settings.Port)
	_ = l.Close()
	return l.Open(ctx)
}

// Close releases the port
func (l *SerialLink) Close() error {
	l.mu.Lock()
	p := l.port
	l.port = nil
	l.mu.Unlock()

	if p == nil {
		return nil
	}
	return p.Close()
}

func (l *SerialLink) current() (port, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.port == nil {
		return nil, bridgeerrors.NewLinkError("use", ErrNotOpen, l.settings.Name, l.settings.Port)
	}
	return l.port, nil
}

// Write sends raw bytes
func (l *SerialLink) Write(b []byte) (int, error) {
	p, err := l.current()
	if err != nil {
		return 0, err
	}
	n, err := p.Write(b)
	if err != nil {
		return n, bridgeerrors.NewLinkError("write", err, l.settings.Name, l.settings.Port)
	}
	if n != len(b) {
		return n, bridgeerrors.NewLinkError("write", fmt.Errorf("short write: %d of %d bytes", n, len(b)), l.settings.Name, l.settings.Port)
	}
	return n, nil
}

// ReadAvailable performs one read bounded by the port read timeout
func (l *SerialLink) ReadAvailable() ([]byte, error) {
	p, err := l.current()
	if err != nil {
		return nil, err
	}
	buf := make([]byte, readBufferSize)
	n, err := p.Read(buf)
	if err != nil {
		return nil, bridgeerrors.NewLinkError("read", err, l.settings.Name, l.settings.Port)
	}
	return buf[:n], nil
}

// ResetInput discards buffered input
func (l *SerialLink) ResetInput() error {
	p, err := l.current()
	if err != nil {
		return err
	}
	if err := p.ResetInputBuffer(); err != nil {
		return bridgeerrors.NewLinkError("reset input", err, l.settings.Name, l.settings.Port)
	}
	return nil
}

// Flush waits until pending output has been transmitted
func (l *SerialLink) Flush() error {
	p, err := l.current()
	if err != nil {
		return err
	}
	if err := p.Drain(); err != nil {
		return bridgeerrors.NewLinkError("flush", err, l.settings.Name, l.settings.Port)
	}
	return nil
}
