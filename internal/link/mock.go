package link

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// MockLink is a scripted Link for tests.
//
// Every write is recorded. If the trimmed written text matches a key in
// Replies, the reply is queued for the next ReadAvailable; otherwise the
// Responder, when set, may produce a reply from the raw bytes.
// ReadAvailable returns one queued chunk per call.
type MockLink struct {
	mu sync.Mutex

	name      string
	Replies   map[string]string
	Responder func(written []byte) []byte

	pending [][]byte
	writes  [][]byte
	hooks   []OpenHook

	// FailWrites makes the next n writes fail
	FailWrites int
	// Down makes every operation fail until Reopen is called
	Down bool

	Resets  int
	Flushes int
	Reopens int
	Closes  int
}

// NewMockLink creates a mock link with an empty reply table
func NewMockLink(name string) *MockLink {
	return &MockLink{
		name:    name,
		Replies: make(map[string]string),
	}
}

func (m *MockLink) Name() string {
	return m.name
}

// OnOpen registers a hook run by Reopen
func (m *MockLink) OnOpen(hook OpenHook) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hooks = append(m.hooks, hook)
}

// SetReply sets the reply for a command
func (m *MockLink) SetReply(command, reply string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Replies[command] = reply
}

// Queue appends a chunk to the pending input
func (m *MockLink) Queue(chunk []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pending = append(m.pending, append([]byte(nil), chunk...))
}

// SetDown simulates the port disappearing or coming back
func (m *MockLink) SetDown(down bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Down = down
}

func (m *MockLink) Write(p []byte) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.Down {
		return 0, ErrNotOpen
	}
	if m.FailWrites > 0 {
		m.FailWrites--
		return 0, fmt.Errorf("mock write failure on %s", m.name)
	}

	data := append([]byte(nil), p...)
	m.writes = append(m.writes, data)

	if reply, ok := m.Replies[strings.TrimSpace(string(data))]; ok {
		m.pending = append(m.pending, []byte(reply))
	} else if m.Responder != nil {
		if reply := m.Responder(data); reply != nil {
			m.pending = append(m.pending, reply)
		}
	}
	return len(p), nil
}

func (m *MockLink) ReadAvailable() ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.Down {
		return nil, ErrNotOpen
	}
	if len(m.pending) == 0 {
		return []byte{}, nil
	}
	chunk := m.pending[0]
	m.pending = m.pending[1:]
	return chunk, nil
}

func (m *MockLink) ResetInput() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.Down {
		return ErrNotOpen
	}
	m.Resets++
	m.pending = nil
	return nil
}

func (m *MockLink) Flush() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.Down {
		return ErrNotOpen
	}
	m.Flushes++
	return nil
}

// Reopen brings the link back up and runs the open hooks
func (m *MockLink) Reopen(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	m.Reopens++
	m.Down = false
	m.pending = nil
	hooks := append([]OpenHook(nil), m.hooks...)
	m.mu.Unlock()

	for _, hook := range hooks {
		hook(m.name, true)
	}
	return nil
}

func (m *MockLink) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Closes++
	return nil
}

// Frames returns a copy of every successful write
func (m *MockLink) Frames() [][]byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([][]byte, len(m.writes))
	for i, w := range m.writes {
		out[i] = append([]byte(nil), w...)
	}
	return out
}

// Commands returns every successful write as trimmed text
func (m *MockLink) Commands() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.writes))
	for i, w := range m.writes {
		out[i] = strings.TrimSpace(string(w))
	}
	return out
}

// ClearWrites forgets the recorded writes
func (m *MockLink) ClearWrites() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.writes = nil
}

var _ Link = (*MockLink)(nil)
var _ Link = (*SerialLink)(nil)
