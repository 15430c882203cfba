package display

import "sync"

// ChangeCache remembers the last integer sent to each register
type ChangeCache struct {
	mu   sync.Mutex
	last map[uint16]int16
}

// NewChangeCache creates an empty cache
func NewChangeCache() *ChangeCache {
	return &ChangeCache{last: make(map[uint16]int16)}
}

// ShouldSend reports whether value differs from the last one recorded for reg
// (or reg was never written) and records value when it does. The caller
// transmits on true; a failed transmission does not undo the record.
func (c *ChangeCache) ShouldSend(reg uint16, value int16) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if prev, ok := c.last[reg]; ok && prev == value {
		return false
	}
	c.last[reg] = value
	return true
}

// Last returns the cached value for reg
func (c *ChangeCache) Last(reg uint16) (int16, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.last[reg]
	return v, ok
}

// Reset forgets every register, forcing a full resend
func (c *ChangeCache) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.last = make(map[uint16]int16)
}

// Len returns the number of registers written so far
func (c *ChangeCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.last)
}
