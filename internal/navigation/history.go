package navigation

import "sync"

// History is the platform history stack the controller writes to.
type History interface {
	// Push appends a new entry, discarding any forward entries.
	Push(state Location, url string)
	// Replace attaches state to the current entry without adding one.
	Replace(state Location, url string)
}

type historyEntry struct {
	state *Location
	url   string
}

// MemoryHistory is an append-only entry log with a cursor, behaving like a
// browser tab's session history.
type MemoryHistory struct {
	mu      sync.Mutex
	entries []historyEntry
	cursor  int
}

// NewMemoryHistory starts a history at url with no state attached, the way a
// freshly loaded page does.
func NewMemoryHistory(url string) *MemoryHistory {
	return &MemoryHistory{entries: []historyEntry{{url: url}}}
}

func (h *MemoryHistory) Push(state Location, url string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	s := state
	h.entries = append(h.entries[:h.cursor+1], historyEntry{state: &s, url: url})
	h.cursor = len(h.entries) - 1
}

func (h *MemoryHistory) Replace(state Location, url string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	s := state
	h.entries[h.cursor] = historyEntry{state: &s, url: url}
}

// Back moves the cursor one entry back and returns that entry's state. It
// reports false when already at the first entry.
func (h *MemoryHistory) Back() (*Location, bool) {
	return h.step(-1)
}

// Forward moves the cursor one entry forward.
func (h *MemoryHistory) Forward() (*Location, bool) {
	return h.step(1)
}

func (h *MemoryHistory) step(delta int) (*Location, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	next := h.cursor + delta
	if next < 0 || next >= len(h.entries) {
		return nil, false
	}
	h.cursor = next
	return h.entries[next].state, true
}

// URL returns the address of the current entry.
func (h *MemoryHistory) URL() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.entries[h.cursor].url
}

// Len returns the number of entries.
func (h *MemoryHistory) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.entries)
}
