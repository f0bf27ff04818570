// Package strtable implements a host string-interning service: byte
// sequences are interned into opaque, comparable Handles so that handle
// equality can serve as a string-equality test, rather than repeatedly
// comparing byte slices. The compiler core does not use it; it compares
// names and string constants as Go strings.
package strtable

import "sync"

// Handle is an opaque reference to an interned string. Two Handles compare
// equal if and only if they were produced by interning equal byte
// sequences.
type Handle struct {
	table *Table
	index int
}

// String returns the interned string denoted by h.
func (h Handle) String() string {
	if h.table == nil {
		return ""
	}
	return h.table.strings[h.index]
}

// Table is a process-local (or per-compilation) interning table. The zero
// value is ready to use. A Table is safe for concurrent use, matching the
// host contract that interning may be shared across compilations.
type Table struct {
	mu      sync.RWMutex
	index   map[string]int
	strings []string
}

// Intern returns the Handle for s, interning it on first use. Interned
// strings live at least as long as the Table itself.
func (t *Table) Intern(s string) Handle {
	t.mu.RLock()
	if i, ok := t.index[s]; ok {
		t.mu.RUnlock()
		return Handle{table: t, index: i}
	}
	t.mu.RUnlock()

	t.mu.Lock()
	defer t.mu.Unlock()
	if i, ok := t.index[s]; ok {
		return Handle{table: t, index: i}
	}
	if t.index == nil {
		t.index = make(map[string]int)
	}
	i := len(t.strings)
	t.strings = append(t.strings, s)
	t.index[s] = i
	return Handle{table: t, index: i}
}
