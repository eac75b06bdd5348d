package ledger

import (
	"slices"
	"sync"

	"financehub/internal/core"
)

// AuditLog is the in-memory, append-only trail of successful mutations.
type AuditLog struct {
	mu      sync.RWMutex
	entries []core.AuditEntry
}

func NewAuditLog() *AuditLog { return &AuditLog{} }

func (a *AuditLog) Append(entries ...core.AuditEntry) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.entries = append(a.entries, entries...)
}

// Load replaces the trail with entries read back from persistence.
func (a *AuditLog) Load(entries []core.AuditEntry) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.entries = slices.Clone(entries)
}

// Entries returns a copy of the trail, oldest first.
func (a *AuditLog) Entries() []core.AuditEntry {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return slices.Clone(a.entries)
}

func (a *AuditLog) Len() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.entries)
}

// ForEntity returns the entries about one record, oldest first.
func (a *AuditLog) ForEntity(kind core.Kind, id string) []core.AuditEntry {
	a.mu.RLock()
	defer a.mu.RUnlock()
	var out []core.AuditEntry
	for _, e := range a.entries {
		if e.Entity == kind && e.EntityID == id {
			out = append(out, e)
		}
	}
	return out
}

// Group returns the entries written by one composite mutation.
func (a *AuditLog) Group(groupID string) []core.AuditEntry {
	a.mu.RLock()
	defer a.mu.RUnlock()
	var out []core.AuditEntry
	for _, e := range a.entries {
		if groupID != "" && e.GroupID == groupID {
			out = append(out, e)
		}
	}
	return out
}
