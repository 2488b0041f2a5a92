package audit

import (
	"context"
	"sync"

	"parkgate/services/terminal/internal/models"
)

// MaxEntries bounds every feed; older entries fall off the end.
const MaxEntries = 50

// Feed is the recent admin activity shown on the console, newest first.
type Feed interface {
	Append(ctx context.Context, entry models.AuditEntry) error
	Recent(ctx context.Context, n int) ([]models.AuditEntry, error)
	Clear(ctx context.Context) error
}

// MemoryFeed keeps the feed in process memory.
type MemoryFeed struct {
	mu      sync.Mutex
	entries []models.AuditEntry
}

// NewMemoryFeed returns an empty feed.
func NewMemoryFeed() *MemoryFeed {
	return &MemoryFeed{}
}

// Append adds entry at the front and drops the oldest beyond MaxEntries.
func (f *MemoryFeed) Append(_ context.Context, entry models.AuditEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries = append([]models.AuditEntry{entry}, f.entries...)
	if len(f.entries) > MaxEntries {
		f.entries = f.entries[:MaxEntries]
	}
	return nil
}

// Recent returns up to n entries; n <= 0 returns all of them.
func (f *MemoryFeed) Recent(_ context.Context, n int) ([]models.AuditEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if n <= 0 || n > len(f.entries) {
		n = len(f.entries)
	}
	out := make([]models.AuditEntry, n)
	copy(out, f.entries[:n])
	return out, nil
}

// Clear empties the feed.
func (f *MemoryFeed) Clear(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries = nil
	return nil
}
