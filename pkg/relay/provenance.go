// Copyright 2024-2026 Aiku AI

package relay

import (
	"context"

	"go.mau.fi/util/exsync"
)

// ProvenanceTracker remembers which user a repost was made on behalf of.
// Every operation is atomic with respect to the others.
type ProvenanceTracker interface {
	Record(ctx context.Context, repostID, authorID string) error
	// OwnerOf returns the recorded author, or false if the repost is unknown.
	OwnerOf(ctx context.Context, repostID string) (string, bool, error)
	Forget(ctx context.Context, repostID string) error
}

// MemoryTracker is a process-local ProvenanceTracker. Entries are never
// evicted and are lost on restart.
type MemoryTracker struct {
	owners *exsync.Map[string, string]
}

var _ ProvenanceTracker = (*MemoryTracker)(nil)

func NewMemoryTracker() *MemoryTracker {
	return &MemoryTracker{owners: exsync.NewMap[string, string]()}
}

func (t *MemoryTracker) Record(_ context.Context, repostID, authorID string) error {
	t.owners.Set(repostID, authorID)
	return nil
}

func (t *MemoryTracker) OwnerOf(_ context.Context, repostID string) (string, bool, error) {
	owner, ok := t.owners.Get(repostID)
	return owner, ok, nil
}

func (t *MemoryTracker) Forget(_ context.Context, repostID string) error {
	t.owners.Delete(repostID)
	return nil
}

// Len returns the number of tracked reposts.
func (t *MemoryTracker) Len() int {
	return t.owners.Len()
}

// Count returns the number of tracked reposts.
func (t *MemoryTracker) Count(context.Context) (int, error) {
	return t.owners.Len(), nil
}
