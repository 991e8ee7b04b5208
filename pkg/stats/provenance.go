// Copyright 2024-2026 Aiku AI

package stats

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/aiku/fixupx-relay/pkg/relay"
)

// ProvenanceTable is a relay.ProvenanceTracker backed by the reposts table,
// so delete requests keep working across restarts.
type ProvenanceTable struct {
	store *Store
}

var _ relay.ProvenanceTracker = (*ProvenanceTable)(nil)

// Provenance returns the store's persistent provenance tracker.
func (s *Store) Provenance() *ProvenanceTable {
	return &ProvenanceTable{store: s}
}

func (p *ProvenanceTable) Record(ctx context.Context, repostID, authorID string) error {
	_, err := p.store.db.ExecContext(ctx, `
		INSERT INTO reposts (repost_id, author_id, created_at) VALUES (?, ?, ?)
		ON CONFLICT (repost_id) DO UPDATE SET author_id = excluded.author_id
	`, repostID, authorID, p.store.now().UnixMilli())
	if err != nil {
		return fmt.Errorf("failed to record repost %s: %w", repostID, err)
	}
	return nil
}

func (p *ProvenanceTable) OwnerOf(ctx context.Context, repostID string) (string, bool, error) {
	var owner string
	err := p.store.db.QueryRowContext(ctx,
		"SELECT author_id FROM reposts WHERE repost_id = ?", repostID,
	).Scan(&owner)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	} else if err != nil {
		return "", false, fmt.Errorf("failed to look up repost %s: %w", repostID, err)
	}
	return owner, true, nil
}

func (p *ProvenanceTable) Forget(ctx context.Context, repostID string) error {
	if _, err := p.store.db.ExecContext(ctx, "DELETE FROM reposts WHERE repost_id = ?", repostID); err != nil {
		return fmt.Errorf("failed to forget repost %s: %w", repostID, err)
	}
	return nil
}

// Count returns the number of tracked reposts.
func (p *ProvenanceTable) Count(ctx context.Context) (int, error) {
	var n int
	if err := p.store.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM reposts").Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count reposts: %w", err)
	}
	return n, nil
}
