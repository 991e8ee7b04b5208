// Copyright 2024-2026 Aiku AI

package stats

import (
	"context"
	"fmt"

	"github.com/aiku/fixupx-relay/pkg/relay"
)

// Summary returns totals and the limit most active channels and users,
// ordered by conversion count. Ties are broken by ID.
func (s *Store) Summary(ctx context.Context, limit int) (relay.StatsSummary, error) {
	var summary relay.StatsSummary
	totals := []struct {
		query string
		dest  *int64
	}{
		{"SELECT COUNT(*) FROM chats", &summary.TotalChats},
		{"SELECT COUNT(*) FROM users", &summary.TotalUsers},
		{"SELECT COUNT(*) FROM conversions", &summary.TotalConversions},
	}
	for _, total := range totals {
		if err := s.db.QueryRowContext(ctx, total.query).Scan(total.dest); err != nil {
			return relay.StatsSummary{}, fmt.Errorf("failed to count totals: %w", err)
		}
	}
	if limit <= 0 {
		return summary, nil
	}

	chats, err := s.topChats(ctx, limit)
	if err != nil {
		return relay.StatsSummary{}, err
	}
	users, err := s.topUsers(ctx, limit)
	if err != nil {
		return relay.StatsSummary{}, err
	}
	summary.TopChats, summary.TopUsers = chats, users
	return summary, nil
}

func (s *Store) topChats(ctx context.Context, limit int) ([]relay.ChatCount, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT cv.chat_id, COALESCE(c.chat_title, ''), COUNT(*) AS n
		FROM conversions cv
		LEFT JOIN chats c ON c.chat_id = cv.chat_id
		GROUP BY cv.chat_id
		ORDER BY n DESC, cv.chat_id
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query top chats: %w", err)
	}
	defer rows.Close()

	var out []relay.ChatCount
	for rows.Next() {
		var row relay.ChatCount
		if err = rows.Scan(&row.ChatID, &row.Title, &row.Conversions); err != nil {
			return nil, fmt.Errorf("failed to scan top chat: %w", err)
		}
		out = append(out, row)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read top chats: %w", err)
	}
	return out, nil
}

func (s *Store) topUsers(ctx context.Context, limit int) ([]relay.UserCount, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT cv.user_id, COALESCE(u.username, ''), COUNT(*) AS n
		FROM conversions cv
		LEFT JOIN users u ON u.user_id = cv.user_id
		GROUP BY cv.user_id
		ORDER BY n DESC, cv.user_id
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query top users: %w", err)
	}
	defer rows.Close()

	var out []relay.UserCount
	for rows.Next() {
		var row relay.UserCount
		if err = rows.Scan(&row.UserID, &row.Username, &row.Conversions); err != nil {
			return nil, fmt.Errorf("failed to scan top user: %w", err)
		}
		out = append(out, row)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read top users: %w", err)
	}
	return out, nil
}
