// Copyright 2024-2026 Aiku AI

// Package stats persists relay usage statistics in SQLite.
package stats

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"

	"github.com/aiku/fixupx-relay/pkg/relay"
)

// Store records users, channels and conversions. It implements
// relay.Stats and relay.StatsReporter.
type Store struct {
	db      *sql.DB
	log     zerolog.Logger
	version uint

	now func() time.Time
}

var (
	_ relay.Stats         = (*Store)(nil)
	_ relay.StatsReporter = (*Store)(nil)
)

// Open opens (creating if needed) the database at path and migrates it to
// the latest schema. Use ":memory:" for a throwaway database.
func Open(ctx context.Context, path string, log zerolog.Logger) (*Store, error) {
	dsn := "file:" + path + "?_pragma=busy_timeout(5000)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// SQLite allows one writer; a single connection also keeps an in-memory
	// database alive for the lifetime of the store.
	db.SetMaxOpenConns(1)

	if err = db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	version, err := runMigrations(db)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	log = log.With().Str("component", "stats").Logger()
	log.Debug().Str("path", path).Uint("schema_version", version).Msg("Opened stats database")
	return &Store{db: db, log: log, version: version, now: time.Now}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// SchemaVersion returns the migration version the database is at.
func (s *Store) SchemaVersion() uint {
	return s.version
}

// Ping checks that the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) RecordUserSeen(ctx context.Context, user relay.User) error {
	now := s.now().UnixMilli()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (user_id, username, first_name, last_name, first_seen, last_active)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (user_id) DO UPDATE SET
			username = excluded.username,
			first_name = excluded.first_name,
			last_name = excluded.last_name,
			last_active = excluded.last_active
	`, user.ID, user.Username, user.FirstName, user.LastName, now, now)
	if err != nil {
		return fmt.Errorf("failed to record user %s: %w", user.ID, err)
	}
	return nil
}

func (s *Store) RecordChatSeen(ctx context.Context, chat relay.Chat) error {
	now := s.now().UnixMilli()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO chats (chat_id, chat_title, chat_type, first_seen, last_active)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (chat_id) DO UPDATE SET
			chat_title = excluded.chat_title,
			chat_type = excluded.chat_type,
			last_active = excluded.last_active
	`, chat.ID, chat.Title, chat.Type, now, now)
	if err != nil {
		return fmt.Errorf("failed to record chat %s: %w", chat.ID, err)
	}
	return nil
}

func (s *Store) RecordConversion(ctx context.Context, evt relay.ConversionEvent) error {
	ts := evt.Timestamp
	if ts.IsZero() {
		ts = s.now()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO conversions (user_id, chat_id, original_url, converted_url, converted_at)
		VALUES (?, ?, ?, ?, ?)
	`, evt.AuthorID, evt.ChatID, evt.OriginalURL, evt.NormalizedURL, ts.UnixMilli())
	if err != nil {
		return fmt.Errorf("failed to record conversion: %w", err)
	}
	return nil
}
