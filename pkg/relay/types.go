// Copyright 2024-2026 Aiku AI

package relay

import (
	"context"
	"time"
)

// Role is a chat member's privilege level as reported by the transport.
type Role string

const (
	RoleMember        Role = "member"
	RoleAdministrator Role = "administrator"
	RoleCreator       Role = "creator"
)

// CanModerate reports whether the role may delete other members' reposts.
func (r Role) CanModerate() bool {
	return r == RoleAdministrator || r == RoleCreator
}

// ReplyRef points at the message an incoming message replies to.
type ReplyRef struct {
	MessageID   string
	AuthorIsBot bool
}

// IncomingMessage is a chat message as delivered by the transport adapter.
type IncomingMessage struct {
	Text string

	AuthorID          string
	AuthorUsername    string
	AuthorDisplayName string
	AuthorFirstName   string
	AuthorLastName    string
	AuthorIsBot       bool

	ChatID    string
	ChatTitle string
	ChatType  string

	MessageID string
	// ThreadRoot is the root message id when the message is a thread reply.
	ThreadRoot string
	ReplyTo    *ReplyRef
	Timestamp  time.Time
}

// User returns the presence record for the message author.
func (m *IncomingMessage) User() User {
	return User{
		ID:        m.AuthorID,
		Username:  m.AuthorUsername,
		FirstName: m.AuthorFirstName,
		LastName:  m.AuthorLastName,
	}
}

// Chat returns the presence record for the message's chat.
func (m *IncomingMessage) Chat() Chat {
	return Chat{ID: m.ChatID, Title: m.ChatTitle, Type: m.ChatType}
}

// User is a chat member seen by the relay.
type User struct {
	ID        string
	Username  string
	FirstName string
	LastName  string
}

// Chat is a channel seen by the relay.
type Chat struct {
	ID    string
	Title string
	Type  string
}

// ConversionEvent is emitted once per successful repost.
type ConversionEvent struct {
	AuthorID      string
	ChatID        string
	OriginalURL   string
	NormalizedURL string
	Timestamp     time.Time
}

// SendOptions controls how a message is posted.
type SendOptions struct {
	PreserveLinkPreview bool
	// ReplyTo makes the message a reply to the given message id.
	ReplyTo string
}

// Transport is the chat platform as seen by the core.
//
// Implementations wrap [ErrPermission] when the bot lacks the rights for an
// operation, [ErrNotFound] when the message is already gone and
// [ErrDelivery] for any other failure.
type Transport interface {
	SendMessage(ctx context.Context, chatID, text string, opts SendOptions) (string, error)
	DeleteMessage(ctx context.Context, chatID, messageID string) error
	GetMemberRole(ctx context.Context, chatID, userID string) (Role, error)
}

// Stats receives usage events. Failures are reported to the caller but the
// core treats presence failures as non-fatal.
type Stats interface {
	RecordUserSeen(ctx context.Context, user User) error
	RecordChatSeen(ctx context.Context, chat Chat) error
	RecordConversion(ctx context.Context, evt ConversionEvent) error
}

// ChatCount is a leaderboard row for a channel.
type ChatCount struct {
	ChatID      string `json:"chat_id"`
	Title       string `json:"title"`
	Conversions int64  `json:"conversions"`
}

// UserCount is a leaderboard row for a user.
type UserCount struct {
	UserID      string `json:"user_id"`
	Username    string `json:"username"`
	Conversions int64  `json:"conversions"`
}

// StatsSummary is an aggregate view of the recorded usage.
type StatsSummary struct {
	TotalChats       int64       `json:"total_chats"`
	TotalUsers       int64       `json:"total_users"`
	TotalConversions int64       `json:"total_conversions"`
	TopChats         []ChatCount `json:"top_chats"`
	TopUsers         []UserCount `json:"top_users"`
}

// StatsReporter produces usage summaries.
type StatsReporter interface {
	Summary(ctx context.Context, limit int) (StatsSummary, error)
}

// Scheduler runs an action once after a delay. Scheduled actions are never
// cancelled.
type Scheduler interface {
	ScheduleOnce(delay time.Duration, action func())
}

// NopStats discards all usage events.
type NopStats struct{}

var _ Stats = NopStats{}

func (NopStats) RecordUserSeen(context.Context, User) error             { return nil }
func (NopStats) RecordChatSeen(context.Context, Chat) error             { return nil }
func (NopStats) RecordConversion(context.Context, ConversionEvent) error { return nil }

// ReplyAnchor returns the message that replies to m should attach to: the
// thread root if m is inside a thread, m itself otherwise.
func (m *IncomingMessage) ReplyAnchor() string {
	if m.ThreadRoot != "" {
		return m.ThreadRoot
	}
	return m.MessageID
}
