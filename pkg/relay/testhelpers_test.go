// Copyright 2024-2026 Aiku AI

package relay

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// sentMessage records one SendMessage call.
type sentMessage struct {
	ID     string
	ChatID string
	Text   string
	Opts   SendOptions
}

// fakeTransport is an in-memory Transport that records every call.
type fakeTransport struct {
	mu        sync.Mutex
	nextID    int
	sent      []sentMessage
	deleted   []string
	roleCalls []string

	// Roles maps user ID to role; missing users are members.
	Roles map[string]Role
	// RoleErr fails every role lookup.
	RoleErr error
	// SendErr fails every send.
	SendErr error
	// DeleteErrs fails deletion of specific message IDs.
	DeleteErrs map[string]error
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{
		Roles:      make(map[string]Role),
		DeleteErrs: make(map[string]error),
	}
}

func (f *fakeTransport) SendMessage(_ context.Context, chatID, text string, opts SendOptions) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.SendErr != nil {
		return "", f.SendErr
	}
	f.nextID++
	id := fmt.Sprintf("bot-%d", f.nextID)
	f.sent = append(f.sent, sentMessage{ID: id, ChatID: chatID, Text: text, Opts: opts})
	return id, nil
}

func (f *fakeTransport) DeleteMessage(_ context.Context, _, messageID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err, ok := f.DeleteErrs[messageID]; ok {
		return err
	}
	f.deleted = append(f.deleted, messageID)
	return nil
}

func (f *fakeTransport) GetMemberRole(_ context.Context, _, userID string) (Role, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.roleCalls = append(f.roleCalls, userID)
	if f.RoleErr != nil {
		return "", f.RoleErr
	}
	if role, ok := f.Roles[userID]; ok {
		return role, nil
	}
	return RoleMember, nil
}

func (f *fakeTransport) Sent() []sentMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.sent)
}

func (f *fakeTransport) Deleted() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.deleted)
}

func (f *fakeTransport) RoleCalls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.roleCalls)
}

// fakeStats records usage events.
type fakeStats struct {
	mu          sync.Mutex
	users       []User
	chats       []Chat
	conversions []ConversionEvent

	PresenceErr   error
	ConversionErr error
}

func (f *fakeStats) RecordUserSeen(_ context.Context, user User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.users = append(f.users, user)
	return f.PresenceErr
}

func (f *fakeStats) RecordChatSeen(_ context.Context, chat Chat) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.chats = append(f.chats, chat)
	return f.PresenceErr
}

func (f *fakeStats) RecordConversion(_ context.Context, evt ConversionEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.ConversionErr != nil {
		return f.ConversionErr
	}
	f.conversions = append(f.conversions, evt)
	return nil
}

func (f *fakeStats) Counts() (users, chats, conversions int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.users), len(f.chats), len(f.conversions)
}

func (f *fakeStats) Conversions() []ConversionEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.conversions)
}

// fakeReporter returns a fixed summary.
type fakeReporter struct {
	Summ  StatsSummary
	Err   error
	limit int
}

func (f *fakeReporter) Summary(_ context.Context, limit int) (StatsSummary, error) {
	f.limit = limit
	return f.Summ, f.Err
}

// manualScheduler collects scheduled actions until the test runs them.
type manualScheduler struct {
	mu      sync.Mutex
	delays  []time.Duration
	actions []func()
}

func (s *manualScheduler) ScheduleOnce(delay time.Duration, action func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.delays = append(s.delays, delay)
	s.actions = append(s.actions, action)
}

func (s *manualScheduler) Delays() []time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.delays)
}

// RunAll runs and clears every pending action.
func (s *manualScheduler) RunAll() {
	s.mu.Lock()
	actions := s.actions
	s.actions = nil
	s.mu.Unlock()
	for _, action := range actions {
		action()
	}
}

// testEnv bundles a pipeline with its fakes.
type testEnv struct {
	transport  *fakeTransport
	stats      *fakeStats
	reporter   *fakeReporter
	provenance *MemoryTracker
	scheduler  *manualScheduler
	metrics    *Metrics
	pipeline   *Pipeline
}

func newTestEnv(cfg Config) *testEnv {
	env := &testEnv{
		transport:  newFakeTransport(),
		stats:      &fakeStats{},
		reporter:   &fakeReporter{},
		provenance: NewMemoryTracker(),
		scheduler:  &manualScheduler{},
		metrics:    NewMetrics(nil),
	}
	if err := cfg.PostProcess(); err != nil {
		panic(err)
	}
	p, err := NewPipeline(zerolog.Nop(), cfg, Deps{
		Transport:  env.transport,
		Stats:      env.stats,
		Reporter:   env.reporter,
		Provenance: env.provenance,
		Scheduler:  env.scheduler,
		Metrics:    env.metrics,
	})
	if err != nil {
		panic(err)
	}
	env.pipeline = p
	return env
}

var testTimestamp = time.Date(2024, 3, 5, 14, 7, 9, 0, time.UTC)

func aliceMessage(text string) *IncomingMessage {
	return &IncomingMessage{
		Text:           text,
		AuthorID:       "alice-id",
		AuthorUsername: "alice",
		ChatID:         "chan-1",
		ChatTitle:      "Town Square",
		ChatType:       "O",
		MessageID:      "post-1",
		Timestamp:      testTimestamp,
	}
}
