// Copyright 2024-2026 Remi Philippe
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package connector

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"time"

	"github.com/mattermost/mattermost/server/public/model"
	"github.com/rs/zerolog"

	"github.com/aiku/fixupx-relay/pkg/relay"
)

// endpointCall records which API endpoints were hit during a test.
type endpointCall struct {
	Method string
	Path   string
	Body   string
}

// fakeMM is a test helper that wraps an httptest.Server simulating the
// Mattermost API. It records calls and provides canned responses.
type fakeMM struct {
	Server *httptest.Server

	mu      sync.Mutex
	calls   []endpointCall
	created int

	// Users maps user ID to model.User for GetUser/GetMe responses.
	Users map[string]*model.User
	// TokenToUser maps bearer tokens to user IDs for GetMe auth.
	TokenToUser map[string]string
	// Channels maps channel ID to model.Channel.
	Channels map[string]*model.Channel
	// ChannelMembers maps "channelID:userID" to a membership.
	ChannelMembers map[string]*model.ChannelMember
	// Posts maps post ID to model.Post for GetPost responses.
	Posts map[string]*model.Post
	// FailEndpoints makes paths containing the key return the given status.
	FailEndpoints map[string]int
}

func newFakeMM() *fakeMM {
	f := &fakeMM{
		Users:          make(map[string]*model.User),
		TokenToUser:    make(map[string]string),
		Channels:       make(map[string]*model.Channel),
		ChannelMembers: make(map[string]*model.ChannelMember),
		Posts:          make(map[string]*model.Post),
		FailEndpoints:  make(map[string]int),
	}
	f.Server = httptest.NewServer(http.HandlerFunc(f.handler))
	return f
}

func (f *fakeMM) Close() {
	f.Server.Close()
}

func (f *fakeMM) record(method, path, body string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, endpointCall{Method: method, Path: path, Body: body})
}

func (f *fakeMM) Calls() []endpointCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := make([]endpointCall, len(f.calls))
	copy(cp, f.calls)
	return cp
}

// Called reports whether an endpoint was hit with the given method and a
// path containing path.
func (f *fakeMM) Called(method, path string) bool {
	for _, c := range f.Calls() {
		if c.Method == method && strings.Contains(c.Path, path) {
			return true
		}
	}
	return false
}

func (f *fakeMM) resolveToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	for tok, uid := range f.TokenToUser {
		if auth == "BEARER "+tok || auth == "Bearer "+tok {
			return uid
		}
	}
	return ""
}

func writeAppError(w http.ResponseWriter, status int, msg string) {
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"id":          "api.fake.error",
		"message":     msg,
		"status_code": status,
	})
}

func (f *fakeMM) handler(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	f.record(r.Method, r.URL.Path, string(body))

	for prefix, status := range f.FailEndpoints {
		if strings.Contains(r.URL.Path, prefix) {
			writeAppError(w, status, "fake error")
			return
		}
	}

	path := r.URL.Path
	parts := strings.Split(strings.TrimPrefix(path, "/api/v4/"), "/")

	switch {
	// GET /api/v4/users/me
	case r.Method == "GET" && path == "/api/v4/users/me":
		uid := f.resolveToken(r)
		if uid == "" {
			writeAppError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		if u, ok := f.Users[uid]; ok {
			_ = json.NewEncoder(w).Encode(u)
			return
		}
		writeAppError(w, http.StatusNotFound, "user not found")

	// GET /api/v4/users/{user_id}
	case r.Method == "GET" && len(parts) == 2 && parts[0] == "users":
		if u, ok := f.Users[parts[1]]; ok {
			_ = json.NewEncoder(w).Encode(u)
			return
		}
		writeAppError(w, http.StatusNotFound, "user not found")

	// GET /api/v4/channels/{channel_id}
	case r.Method == "GET" && len(parts) == 2 && parts[0] == "channels":
		if ch, ok := f.Channels[parts[1]]; ok {
			_ = json.NewEncoder(w).Encode(ch)
			return
		}
		writeAppError(w, http.StatusNotFound, "channel not found")

	// GET /api/v4/channels/{channel_id}/members/{user_id}
	case r.Method == "GET" && len(parts) == 4 && parts[0] == "channels" && parts[2] == "members":
		if cm, ok := f.ChannelMembers[parts[1]+":"+parts[3]]; ok {
			_ = json.NewEncoder(w).Encode(cm)
			return
		}
		writeAppError(w, http.StatusNotFound, "member not found")

	// GET /api/v4/posts/{post_id}
	case r.Method == "GET" && len(parts) == 2 && parts[0] == "posts":
		if p, ok := f.Posts[parts[1]]; ok {
			_ = json.NewEncoder(w).Encode(p)
			return
		}
		writeAppError(w, http.StatusNotFound, "post not found")

	// POST /api/v4/posts
	case r.Method == "POST" && path == "/api/v4/posts":
		var post model.Post
		_ = json.Unmarshal(body, &post)
		f.mu.Lock()
		f.created++
		post.Id = fmt.Sprintf("created-post-%d", f.created)
		f.mu.Unlock()
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(&post)

	// DELETE /api/v4/posts/{post_id}
	case r.Method == "DELETE" && len(parts) == 2 && parts[0] == "posts":
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "OK"})

	default:
		writeAppError(w, http.StatusNotFound, "not found: "+path)
	}
}

// newWebSocketEvent creates a model.WebSocketEvent for testing handlers.
func newWebSocketEvent(eventType model.WebsocketEventType, channelID string, data map[string]any) *model.WebSocketEvent {
	evt := model.NewWebSocketEvent(eventType, "", channelID, "", nil, "")
	return evt.SetData(data)
}

// postedEvent wraps a post into a posted WebSocket event the way the server
// sends it: the post is a JSON string.
func postedEvent(post *model.Post, senderName string) *model.WebSocketEvent {
	raw, _ := json.Marshal(post)
	return newWebSocketEvent(model.WebsocketEventPosted, post.ChannelId, map[string]any{
		"post":        string(raw),
		"sender_name": senderName,
	})
}

// newTestClient creates a MattermostClient pointed at a fake server and
// already authenticated as "bot-user-id".
func newTestClient(serverURL string) *MattermostClient {
	cfg := &Config{
		ServerURL:      serverURL,
		AccessToken:    "test-token",
		BotPrefix:      "relay_",
		Workers:        2,
		ReconnectDelay: 10 * time.Millisecond,
	}
	if err := cfg.PostProcess(); err != nil {
		panic(err)
	}
	mc := NewMattermostClient(zerolog.Nop(), cfg)
	mc.userID = "bot-user-id"
	mc.username = "fixupx"
	return mc
}

// seedChat registers alice in town-square on the fake server.
func seedChat(f *fakeMM) {
	f.Users["alice-id"] = &model.User{
		Id:        "alice-id",
		Username:  "alice",
		FirstName: "Alice",
		LastName:  "Liddell",
		Nickname:  "al",
		Roles:     model.SystemUserRoleId,
	}
	f.Users["bot-user-id"] = &model.User{Id: "bot-user-id", Username: "fixupx", IsBot: true}
	f.Channels["chan-1"] = &model.Channel{
		Id:          "chan-1",
		Name:        "town-square",
		DisplayName: "Town Square",
		Type:        model.ChannelTypeOpen,
		CreatorId:   "owner-id",
	}
}

// recordingHandler collects handled messages.
type recordingHandler struct {
	mu   sync.Mutex
	msgs []*relay.IncomingMessage
	done chan struct{}
}

func newRecordingHandler() *recordingHandler {
	return &recordingHandler{done: make(chan struct{}, 16)}
}

func (h *recordingHandler) HandleMessage(_ context.Context, msg *relay.IncomingMessage) {
	h.mu.Lock()
	h.msgs = append(h.msgs, msg)
	h.mu.Unlock()
	h.done <- struct{}{}
}

func (h *recordingHandler) Messages() []*relay.IncomingMessage {
	h.mu.Lock()
	defer h.mu.Unlock()
	cp := make([]*relay.IncomingMessage, len(h.msgs))
	copy(cp, h.msgs)
	return cp
}
