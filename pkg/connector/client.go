// Copyright 2024-2026 Remi Philippe
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package connector

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/mattermost/mattermost/server/public/model"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/aiku/fixupx-relay/pkg/relay"
)

// MessageHandler consumes messages converted from Mattermost posts.
// *relay.Pipeline satisfies it.
type MessageHandler interface {
	HandleMessage(ctx context.Context, msg *relay.IncomingMessage)
}

// MattermostClient is the relay's bot session on a Mattermost server.
type MattermostClient struct {
	cfg       *Config
	client    *model.Client4
	serverURL string
	log       zerolog.Logger

	userID   string
	username string

	wsMu     sync.Mutex
	wsClient *model.WebSocketClient

	stopChan chan struct{}
	stopOnce sync.Once
}

// NewMattermostClient creates a client for the configured server. The config
// must have been post-processed.
func NewMattermostClient(log zerolog.Logger, cfg *Config) *MattermostClient {
	client := model.NewAPIv4Client(cfg.ServerURL)
	client.SetToken(cfg.AccessToken)
	return &MattermostClient{
		cfg:       cfg,
		client:    client,
		serverURL: cfg.ServerURL,
		log:       log.With().Str("component", "mm_client").Logger(),
		stopChan:  make(chan struct{}),
	}
}

// Connect verifies the access token and learns the bot's own user ID, which
// echo prevention and reply detection depend on.
func (m *MattermostClient) Connect(ctx context.Context) error {
	m.log.Info().Str("server_url", m.serverURL).Msg("Connecting to Mattermost")
	me, resp, err := m.client.GetMe(ctx, "")
	if err != nil {
		return fmt.Errorf("failed to verify Mattermost token: %w", classifyError("get me", resp, err))
	}
	m.userID = me.Id
	m.username = me.Username
	m.log.Info().Str("user_id", me.Id).Str("username", me.Username).Msg("Authenticated")
	return nil
}

// UserID returns the bot's Mattermost user ID, empty before Connect.
func (m *MattermostClient) UserID() string {
	return m.userID
}

// Run streams posted events to handler until ctx is cancelled or Disconnect
// is called. Dropped WebSocket connections are re-established after the
// configured reconnect delay. Messages already being handled are allowed to
// finish before Run returns.
func (m *MattermostClient) Run(ctx context.Context, handler MessageHandler) error {
	if m.userID == "" {
		return fmt.Errorf("connector: Run called before Connect")
	}

	var g errgroup.Group
	g.SetLimit(m.cfg.Workers)
	dispatchCtx := context.WithoutCancel(ctx)
	dispatch := func(evt *model.WebSocketEvent) {
		if evt.EventType() != model.WebsocketEventPosted {
			m.log.Trace().Str("event_type", string(evt.EventType())).Msg("Ignoring event")
			return
		}
		g.Go(func() error {
			m.handlePosted(dispatchCtx, evt, handler)
			return nil
		})
	}

	for {
		ws, err := m.connectWebSocket()
		if err != nil {
			m.log.Error().Err(err).Dur("retry_in", m.cfg.ReconnectDelay).Msg("WebSocket connection failed")
		} else if stopped := m.listenWebSocket(ctx, ws, dispatch); stopped {
			break
		}
		if !m.waitReconnect(ctx) {
			break
		}
	}

	m.closeWebSocket()
	_ = g.Wait()
	m.log.Info().Msg("Event loop stopped")
	return nil
}

func (m *MattermostClient) connectWebSocket() (*model.WebSocketClient, error) {
	wsURL := httpToWS(m.serverURL)
	ws, err := model.NewWebSocketClient4(wsURL, m.client.AuthToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create websocket client: %w", err)
	}
	ws.Listen()

	m.wsMu.Lock()
	m.wsClient = ws
	m.wsMu.Unlock()

	m.log.Info().Str("ws_url", wsURL).Msg("WebSocket connected")
	return ws, nil
}

// httpToWS converts an HTTP(S) URL to a WS(S) URL.
func httpToWS(url string) string {
	switch {
	case strings.HasPrefix(url, "https://"):
		return "wss://" + strings.TrimPrefix(url, "https://")
	case strings.HasPrefix(url, "http://"):
		return "ws://" + strings.TrimPrefix(url, "http://")
	default:
		return url
	}
}

// listenWebSocket forwards events until the connection drops or the client
// is stopped. It reports whether the client was stopped.
func (m *MattermostClient) listenWebSocket(ctx context.Context, ws *model.WebSocketClient, dispatch func(*model.WebSocketEvent)) bool {
	for {
		select {
		case <-ctx.Done():
			return true
		case <-m.stopChan:
			return true
		case event, ok := <-ws.EventChannel:
			if !ok {
				m.log.Warn().Msg("WebSocket event channel closed, reconnecting")
				return false
			}
			if event == nil {
				continue
			}
			dispatch(event)
		}
	}
}

func (m *MattermostClient) waitReconnect(ctx context.Context) bool {
	timer := time.NewTimer(m.cfg.ReconnectDelay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-m.stopChan:
		return false
	case <-timer.C:
		return true
	}
}

func (m *MattermostClient) closeWebSocket() {
	m.wsMu.Lock()
	defer m.wsMu.Unlock()
	if m.wsClient != nil {
		m.wsClient.Close()
		m.wsClient = nil
	}
}

// Disconnect stops the event loop and closes the WebSocket connection.
func (m *MattermostClient) Disconnect() {
	m.stopOnce.Do(func() {
		close(m.stopChan)
	})
	m.closeWebSocket()
}
