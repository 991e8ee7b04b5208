// Copyright 2024-2026 Aiku AI

package connector

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/mattermost/mattermost/server/public/model"

	"github.com/aiku/fixupx-relay/pkg/relay"
)

func (m *MattermostClient) handlePosted(ctx context.Context, evt *model.WebSocketEvent, handler MessageHandler) {
	post, err := m.parsePostedEvent(evt)
	if err != nil {
		m.log.Error().Err(err).Msg("Failed to parse posted event")
		return
	}
	if post == nil {
		return
	}

	msg, err := m.convertPost(ctx, post)
	if err != nil {
		m.log.Error().Err(err).
			Str("post_id", post.Id).
			Str("channel_id", post.ChannelId).
			Msg("Failed to convert post")
		return
	}
	handler.HandleMessage(ctx, msg)
}

// parsePostedEvent extracts and validates a post from a WebSocket event,
// applying all echo prevention layers. Returns (nil, nil) to skip silently,
// (nil, err) to log an error, or (post, nil) to proceed.
func (m *MattermostClient) parsePostedEvent(evt *model.WebSocketEvent) (*model.Post, error) {
	postJSON, ok := evt.GetData()["post"].(string)
	if !ok {
		return nil, fmt.Errorf("posted event missing post data")
	}

	var post model.Post
	if err := json.Unmarshal([]byte(postJSON), &post); err != nil {
		return nil, fmt.Errorf("failed to unmarshal post: %w", err)
	}

	// Echo prevention: skip own posts.
	if post.UserId == m.userID {
		return nil, nil
	}

	// Echo prevention: skip non-default post types (system messages).
	if post.Type != "" && post.Type != model.PostTypeDefault {
		return nil, nil
	}

	// Echo prevention: skip posts made through bot accounts and integrations.
	if isTruthyProp(post.GetProp("from_bot")) {
		m.log.Debug().Str("post_id", post.Id).Msg("Skipping bot post (echo prevention)")
		return nil, nil
	}

	senderName, _ := evt.GetData()["sender_name"].(string)
	senderName = strings.TrimPrefix(senderName, "@")
	if senderName != "" && isRelayUsername(senderName, m.username, m.cfg.BotPrefix) {
		m.log.Debug().
			Str("post_id", post.Id).
			Str("username", senderName).
			Msg("Skipping relay username post (echo prevention)")
		return nil, nil
	}

	return &post, nil
}

// isRelayUsername reports whether a username belongs to the relay itself or
// to another bot sharing its prefix.
func isRelayUsername(username, ownUsername, botPrefix string) bool {
	switch {
	case ownUsername != "" && username == ownUsername:
		return true
	case botPrefix != "" && strings.HasPrefix(username, botPrefix):
		return true
	default:
		return false
	}
}

func isTruthyProp(v any) bool {
	switch val := v.(type) {
	case bool:
		return val
	case string:
		return val == "true"
	default:
		return false
	}
}

// convertPost resolves the author, channel and thread root of a post.
func (m *MattermostClient) convertPost(ctx context.Context, post *model.Post) (*relay.IncomingMessage, error) {
	user, resp, err := m.client.GetUser(ctx, post.UserId, "")
	if err != nil {
		return nil, classifyError("get user", resp, err)
	}
	channel, resp, err := m.client.GetChannel(ctx, post.ChannelId, "")
	if err != nil {
		return nil, classifyError("get channel", resp, err)
	}

	title := channel.DisplayName
	if title == "" {
		title = channel.Name
	}

	msg := &relay.IncomingMessage{
		Text:           post.Message,
		AuthorID:       user.Id,
		AuthorUsername: user.Username,
		AuthorDisplayName: m.cfg.FormatDisplayname(DisplaynameParams{
			Username:  user.Username,
			Nickname:  user.Nickname,
			FirstName: user.FirstName,
			LastName:  user.LastName,
		}),
		AuthorFirstName: user.FirstName,
		AuthorLastName:  user.LastName,
		AuthorIsBot:     user.IsBot,
		ChatID:          channel.Id,
		ChatTitle:       title,
		ChatType:        string(channel.Type),
		MessageID:       post.Id,
		Timestamp:       time.UnixMilli(post.CreateAt),
	}

	if post.RootId != "" {
		msg.ThreadRoot = post.RootId
		msg.ReplyTo = &relay.ReplyRef{MessageID: post.RootId}
		root, resp, err := m.client.GetPost(ctx, post.RootId, "")
		if err != nil {
			m.log.Warn().Err(classifyError("get post", resp, err)).
				Str("post_id", post.Id).
				Str("root_id", post.RootId).
				Msg("Failed to fetch thread root")
		} else {
			msg.ReplyTo.AuthorIsBot = root.UserId == m.userID
		}
	}
	return msg, nil
}
