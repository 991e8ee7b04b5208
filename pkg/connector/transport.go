// Copyright 2024-2026 Aiku AI

package connector

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/mattermost/mattermost/server/public/model"

	"github.com/aiku/fixupx-relay/pkg/relay"
)

var _ relay.Transport = (*MattermostClient)(nil)

// SendMessage creates a post in the channel. A non-empty ReplyTo makes the
// post a reply in that thread. Mattermost previews the first link of a post
// on its own, so PreserveLinkPreview needs no extra props.
func (m *MattermostClient) SendMessage(ctx context.Context, chatID, text string, opts relay.SendOptions) (string, error) {
	post := &model.Post{
		ChannelId: chatID,
		Message:   text,
		RootId:    opts.ReplyTo,
	}
	created, resp, err := m.client.CreatePost(ctx, post)
	if err != nil {
		return "", classifyError("create post", resp, err)
	}
	return created.Id, nil
}

// DeleteMessage deletes a post. Post IDs are unique server-wide, so the
// channel is only used for logging.
func (m *MattermostClient) DeleteMessage(ctx context.Context, chatID, messageID string) error {
	resp, err := m.client.DeletePost(ctx, messageID)
	if err != nil {
		m.log.Debug().Err(err).
			Str("channel_id", chatID).
			Str("post_id", messageID).
			Msg("Delete post failed")
		return classifyError("delete post", resp, err)
	}
	return nil
}

// GetMemberRole maps Mattermost permissions onto relay roles. The channel
// creator is the creator; channel admins and system admins are
// administrators.
func (m *MattermostClient) GetMemberRole(ctx context.Context, chatID, userID string) (relay.Role, error) {
	channel, resp, err := m.client.GetChannel(ctx, chatID, "")
	if err != nil {
		return relay.RoleMember, classifyError("get channel", resp, err)
	}
	if channel.CreatorId != "" && channel.CreatorId == userID {
		return relay.RoleCreator, nil
	}

	member, resp, err := m.client.GetChannelMember(ctx, chatID, userID, "")
	if err != nil {
		return relay.RoleMember, classifyError("get channel member", resp, err)
	}
	if member.SchemeAdmin || model.IsInRole(member.Roles, model.ChannelAdminRoleId) {
		return relay.RoleAdministrator, nil
	}

	user, resp, err := m.client.GetUser(ctx, userID, "")
	if err != nil {
		return relay.RoleMember, classifyError("get user", resp, err)
	}
	if model.IsInRole(user.Roles, model.SystemAdminRoleId) {
		return relay.RoleAdministrator, nil
	}
	return relay.RoleMember, nil
}

// classifyError wraps a Mattermost API error with the matching relay
// sentinel.
func classifyError(op string, resp *model.Response, err error) error {
	status := 0
	var appErr *model.AppError
	if errors.As(err, &appErr) {
		status = appErr.StatusCode
	}
	if status == 0 && resp != nil {
		status = resp.StatusCode
	}

	switch status {
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("%s: %w: %w", op, relay.ErrPermission, err)
	case http.StatusNotFound:
		return fmt.Errorf("%s: %w: %w", op, relay.ErrNotFound, err)
	default:
		return fmt.Errorf("%s: %w: %w", op, relay.ErrDelivery, err)
	}
}
