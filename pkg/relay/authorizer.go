// Copyright 2024-2026 Aiku AI

package relay

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
)

// Replies sent by the deletion authorizer.
const (
	DenialReply           = "You can only delete messages that were originally posted by you."
	PermissionFailedReply = "Failed to delete the message. I might not have the necessary permissions."
	DeleteFailedReply     = "Failed to delete the message. Please try again later."
)

// DefaultDenialDelay is how long a denial reply stays visible.
const DefaultDenialDelay = 5 * time.Second

// cleanupTimeout bounds the deferred removal of a denial.
const cleanupTimeout = 30 * time.Second

// DeleteRequest is a user's request to remove a repost.
type DeleteRequest struct {
	RequesterID      string
	ChatID           string
	CommandMessageID string
	// ReplyAnchor is the message replies to the requester are attached to.
	ReplyAnchor       string
	TargetMessageID   string
	TargetAuthorIsBot bool
}

// DeleteOutcome is the result of a delete request.
type DeleteOutcome int

const (
	DeleteIgnored DeleteOutcome = iota
	DeleteCompleted
	DeleteDenied
	DeleteFailed
)

func (o DeleteOutcome) String() string {
	switch o {
	case DeleteIgnored:
		return "ignored"
	case DeleteCompleted:
		return "deleted"
	case DeleteDenied:
		return "denied"
	case DeleteFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// DeletionAuthorizer decides whether a requester may delete a repost and
// carries the decision out. It never returns errors; every branch either
// acts or answers the requester.
type DeletionAuthorizer struct {
	log         zerolog.Logger
	transport   Transport
	provenance  ProvenanceTracker
	scheduler   Scheduler
	metrics     *Metrics
	denialDelay time.Duration
}

// NewDeletionAuthorizer creates an authorizer. A zero denialDelay selects
// DefaultDenialDelay.
func NewDeletionAuthorizer(log zerolog.Logger, transport Transport, provenance ProvenanceTracker, scheduler Scheduler, metrics *Metrics, denialDelay time.Duration) *DeletionAuthorizer {
	if denialDelay <= 0 {
		denialDelay = DefaultDenialDelay
	}
	if metrics == nil {
		metrics = NewMetrics(nil)
	}
	return &DeletionAuthorizer{
		log:         log.With().Str("component", "deletion_authorizer").Logger(),
		transport:   transport,
		provenance:  provenance,
		scheduler:   scheduler,
		metrics:     metrics,
		denialDelay: denialDelay,
	}
}

// Authorize handles req and reports what happened.
func (a *DeletionAuthorizer) Authorize(ctx context.Context, req DeleteRequest) DeleteOutcome {
	outcome := a.authorize(ctx, req)
	a.metrics.deletions.WithLabelValues(outcome.String()).Inc()
	return outcome
}

func (a *DeletionAuthorizer) authorize(ctx context.Context, req DeleteRequest) DeleteOutcome {
	if req.TargetMessageID == "" || !req.TargetAuthorIsBot {
		return DeleteIgnored
	}
	log := a.log.With().
		Str("channel_id", req.ChatID).
		Str("user_id", req.RequesterID).
		Str("post_id", req.TargetMessageID).
		Logger()

	owner, known, err := a.provenance.OwnerOf(ctx, req.TargetMessageID)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to look up repost owner")
		known = false
	}
	isOwner := known && owner == req.RequesterID

	role := RoleMember
	if !isOwner {
		role, err = a.transport.GetMemberRole(ctx, req.ChatID, req.RequesterID)
		if err != nil {
			a.metrics.transportErrors.WithLabelValues("get_role").Inc()
			log.Warn().Err(err).Msg("Failed to look up member role, assuming member")
			role = RoleMember
		}
	}

	if !isOwner && !role.CanModerate() {
		a.deny(ctx, log, req)
		return DeleteDenied
	}

	if err = a.transport.DeleteMessage(ctx, req.ChatID, req.TargetMessageID); err != nil && !errors.Is(err, ErrNotFound) {
		a.metrics.transportErrors.WithLabelValues("delete").Inc()
		reply := DeleteFailedReply
		if errors.Is(err, ErrPermission) {
			log.Warn().Err(err).Msg("Missing permission to delete repost")
			reply = PermissionFailedReply
		} else {
			log.Err(err).Msg("Failed to delete repost")
		}
		a.reply(ctx, log, req, reply)
		return DeleteFailed
	}
	if err = a.transport.DeleteMessage(ctx, req.ChatID, req.CommandMessageID); err != nil && !errors.Is(err, ErrNotFound) {
		a.metrics.transportErrors.WithLabelValues("delete").Inc()
		log.Warn().Err(err).Str("command_id", req.CommandMessageID).Msg("Failed to delete command message")
	}
	if err = a.provenance.Forget(ctx, req.TargetMessageID); err != nil {
		log.Warn().Err(err).Msg("Failed to forget repost owner")
	}
	log.Info().
		Bool("owner", isOwner).
		Str("role", string(role)).
		Msg("Deleted repost on request")
	return DeleteCompleted
}

// deny answers the requester and schedules removal of both the answer and
// the rejected command.
func (a *DeletionAuthorizer) deny(ctx context.Context, log zerolog.Logger, req DeleteRequest) {
	log.Info().Msg("Denied delete request")
	replyID := a.reply(ctx, log, req, DenialReply)

	chatID, commandID := req.ChatID, req.CommandMessageID
	detached := context.WithoutCancel(ctx)
	a.scheduler.ScheduleOnce(a.denialDelay, func() {
		cleanupCtx, cancel := context.WithTimeout(detached, cleanupTimeout)
		defer cancel()
		for _, id := range []string{replyID, commandID} {
			if id == "" {
				continue
			}
			if err := a.transport.DeleteMessage(cleanupCtx, chatID, id); err != nil {
				log.Debug().Err(err).Str("cleanup_id", id).Msg("Deferred cleanup failed")
			}
		}
	})
}

func (a *DeletionAuthorizer) reply(ctx context.Context, log zerolog.Logger, req DeleteRequest, text string) string {
	id, err := a.transport.SendMessage(ctx, req.ChatID, text, SendOptions{ReplyTo: req.ReplyAnchor})
	if err != nil {
		a.metrics.transportErrors.WithLabelValues("send").Inc()
		log.Err(err).Msg("Failed to reply to delete request")
		return ""
	}
	return id
}
