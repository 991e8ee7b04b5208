// Copyright 2024-2026 Aiku AI

package relay

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/aiku/fixupx-relay/pkg/linkfix"
)

// MissingDeletePermissionReply prefixes the fixed link when the original
// message could not be removed.
const MissingDeletePermissionReply = "I need permission to delete messages in this channel. For now, here's the fixed link:"

// Deps are the collaborators of a Pipeline. Stats, Reporter, Provenance,
// Scheduler and Metrics are optional.
type Deps struct {
	Transport  Transport
	Stats      Stats
	Reporter   StatsReporter
	Provenance ProvenanceTracker
	Scheduler  Scheduler
	Metrics    *Metrics
}

// Pipeline processes incoming messages: it reposts normalized links and
// dispatches chat commands. It is safe for concurrent use.
type Pipeline struct {
	log        zerolog.Logger
	cfg        Config
	transport  Transport
	stats      Stats
	reporter   StatsReporter
	provenance ProvenanceTracker
	metrics    *Metrics

	matcher    *linkfix.Matcher
	normalizer *linkfix.Normalizer
	composer   *Composer
	authorizer *DeletionAuthorizer
}

// NewPipeline wires a pipeline. cfg must have been post-processed.
func NewPipeline(log zerolog.Logger, cfg Config, deps Deps) (*Pipeline, error) {
	if deps.Transport == nil {
		return nil, errors.New("pipeline requires a transport")
	}
	if deps.Stats == nil {
		deps.Stats = NopStats{}
	}
	if deps.Provenance == nil {
		deps.Provenance = NewMemoryTracker()
	}
	if deps.Scheduler == nil {
		deps.Scheduler = TimerScheduler{}
	}
	if deps.Metrics == nil {
		deps.Metrics = NewMetrics(nil)
	}
	if cfg.CommandPrefix == "" {
		cfg.CommandPrefix = "!"
	}
	composer, err := NewComposer(cfg.AttributionTemplate, cfg.Location())
	if err != nil {
		return nil, err
	}
	rules := linkfix.DefaultRules().WithTrackingParams(cfg.ExtraTrackingParams...)
	return &Pipeline{
		log:        log.With().Str("component", "pipeline").Logger(),
		cfg:        cfg,
		transport:  deps.Transport,
		stats:      deps.Stats,
		reporter:   deps.Reporter,
		provenance: deps.Provenance,
		metrics:    deps.Metrics,
		matcher:    linkfix.NewMatcher(rules),
		normalizer: linkfix.NewNormalizer(rules),
		composer:   composer,
		authorizer: NewDeletionAuthorizer(log, deps.Transport, deps.Provenance, deps.Scheduler, deps.Metrics, cfg.DenialDelay),
	}, nil
}

// Authorizer returns the pipeline's deletion authorizer.
func (p *Pipeline) Authorizer() *DeletionAuthorizer {
	return p.authorizer
}

// HandleMessage processes one incoming message. Errors are logged, never
// returned.
func (p *Pipeline) HandleMessage(ctx context.Context, msg *IncomingMessage) {
	p.metrics.messages.Inc()
	if msg.AuthorIsBot {
		return
	}
	if cmd, ok := ParseCommand(p.cfg.CommandPrefix, msg.Text); ok {
		p.handleCommand(ctx, msg, cmd)
		return
	}
	p.trackPresence(ctx, msg)
	p.repost(ctx, msg)
}

func (p *Pipeline) trackPresence(ctx context.Context, msg *IncomingMessage) {
	if err := p.stats.RecordUserSeen(ctx, msg.User()); err != nil {
		p.log.Warn().Err(err).Str("user_id", msg.AuthorID).Msg("Failed to record user")
	}
	if err := p.stats.RecordChatSeen(ctx, msg.Chat()); err != nil {
		p.log.Warn().Err(err).Str("channel_id", msg.ChatID).Msg("Failed to record channel")
	}
}

// firstChange returns the leftmost link whose normalized form differs from
// the raw text. A malformed link ends the search.
func (p *Pipeline) firstChange(log zerolog.Logger, text string) (linkfix.CandidateLink, linkfix.NormalizedLink, bool) {
	for link := range p.matcher.Scan(text) {
		normalized, err := p.normalizer.Normalize(link.Raw)
		if err != nil {
			log.Debug().Err(err).Str("link", link.Raw).Msg("Skipping message with malformed link")
			return linkfix.CandidateLink{}, linkfix.NormalizedLink{}, false
		}
		if normalized.URL != link.Raw {
			return link, normalized, true
		}
	}
	return linkfix.CandidateLink{}, linkfix.NormalizedLink{}, false
}

func (p *Pipeline) repost(ctx context.Context, msg *IncomingMessage) {
	start := time.Now()
	log := p.log.With().
		Str("channel_id", msg.ChatID).
		Str("post_id", msg.MessageID).
		Str("user_id", msg.AuthorID).
		Logger()

	link, normalized, ok := p.firstChange(log, msg.Text)
	if !ok {
		return
	}
	text := p.composer.Compose(msg, link, normalized, displayName(msg))

	repostID, err := p.transport.SendMessage(ctx, msg.ChatID, text, SendOptions{PreserveLinkPreview: true})
	if err != nil {
		p.metrics.transportErrors.WithLabelValues("send").Inc()
		log.Err(err).Msg("Failed to send repost")
		return
	}
	log = log.With().Str("repost_id", repostID).Logger()

	if err = p.provenance.Record(ctx, repostID, msg.AuthorID); err != nil {
		log.Err(err).Msg("Failed to record repost owner")
		return
	}
	err = p.stats.RecordConversion(ctx, ConversionEvent{
		AuthorID:      msg.AuthorID,
		ChatID:        msg.ChatID,
		OriginalURL:   link.Raw,
		NormalizedURL: normalized.URL,
		Timestamp:     msg.Timestamp,
	})
	if err != nil {
		log.Err(err).Msg("Failed to record conversion")
		return
	}
	p.metrics.conversions.WithLabelValues(link.Host).Inc()

	if err = p.transport.DeleteMessage(ctx, msg.ChatID, msg.MessageID); err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			log.Debug().Msg("Original message already gone")
		case errors.Is(err, ErrPermission):
			p.metrics.transportErrors.WithLabelValues("delete").Inc()
			log.Warn().Err(err).Msg("Missing permission to delete original message")
			p.explainMissingPermission(ctx, log, msg, normalized)
			return
		default:
			p.metrics.transportErrors.WithLabelValues("delete").Inc()
			log.Err(err).Msg("Failed to delete original message")
			return
		}
	}

	p.metrics.repostDuration.Observe(time.Since(start).Seconds())
	log.Info().
		Str("original_url", link.Raw).
		Str("normalized_url", normalized.URL).
		Msg("Reposted normalized link")
}

func (p *Pipeline) explainMissingPermission(ctx context.Context, log zerolog.Logger, msg *IncomingMessage, normalized linkfix.NormalizedLink) {
	text := fmt.Sprintf("%s\n\n%s", MissingDeletePermissionReply, normalized.URL)
	_, err := p.transport.SendMessage(ctx, msg.ChatID, text, SendOptions{
		PreserveLinkPreview: true,
		ReplyTo:             msg.ReplyAnchor(),
	})
	if err != nil {
		p.metrics.transportErrors.WithLabelValues("send").Inc()
		log.Err(err).Msg("Failed to explain missing delete permission")
	}
}

func (p *Pipeline) handleCommand(ctx context.Context, msg *IncomingMessage, cmd Command) {
	switch cmd.Name {
	case CommandDelete:
		req := DeleteRequest{
			RequesterID:      msg.AuthorID,
			ChatID:           msg.ChatID,
			CommandMessageID: msg.MessageID,
			ReplyAnchor:      msg.ReplyAnchor(),
		}
		if msg.ReplyTo != nil {
			req.TargetMessageID = msg.ReplyTo.MessageID
			req.TargetAuthorIsBot = msg.ReplyTo.AuthorIsBot
		}
		p.authorizer.Authorize(ctx, req)
	case CommandHelp:
		p.replyTo(ctx, msg, helpText(p.cfg.CommandPrefix))
	case CommandStart:
		p.replyTo(ctx, msg, startText(p.cfg.CommandPrefix))
	case CommandStats:
		p.replyTo(ctx, msg, p.statsReport(ctx, msg))
	default:
		p.log.Debug().Str("command", cmd.Name).Msg("Ignoring unknown command")
	}
}

func (p *Pipeline) statsReport(ctx context.Context, msg *IncomingMessage) string {
	if !p.cfg.IsBotAdmin(msg.AuthorID) {
		return statsDeniedReply
	}
	if p.reporter == nil {
		return statsDisabledReply
	}
	summary, err := p.reporter.Summary(ctx, StatsLeaderboardSize)
	if err != nil {
		p.log.Err(err).Msg("Failed to build stats summary")
		return statsFailedReply
	}
	return FormatStatsReport(summary)
}

func (p *Pipeline) replyTo(ctx context.Context, msg *IncomingMessage, text string) {
	_, err := p.transport.SendMessage(ctx, msg.ChatID, text, SendOptions{ReplyTo: msg.ReplyAnchor()})
	if err != nil {
		p.metrics.transportErrors.WithLabelValues("send").Inc()
		p.log.Err(err).Str("channel_id", msg.ChatID).Msg("Failed to send command reply")
	}
}

// displayName picks the name shown in the attribution line.
func displayName(msg *IncomingMessage) string {
	switch {
	case msg.AuthorDisplayName != "":
		return msg.AuthorDisplayName
	case msg.AuthorUsername != "":
		return "@" + msg.AuthorUsername
	case msg.AuthorFirstName != "":
		return msg.AuthorFirstName
	default:
		return msg.AuthorID
	}
}
