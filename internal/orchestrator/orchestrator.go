// Package orchestrator decides whether to start, continue, or ignore a
// conversation for each inbound message, and drives the responder and sender.
package orchestrator

import (
	"context"
	"strings"

	"github.com/mkrutov/leobot/internal/conversation"
	"github.com/mkrutov/leobot/internal/domain"
	"github.com/mkrutov/leobot/internal/logging"
	"github.com/mkrutov/leobot/internal/resolver"
	"github.com/mkrutov/leobot/internal/responder"
	"github.com/mkrutov/leobot/internal/sender"
	"github.com/mkrutov/leobot/internal/trigger"
)

// Events receives conversation lifecycle notifications. Informational only;
// implementations must not block.
type Events interface {
	ConversationStarted(identity int64)
	ReplySent(identity int64, text string)
}

// Config holds the orchestrator's fixed texts and the trusted trigger source.
type Config struct {
	TriggerSource string // username of the trigger source, with or without @
	Greeting      string
	SystemPrompt  string
}

// Orchestrator is the per-message decision core.
type Orchestrator struct {
	cfg       Config
	detector  *trigger.Detector
	resolver  *resolver.Resolver
	store     conversation.Store
	responder *responder.Responder
	sender    *sender.Sender
	chats     ChatMetadata
	events    Events
	locks     *keyedMutex
	log       *logging.Logger
}

// ChatMetadata fetches chat info for trigger-source attribution.
type ChatMetadata interface {
	ChatInfo(ctx context.Context, chatID int64) (domain.ChatInfo, error)
}

// New creates an orchestrator. events may be nil.
func New(
	cfg Config,
	detector *trigger.Detector,
	res *resolver.Resolver,
	store conversation.Store,
	resp *responder.Responder,
	snd *sender.Sender,
	chats ChatMetadata,
	events Events,
	log *logging.Logger,
) *Orchestrator {
	cfg.TriggerSource = strings.ToLower(strings.TrimPrefix(cfg.TriggerSource, "@"))
	return &Orchestrator{
		cfg:       cfg,
		detector:  detector,
		resolver:  res,
		store:     store,
		responder: resp,
		sender:    snd,
		chats:     chats,
		events:    events,
		locks:     newKeyedMutex(),
		log:       log.Sub("orchestrator"),
	}
}

// HandleMessage routes one inbound message. All errors are contained here;
// a failure for one identity never affects another.
func (o *Orchestrator) HandleMessage(ctx context.Context, msg domain.InboundMessage) {
	text := strings.TrimSpace(msg.Text)
	if text == "" {
		return
	}

	fromTrigger := o.fromTriggerSource(ctx, msg)

	if fromTrigger && o.detector.Match(text) {
		o.log.Info().Str("text", truncate(text, 50)).Msg("trigger detected")
		o.handleTrigger(ctx, msg)
		return
	}

	if fromTrigger || msg.Sender == nil {
		return
	}
	if o.store.Exists(msg.Sender.ID) {
		o.handleReply(ctx, msg.Sender.ID, text)
	}
}

// handleTrigger resolves the matched identity and starts a conversation.
// Repeated triggers for the same identity are no-ops.
func (o *Orchestrator) handleTrigger(ctx context.Context, msg domain.InboundMessage) {
	identity, err := o.resolver.Resolve(ctx, msg)
	if err != nil {
		o.log.Warn().Err(err).Msg("could not resolve identity from trigger message")
		return
	}

	unlock := o.locks.Lock(identity)
	defer unlock()

	created := o.store.Begin(identity, []domain.Turn{
		{Role: domain.RoleSystem, Content: o.cfg.SystemPrompt},
		{Role: domain.RoleAssistant, Content: o.cfg.Greeting},
	})
	if !created {
		o.log.Debug().Int64("identity", identity).Msg("conversation already exists, trigger ignored")
		return
	}

	o.log.Info().Int64("identity", identity).Msg("conversation started")
	if o.events != nil {
		o.events.ConversationStarted(identity)
	}

	// State stays intact whatever the send outcome.
	if err := o.sender.Send(ctx, identity, o.cfg.Greeting); err != nil {
		o.log.Error().Err(err).Int64("identity", identity).Msg("greeting not delivered")
	}
}

// handleReply feeds a user message into the dialogue and answers it.
func (o *Orchestrator) handleReply(ctx context.Context, identity int64, text string) {
	unlock := o.locks.Lock(identity)
	defer unlock()

	if !o.store.Exists(identity) {
		return
	}

	o.log.Info().
		Int64("identity", identity).
		Str("text", truncate(text, 50)).
		Msg("user replied")

	if c, ok := o.store.Get(identity); ok && c.Stage == domain.StageAwaitingFirstReply {
		o.store.Advance(identity, domain.StageActive)
	}

	reply := o.responder.Reply(ctx, identity, text)

	if err := o.sender.Send(ctx, identity, reply); err != nil {
		o.log.Error().Err(err).Int64("identity", identity).Msg("reply not delivered")
		return
	}
	if o.events != nil {
		o.events.ReplySent(identity, reply)
	}
}

// fromTriggerSource reports whether the message is attributable to the
// trusted trigger source: the chat's username matches, the sender's username
// matches, or the sender is a bot in a group chat whose metadata resolves to
// the trigger source. Metadata lookup failures mean "not trusted".
func (o *Orchestrator) fromTriggerSource(ctx context.Context, msg domain.InboundMessage) bool {
	if msg.ChatUsername != "" && strings.EqualFold(msg.ChatUsername, o.cfg.TriggerSource) {
		return true
	}
	if msg.Sender == nil {
		return false
	}
	if msg.Sender.Username != "" && strings.EqualFold(msg.Sender.Username, o.cfg.TriggerSource) {
		return true
	}
	if msg.Sender.IsBot && msg.ChatID < 0 && o.chats != nil {
		info, err := o.chats.ChatInfo(ctx, msg.ChatID)
		if err != nil {
			o.log.Debug().Err(err).Int64("chatId", msg.ChatID).Msg("chat info lookup failed")
			return false
		}
		return strings.EqualFold(info.Username, o.cfg.TriggerSource)
	}
	return false
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
