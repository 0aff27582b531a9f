// Package responder turns accumulated dialogue history into the next reply
// via the completion service.
package responder

import (
	"context"
	"strings"

	"github.com/mkrutov/leobot/internal/conversation"
	"github.com/mkrutov/leobot/internal/domain"
	"github.com/mkrutov/leobot/internal/llm"
	"github.com/mkrutov/leobot/internal/logging"
)

// FillerReply is returned when the completion service fails. The failure is
// absorbed at the text level: the conversation continues, no assistant turn
// is recorded for the failed call.
const FillerReply = "Хм, интересно... А что ты думаешь?"

// Config holds the fixed completion parameters.
type Config struct {
	Model        string
	Temperature  float32
	MaxTokens    int
	SystemPrompt string
}

// Responder generates assistant replies from per-identity dialogue history.
type Responder struct {
	cfg    Config
	client llm.Client
	store  conversation.Store
	log    *logging.Logger
}

// New creates a responder.
func New(cfg Config, client llm.Client, store conversation.Store, log *logging.Logger) *Responder {
	return &Responder{
		cfg:    cfg,
		client: client,
		store:  store,
		log:    log.Sub("responder"),
	}
}

// Reply appends userText as a user turn, submits the full history to the
// completion service, records and returns the assistant text. On any
// completion failure it returns FillerReply without appending an assistant
// turn. The call never retries.
func (r *Responder) Reply(ctx context.Context, identity int64, userText string) string {
	// Defensive: orchestration guarantees history exists before replies,
	// but a missing one is recoverable with a system-only seed.
	if !r.store.Exists(identity) {
		r.store.Begin(identity, []domain.Turn{
			{Role: domain.RoleSystem, Content: r.cfg.SystemPrompt},
		})
	}

	r.store.Append(identity, domain.Turn{Role: domain.RoleUser, Content: userText})

	history := r.store.History(identity)
	msgs := make([]llm.Message, 0, len(history))
	for _, t := range history {
		msgs = append(msgs, llm.Message{Role: t.Role, Content: t.Content})
	}

	resp, err := r.client.Complete(ctx, llm.CompletionRequest{
		Model:       r.cfg.Model,
		Messages:    msgs,
		Temperature: r.cfg.Temperature,
		MaxTokens:   r.cfg.MaxTokens,
	})
	if err != nil {
		r.log.Error().Err(err).Int64("identity", identity).Msg("completion failed")
		return FillerReply
	}

	text := strings.TrimSpace(resp.Content)
	r.store.Append(identity, domain.Turn{Role: domain.RoleAssistant, Content: text})

	r.log.Debug().
		Int64("identity", identity).
		Int("historyLen", len(history)).
		Int("inputTokens", resp.Usage.InputTokens).
		Int("outputTokens", resp.Usage.OutputTokens).
		Msg("assistant reply generated")

	return text
}
