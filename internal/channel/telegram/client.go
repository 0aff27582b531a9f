// Package telegram implements the chat transport using the telebot library.
package telegram

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	tele "gopkg.in/telebot.v3"

	"github.com/mkrutov/leobot/internal/config"
	"github.com/mkrutov/leobot/internal/domain"
	"github.com/mkrutov/leobot/internal/logging"
)

// Channel implements domain.Transport for Telegram.
type Channel struct {
	cfg config.TelegramConfig
	bot *tele.Bot
	log *logging.Logger

	mu      sync.RWMutex
	handler func(msg domain.InboundMessage)
	running bool
}

// New creates a Telegram transport from configuration.
func New(cfg config.TelegramConfig, log *logging.Logger) *Channel {
	return &Channel{
		cfg: cfg,
		log: log.Sub("telegram"),
	}
}

// OnMessage registers the inbound message handler.
func (c *Channel) OnMessage(handler func(msg domain.InboundMessage)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handler = handler
}

// Start connects to Telegram and begins long-polling for updates. Blocks
// until the context is canceled or the connection fails.
func (c *Channel) Start(ctx context.Context) error {
	poll := time.Duration(c.cfg.PollSecs) * time.Second
	if poll == 0 {
		poll = 10 * time.Second
	}

	bot, err := tele.NewBot(tele.Settings{
		Token:  c.cfg.Token,
		Poller: &tele.LongPoller{Timeout: poll},
		OnError: func(err error, _ tele.Context) {
			c.log.Error().Err(err).Msg("update handling failed")
		},
	})
	if err != nil {
		return fmt.Errorf("telegram connect: %w", err)
	}
	c.bot = bot

	// Both plain text and media captions can carry triggers and replies.
	bot.Handle(tele.OnText, c.onMessage)
	bot.Handle(tele.OnMedia, c.onMessage)

	c.mu.Lock()
	c.running = true
	c.mu.Unlock()

	c.log.Info().
		Str("username", bot.Me.Username).
		Int64("id", bot.Me.ID).
		Msg("connected to Telegram")

	go func() {
		<-ctx.Done()
		bot.Stop()
	}()

	bot.Start()

	c.mu.Lock()
	c.running = false
	c.mu.Unlock()
	return ctx.Err()
}

// Stop disconnects the transport.
func (c *Channel) Stop(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.bot != nil && c.running {
		c.log.Info().Msg("disconnecting from Telegram")
		c.bot.Stop()
		c.running = false
	}
	return nil
}

// Send delivers a text message to the given identity. Flood waits are
// surfaced as domain.RateLimitedError.
func (c *Channel) Send(_ context.Context, identity int64, text string) error {
	if c.bot == nil {
		return errors.New("telegram: not connected")
	}
	if _, err := c.bot.Send(tele.ChatID(identity), text); err != nil {
		return mapError(err)
	}
	c.log.Debug().Int64("identity", identity).Msg("sent telegram message")
	return nil
}

// ResolveUsername looks up the numeric identity behind a username.
func (c *Channel) ResolveUsername(_ context.Context, username string) (int64, error) {
	if c.bot == nil {
		return 0, errors.New("telegram: not connected")
	}
	if !strings.HasPrefix(username, "@") {
		username = "@" + username
	}
	chat, err := c.bot.ChatByUsername(username)
	if err != nil {
		return 0, fmt.Errorf("resolve %s: %w", username, mapError(err))
	}
	return chat.ID, nil
}

// ChatInfo fetches metadata for a chat by its identity.
func (c *Channel) ChatInfo(_ context.Context, chatID int64) (domain.ChatInfo, error) {
	if c.bot == nil {
		return domain.ChatInfo{}, errors.New("telegram: not connected")
	}
	chat, err := c.bot.ChatByID(chatID)
	if err != nil {
		return domain.ChatInfo{}, fmt.Errorf("chat info %d: %w", chatID, mapError(err))
	}
	return domain.ChatInfo{ID: chat.ID, Username: chat.Username}, nil
}

// onMessage converts a telebot update into the normalized inbound event and
// hands it to the registered handler.
func (c *Channel) onMessage(tc tele.Context) error {
	m := tc.Message()
	if m == nil || m.Chat == nil {
		return nil
	}

	msg := Convert(m)

	c.mu.RLock()
	handler := c.handler
	c.mu.RUnlock()

	if handler != nil {
		handler(msg)
	}
	return nil
}

// Convert normalizes a telebot message into the tagged-variant inbound event.
func Convert(m *tele.Message) domain.InboundMessage {
	text := m.Text
	if text == "" {
		text = m.Caption
	}

	msg := domain.InboundMessage{
		ID:        uuid.New().String(),
		Text:      text,
		ChatID:    m.Chat.ID,
		Timestamp: m.Time(),
	}
	msg.ChatUsername = m.Chat.Username

	if m.Sender != nil {
		msg.Sender = userRef(m.Sender)
	}
	if m.OriginalSender != nil {
		msg.ForwardFrom = userRef(m.OriginalSender)
	}
	if m.ReplyTo != nil && m.ReplyTo.Sender != nil {
		msg.ReplyTo = userRef(m.ReplyTo.Sender)
	}

	if m.ReplyMarkup != nil {
		for _, row := range m.ReplyMarkup.InlineKeyboard {
			buttons := make([]domain.Button, 0, len(row))
			for _, b := range row {
				buttons = append(buttons, domain.Button{
					Label: b.Text,
					Data:  b.Data,
					URL:   b.URL,
				})
			}
			msg.ButtonRows = append(msg.ButtonRows, buttons)
		}
	}

	for _, e := range append(m.Entities, m.CaptionEntities...) {
		switch e.Type {
		case tele.EntityMention, tele.EntityTMention:
			ent := domain.Entity{Type: string(e.Type)}
			if e.User != nil {
				ent.User = userRef(e.User)
			}
			msg.Entities = append(msg.Entities, ent)
		}
	}

	return msg
}

func userRef(u *tele.User) *domain.UserRef {
	return &domain.UserRef{
		ID:       u.ID,
		Username: u.Username,
		IsBot:    u.IsBot,
	}
}

// mapError converts telebot errors into the domain taxonomy.
func mapError(err error) error {
	var flood tele.FloodError
	if errors.As(err, &flood) {
		return &domain.RateLimitedError{RetryAfter: time.Duration(flood.RetryAfter) * time.Second}
	}
	return err
}
