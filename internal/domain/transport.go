package domain

import "context"

// ChatInfo is metadata about a chat, fetched on demand.
type ChatInfo struct {
	ID       int64  `json:"id"`
	Username string `json:"username,omitempty"`
}

// Transport is the chat service the bot speaks through. Connection and
// authentication details live entirely behind this interface.
type Transport interface {
	// Start connects and begins delivering inbound messages. Blocks until
	// the context is canceled or the connection fails.
	Start(ctx context.Context) error

	// Stop disconnects the transport.
	Stop(ctx context.Context) error

	// Send delivers a text message to the given identity. Rate limits are
	// reported as *RateLimitedError.
	Send(ctx context.Context, identity int64, text string) error

	// ResolveUsername looks up the numeric identity behind a username.
	ResolveUsername(ctx context.Context, username string) (int64, error)

	// ChatInfo fetches metadata for a chat by its identity.
	ChatInfo(ctx context.Context, chatID int64) (ChatInfo, error)

	// OnMessage registers the handler for inbound messages.
	OnMessage(handler func(msg InboundMessage))
}
