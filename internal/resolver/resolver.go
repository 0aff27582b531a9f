// Package resolver extracts the numeric identity a match notification refers
// to. Strategies run in strict priority order: structured signals (button
// user handles, callback data) first, free-text digit scanning next, the
// remote username lookup only when everything cheaper failed, and finally
// forward/reply origins.
package resolver

import (
	"context"
	"regexp"
	"strconv"
	"strings"

	"github.com/mkrutov/leobot/internal/domain"
	"github.com/mkrutov/leobot/internal/logging"
)

var (
	// idLabelPattern matches an explicit "id: 123456789" label.
	idLabelPattern = regexp.MustCompile(`(?i)id[:\s]+(\d+)`)
	// digitRunPattern requires 9+ digits so small incidental numbers
	// (dates, short codes) are never mistaken for identities. Longer runs
	// in unrelated prose can still match; that heuristic risk is accepted.
	digitRunPattern = regexp.MustCompile(`\d{9,}`)
	// linkPattern extracts the path segment of a t.me link. A "+"-prefixed
	// segment is an invite link, not a username.
	linkPattern = regexp.MustCompile(`t\.me/([\w+]+)`)
)

// UsernameLookup resolves a username to an identity through the chat service.
type UsernameLookup interface {
	ResolveUsername(ctx context.Context, username string) (int64, error)
}

// Resolver applies the ordered extraction strategies.
type Resolver struct {
	lookup UsernameLookup
	log    *logging.Logger
}

// New creates a resolver. lookup may be nil, which disables the remote
// username strategy.
func New(lookup UsernameLookup, log *logging.Logger) *Resolver {
	return &Resolver{lookup: lookup, log: log.Sub("resolver")}
}

// Resolve returns the identity the message refers to, or
// domain.ErrIdentityUnresolved when every strategy failed.
func (r *Resolver) Resolve(ctx context.Context, msg domain.InboundMessage) (int64, error) {
	// Buttons carry the cheapest unambiguous signals. A t.me username link
	// is only noted here; the remote lookup it needs runs last among the
	// primary strategies because of its network cost.
	if id, ok := fromButtonUser(msg); ok {
		return id, nil
	}
	if id, ok := fromButtonData(msg); ok {
		return id, nil
	}
	deferredUsername, hasDeferred := linkUsername(msg)

	if id, ok := fromText(msg.Text); ok {
		return id, nil
	}
	if id, ok := fromMentions(msg); ok {
		return id, nil
	}

	if hasDeferred && r.lookup != nil {
		id, err := r.lookup.ResolveUsername(ctx, deferredUsername)
		if err == nil {
			return id, nil
		}
		// Lookup failures are swallowed; resolution continues.
		r.log.Debug().Err(err).Str("username", deferredUsername).Msg("username lookup failed")
	}

	if msg.ForwardFrom != nil {
		return msg.ForwardFrom.ID, nil
	}
	if msg.ReplyTo != nil {
		return msg.ReplyTo.ID, nil
	}

	return 0, domain.ErrIdentityUnresolved
}

// fromButtonUser scans rows top-to-bottom, buttons left-to-right for a
// directly attached user handle.
func fromButtonUser(msg domain.InboundMessage) (int64, bool) {
	for _, row := range msg.ButtonRows {
		for _, btn := range row {
			if btn.User != nil {
				return btn.User.ID, true
			}
		}
	}
	return 0, false
}

// fromButtonData scans buttons for callback data containing a 9+ digit run.
func fromButtonData(msg domain.InboundMessage) (int64, bool) {
	for _, row := range msg.ButtonRows {
		for _, btn := range row {
			if btn.Data == "" {
				continue
			}
			if m := digitRunPattern.FindString(btn.Data); m != "" {
				if id, err := strconv.ParseInt(m, 10, 64); err == nil {
					return id, true
				}
			}
		}
	}
	return 0, false
}

// linkUsername finds the first button URL pointing at a plain t.me username.
func linkUsername(msg domain.InboundMessage) (string, bool) {
	for _, row := range msg.ButtonRows {
		for _, btn := range row {
			if btn.URL == "" || !strings.Contains(btn.URL, "t.me") {
				continue
			}
			m := linkPattern.FindStringSubmatch(btn.URL)
			if m == nil || strings.HasPrefix(m[1], "+") {
				continue
			}
			return m[1], true
		}
	}
	return "", false
}

// fromText looks for a labeled "id: <digits>" pattern, then for any 9+ digit run.
func fromText(text string) (int64, bool) {
	if m := idLabelPattern.FindStringSubmatch(text); m != nil {
		if id, err := strconv.ParseInt(m[1], 10, 64); err == nil {
			return id, true
		}
	}
	if m := digitRunPattern.FindString(text); m != "" {
		if id, err := strconv.ParseInt(m, 10, 64); err == nil {
			return id, true
		}
	}
	return 0, false
}

// fromMentions returns the first mention annotation that resolves to a
// concrete user handle.
func fromMentions(msg domain.InboundMessage) (int64, bool) {
	for _, e := range msg.Entities {
		if e.Type == domain.EntityMention || e.Type == domain.EntityTextMention {
			if e.User != nil {
				return e.User.ID, true
			}
		}
	}
	return 0, false
}
