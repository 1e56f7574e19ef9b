// Package routing decodes inbound delivery addressing tokens into the
// template and sender identity they encode. Parsing is total and side-effect
// free: the same token always yields the same RoutingInfo.
//
// Token format (produced by the inbound email/web collaborator):
//
//	congress+<templateId>-<userId>            authenticated sender
//	congress+guest-<templateId>-<sessionToken> guest sender
//
// Template ids may themselves contain hyphens, so the payload is split at the
// last separator and everything before it belongs to the template id. Tokens
// may arrive as full mailbox addresses; anything from '@' on is ignored.
package routing

import (
	"errors"
	"strings"
)

// Prefix is the addressing prefix every routing token must carry. Matching is
// case-insensitive because mail transports do not preserve local-part case.
const Prefix = "congress+"

// guestMarker introduces the guest payload variant.
const guestMarker = "guest-"

// ErrInvalidFormat is returned when a token does not carry the expected
// prefix or its payload does not split into exactly two non-empty parts.
var ErrInvalidFormat = errors.New("invalid routing address format")

// Kind discriminates the two RoutingInfo variants.
type Kind string

// RoutingInfo variants.
const (
	KindAuthenticated Kind = "authenticated"
	KindGuest         Kind = "guest"
)

// RoutingInfo is the decoded form of a routing token.
//
// Exactly one of UserID / SessionToken is populated, matching Kind:
// authenticated tokens carry the user id, guest tokens the session token.
type RoutingInfo struct {
	Kind         Kind
	TemplateID   string
	UserID       string
	SessionToken string
}

// Parse decodes token into a RoutingInfo. It fails with ErrInvalidFormat when
// the prefix is missing or the payload does not yield exactly two non-empty
// parts; it never fails for any other reason.
func Parse(token string) (RoutingInfo, error) {
	t := strings.TrimSpace(token)
	if at := strings.IndexByte(t, '@'); at >= 0 {
		t = t[:at]
	}
	if !hasFoldPrefix(t, Prefix) {
		return RoutingInfo{}, ErrInvalidFormat
	}
	payload := t[len(Prefix):]

	if hasFoldPrefix(payload, guestMarker) {
		templateID, session, ok := splitLast(payload[len(guestMarker):])
		if !ok {
			return RoutingInfo{}, ErrInvalidFormat
		}
		return RoutingInfo{Kind: KindGuest, TemplateID: templateID, SessionToken: session}, nil
	}

	templateID, userID, ok := splitLast(payload)
	if !ok {
		return RoutingInfo{}, ErrInvalidFormat
	}
	return RoutingInfo{Kind: KindAuthenticated, TemplateID: templateID, UserID: userID}, nil
}

// splitLast splits payload at its last hyphen. ok is false when there is no
// hyphen or either side would be empty.
func splitLast(payload string) (left, right string, ok bool) {
	i := strings.LastIndexByte(payload, '-')
	if i <= 0 || i == len(payload)-1 {
		return "", "", false
	}
	return payload[:i], payload[i+1:], true
}

// hasFoldPrefix reports whether s begins with prefix under ASCII case folding.
func hasFoldPrefix(s, prefix string) bool {
	return len(s) >= len(prefix) && strings.EqualFold(s[:len(prefix)], prefix)
}
