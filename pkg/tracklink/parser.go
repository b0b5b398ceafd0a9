// Package tracklink provides pure parsing of Spotify track links, URIs and
// vote callback tokens. No function here touches the network.
package tracklink

import (
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// DeclineToken is the fixed callback token carried by the decline button.
const DeclineToken = "decline"

// ApproveTokenPrefix prefixes the approve callback token so the voting chat
// handler can route it separately from other callbacks.
const ApproveTokenPrefix = "approve:"

var (
	trackURLRegex  = regexp.MustCompile(`https?://open\.spotify\.com/track/([a-zA-Z0-9]+)`)
	trackURIRegex  = regexp.MustCompile(`spotify:track:([a-zA-Z0-9]+)`)
	shortLinkRegex = regexp.MustCompile(`https?://spotify\.link/[a-zA-Z0-9]+`)
)

// Parse extracts the first Spotify track reference from free-form text and
// returns it in canonical spotify:track:<id> form. A missing match is the
// common case for chat input and is reported via ok, not an error. Trailing
// query parameters (?si=... and friends) are ignored because the regex stops
// at the id segment.
func Parse(text string) (uri string, ok bool) {
	text = norm.NFKC.String(text)

	if m := trackURIRegex.FindStringSubmatch(text); len(m) > 1 {
		return URI(m[1]), true
	}
	if m := trackURLRegex.FindStringSubmatch(text); len(m) > 1 {
		return URI(m[1]), true
	}
	return "", false
}

// ShortLink reports the first spotify.link short URL in text. Short links
// redirect to open.spotify.com and need network resolution before Parse can
// succeed, so the caller owns that step.
func ShortLink(text string) (url string, ok bool) {
	if m := shortLinkRegex.FindString(norm.NFKC.String(text)); m != "" {
		return m, true
	}
	return "", false
}

// URI builds the canonical track URI for an id.
func URI(id string) string {
	return "spotify:track:" + id
}

// TrackID returns the opaque id portion of a canonical track URI.
func TrackID(uri string) (string, bool) {
	if m := trackURIRegex.FindStringSubmatch(uri); len(m) > 1 {
		return m[1], true
	}
	return "", false
}

// TrackURL returns the public web page for a track id.
func TrackURL(id string) string {
	return "https://open.spotify.com/track/" + id
}

// ApproveToken builds the callback token for the approve button. The token
// embeds the full canonical URI so a vote can be resolved without any lookup
// beyond the ledger.
func ApproveToken(uri string) string {
	return ApproveTokenPrefix + uri
}

// ParseApproveToken extracts the canonical track URI from an approve
// callback token.
func ParseApproveToken(token string) (uri string, ok bool) {
	if !strings.HasPrefix(token, ApproveTokenPrefix) {
		return "", false
	}
	uri = strings.TrimPrefix(token, ApproveTokenPrefix)
	if _, valid := TrackID(uri); !valid {
		return "", false
	}
	return uri, true
}
