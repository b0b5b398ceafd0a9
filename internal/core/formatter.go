package core

import (
	"time"

	"github.com/daslui/telegram-music-bot/internal/i18n"
)

// Message formatting for the request workflow. Everything here is pure so it
// can be tested without a transport.

func ackText(loc *i18n.Localizer, t *Track) string {
	return loc.T("request.ack", t.Title, t.Artists, t.URL)
}

func voteMessageText(loc *i18n.Localizer, requesterName string, t *Track) string {
	return loc.T("vote.prompt", requesterName, t.Title, t.Artists, t.URL)
}

func approvedText(loc *i18n.Localizer, voterName string, t *Track) string {
	return loc.T("vote.approved", voterName, t.Title, t.Artists, t.URL)
}

func declinedText(loc *i18n.Localizer, voterName string, t *Track) string {
	return loc.T("vote.declined", voterName, t.Title, t.Artists)
}

// failedText names the track URI that was approved but never made it into
// the queue, so moderators can retry it by hand.
func failedText(loc *i18n.Localizer, uri, voterName string, cause error) string {
	return loc.T("vote.failed", uri, voterName, cause.Error())
}

func unauthorizedText(loc *i18n.Localizer, uri string) string {
	return loc.T("vote.unauthorized", uri)
}

func rateLimitedText(loc *i18n.Localizer, limit int, window time.Duration) string {
	return loc.T("request.rate_limited", limit, window.String())
}

func chatIDText(loc *i18n.Localizer, chatID, threadID string) string {
	if threadID == "" {
		return loc.T("id.chat", chatID)
	}
	return loc.T("id.chat_thread", chatID, threadID)
}
