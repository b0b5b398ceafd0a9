package i18n

// englishMessages contains all English translations.
var englishMessages = map[string]string{
	// Requester-facing replies
	"request.ack":          "🎵 Requested: %s — %s\n%s",
	"request.help":         "Send me a Spotify track link, e.g. https://open.spotify.com/track/…, and the moderators will vote on it.",
	"request.rate_limited": "Easy! You already sent %d requests in the last %s. Please wait a bit.",
	"request.not_found":    "Couldn't find that track on Spotify. Is the link correct?",
	"request.duplicate":    "That track was queued just recently. Pick another one!",
	"request.failed":       "Something went wrong. Please try again.",

	// Voting-chat messages
	"vote.prompt":         "Request from %s:\n🎵 %s\n👥 %s\n🔗 %s",
	"vote.button_approve": "✅ Queue it",
	"vote.button_decline": "❌ Decline",
	"vote.approved":       "✅ %s approved: %s — %s\n%s",
	"vote.declined":       "❌ %s declined: %s — %s",
	"vote.failed":         "⚠️ Could not queue %s (approved by %s): %s",
	"vote.unauthorized":   "⚠️ Could not queue %s: Spotify authorization expired. An admin must run /login again.",

	// Button-tap feedback
	"callback.approved":        "✅ Track queued",
	"callback.declined":        "❌ Request declined",
	"callback.already_decided": "This request was already decided.",
	"callback.unknown":         "This request is no longer tracked.",
	"callback.failed":          "Queueing failed, see the vote message.",

	// Admin authorization flow
	"login.prompt":       "Spotify login:\nOpen this URL in a browser and allow access:\n%s\nThen paste the redirected URL (or the code) here.",
	"login.saved":        "Token saved. The queue is ready.",
	"login.invalid":      "Invalid code or URL. Run /login to try again.",
	"login.not_admin":    "Only admins can link Spotify.",

	// Utility commands
	"id.chat":        "This chat has ID %s",
	"id.chat_thread": "This chat has ID %s, thread %s",
	"help":           "Commands:\n/help — show this text\n/id — show chat and thread id\n/login — link Spotify (admins only)\n\nAnywhere else: just send a Spotify track link.",
}
