package i18n

// germanMessages contains all German translations.
var germanMessages = map[string]string{
	"request.ack":          "🎵 Track wurde angefragt: %s — %s\n%s",
	"request.help":         "Schick mir einen Spotify-Track-Link, z.B. https://open.spotify.com/track/…, und die Moderatoren stimmen ab.",
	"request.rate_limited": "Langsam! Du hast schon %d Anfragen in den letzten %s geschickt. Bitte warte kurz.",
	"request.not_found":    "Konnte den Track auf Spotify nicht finden. Stimmt der Link?",
	"request.duplicate":    "Der Track lief gerade erst. Such dir einen anderen aus!",
	"request.failed":       "Da ist etwas schiefgelaufen. Bitte versuch es nochmal.",

	"vote.prompt":         "Anfrage von %s:\n🎵 %s\n👥 %s\n🔗 %s",
	"vote.button_approve": "✅ In die Queue",
	"vote.button_decline": "❌ Löschen",
	"vote.approved":       "✅ %s hat akzeptiert: %s — %s\n%s",
	"vote.declined":       "❌ %s hat abgelehnt: %s — %s",
	"vote.failed":         "⚠️ Konnte %s nicht einreihen (akzeptiert von %s): %s",
	"vote.unauthorized":   "⚠️ Konnte %s nicht einreihen: Spotify-Autorisierung abgelaufen. Ein Admin muss /login ausführen.",

	"callback.approved":        "✅ Track eingereiht",
	"callback.declined":        "❌ Anfrage abgelehnt",
	"callback.already_decided": "Diese Anfrage wurde schon entschieden.",
	"callback.unknown":         "Diese Anfrage wird nicht mehr verfolgt.",
	"callback.failed":          "Einreihen fehlgeschlagen, siehe Abstimmungsnachricht.",

	"login.prompt":    "Spotify-Login:\nÖffne diese URL im Browser und erlaube den Zugriff:\n%s\nDann füge die weitergeleitete URL (oder den Code) hier ein.",
	"login.saved":     "Token gespeichert. Die Queue ist bereit.",
	"login.invalid":   "Ungültiger Code oder URL. Starte mit /login neu.",
	"login.not_admin": "Nur Admins können Spotify verknüpfen.",

	"id.chat":        "Dieser Chat hat die ID %s",
	"id.chat_thread": "Dieser Chat hat die ID %s, Thread %s",
	"help":           "Befehle:\n/help — zeigt diesen Text\n/id — zeigt Chat- und Thread-ID\n/login — Spotify verknüpfen (nur Admins)\n\nSonst: einfach einen Spotify-Track-Link schicken.",
}
