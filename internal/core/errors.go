package core

import "errors"

// Sentinel errors for the request workflow. Handlers classify failures with
// errors.Is and convert every user-triggered one into a chat reply; none of
// them unwinds past the per-event handler.
var (
	// ErrInvalidLink means the message carried no recognizable track link.
	// Frequent and user-facing; answered with format help, not logged as an
	// error.
	ErrInvalidLink = errors.New("no track link in message")

	// ErrRateLimited means the sender exceeded the per-user request budget.
	ErrRateLimited = errors.New("request rate limit exceeded")

	// ErrTrackNotFound means the music service has no track for the id.
	ErrTrackNotFound = errors.New("track not found")

	// ErrDuplicateTrack means the track was queued recently already.
	ErrDuplicateTrack = errors.New("track already queued recently")

	// ErrUnauthorized means the music service rejected the credential; the
	// admin must run the authorization flow again.
	ErrUnauthorized = errors.New("music service authorization required")

	// ErrQueueAppend means the queue append failed for a reason other than
	// authorization. Not retried automatically.
	ErrQueueAppend = errors.New("queue append failed")

	// ErrAlreadyResolved means a vote arrived for a request that already has
	// an outcome; the vote is a no-op.
	ErrAlreadyResolved = errors.New("request already resolved")

	// ErrUnknownRequest means a vote referenced a message the ledger does not
	// track (restart, or a stale button).
	ErrUnknownRequest = errors.New("unknown request")
)
