package core

import (
	"context"
	"time"
)

// Track holds the subset of track metadata the bot shows to users.
type Track struct {
	ID       string
	Title    string
	Artists  string // all artist names, comma separated
	Album    string
	Duration time.Duration
	URL      string // public web page for the track
}

// RequestState tracks the lifecycle of a single track request.
type RequestState int

const (
	// StatePosted means the vote message is live in the voting chat.
	StatePosted RequestState = iota
	// StateResolving means a moderator's vote claimed the request and its
	// side effects are in flight.
	StateResolving
	// StateApproved means the track was appended to the playback queue.
	StateApproved
	// StateDeclined means a moderator declined the request.
	StateDeclined
	// StateFailed means approval was voted but the queue append failed.
	StateFailed
)

func (s RequestState) String() string {
	switch s {
	case StatePosted:
		return "posted"
	case StateResolving:
		return "resolving"
	case StateApproved:
		return "approved"
	case StateDeclined:
		return "declined"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// TrackRequest is one guest request moving through the vote workflow. A
// request is created only after the link parsed and the lookup succeeded, and
// it resolves at most once.
type TrackRequest struct {
	URI           string // canonical spotify:track:<id>
	TrackID       string
	Track         Track
	RequesterID   string
	RequesterName string
	SubmittedAt   time.Time
	State         RequestState
}

// MusicService is the playback-queue integration the workflow depends on.
type MusicService interface {
	// GetTrack fetches track metadata by id. A missing track yields an error
	// wrapping ErrTrackNotFound.
	GetTrack(ctx context.Context, trackID string) (*Track, error)

	// AddToQueue appends the track to the shared playback queue. A rejected
	// credential yields an error wrapping ErrUnauthorized.
	AddToQueue(ctx context.Context, trackID string) error

	// ResolveShortLink follows a spotify.link short URL to its open.spotify.com
	// destination.
	ResolveShortLink(ctx context.Context, shortURL string) (string, error)
}

// Authorizer is the OAuth lifecycle surface the admin /login flow drives.
type Authorizer interface {
	// Ready reports whether a usable credential is loaded.
	Ready() bool

	// AuthorizationURL returns the URL the admin opens to grant access.
	AuthorizationURL() string

	// CompleteAuthorization exchanges the pasted authorization code (or
	// redirect URL) for the initial token pair and persists it.
	CompleteAuthorization(ctx context.Context, input string) error

	// Invalidate drops the stored credential so Ready reports false until an
	// admin authorizes again.
	Invalidate() error
}

// RateLimiter gates inbound requests per user.
type RateLimiter interface {
	Allow(userID string) bool
}

// DedupStore remembers recently queued track ids so the same track is not
// put up for vote twice in a row.
type DedupStore interface {
	Has(trackID string) bool
	Add(trackID string)
	Size() int
}

// KeyValueStore is the durable storage used for the cached OAuth credential.
type KeyValueStore interface {
	Get(key string) (value []byte, found bool, err error)
	Set(key string, value []byte) error
}

// MetricsRecorder receives workflow outcomes for observability. All methods
// must be safe for concurrent use.
type MetricsRecorder interface {
	RequestHandled(outcome string)
	VoteHandled(outcome string)
	QueueAppended()
	SetPendingRequests(n int)
}

// NopMetrics is a MetricsRecorder that drops everything, for tests and for
// running without the metrics server.
type NopMetrics struct{}

func (NopMetrics) RequestHandled(string)  {}
func (NopMetrics) VoteHandled(string)     {}
func (NopMetrics) QueueAppended()         {}
func (NopMetrics) SetPendingRequests(int) {}
