package core

import (
	"sync"
	"time"
)

// ledgerTTL is how long resolved requests stay around so late duplicate taps
// still answer "already decided" instead of "unknown".
const ledgerTTL = 24 * time.Hour

// Ledger maps vote-message ids to their track requests and guarantees that
// each request resolves exactly once. The messaging transport can deliver a
// button tap more than once, and two moderators can tap within the same
// instant; Claim is the single atomic gate both races go through.
type Ledger struct {
	mu       sync.Mutex
	requests map[string]*ledgerEntry
}

type ledgerEntry struct {
	request    TrackRequest
	resolvedAt time.Time
}

func NewLedger() *Ledger {
	return &Ledger{requests: make(map[string]*ledgerEntry)}
}

// Post registers a freshly posted vote message.
func (l *Ledger) Post(messageID string, req TrackRequest) {
	req.State = StatePosted

	l.mu.Lock()
	defer l.mu.Unlock()

	l.pruneLocked(time.Now())
	l.requests[messageID] = &ledgerEntry{request: req}
}

// Claim atomically transitions a Posted request to Resolving and hands a
// copy to the caller. Exactly one voter wins; every other concurrent or
// repeated vote gets ErrAlreadyResolved (or ErrUnknownRequest for messages
// the ledger never saw).
func (l *Ledger) Claim(messageID string) (TrackRequest, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	entry, ok := l.requests[messageID]
	if !ok {
		return TrackRequest{}, ErrUnknownRequest
	}
	if entry.request.State != StatePosted {
		return TrackRequest{}, ErrAlreadyResolved
	}

	entry.request.State = StateResolving
	return entry.request, nil
}

// Complete records the final outcome of a claimed request.
func (l *Ledger) Complete(messageID string, state RequestState) {
	l.mu.Lock()
	defer l.mu.Unlock()

	entry, ok := l.requests[messageID]
	if !ok {
		return
	}
	entry.request.State = state
	entry.resolvedAt = time.Now()
}

// Pending counts requests still waiting for a vote.
func (l *Ledger) Pending() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	n := 0
	for _, entry := range l.requests {
		if entry.request.State == StatePosted || entry.request.State == StateResolving {
			n++
		}
	}
	return n
}

// State reports the current state of a tracked request.
func (l *Ledger) State(messageID string) (RequestState, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	entry, ok := l.requests[messageID]
	if !ok {
		return 0, false
	}
	return entry.request.State, true
}

func (l *Ledger) pruneLocked(now time.Time) {
	for id, entry := range l.requests {
		if !entry.resolvedAt.IsZero() && now.Sub(entry.resolvedAt) > ledgerTTL {
			delete(l.requests, id)
		}
	}
}
