// Package flood rate-limits track requests per user with a sliding window.
package flood

import (
	"sync"
	"time"
)

const (
	// cleanupInterval is how often we clean up expired entries
	cleanupInterval = 10 * time.Minute
)

// Floodgate provides per-user rate limiting with a sliding time window.
type Floodgate struct {
	limit       int           // Maximum requests per user per window
	window      time.Duration // Sliding window size
	entries     map[string]*userEntry
	mutex       sync.RWMutex
	stopCleanup chan struct{}
	now         func() time.Time // Clock, swappable in tests
}

// userEntry tracks request timestamps for a single user
type userEntry struct {
	timestamps []time.Time // Sliding window of request timestamps
	lastSeen   time.Time   // When this user was last seen (for cleanup)
}

// New creates a Floodgate allowing limit requests per window per user.
func New(limit int, window time.Duration) *Floodgate {
	fg := &Floodgate{
		limit:       limit,
		window:      window,
		entries:     make(map[string]*userEntry),
		stopCleanup: make(chan struct{}),
		now:         time.Now,
	}

	// Start background cleanup goroutine
	go fg.cleanup()

	return fg
}

// Stop stops the background cleanup goroutine
func (fg *Floodgate) Stop() {
	close(fg.stopCleanup)
}

// Allow reports whether the user may submit another request right now.
// An allowed request counts against the user's window; a blocked one does not.
func (fg *Floodgate) Allow(userID string) bool {
	now := fg.now()

	fg.mutex.Lock()
	defer fg.mutex.Unlock()

	entry, exists := fg.entries[userID]
	if !exists {
		entry = &userEntry{
			timestamps: make([]time.Time, 0, fg.limit+1),
		}
		fg.entries[userID] = entry
	}

	entry.lastSeen = now

	// Remove timestamps outside the window
	windowStart := now.Add(-fg.window)
	validTimestamps := entry.timestamps[:0] // Reuse slice capacity
	for _, ts := range entry.timestamps {
		if ts.After(windowStart) {
			validTimestamps = append(validTimestamps, ts)
		}
	}
	entry.timestamps = validTimestamps

	if len(entry.timestamps) >= fg.limit {
		return false
	}

	entry.timestamps = append(entry.timestamps, now)
	return true
}

// cleanup removes idle user entries to prevent memory leaks
func (fg *Floodgate) cleanup() {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			fg.performCleanup()
		case <-fg.stopCleanup:
			return
		}
	}
}

// performCleanup removes entries that have been idle longer than the window
func (fg *Floodgate) performCleanup() {
	fg.mutex.Lock()
	defer fg.mutex.Unlock()

	cutoff := fg.now().Add(-fg.window)
	for key, entry := range fg.entries {
		if entry.lastSeen.Before(cutoff) {
			delete(fg.entries, key)
		}
	}
}

// Stats contains floodgate statistics for monitoring
type Stats struct {
	ActiveUsers   int `json:"active_users"`
	Limit         int `json:"limit"`
	WindowSeconds int `json:"window_seconds"`
}

// GetStats returns statistics about the floodgate for monitoring
func (fg *Floodgate) GetStats() Stats {
	fg.mutex.RLock()
	defer fg.mutex.RUnlock()

	return Stats{
		ActiveUsers:   len(fg.entries),
		Limit:         fg.limit,
		WindowSeconds: int(fg.window.Seconds()),
	}
}
