// Package store holds the bot's persistent and in-memory state: the sqlite
// key-value store for credentials and the recently-queued track set.
package store

import (
	"sync"

	"github.com/bits-and-blooms/bloom/v3"
	lru "github.com/hashicorp/golang-lru/v2"
)

// falsePositiveRate for the Bloom filter fronting the track set. A false
// positive only costs one map lookup, so it can be generous.
const falsePositiveRate = 0.001

// RecentTracks remembers which tracks were queued recently so the same song
// is not requested over and over during an event. A Bloom filter answers the
// common "never seen" case without touching the map; the LRU bounds memory by
// evicting the oldest track once capacity is reached.
type RecentTracks struct {
	trackIDs map[string]struct{}
	bloom    *bloom.BloomFilter
	lru      *lru.Cache[string, struct{}]
	mutex    sync.RWMutex
	capacity int
}

// NewRecentTracks creates a track set holding at most capacity entries.
func NewRecentTracks(capacity int) *RecentTracks {
	if capacity <= 0 {
		capacity = 1
	}
	lruCache, _ := lru.New[string, struct{}](capacity)

	return &RecentTracks{
		trackIDs: make(map[string]struct{}),
		bloom:    bloom.NewWithEstimates(uint(capacity), falsePositiveRate),
		lru:      lruCache,
		capacity: capacity,
	}
}

// Has reports whether the track was queued recently.
func (rt *RecentTracks) Has(trackID string) bool {
	rt.mutex.RLock()
	defer rt.mutex.RUnlock()

	if !rt.bloom.TestString(trackID) {
		return false
	}

	_, exists := rt.trackIDs[trackID]
	return exists
}

// Add records a queued track, evicting the oldest entry when full.
func (rt *RecentTracks) Add(trackID string) {
	rt.mutex.Lock()
	defer rt.mutex.Unlock()

	if _, exists := rt.trackIDs[trackID]; exists {
		rt.lru.Add(trackID, struct{}{}) // refresh recency
		return
	}

	// Evict before inserting: the LRU is sized to capacity too, and letting
	// it evict internally on Add would drop the oldest entry from the LRU
	// while it lingers in the map.
	if len(rt.trackIDs) >= rt.capacity {
		rt.evictOldest()
	}

	rt.trackIDs[trackID] = struct{}{}
	rt.bloom.AddString(trackID)
	rt.lru.Add(trackID, struct{}{})
}

// Size returns the number of tracks currently remembered.
func (rt *RecentTracks) Size() int {
	rt.mutex.RLock()
	defer rt.mutex.RUnlock()
	return len(rt.trackIDs)
}

func (rt *RecentTracks) evictOldest() {
	oldestKey, _, ok := rt.lru.RemoveOldest()
	if !ok {
		return
	}

	delete(rt.trackIDs, oldestKey)
	// The bloom filter cannot forget; stale bits only cause the occasional
	// extra map lookup.
}
