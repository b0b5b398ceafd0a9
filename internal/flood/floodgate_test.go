package flood

import (
	"testing"
	"time"
)

func TestFloodgate_Allow_NormalUsage(t *testing.T) {
	fg := New(3, time.Minute)
	defer fg.Stop()

	userID := "user1"

	// Should allow first 3 requests
	for i := 0; i < 3; i++ {
		if !fg.Allow(userID) {
			t.Errorf("Request %d should be allowed", i+1)
		}
	}

	// 4th request should be blocked
	if fg.Allow(userID) {
		t.Error("4th request should be blocked")
	}
}

func TestFloodgate_Allow_SlidingWindow(t *testing.T) {
	fg := New(2, time.Minute)
	defer fg.Stop()

	now := time.Now()
	fg.now = func() time.Time { return now }

	userID := "user1"

	if !fg.Allow(userID) {
		t.Error("First request should be allowed")
	}
	if !fg.Allow(userID) {
		t.Error("Second request should be allowed")
	}
	if fg.Allow(userID) {
		t.Error("Third request should be blocked")
	}

	// Advance the clock past the window
	now = now.Add(61 * time.Second)

	if !fg.Allow(userID) {
		t.Error("Request after window slide should be allowed")
	}
}

func TestFloodgate_Allow_PerUser(t *testing.T) {
	fg := New(2, time.Minute)
	defer fg.Stop()

	// Different users have separate limits
	for i := 0; i < 2; i++ {
		if !fg.Allow("user1") {
			t.Errorf("Request %d from user1 should be allowed", i+1)
		}
		if !fg.Allow("user2") {
			t.Errorf("Request %d from user2 should be allowed", i+1)
		}
	}

	if fg.Allow("user1") {
		t.Error("Extra request from user1 should be blocked")
	}
	if fg.Allow("user2") {
		t.Error("Extra request from user2 should be blocked")
	}
}

func TestFloodgate_Allow_PartialWindowSlide(t *testing.T) {
	fg := New(2, time.Minute)
	defer fg.Stop()

	now := time.Now()
	fg.now = func() time.Time { return now }

	userID := "user1"

	fg.Allow(userID)
	now = now.Add(40 * time.Second)
	fg.Allow(userID)

	// First request still inside the window
	if fg.Allow(userID) {
		t.Error("Third request should be blocked while both are in the window")
	}

	// Slide past the first request only
	now = now.Add(25 * time.Second)
	if !fg.Allow(userID) {
		t.Error("Request should be allowed once the oldest timestamp expired")
	}
	if fg.Allow(userID) {
		t.Error("Limit should be hit again right after")
	}
}

func TestFloodgate_BlockedRequestDoesNotCount(t *testing.T) {
	fg := New(1, time.Minute)
	defer fg.Stop()

	now := time.Now()
	fg.now = func() time.Time { return now }

	userID := "user1"
	fg.Allow(userID)

	// Hammering while blocked must not extend the penalty
	for i := 0; i < 5; i++ {
		now = now.Add(10 * time.Second)
		fg.Allow(userID)
	}

	now = now.Add(15 * time.Second) // 65s since the one allowed request
	if !fg.Allow(userID) {
		t.Error("Blocked attempts must not reset the window")
	}
}

func TestFloodgate_Cleanup_RemovesIdleUsers(t *testing.T) {
	fg := New(2, time.Minute)
	defer fg.Stop()

	now := time.Now()
	fg.now = func() time.Time { return now }

	fg.Allow("user1")
	fg.Allow("user2")

	if stats := fg.GetStats(); stats.ActiveUsers != 2 {
		t.Fatalf("ActiveUsers = %d, expected 2", stats.ActiveUsers)
	}

	now = now.Add(2 * time.Minute)
	fg.performCleanup()

	if stats := fg.GetStats(); stats.ActiveUsers != 0 {
		t.Errorf("ActiveUsers = %d after cleanup, expected 0", stats.ActiveUsers)
	}
}

func TestFloodgate_GetStats(t *testing.T) {
	fg := New(3, 5*time.Minute)
	defer fg.Stop()

	fg.Allow("user1")

	stats := fg.GetStats()
	if stats.Limit != 3 {
		t.Errorf("Limit = %d, expected 3", stats.Limit)
	}
	if stats.WindowSeconds != 300 {
		t.Errorf("WindowSeconds = %d, expected 300", stats.WindowSeconds)
	}
	if stats.ActiveUsers != 1 {
		t.Errorf("ActiveUsers = %d, expected 1", stats.ActiveUsers)
	}
}
