package services

import (
	"errors"
	"sync"
	"testing"
	"time"
)

func TestSessionManager_CreateAndLookup(t *testing.T) {
	sm := NewSessionManager(24*time.Hour, NewFakeClock(testStart))

	s, err := sm.Create("10.0.0.1", "curl/8")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if len(s.ID) != 64 {
		t.Errorf("Expected 64 hex chars, got %d", len(s.ID))
	}

	got, err := sm.Lookup(s.ID)
	if err != nil {
		t.Fatalf("Lookup failed: %v", err)
	}
	if got.IP != "10.0.0.1" || got.UserAgent != "curl/8" {
		t.Errorf("Unexpected session %+v", got)
	}

	other, _ := sm.Create("10.0.0.2", "")
	if other.ID == s.ID {
		t.Errorf("Expected unique session ids")
	}
}

func TestSessionManager_LookupUnknown(t *testing.T) {
	sm := NewSessionManager(time.Hour, nil)

	for _, token := range []string{"", "nope"} {
		if _, err := sm.Lookup(token); !errors.Is(err, ErrUnauthenticated) {
			t.Errorf("Lookup(%q): expected ErrUnauthenticated, got %v", token, err)
		}
	}
}

func TestSessionManager_ExpiresAtTTL(t *testing.T) {
	clock := NewFakeClock(testStart)
	sm := NewSessionManager(24*time.Hour, clock)
	s, _ := sm.Create("ip", "ua")

	clock.Advance(24*time.Hour - time.Second)
	if _, err := sm.Lookup(s.ID); err != nil {
		t.Fatalf("Expected session valid just before TTL, got %v", err)
	}

	clock.Advance(2 * time.Second)
	if _, err := sm.Lookup(s.ID); !errors.Is(err, ErrUnauthenticated) {
		t.Errorf("Expected ErrUnauthenticated after TTL, got %v", err)
	}
	if sm.Count() != 0 {
		t.Errorf("Expected expired session to be evicted, count=%d", sm.Count())
	}
}

func TestSessionManager_ListEvictsExpired(t *testing.T) {
	clock := NewFakeClock(testStart)
	sm := NewSessionManager(time.Hour, clock)

	old, _ := sm.Create("1", "")
	clock.Advance(30 * time.Minute)
	mid, _ := sm.Create("2", "")
	clock.Advance(time.Minute)
	newest, _ := sm.Create("3", "")

	list := sm.List()
	if len(list) != 3 {
		t.Fatalf("Expected 3 sessions, got %d", len(list))
	}
	if list[0].ID != old.ID || list[1].ID != mid.ID || list[2].ID != newest.ID {
		t.Errorf("Expected sessions oldest first")
	}

	clock.Advance(45 * time.Minute)
	list = sm.List()
	if len(list) != 2 {
		t.Fatalf("Expected 2 live sessions, got %d", len(list))
	}
	if sm.Count() != 2 {
		t.Errorf("Expected expired session evicted, count=%d", sm.Count())
	}
}

func TestSessionManager_RevokeIsIdempotent(t *testing.T) {
	sm := NewSessionManager(time.Hour, nil)
	s, _ := sm.Create("ip", "ua")

	sm.Revoke(s.ID)
	sm.Revoke(s.ID)
	sm.Revoke("never-existed")

	if _, err := sm.Lookup(s.ID); !errors.Is(err, ErrUnauthenticated) {
		t.Errorf("Expected revoked session to be gone, got %v", err)
	}
}

func TestSessionManager_ClearAllIncludesCaller(t *testing.T) {
	sm := NewSessionManager(time.Hour, nil)
	mine, _ := sm.Create("me", "")
	sm.Create("other", "")

	if n := sm.ClearAll(); n != 2 {
		t.Errorf("Expected 2 cleared, got %d", n)
	}
	if _, err := sm.Lookup(mine.ID); !errors.Is(err, ErrUnauthenticated) {
		t.Errorf("Expected caller's session to be cleared, got %v", err)
	}
	if n := sm.ClearAll(); n != 0 {
		t.Errorf("Expected 0 on second clear, got %d", n)
	}
}

func TestSessionManager_Concurrent(t *testing.T) {
	sm := NewSessionManager(time.Hour, nil)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s, err := sm.Create("ip", "ua")
			if err != nil {
				t.Errorf("Create failed: %v", err)
				return
			}
			if _, err := sm.Lookup(s.ID); err != nil {
				t.Errorf("Lookup failed: %v", err)
			}
			_ = sm.List()
		}()
	}
	wg.Wait()

	if sm.Count() != 50 {
		t.Errorf("Expected 50 sessions, got %d", sm.Count())
	}
}
