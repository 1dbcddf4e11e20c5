package session

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/relaycore/relaycore/pkg/models"
)

func TestGetCreatesWorkspaceOnce(t *testing.T) {
	root := t.TempDir()
	m := NewManager(root, nil)

	s1, err := m.Get("u1", "c1", models.SourceBot)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	s2, err := m.Get("u1", "c1", models.SourceBot)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if s1 != s2 {
		t.Fatalf("expected same session instance on second Get")
	}
	if _, err := os.Stat(filepath.Join(root, "u1")); err != nil {
		t.Fatalf("expected workspace dir created: %v", err)
	}
}

func TestClearResetsState(t *testing.T) {
	root := t.TempDir()
	m := NewManager(root, nil)
	s, _ := m.Get("u1", "c1", models.SourceBot)
	s.Transcript = append(s.Transcript, models.TranscriptEntry{Role: models.RoleUser, Content: "hi"})
	s.SecurityCount = 2

	m.Clear("u1", "c1")

	if len(s.Transcript) != 0 || s.SecurityCount != 0 {
		t.Fatalf("expected Clear to reset transcript and security count")
	}
}

func TestPersistSnapshotRoundTrip(t *testing.T) {
	root := t.TempDir()
	m := NewManager(root, nil)
	s, _ := m.Get("u1", "c1", models.SourceBot)

	AppendTurn(s, "Hello", "Hi", time.Now())
	m.PersistSnapshot(s)

	data, err := os.ReadFile(filepath.Join(root, "u1", "SESSION.json"))
	if err != nil {
		t.Fatalf("read snapshot: %v", err)
	}
	var snap models.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(snap.History) != 1 || snap.History[0].Assistant != "Hi" {
		t.Fatalf("unexpected snapshot contents: %+v", snap)
	}
}

func TestAppendTurnTrimsToMax(t *testing.T) {
	s := &models.Session{}
	for i := 0; i < MaxSnapshotPairs+5; i++ {
		AppendTurn(s, "msg", "reply", time.Now())
	}
	if len(s.History) != MaxSnapshotPairs {
		t.Fatalf("expected history capped at %d, got %d", MaxSnapshotPairs, len(s.History))
	}
}

func TestLockSerializesSameSession(t *testing.T) {
	root := t.TempDir()
	m := NewManager(root, nil)

	var mu sync.Mutex
	order := make([]int, 0, 2)
	active, overlapped := 0, false
	var wg sync.WaitGroup

	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			unlock := m.Lock("u1", "c1")
			defer unlock()
			mu.Lock()
			order = append(order, n)
			active++
			if active > 1 {
				overlapped = true
			}
			mu.Unlock()
			time.Sleep(5 * time.Millisecond)
			mu.Lock()
			active--
			mu.Unlock()
		}(i)
	}
	wg.Wait()

	if len(order) != 2 {
		t.Fatalf("expected both goroutines to record, got %v", order)
	}
	if overlapped {
		t.Fatalf("expected Lock to serialize holders of the same session")
	}
}

func TestLockAllowsConcurrentDifferentSessions(t *testing.T) {
	root := t.TempDir()
	m := NewManager(root, nil)

	start := make(chan struct{})
	var wg sync.WaitGroup
	done := make(chan struct{}, 2)

	for _, chat := range []string{"c1", "c2"} {
		wg.Add(1)
		go func(chatID string) {
			defer wg.Done()
			<-start
			unlock := m.Lock("u1", chatID)
			defer unlock()
			done <- struct{}{}
		}(chat)
	}
	close(start)
	wg.Wait()
}
