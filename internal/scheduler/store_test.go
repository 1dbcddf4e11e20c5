package scheduler

import (
	"testing"
	"time"

	"github.com/relaycore/relaycore/pkg/models"
)

func TestAddAndListForUser(t *testing.T) {
	s := NewStore(t.TempDir())
	added, err := s.Add(models.Task{UserID: "u1", ChatID: "c1", Content: "ping", ExecuteAt: time.Now().Unix()})
	if err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	if added.ID == "" {
		t.Fatalf("expected a generated ID")
	}

	list := s.ListForUser("u1")
	if len(list) != 1 || list[0].ID != added.ID {
		t.Fatalf("expected one task for u1, got %+v", list)
	}
}

func TestAddRejectsPerUserCap(t *testing.T) {
	s := NewStore(t.TempDir())
	for i := 0; i < MaxTasksPerUser; i++ {
		if _, err := s.Add(models.Task{UserID: "u1", ChatID: "c1", Content: "x", ExecuteAt: time.Now().Unix()}); err != nil {
			t.Fatalf("Add %d failed: %v", i, err)
		}
	}
	if _, err := s.Add(models.Task{UserID: "u1", ChatID: "c1", Content: "overflow", ExecuteAt: time.Now().Unix()}); err == nil {
		t.Fatalf("expected the 21st task for the same user to be rejected")
	}
}

func TestAddRejectsShortRecurrence(t *testing.T) {
	s := NewStore(t.TempDir())
	_, err := s.Add(models.Task{UserID: "u1", Recurring: true, IntervalMinutes: 0, ExecuteAt: time.Now().Unix()})
	if err == nil {
		t.Fatalf("expected rejection of sub-minute recurrence")
	}
}

func TestCancelRemovesTask(t *testing.T) {
	s := NewStore(t.TempDir())
	added, _ := s.Add(models.Task{UserID: "u1", ExecuteAt: time.Now().Unix()})
	if err := s.Cancel(added.ID); err != nil {
		t.Fatalf("Cancel failed: %v", err)
	}
	if _, ok := s.Get(added.ID); ok {
		t.Fatalf("expected task to be gone after cancel")
	}
}

func TestDueSetOnlyReturnsPastDue(t *testing.T) {
	s := NewStore(t.TempDir())
	past, _ := s.Add(models.Task{UserID: "u1", ExecuteAt: time.Now().Add(-time.Minute).Unix()})
	s.Add(models.Task{UserID: "u1", ExecuteAt: time.Now().Add(time.Hour).Unix()})

	due := s.DueSet(time.Now())
	if len(due) != 1 || due[0].ID != past.ID {
		t.Fatalf("expected exactly the past-due task, got %+v", due)
	}
}

func TestStorePersistsAcrossInstances(t *testing.T) {
	dir := t.TempDir()
	s1 := NewStore(dir)
	added, _ := s1.Add(models.Task{UserID: "u1", ExecuteAt: time.Now().Unix()})

	s2 := NewStore(dir)
	if _, ok := s2.Get(added.ID); !ok {
		t.Fatalf("expected task to persist across store instances")
	}
}
