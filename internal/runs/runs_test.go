package runs

import (
	"errors"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/modelsmith/tailor-cli/internal/trainer"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "runs.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestLifecycle(t *testing.T) {
	s := openTestStore(t)

	run, err := s.Create("t5-small", true, trainer.DefaultConfig(true), 17, 3)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if run.ID == "" {
		t.Fatal("run has no id")
	}
	if run.Status != StatusPending {
		t.Errorf("status = %q, want %q", run.Status, StatusPending)
	}

	got, err := s.Get(run.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.BaseModel != "t5-small" || !got.HasEncoder {
		t.Errorf("stored run = %+v", got)
	}
	if got.TrainExamples != 17 || got.ValExamples != 3 {
		t.Errorf("example counts = %d/%d, want 17/3", got.TrainExamples, got.ValExamples)
	}
	// The config snapshot survives the JSON round trip.
	if got.Config.BatchSize != 100 || got.Config.EvalStrategy != trainer.StrategyEpoch {
		t.Errorf("config snapshot = %+v", got.Config)
	}
	if got.CreatedAt.IsZero() {
		t.Error("created_at not set")
	}
	if !got.StartedAt.IsZero() || !got.CompletedAt.IsZero() {
		t.Error("pending run should have no started/completed timestamps")
	}

	if err := s.MarkRunning(run.ID); err != nil {
		t.Fatalf("MarkRunning: %v", err)
	}
	got, err = s.Get(run.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Status != StatusRunning {
		t.Errorf("status = %q, want %q", got.Status, StatusRunning)
	}
	if got.StartedAt.IsZero() {
		t.Error("started_at not set")
	}

	if err := s.Complete(run.ID, 0.37); err != nil {
		t.Fatalf("Complete: %v", err)
	}
	got, err = s.Get(run.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Status != StatusCompleted {
		t.Errorf("status = %q, want %q", got.Status, StatusCompleted)
	}
	if got.FinalLoss != 0.37 {
		t.Errorf("final loss = %v, want 0.37", got.FinalLoss)
	}
	if got.CompletedAt.IsZero() {
		t.Error("completed_at not set")
	}
}

func TestTerminalRunsAreImmutable(t *testing.T) {
	s := openTestStore(t)

	run, err := s.Create("gpt2", false, trainer.DefaultConfig(false), 5, 0)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := s.MarkRunning(run.ID); err != nil {
		t.Fatalf("MarkRunning: %v", err)
	}
	if err := s.Complete(run.ID, 1.0); err != nil {
		t.Fatalf("Complete: %v", err)
	}

	if err := s.MarkRunning(run.ID); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("MarkRunning on completed run = %v, want ErrInvalidTransition", err)
	}
	if err := s.Complete(run.ID, 2.0); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("Complete on completed run = %v, want ErrInvalidTransition", err)
	}
	if err := s.Fail(run.ID, errors.New("late failure")); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("Fail on completed run = %v, want ErrInvalidTransition", err)
	}

	got, err := s.Get(run.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.FinalLoss != 1.0 || got.Status != StatusCompleted {
		t.Errorf("terminal run changed: %+v", got)
	}
}

func TestCompleteRequiresRunning(t *testing.T) {
	s := openTestStore(t)

	run, err := s.Create("t5-small", true, trainer.DefaultConfig(true), 1, 0)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := s.Complete(run.ID, 0.5); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("Complete on pending run = %v, want ErrInvalidTransition", err)
	}
}

func TestFail(t *testing.T) {
	s := openTestStore(t)

	// A run can fail before it starts.
	pending, err := s.Create("t5-small", true, trainer.DefaultConfig(true), 1, 0)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := s.Fail(pending.ID, errors.New("no training examples")); err != nil {
		t.Fatalf("Fail: %v", err)
	}
	got, err := s.Get(pending.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Status != StatusFailed || got.Error != "no training examples" {
		t.Errorf("failed run = %+v", got)
	}
	if got.CompletedAt.IsZero() {
		t.Error("completed_at not set on failure")
	}

	// And while running.
	running, err := s.Create("t5-small", true, trainer.DefaultConfig(true), 1, 0)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := s.MarkRunning(running.ID); err != nil {
		t.Fatalf("MarkRunning: %v", err)
	}
	if err := s.Fail(running.ID, errors.New("runner unreachable")); err != nil {
		t.Fatalf("Fail: %v", err)
	}
}

func TestGetNotFound(t *testing.T) {
	s := openTestStore(t)
	if _, err := s.Get("no-such-run"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get = %v, want ErrNotFound", err)
	}
	if err := s.MarkRunning("no-such-run"); !errors.Is(err, ErrNotFound) {
		t.Errorf("MarkRunning = %v, want ErrNotFound", err)
	}
}

func TestListNewestFirst(t *testing.T) {
	s := openTestStore(t)

	var ids []string
	for i := 0; i < 3; i++ {
		run, err := s.Create(fmt.Sprintf("model-%d", i), true, trainer.DefaultConfig(true), i, 0)
		if err != nil {
			t.Fatalf("Create: %v", err)
		}
		ids = append(ids, run.ID)
	}

	all, err := s.List(0)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("len = %d, want 3", len(all))
	}
	for i := range all {
		if want := ids[len(ids)-1-i]; all[i].ID != want {
			t.Errorf("position %d = %s, want %s", i, all[i].ID, want)
		}
	}

	two, err := s.List(2)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(two) != 2 || two[0].ID != ids[2] {
		t.Errorf("limited list = %+v", two)
	}
}

func TestOpenCreatesParentDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "deeper", "runs.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	s.Close()
}

func TestReopenKeepsRuns(t *testing.T) {
	path := filepath.Join(t.TempDir(), "runs.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	run, err := s.Create("t5-small", true, trainer.DefaultConfig(true), 4, 0)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	s2, err := Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s2.Close()
	got, err := s2.Get(run.ID)
	if err != nil {
		t.Fatalf("Get after reopen: %v", err)
	}
	if got.BaseModel != "t5-small" {
		t.Errorf("run lost across reopen: %+v", got)
	}
}
