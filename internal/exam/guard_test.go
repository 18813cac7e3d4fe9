package exam

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/varunsiravuri/exam-platform/internal/model"
)

// fakeResultStore is an in-memory stand-in for the Postgres repository.
type fakeResultStore struct {
	results  map[string]*model.Result
	healthy  bool
	checkErr error
	saveErr  error
}

func newFakeResultStore() *fakeResultStore {
	return &fakeResultStore{results: make(map[string]*model.Result), healthy: true}
}

func (f *fakeResultStore) CheckCompletion(_ context.Context, studentID string) (bool, error) {
	if f.checkErr != nil {
		return false, f.checkErr
	}
	if model.IsTestID(studentID) {
		return false, nil
	}
	_, ok := f.results[studentID]
	return ok, nil
}

func (f *fakeResultStore) SaveResult(_ context.Context, result *model.Result) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	if _, ok := f.results[result.StudentID]; ok && !model.IsTestID(result.StudentID) {
		return ErrAlreadyCompleted
	}
	f.results[result.StudentID] = result
	return nil
}

func (f *fakeResultStore) HealthCheck(_ context.Context) bool { return f.healthy }

func savedResult(studentID string) *model.Result {
	return &model.Result{
		StudentID:      studentID,
		StudentName:    "Student " + studentID,
		ExamSet:        "SET_A",
		SlotID:         "SLOT_1",
		CompletionTime: time.Date(2025, 6, 2, 9, 45, 0, 0, time.UTC),
	}
}

func TestCompletionGuard_SingleAttempt(t *testing.T) {
	store := newFakeResultStore()
	guard := NewCompletionGuard(store, zerolog.Nop())
	ctx := context.Background()

	if d := guard.CanStart(ctx, "A001"); !d.Allowed {
		t.Fatalf("first attempt must be allowed: %+v", d)
	}

	if err := store.SaveResult(ctx, savedResult("A001")); err != nil {
		t.Fatal(err)
	}

	if d := guard.CanStart(ctx, "A001"); d.Allowed {
		t.Fatal("second attempt must be refused")
	} else if d.Reason != AlreadyCompletedMessage {
		t.Fatalf("refusal reason: got %q", d.Reason)
	}
	if d := guard.CanSubmit(ctx, "A001"); d.Allowed {
		t.Fatal("submit after completion must be refused")
	}
}

func TestCompletionGuard_TestIDsExempt(t *testing.T) {
	store := newFakeResultStore()
	guard := NewCompletionGuard(store, zerolog.Nop())
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if d := guard.CanStart(ctx, "TEST001"); !d.Allowed {
			t.Fatalf("attempt %d for test ID must be allowed: %+v", i+1, d)
		}
		if err := store.SaveResult(ctx, savedResult("TEST001")); err != nil {
			t.Fatalf("test ID save %d: %v", i+1, err)
		}
	}

	// Exemption holds even with the store down and the cache poisoned.
	store.healthy = false
	guard.MarkCompleted("TEST001")
	if d := guard.CanStart(ctx, "TEST001"); !d.Allowed {
		t.Fatal("test ID exemption must bypass the cache too")
	}
}

func TestCompletionGuard_OfflineFallsBackToCache(t *testing.T) {
	store := newFakeResultStore()
	store.healthy = false
	guard := NewCompletionGuard(store, zerolog.Nop())
	ctx := context.Background()

	// Nothing cached: fail open so an outage never locks students out.
	if d := guard.CanStart(ctx, "A001"); !d.Allowed {
		t.Fatalf("unknown student during outage must be allowed: %+v", d)
	}

	guard.MarkCompleted("A001")
	if d := guard.CanStart(ctx, "A001"); d.Allowed {
		t.Fatal("cached completion must refuse during outage")
	} else if d.Reason != AlreadyCompletedMessage {
		t.Fatalf("refusal reason: got %q", d.Reason)
	}
}

// A healthy store whose completion query errors degrades to the cache
// instead of refusing outright.
func TestCompletionGuard_CheckErrorFallsBackToCache(t *testing.T) {
	store := newFakeResultStore()
	store.checkErr = errors.New("query timeout")
	guard := NewCompletionGuard(store, zerolog.Nop())
	ctx := context.Background()

	if d := guard.CanStart(ctx, "A001"); !d.Allowed {
		t.Fatalf("check error with empty cache must allow: %+v", d)
	}

	guard.MarkCompleted("A001")
	if d := guard.CanStart(ctx, "A001"); d.Allowed {
		t.Fatal("check error with cached completion must refuse")
	}
}

// The store's own uniqueness enforcement catches what the pre-check missed.
func TestResultStore_WriteTimeRace(t *testing.T) {
	store := newFakeResultStore()
	ctx := context.Background()

	if err := store.SaveResult(ctx, savedResult("A001")); err != nil {
		t.Fatal(err)
	}
	if err := store.SaveResult(ctx, savedResult("A001")); !errors.Is(err, ErrAlreadyCompleted) {
		t.Fatalf("duplicate save: want ErrAlreadyCompleted, got %v", err)
	}
}
