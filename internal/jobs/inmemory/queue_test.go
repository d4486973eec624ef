package inmemory

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/avolkov/cardbatch/internal/jobs"
)

func reviewJob(execID string, ids ...string) *jobs.FraudReviewJob {
	return &jobs.FraudReviewJob{
		ExecutionID:    execID,
		ProcessingDate: "2026-08-28",
		TransactionIDs: ids,
	}
}

func TestStoreSaveAndGet(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	job := reviewJob("exec-1", "t1", "t2")
	job.JobID = "job-1"
	job.Status = jobs.JobStatusPending

	if err := store.SaveJob(ctx, job); err != nil {
		t.Fatalf("SaveJob: %v", err)
	}

	got, err := store.GetJob(ctx, "job-1")
	if err != nil {
		t.Fatalf("GetJob: %v", err)
	}
	if got.ExecutionID != "exec-1" || len(got.TransactionIDs) != 2 {
		t.Errorf("GetJob returned %+v", got)
	}

	// The store hands out copies, not the shared instance.
	got.Status = jobs.JobStatusFailed
	again, err := store.GetJob(ctx, "job-1")
	if err != nil {
		t.Fatalf("GetJob: %v", err)
	}
	if again.Status != jobs.JobStatusPending {
		t.Errorf("stored job mutated through a returned copy: %s", again.Status)
	}
}

func TestStoreRejectsMissingID(t *testing.T) {
	store := NewStore()
	if err := store.SaveJob(context.Background(), reviewJob("exec-1", "t1")); err == nil {
		t.Fatal("SaveJob accepted a job without an ID")
	}
}

func TestStoreListFiltersByExecution(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	for i, execID := range []string{"exec-1", "exec-1", "exec-2"} {
		job := reviewJob(execID, "t1")
		job.JobID = string(rune('a' + i))
		job.Status = jobs.JobStatusPending
		if err := store.SaveJob(ctx, job); err != nil {
			t.Fatalf("SaveJob: %v", err)
		}
	}

	got, err := store.ListJobs(ctx, jobs.JobFilter{ExecutionID: "exec-1"})
	if err != nil {
		t.Fatalf("ListJobs: %v", err)
	}
	if len(got) != 2 {
		t.Errorf("ListJobs returned %d jobs, want 2", len(got))
	}

	limited, err := store.ListJobs(ctx, jobs.JobFilter{ExecutionID: "exec-1", Limit: 1})
	if err != nil {
		t.Fatalf("ListJobs: %v", err)
	}
	if len(limited) != 1 {
		t.Errorf("ListJobs with limit returned %d jobs, want 1", len(limited))
	}
}

func TestQueueDeliversPublishedJobs(t *testing.T) {
	store := NewStore()
	queue := NewQueue(10, store)
	defer queue.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var mu sync.Mutex
	received := make(map[string]bool)
	done := make(chan struct{})

	handler := func(ctx context.Context, job jobs.Job) error {
		mu.Lock()
		received[job.GetID()] = true
		n := len(received)
		mu.Unlock()
		if n == 3 {
			close(done)
		}
		return nil
	}

	if err := queue.Start(ctx, handler); err != nil {
		t.Fatalf("Start: %v", err)
	}

	for _, id := range []string{"t1", "t2", "t3"} {
		if err := queue.PublishFraudReview(ctx, reviewJob("exec-1", id)); err != nil {
			t.Fatalf("PublishFraudReview: %v", err)
		}
	}

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for jobs to be processed")
	}

	listed, err := store.ListJobs(ctx, jobs.JobFilter{ExecutionID: "exec-1"})
	if err != nil {
		t.Fatalf("ListJobs: %v", err)
	}
	if len(listed) != 3 {
		t.Errorf("store holds %d jobs, want 3", len(listed))
	}
}

func TestQueueRejectsPublishAfterClose(t *testing.T) {
	queue := NewQueue(1, NewStore())
	if err := queue.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := queue.PublishFraudReview(context.Background(), reviewJob("exec-1", "t1")); err == nil {
		t.Fatal("PublishFraudReview succeeded on a closed queue")
	}
}
