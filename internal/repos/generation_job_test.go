package repos

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/jobreel/jobreel-backend/internal/repos/testutil"
	"github.com/jobreel/jobreel-backend/internal/types"
)

func newGenerationJob(fp, userID string, jobID int64) *types.GenerationJob {
	return &types.GenerationJob{
		JobID:            jobID,
		TemplateID:       "spongebob",
		QueryFingerprint: fp,
		UserID:           userID,
		Status:           types.GenerationStatusQueued,
	}
}

func TestEnqueueSetsDefaults(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	repo := NewGenerationJobRepo(tx, testutil.Logger(t))
	ctx := context.Background()

	job, err := repo.Enqueue(ctx, tx, newGenerationJob("fp-a", "u1", 7), 2)
	if err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	if job.ID == uuid.Nil {
		t.Fatal("expected generated uuid")
	}
	if job.Status != types.GenerationStatusQueued {
		t.Fatalf("status: want=queued got=%s", job.Status)
	}
	if job.OutputVideoID != 7 {
		t.Fatalf("output_video_id: want=7 got=%d", job.OutputVideoID)
	}
}

func TestEnqueueDuplicateFingerprintJob(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	repo := NewGenerationJobRepo(tx, testutil.Logger(t))
	ctx := context.Background()

	if _, err := repo.Enqueue(ctx, tx, newGenerationJob("fp-b", "u1", 7), 5); err != nil {
		t.Fatalf("first Enqueue: %v", err)
	}
	_, err := repo.Enqueue(ctx, tx, newGenerationJob("fp-b", "u2", 7), 5)
	if !errors.Is(err, ErrDuplicateGenerationJob) {
		t.Fatalf("want ErrDuplicateGenerationJob, got %v", err)
	}
}

func TestEnqueueAfterFailedAllowed(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	repo := NewGenerationJobRepo(tx, testutil.Logger(t))
	ctx := context.Background()

	testutil.SeedGenerationJob(t, ctx, tx, 7, "fp-c", "u1", types.GenerationStatusFailed, time.Now().Add(-time.Hour))

	if _, err := repo.Enqueue(ctx, tx, newGenerationJob("fp-c", "u1", 7), 5); err != nil {
		t.Fatalf("Enqueue after failed: %v", err)
	}
}

func TestEnqueueUserAtLimit(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	repo := NewGenerationJobRepo(tx, testutil.Logger(t))
	ctx := context.Background()

	testutil.SeedGenerationJob(t, ctx, tx, 1, "fp-d1", "u1", types.GenerationStatusQueued, time.Now().Add(-time.Minute))
	testutil.SeedGenerationJob(t, ctx, tx, 2, "fp-d2", "u1", types.GenerationStatusRunning, time.Now().Add(-time.Minute))

	_, err := repo.Enqueue(ctx, tx, newGenerationJob("fp-d3", "u1", 3), 2)
	if !errors.Is(err, ErrUserAtLimit) {
		t.Fatalf("want ErrUserAtLimit, got %v", err)
	}

	// Failed jobs do not count against the quota.
	if _, err := repo.Enqueue(ctx, tx, newGenerationJob("fp-d4", "u2", 4), 2); err != nil {
		t.Fatalf("Enqueue for other user: %v", err)
	}
}

func TestEnqueueDuplicateWinsOverQuota(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	repo := NewGenerationJobRepo(tx, testutil.Logger(t))
	ctx := context.Background()

	// u1 is at the cap and one of their live jobs is the pair being
	// re-enqueued: the duplicate must be reported, not the quota.
	testutil.SeedGenerationJob(t, ctx, tx, 7, "fp-q1", "u1", types.GenerationStatusQueued, time.Now().Add(-time.Minute))
	testutil.SeedGenerationJob(t, ctx, tx, 8, "fp-q2", "u1", types.GenerationStatusRunning, time.Now().Add(-time.Minute))

	_, err := repo.Enqueue(ctx, tx, newGenerationJob("fp-q1", "u1", 7), 2)
	if !errors.Is(err, ErrDuplicateGenerationJob) {
		t.Fatalf("want ErrDuplicateGenerationJob, got %v", err)
	}
}

func TestClaimNextFIFOAndGrace(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	repo := NewGenerationJobRepo(tx, testutil.Logger(t))
	ctx := context.Background()

	older := testutil.SeedGenerationJob(t, ctx, tx, 1, "fp-e1", "u1", types.GenerationStatusQueued, time.Now().Add(-time.Minute))
	testutil.SeedGenerationJob(t, ctx, tx, 2, "fp-e2", "u1", types.GenerationStatusQueued, time.Now().Add(-30*time.Second))
	// Too fresh to be claimed: inside the grace window.
	testutil.SeedGenerationJob(t, ctx, tx, 3, "fp-e3", "u1", types.GenerationStatusQueued, time.Now())

	claimed, err := repo.ClaimNext(ctx, tx, "worker-1", 2*time.Second)
	if err != nil {
		t.Fatalf("ClaimNext: %v", err)
	}
	if claimed == nil {
		t.Fatal("expected a claimed job")
	}
	if claimed.ID != older.ID {
		t.Fatalf("claim order: want=%s got=%s", older.ID, claimed.ID)
	}
	if claimed.Status != types.GenerationStatusRunning {
		t.Fatalf("status: want=running got=%s", claimed.Status)
	}
	if claimed.WorkerID == nil || *claimed.WorkerID != "worker-1" {
		t.Fatalf("worker_id: got=%v", claimed.WorkerID)
	}
	if claimed.StartedAt == nil {
		t.Fatal("started_at not set")
	}
}

func TestClaimNextEmptyQueue(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	repo := NewGenerationJobRepo(tx, testutil.Logger(t))
	ctx := context.Background()

	claimed, err := repo.ClaimNext(ctx, tx, "worker-1", 2*time.Second)
	if err != nil {
		t.Fatalf("ClaimNext: %v", err)
	}
	if claimed != nil {
		t.Fatalf("expected nil, got %+v", claimed)
	}
}

func TestTransitionCAS(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	repo := NewGenerationJobRepo(tx, testutil.Logger(t))
	ctx := context.Background()

	job := testutil.SeedGenerationJob(t, ctx, tx, 1, "fp-f", "u1", types.GenerationStatusRunning, time.Now().Add(-time.Minute))

	ok, err := repo.Transition(ctx, tx, job.ID, types.GenerationStatusRunning, types.GenerationStatusReady, nil)
	if err != nil {
		t.Fatalf("Transition: %v", err)
	}
	if !ok {
		t.Fatal("expected transition to apply")
	}

	// Status moved on; the same CAS must now be a no-op.
	ok, err = repo.Transition(ctx, tx, job.ID, types.GenerationStatusRunning, types.GenerationStatusFailed, nil)
	if err != nil {
		t.Fatalf("Transition mismatch: %v", err)
	}
	if ok {
		t.Fatal("expected CAS mismatch to be a no-op")
	}

	got, err := repo.GetByID(ctx, tx, job.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Status != types.GenerationStatusReady {
		t.Fatalf("status: want=ready got=%s", got.Status)
	}
	if got.CompletedAt == nil {
		t.Fatal("completed_at not set on terminal transition")
	}
}

func TestResetStale(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	repo := NewGenerationJobRepo(tx, testutil.Logger(t))
	ctx := context.Background()

	stale := testutil.SeedGenerationJob(t, ctx, tx, 1, "fp-g1", "u1", types.GenerationStatusRunning, time.Now().Add(-time.Hour))
	staleStart := time.Now().Add(-30 * time.Minute)
	if err := tx.Model(&types.GenerationJob{}).Where("id = ?", stale.ID).
		Update("started_at", staleStart).Error; err != nil {
		t.Fatalf("age lease: %v", err)
	}
	fresh := testutil.SeedGenerationJob(t, ctx, tx, 2, "fp-g2", "u1", types.GenerationStatusRunning, time.Now().Add(-time.Minute))

	count, err := repo.ResetStale(ctx, tx, 10*time.Minute)
	if err != nil {
		t.Fatalf("ResetStale: %v", err)
	}
	if count != 1 {
		t.Fatalf("reset count: want=1 got=%d", count)
	}

	got, err := repo.GetByID(ctx, tx, stale.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Status != types.GenerationStatusQueued {
		t.Fatalf("status: want=queued got=%s", got.Status)
	}
	if got.WorkerID != nil || got.StartedAt != nil {
		t.Fatalf("lease not cleared: worker=%v started=%v", got.WorkerID, got.StartedAt)
	}
	if got.RetryCount != 1 {
		t.Fatalf("retry_count: want=1 got=%d", got.RetryCount)
	}

	gotFresh, err := repo.GetByID(ctx, tx, fresh.ID)
	if err != nil {
		t.Fatalf("GetByID fresh: %v", err)
	}
	if gotFresh.Status != types.GenerationStatusRunning {
		t.Fatalf("fresh lease touched: status=%s", gotFresh.Status)
	}
}

func TestResetStaleThenReclaim(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	repo := NewGenerationJobRepo(tx, testutil.Logger(t))
	ctx := context.Background()

	job := testutil.SeedGenerationJob(t, ctx, tx, 1, "fp-h", "u1", types.GenerationStatusRunning, time.Now().Add(-time.Hour))
	if err := tx.Model(&types.GenerationJob{}).Where("id = ?", job.ID).
		Update("started_at", time.Now().Add(-time.Hour)).Error; err != nil {
		t.Fatalf("age lease: %v", err)
	}

	if _, err := repo.ResetStale(ctx, tx, 10*time.Minute); err != nil {
		t.Fatalf("ResetStale: %v", err)
	}

	claimed, err := repo.ClaimNext(ctx, tx, "worker-2", 2*time.Second)
	if err != nil {
		t.Fatalf("ClaimNext: %v", err)
	}
	if claimed == nil || claimed.ID != job.ID {
		t.Fatalf("expected reclaim of %s, got %+v", job.ID, claimed)
	}
	if claimed.RetryCount != 1 {
		t.Fatalf("retry_count: want=1 got=%d", claimed.RetryCount)
	}
}

func TestDeleteExpired(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	repo := NewGenerationJobRepo(tx, testutil.Logger(t))
	ctx := context.Background()

	testutil.SeedGenerationJob(t, ctx, tx, 1, "fp-i1", "u1", types.GenerationStatusReady, time.Now().Add(-48*time.Hour))
	keep := testutil.SeedGenerationJob(t, ctx, tx, 2, "fp-i2", "u1", types.GenerationStatusQueued, time.Now().Add(-time.Hour))

	count, err := repo.DeleteExpired(ctx, tx, 24*time.Hour)
	if err != nil {
		t.Fatalf("DeleteExpired: %v", err)
	}
	if count != 1 {
		t.Fatalf("deleted: want=1 got=%d", count)
	}

	got, err := repo.GetByID(ctx, tx, keep.ID)
	if err != nil || got == nil {
		t.Fatalf("kept job missing: %v %v", got, err)
	}
}

func TestCountActiveForUser(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	repo := NewGenerationJobRepo(tx, testutil.Logger(t))
	ctx := context.Background()

	testutil.SeedGenerationJob(t, ctx, tx, 1, "fp-j1", "u1", types.GenerationStatusQueued, time.Now().Add(-time.Minute))
	testutil.SeedGenerationJob(t, ctx, tx, 2, "fp-j2", "u1", types.GenerationStatusRunning, time.Now().Add(-time.Minute))
	testutil.SeedGenerationJob(t, ctx, tx, 3, "fp-j3", "u1", types.GenerationStatusFailed, time.Now().Add(-time.Minute))
	testutil.SeedGenerationJob(t, ctx, tx, 4, "fp-j4", "u1", types.GenerationStatusReady, time.Now().Add(-time.Minute))

	count, err := repo.CountActiveForUser(ctx, tx, "u1")
	if err != nil {
		t.Fatalf("CountActiveForUser: %v", err)
	}
	if count != 2 {
		t.Fatalf("active count: want=2 got=%d", count)
	}
}
