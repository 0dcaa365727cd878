package worker

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/jobreel/jobreel-backend/internal/logger"
	"github.com/jobreel/jobreel-backend/internal/types"
)

const longDescription = "We are hiring a backend engineer to build and operate our distributed video pipeline in production."

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("dev")
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	return log
}

func testConfig() Config {
	return Config{
		WorkerID:      "worker-test",
		PollInterval:  time.Millisecond,
		SweepInterval: 5 * time.Minute,
		StaleAfter:    10 * time.Minute,
		ClaimGrace:    2 * time.Second,
		QueueTTL:      24 * time.Hour,
		MaxRetries:    3,
	}
}

type transition struct {
	from  string
	to    string
	patch map[string]interface{}
}

type fakeGenRepo struct {
	claimQueue   []*types.GenerationJob
	transitions  []transition
	transitionOK bool
}

func newFakeGenRepo() *fakeGenRepo {
	return &fakeGenRepo{transitionOK: true}
}

func (f *fakeGenRepo) Enqueue(_ context.Context, _ *gorm.DB, job *types.GenerationJob, _ int) (*types.GenerationJob, error) {
	return job, nil
}

func (f *fakeGenRepo) ClaimNext(_ context.Context, _ *gorm.DB, _ string, _ time.Duration) (*types.GenerationJob, error) {
	if len(f.claimQueue) == 0 {
		return nil, nil
	}
	job := f.claimQueue[0]
	f.claimQueue = f.claimQueue[1:]
	return job, nil
}

func (f *fakeGenRepo) Transition(_ context.Context, _ *gorm.DB, _ uuid.UUID, from, to string, patch map[string]interface{}) (bool, error) {
	f.transitions = append(f.transitions, transition{from: from, to: to, patch: patch})
	return f.transitionOK, nil
}

func (f *fakeGenRepo) ResetStale(_ context.Context, _ *gorm.DB, _ time.Duration) (int64, error) {
	return 0, nil
}

func (f *fakeGenRepo) DeleteExpired(_ context.Context, _ *gorm.DB, _ time.Duration) (int64, error) {
	return 0, nil
}

func (f *fakeGenRepo) CountActiveForUser(_ context.Context, _ *gorm.DB, _ string) (int64, error) {
	return 0, nil
}

func (f *fakeGenRepo) GetByID(_ context.Context, _ *gorm.DB, _ uuid.UUID) (*types.GenerationJob, error) {
	return nil, nil
}

type fakeJobRepo struct {
	jobs map[int64]*types.Job
	err  error
}

func (f *fakeJobRepo) GetByJobID(_ context.Context, _ *gorm.DB, jobID int64) (*types.Job, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.jobs[jobID], nil
}

func (f *fakeJobRepo) ListActiveExcluding(_ context.Context, _ *gorm.DB, _ []int64, _ int) ([]*types.Job, error) {
	return nil, nil
}

type fakeVideoRepo struct {
	videos   map[int64]*types.Video
	inserted []*types.Video
	err      error
}

func newFakeVideoRepo() *fakeVideoRepo {
	return &fakeVideoRepo{videos: map[int64]*types.Video{}}
}

func (f *fakeVideoRepo) CreateIfAbsent(_ context.Context, _ *gorm.DB, video *types.Video) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	if _, ok := f.videos[video.VideoID]; ok {
		return false, nil
	}
	f.videos[video.VideoID] = video
	f.inserted = append(f.inserted, video)
	return true, nil
}

func (f *fakeVideoRepo) GetByVideoID(_ context.Context, _ *gorm.DB, videoID int64) (*types.Video, error) {
	return f.videos[videoID], nil
}

func (f *fakeVideoRepo) GetReadyByVideoIDs(_ context.Context, _ *gorm.DB, _ []int64) (map[int64]*types.Video, error) {
	return nil, nil
}

func (f *fakeVideoRepo) ListReady(_ context.Context, _ *gorm.DB, _ int) ([]*types.Video, error) {
	return nil, nil
}

// fakeRenderer writes an HLS bundle to a real temp dir so cleanup and
// upload walking behave as in production.
type fakeRenderer struct {
	tb  testing.TB
	err error
	dir string
}

func (f *fakeRenderer) Generate(_ context.Context, _, outputPath, outputName, _ string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	dir := filepath.Join(outputPath, outputName)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		f.tb.Fatalf("mkdir bundle: %v", err)
	}
	for _, name := range []string{"master.m3u8", "seg_000.ts", "poster.jpg"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644); err != nil {
			f.tb.Fatalf("write bundle file: %v", err)
		}
	}
	f.dir = dir
	return dir, nil
}

type fakeStorage struct {
	uploadedPrefixes []string
	uploadErr        error
}

func (f *fakeStorage) UploadFile(_ context.Context, _ string, _ io.Reader) error { return nil }

func (f *fakeStorage) UploadDir(_ context.Context, _, keyPrefix string) (int, error) {
	if f.uploadErr != nil {
		return 0, f.uploadErr
	}
	f.uploadedPrefixes = append(f.uploadedPrefixes, keyPrefix)
	return 3, nil
}

func (f *fakeStorage) DeletePrefix(_ context.Context, _ string) error { return nil }
func (f *fakeStorage) HeadBucket(_ context.Context) error             { return nil }

func (f *fakeStorage) PublicURL(key string) string {
	return "https://cdn.example.com/" + key
}

func claimedJob(retryCount int) *types.GenerationJob {
	workerID := "worker-test"
	now := time.Now()
	return &types.GenerationJob{
		ID:               uuid.New(),
		JobID:            42,
		TemplateID:       "spongebob",
		QueryFingerprint: "fp-42",
		UserID:           "u1",
		Status:           types.GenerationStatusRunning,
		RetryCount:       retryCount,
		WorkerID:         &workerID,
		StartedAt:        &now,
	}
}

func newWorkerFixture(t *testing.T, gen *fakeGenRepo, jobs *fakeJobRepo, videos *fakeVideoRepo, r *fakeRenderer, s *fakeStorage) *Worker {
	t.Helper()
	cfg := testConfig()
	cfg.TempDir = t.TempDir()
	return New(testLogger(t), cfg, gen, jobs, videos, r, s)
}

func TestProcessHappyPath(t *testing.T) {
	gen := newFakeGenRepo()
	jobs := &fakeJobRepo{jobs: map[int64]*types.Job{42: {JobID: 42, Description: longDescription, Active: true}}}
	videos := newFakeVideoRepo()
	r := &fakeRenderer{tb: t}
	s := &fakeStorage{}
	w := newWorkerFixture(t, gen, jobs, videos, r, s)

	w.Process(context.Background(), claimedJob(0))

	wantTransitions := []struct{ from, to string }{
		{types.GenerationStatusRunning, types.GenerationStatusUploaded},
		{types.GenerationStatusUploaded, types.GenerationStatusIndexed},
		{types.GenerationStatusIndexed, types.GenerationStatusReady},
	}
	if len(gen.transitions) != len(wantTransitions) {
		t.Fatalf("transitions: want=%d got=%d (%+v)", len(wantTransitions), len(gen.transitions), gen.transitions)
	}
	for i, want := range wantTransitions {
		got := gen.transitions[i]
		if got.from != want.from || got.to != want.to {
			t.Fatalf("transition[%d]: want=%s->%s got=%s->%s", i, want.from, want.to, got.from, got.to)
		}
	}

	if len(s.uploadedPrefixes) != 1 || s.uploadedPrefixes[0] != "hls/42/" {
		t.Fatalf("upload prefix: got=%v", s.uploadedPrefixes)
	}

	if len(videos.inserted) != 1 {
		t.Fatalf("videos inserted: want=1 got=%d", len(videos.inserted))
	}
	v := videos.inserted[0]
	if v.VideoID != 42 || v.Status != types.VideoStatusReady {
		t.Fatalf("video row: %+v", v)
	}
	if v.ManifestKey != "hls/42/master.m3u8" {
		t.Fatalf("manifest key: got=%s", v.ManifestKey)
	}
	if !strings.HasPrefix(v.CDNURL, "https://cdn.example.com/") {
		t.Fatalf("cdn url: got=%s", v.CDNURL)
	}

	if _, err := os.Stat(r.dir); !os.IsNotExist(err) {
		t.Fatalf("bundle dir not cleaned up: %v", err)
	}
}

func TestProcessShortDescriptionFailsWithoutRetry(t *testing.T) {
	gen := newFakeGenRepo()
	jobs := &fakeJobRepo{jobs: map[int64]*types.Job{42: {JobID: 42, Description: "too short", Active: true}}}
	w := newWorkerFixture(t, gen, jobs, newFakeVideoRepo(), &fakeRenderer{tb: t}, &fakeStorage{})

	w.Process(context.Background(), claimedJob(0))

	if len(gen.transitions) != 1 {
		t.Fatalf("transitions: want=1 got=%d", len(gen.transitions))
	}
	got := gen.transitions[0]
	if got.to != types.GenerationStatusFailed {
		t.Fatalf("to: want=failed got=%s", got.to)
	}
	if got.patch["error"] == nil {
		t.Fatal("expected error reason in patch")
	}
}

func TestProcessMissingJobFails(t *testing.T) {
	gen := newFakeGenRepo()
	jobs := &fakeJobRepo{jobs: map[int64]*types.Job{}}
	w := newWorkerFixture(t, gen, jobs, newFakeVideoRepo(), &fakeRenderer{tb: t}, &fakeStorage{})

	w.Process(context.Background(), claimedJob(0))

	if len(gen.transitions) != 1 || gen.transitions[0].to != types.GenerationStatusFailed {
		t.Fatalf("transitions: got=%+v", gen.transitions)
	}
}

func TestProcessRenderErrorRequeues(t *testing.T) {
	gen := newFakeGenRepo()
	jobs := &fakeJobRepo{jobs: map[int64]*types.Job{42: {JobID: 42, Description: longDescription, Active: true}}}
	r := &fakeRenderer{tb: t, err: errors.New("renderer timeout")}
	w := newWorkerFixture(t, gen, jobs, newFakeVideoRepo(), r, &fakeStorage{})

	w.Process(context.Background(), claimedJob(1))

	if len(gen.transitions) != 1 {
		t.Fatalf("transitions: want=1 got=%d", len(gen.transitions))
	}
	got := gen.transitions[0]
	if got.from != types.GenerationStatusRunning || got.to != types.GenerationStatusQueued {
		t.Fatalf("transition: got=%s->%s", got.from, got.to)
	}
	if got.patch["retry_count"] != 2 {
		t.Fatalf("retry_count: want=2 got=%v", got.patch["retry_count"])
	}
	if got.patch["worker_id"] != nil || got.patch["started_at"] != nil {
		t.Fatal("lease must be cleared on requeue")
	}
}

func TestProcessExhaustedRetriesFails(t *testing.T) {
	gen := newFakeGenRepo()
	jobs := &fakeJobRepo{jobs: map[int64]*types.Job{42: {JobID: 42, Description: longDescription, Active: true}}}
	r := &fakeRenderer{tb: t, err: errors.New("renderer timeout")}
	w := newWorkerFixture(t, gen, jobs, newFakeVideoRepo(), r, &fakeStorage{})

	w.Process(context.Background(), claimedJob(3))

	if len(gen.transitions) != 1 || gen.transitions[0].to != types.GenerationStatusFailed {
		t.Fatalf("transitions: got=%+v", gen.transitions)
	}
}

func TestProcessUploadErrorRequeues(t *testing.T) {
	gen := newFakeGenRepo()
	jobs := &fakeJobRepo{jobs: map[int64]*types.Job{42: {JobID: 42, Description: longDescription, Active: true}}}
	s := &fakeStorage{uploadErr: errors.New("bucket unreachable")}
	w := newWorkerFixture(t, gen, jobs, newFakeVideoRepo(), &fakeRenderer{tb: t}, s)

	w.Process(context.Background(), claimedJob(0))

	if len(gen.transitions) != 1 {
		t.Fatalf("transitions: want=1 got=%d", len(gen.transitions))
	}
	if gen.transitions[0].to != types.GenerationStatusQueued {
		t.Fatalf("to: want=queued got=%s", gen.transitions[0].to)
	}
}

func TestProcessDuplicateVideoIsSuccess(t *testing.T) {
	gen := newFakeGenRepo()
	jobs := &fakeJobRepo{jobs: map[int64]*types.Job{42: {JobID: 42, Description: longDescription, Active: true}}}
	videos := newFakeVideoRepo()
	// A previous attempt already committed the catalog row.
	videos.videos[42] = &types.Video{VideoID: 42, Status: types.VideoStatusReady}
	w := newWorkerFixture(t, gen, jobs, videos, &fakeRenderer{tb: t}, &fakeStorage{})

	w.Process(context.Background(), claimedJob(1))

	last := gen.transitions[len(gen.transitions)-1]
	if last.to != types.GenerationStatusReady {
		t.Fatalf("final transition: want=ready got=%s", last.to)
	}
	if len(videos.inserted) != 0 {
		t.Fatalf("no new video row expected, got %d", len(videos.inserted))
	}
}

func TestProcessLostLeaseAbandons(t *testing.T) {
	gen := newFakeGenRepo()
	gen.transitionOK = false
	jobs := &fakeJobRepo{jobs: map[int64]*types.Job{42: {JobID: 42, Description: longDescription, Active: true}}}
	videos := newFakeVideoRepo()
	w := newWorkerFixture(t, gen, jobs, videos, &fakeRenderer{tb: t}, &fakeStorage{})

	w.Process(context.Background(), claimedJob(0))

	// First CAS fails (another worker took the lease); nothing else runs.
	if len(gen.transitions) != 1 {
		t.Fatalf("transitions: want=1 got=%d", len(gen.transitions))
	}
	if len(videos.inserted) != 0 {
		t.Fatal("must not write catalog rows without the lease")
	}
}

func TestDefaultWorkerID(t *testing.T) {
	id := DefaultWorkerID()
	if !strings.HasPrefix(id, "worker-") {
		t.Fatalf("prefix: got=%s", id)
	}
	if len(id) != len("worker-")+8 {
		t.Fatalf("length: got=%s", id)
	}
	if id == DefaultWorkerID() {
		t.Fatal("expected distinct ids per call")
	}
}
