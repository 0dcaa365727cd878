package worker

import (
	"context"
	"fmt"
	"os"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jobreel/jobreel-backend/internal/clients/renderer"
	"github.com/jobreel/jobreel-backend/internal/clients/spaces"
	"github.com/jobreel/jobreel-backend/internal/logger"
	"github.com/jobreel/jobreel-backend/internal/repos"
	"github.com/jobreel/jobreel-backend/internal/types"
)

const minDescriptionLen = 50

// DefaultWorkerID builds a process identity when WORKER_ID is unset.
func DefaultWorkerID() string {
	return "worker-" + strings.ReplaceAll(uuid.New().String(), "-", "")[:8]
}

// Config carries the worker's tunables. Defaults mirror the environment
// surface resolved in app.Config.
type Config struct {
	WorkerID      string
	PollInterval  time.Duration
	SweepInterval time.Duration
	StaleAfter    time.Duration
	ClaimGrace    time.Duration
	QueueTTL      time.Duration
	MaxRetries    int
	TempDir       string
}

type Worker struct {
	log      *logger.Logger
	cfg      Config
	genRepo  repos.GenerationJobRepo
	jobRepo  repos.JobRepo
	vidRepo  repos.VideoRepo
	renderer renderer.Client
	storage  spaces.Client

	lastSweep time.Time
}

func New(
	baseLog *logger.Logger,
	cfg Config,
	genRepo repos.GenerationJobRepo,
	jobRepo repos.JobRepo,
	vidRepo repos.VideoRepo,
	rendererClient renderer.Client,
	storage spaces.Client,
) *Worker {
	if cfg.TempDir == "" {
		cfg.TempDir = os.TempDir()
	}
	return &Worker{
		log:      baseLog.With("service", "Worker", "worker_id", cfg.WorkerID),
		cfg:      cfg,
		genRepo:  genRepo,
		jobRepo:  jobRepo,
		vidRepo:  vidRepo,
		renderer: rendererClient,
		storage:  storage,
	}
}

// Run claims and processes jobs until ctx is cancelled. Each iteration
// sweeps stale leases when due, then claims at most one job; processing
// is single-threaded because the renderer owns the machine while it runs.
func (w *Worker) Run(ctx context.Context) error {
	w.log.Info("worker started",
		"poll_interval", w.cfg.PollInterval.String(),
		"stale_after", w.cfg.StaleAfter.String(),
	)
	for {
		if err := ctx.Err(); err != nil {
			w.log.Info("worker stopping")
			return err
		}

		w.sweepIfDue(ctx)

		job, err := w.genRepo.ClaimNext(ctx, nil, w.cfg.WorkerID, w.cfg.ClaimGrace)
		if err != nil {
			w.log.Error("claim failed", "error", err.Error())
			w.sleep(ctx)
			continue
		}
		if job == nil {
			w.sleep(ctx)
			continue
		}

		w.Process(ctx, job)
	}
}

func (w *Worker) sleep(ctx context.Context) {
	select {
	case <-ctx.Done():
	case <-time.After(w.cfg.PollInterval):
	}
}

func (w *Worker) sweepIfDue(ctx context.Context) {
	if time.Since(w.lastSweep) < w.cfg.SweepInterval {
		return
	}
	w.lastSweep = time.Now()

	reset, err := w.genRepo.ResetStale(ctx, nil, w.cfg.StaleAfter)
	if err != nil {
		w.log.Error("stale sweep failed", "error", err.Error())
	} else if reset > 0 {
		w.log.Warn("reclaimed stale leases", "count", reset)
	}

	purged, err := w.genRepo.DeleteExpired(ctx, nil, w.cfg.QueueTTL)
	if err != nil {
		w.log.Error("queue purge failed", "error", err.Error())
	} else if purged > 0 {
		w.log.Info("purged expired queue rows", "count", purged)
	}
}

// Process runs one claimed job to ready or hands it back to the queue.
// Upload and catalog insert are idempotent, so a crash at any point is
// repaired by a later claim of the same job.
func (w *Worker) Process(ctx context.Context, job *types.GenerationJob) {
	log := w.log.With("job_uuid", job.ID.String(), "job_id", job.JobID, "template_id", job.TemplateID)
	log.Info("processing generation job", "retry_count", job.RetryCount)

	target, err := w.jobRepo.GetByJobID(ctx, nil, job.JobID)
	if err != nil {
		w.handleFailure(ctx, log, job, fmt.Errorf("load job payload: %w", err))
		return
	}
	if target == nil {
		w.fail(ctx, log, job, fmt.Sprintf("job %d not found in catalog", job.JobID))
		return
	}
	description := strings.TrimSpace(target.Description)
	if len(description) < minDescriptionLen {
		w.fail(ctx, log, job, fmt.Sprintf("description too short (%d chars)", len(description)))
		return
	}

	outputName := strconv.FormatInt(job.JobID, 10)
	bundleDir, err := w.renderer.Generate(ctx, description, w.cfg.TempDir, outputName, job.TemplateID)
	if err != nil {
		w.handleFailure(ctx, log, job, fmt.Errorf("render: %w", err))
		return
	}
	defer func() {
		if rmErr := os.RemoveAll(bundleDir); rmErr != nil {
			log.Warn("temp cleanup failed", "dir", bundleDir, "error", rmErr.Error())
		}
	}()

	keyPrefix := fmt.Sprintf("hls/%d/", job.JobID)
	uploaded, err := w.storage.UploadDir(ctx, bundleDir, keyPrefix)
	if err != nil {
		w.handleFailure(ctx, log, job, fmt.Errorf("upload bundle: %w", err))
		return
	}
	log.Info("bundle uploaded", "files", uploaded, "key_prefix", keyPrefix)
	if ok, err := w.genRepo.Transition(ctx, nil, job.ID, types.GenerationStatusRunning, types.GenerationStatusUploaded, nil); err != nil || !ok {
		log.Warn("lost lease after upload, abandoning", "transition_ok", ok)
		return
	}
	job.Status = types.GenerationStatusUploaded

	manifestKey := path.Join(keyPrefix, "master.m3u8")
	video := &types.Video{
		VideoID:         job.JobID,
		Status:          types.VideoStatusReady,
		ManifestKey:     manifestKey,
		CDNURL:          w.storage.PublicURL(manifestKey),
		TemplateID:      job.TemplateID,
		GenerationJobID: job.ID,
	}
	inserted, err := w.vidRepo.CreateIfAbsent(ctx, nil, video)
	if err != nil {
		w.handleFailure(ctx, log, job, fmt.Errorf("insert video: %w", err))
		return
	}
	if !inserted {
		// A previous attempt got this far before losing its lease.
		log.Info("video row already present, treating as success")
	}
	if ok, err := w.genRepo.Transition(ctx, nil, job.ID, types.GenerationStatusUploaded, types.GenerationStatusIndexed, nil); err != nil || !ok {
		log.Warn("lost lease after indexing, abandoning", "transition_ok", ok)
		return
	}
	job.Status = types.GenerationStatusIndexed

	patch := map[string]interface{}{"output_video_id": job.JobID}
	if ok, err := w.genRepo.Transition(ctx, nil, job.ID, types.GenerationStatusIndexed, types.GenerationStatusReady, patch); err != nil {
		w.handleFailure(ctx, log, job, fmt.Errorf("finalize: %w", err))
		return
	} else if !ok {
		log.Warn("lost lease before finalize, abandoning")
		return
	}
	log.Info("generation job ready", "manifest_key", manifestKey)
}

// handleFailure requeues the job while retries remain, otherwise parks it
// as failed for operator attention.
func (w *Worker) handleFailure(ctx context.Context, log *logger.Logger, job *types.GenerationJob, cause error) {
	log.Error("generation attempt failed", "error", cause.Error(), "retry_count", job.RetryCount)

	if job.RetryCount < w.cfg.MaxRetries {
		patch := map[string]interface{}{
			"worker_id":   nil,
			"started_at":  nil,
			"retry_count": job.RetryCount + 1,
			"error":       truncateError(cause),
		}
		ok, err := w.genRepo.Transition(ctx, nil, job.ID, job.Status, types.GenerationStatusQueued, patch)
		if err != nil || !ok {
			log.Error("requeue failed", "transition_ok", ok)
		}
		return
	}
	w.fail(ctx, log, job, truncateError(cause))
}

func (w *Worker) fail(ctx context.Context, log *logger.Logger, job *types.GenerationJob, reason string) {
	patch := map[string]interface{}{"error": reason}
	ok, err := w.genRepo.Transition(ctx, nil, job.ID, job.Status, types.GenerationStatusFailed, patch)
	if err != nil || !ok {
		log.Error("failed-transition did not apply", "transition_ok", ok)
		return
	}
	log.Warn("generation job failed permanently", "reason", reason)
}

func truncateError(err error) string {
	msg := err.Error()
	if len(msg) > 500 {
		msg = msg[:500]
	}
	return msg
}
