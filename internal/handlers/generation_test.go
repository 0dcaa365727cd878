package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/jobreel/jobreel-backend/internal/types"
)

type fakeGenerationRepo struct {
	jobs map[uuid.UUID]*types.GenerationJob
	err  error
}

func (f *fakeGenerationRepo) Enqueue(_ context.Context, _ *gorm.DB, job *types.GenerationJob, _ int) (*types.GenerationJob, error) {
	return job, nil
}

func (f *fakeGenerationRepo) ClaimNext(_ context.Context, _ *gorm.DB, _ string, _ time.Duration) (*types.GenerationJob, error) {
	return nil, nil
}

func (f *fakeGenerationRepo) Transition(_ context.Context, _ *gorm.DB, _ uuid.UUID, _, _ string, _ map[string]interface{}) (bool, error) {
	return true, nil
}

func (f *fakeGenerationRepo) ResetStale(_ context.Context, _ *gorm.DB, _ time.Duration) (int64, error) {
	return 0, nil
}

func (f *fakeGenerationRepo) DeleteExpired(_ context.Context, _ *gorm.DB, _ time.Duration) (int64, error) {
	return 0, nil
}

func (f *fakeGenerationRepo) CountActiveForUser(_ context.Context, _ *gorm.DB, _ string) (int64, error) {
	return 0, nil
}

func (f *fakeGenerationRepo) GetByID(_ context.Context, _ *gorm.DB, id uuid.UUID) (*types.GenerationJob, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.jobs[id], nil
}

func generationRouter(t *testing.T, repo *fakeGenerationRepo) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/api/generation/:job_uuid", NewGenerationHandler(testLogger(t), repo).Get)
	return router
}

func getGeneration(t *testing.T, router *gin.Engine, id string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/api/generation/"+id, nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestGenerationHandlerInFlight(t *testing.T) {
	running := uuid.New()
	done := uuid.New()
	repo := &fakeGenerationRepo{jobs: map[uuid.UUID]*types.GenerationJob{
		running: {ID: running, JobID: 7, TemplateID: "spongebob", Status: types.GenerationStatusRunning},
		done:    {ID: done, JobID: 8, TemplateID: "spongebob", Status: types.GenerationStatusReady},
	}}
	router := generationRouter(t, repo)

	for _, tc := range []struct {
		id       uuid.UUID
		status   string
		inFlight bool
	}{
		{running, types.GenerationStatusRunning, true},
		{done, types.GenerationStatusReady, false},
	} {
		rec := getGeneration(t, router, tc.id.String())
		if rec.Code != http.StatusOK {
			t.Fatalf("status: want=200 got=%d body=%s", rec.Code, rec.Body.String())
		}
		var resp struct {
			JobUUID  string `json:"job_uuid"`
			JobID    string `json:"job_id"`
			Status   string `json:"status"`
			InFlight bool   `json:"in_flight"`
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("decode response: %v", err)
		}
		if resp.JobUUID != tc.id.String() || resp.Status != tc.status {
			t.Fatalf("response: %+v", resp)
		}
		if resp.InFlight != tc.inFlight {
			t.Fatalf("in_flight for %s: want=%v got=%v", tc.status, tc.inFlight, resp.InFlight)
		}
	}
}

func TestGenerationHandlerNotFound(t *testing.T) {
	router := generationRouter(t, &fakeGenerationRepo{jobs: map[uuid.UUID]*types.GenerationJob{}})

	rec := getGeneration(t, router, uuid.New().String())
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status: want=404 got=%d", rec.Code)
	}
}

func TestGenerationHandlerBadUUID(t *testing.T) {
	router := generationRouter(t, &fakeGenerationRepo{})

	rec := getGeneration(t, router, "not-a-uuid")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status: want=400 got=%d", rec.Code)
	}
}
