package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/jobreel/jobreel-backend/internal/logger"
	"github.com/jobreel/jobreel-backend/internal/services"
)

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("dev")
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	return log
}

type fakeSearchService struct {
	result *services.SearchResult
	err    error
}

func (f *fakeSearchService) Search(_ context.Context, _, _ string) (*services.SearchResult, error) {
	return f.result, f.err
}

func searchRouter(t *testing.T, svc services.SearchService) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.POST("/api/search", NewSearchHandler(testLogger(t), svc).Search)
	return router
}

func postJSON(t *testing.T, router *gin.Engine, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestSearchHandlerOK(t *testing.T) {
	genID := uuid.New()
	svc := &fakeSearchService{result: &services.SearchResult{
		UserID:              "u1",
		JobIDs:              []int64{1, 2, 3},
		GenerationTriggered: true,
		GenerationJobIDs:    []uuid.UUID{genID},
	}}
	router := searchRouter(t, svc)

	rec := postJSON(t, router, "/api/search", `{"query":"backend python","user_id":"u1"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status: want=200 got=%d body=%s", rec.Code, rec.Body.String())
	}

	var resp struct {
		UserID              string   `json:"user_id"`
		JobIDs              []string `json:"job_ids"`
		Count               int      `json:"count"`
		GenerationTriggered bool     `json:"generation_triggered"`
		GenerationJobIDs    []string `json:"generation_job_ids"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.UserID != "u1" || resp.Count != 3 {
		t.Fatalf("response: %+v", resp)
	}
	if len(resp.JobIDs) != 3 || resp.JobIDs[0] != "1" {
		t.Fatalf("job_ids: %v", resp.JobIDs)
	}
	if !resp.GenerationTriggered || len(resp.GenerationJobIDs) != 1 || resp.GenerationJobIDs[0] != genID.String() {
		t.Fatalf("generation fields: %+v", resp)
	}
}

func TestSearchHandlerRejectsMissingFields(t *testing.T) {
	router := searchRouter(t, &fakeSearchService{})

	for _, body := range []string{`{}`, `{"query":"x"}`, `{"user_id":"u1"}`, `{"query":"  ","user_id":"u1"}`} {
		rec := postJSON(t, router, "/api/search", body)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("body %s: want=400 got=%d", body, rec.Code)
		}
	}
}

func TestSearchHandlerEmbeddingDown(t *testing.T) {
	router := searchRouter(t, &fakeSearchService{err: services.ErrEmbeddingUnavailable})

	rec := postJSON(t, router, "/api/search", `{"query":"backend python","user_id":"u1"}`)
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("status: want=502 got=%d", rec.Code)
	}
	var env ErrorEnvelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode error envelope: %v", err)
	}
	if env.Error.Code != "embedding_unavailable" {
		t.Fatalf("code: got=%s", env.Error.Code)
	}
}

func TestSearchHandlerStoreDown(t *testing.T) {
	router := searchRouter(t, &fakeSearchService{err: context.DeadlineExceeded})

	rec := postJSON(t, router, "/api/search", `{"query":"backend python","user_id":"u1"}`)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status: want=503 got=%d", rec.Code)
	}
}
