package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/jobreel/jobreel-backend/internal/logger"
)

const maxErrorBodyBytes = 1024

// Match is one scored hit from the job index. Scores come back in the
// index's native similarity, higher is better.
type Match struct {
	JobID int64
	Score float64
}

type JobIndex interface {
	// Search runs a filtered top-K query over active jobs, excluding the
	// given job ids. numCandidates is the index recall budget and must be
	// >= limit.
	Search(ctx context.Context, vector []float32, limit, numCandidates int, excludeJobIDs []int64) ([]Match, error)
	// Ready checks reachability and collection shape, for health probes.
	Ready(ctx context.Context) error
}

type jobIndex struct {
	log     *logger.Logger
	cfg     Config
	baseURL string
	http    *http.Client
}

type qdrantEnvelope struct {
	Result json.RawMessage `json:"result"`
	Status json.RawMessage `json:"status"`
	Time   float64         `json:"time"`
}

type qdrantSearchResultItem struct {
	ID    json.RawMessage `json:"id"`
	Score float64         `json:"score"`
}

func NewJobIndex(log *logger.Logger, cfg Config) (JobIndex, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	if err := ValidateConfig(cfg); err != nil {
		return nil, err
	}

	s := &jobIndex{
		log:     log.With("service", "QdrantJobIndex"),
		cfg:     cfg,
		baseURL: strings.TrimRight(cfg.URL, "/"),
		http: &http.Client{
			Timeout: 10 * time.Second,
		},
	}

	if err := s.verifyReady(context.Background()); err != nil {
		return nil, err
	}

	log.Info(
		"Qdrant job index selected",
		"url", s.baseURL,
		"collection", cfg.Collection,
		"vector_dim", cfg.VectorDim,
	)
	return s, nil
}

func (s *jobIndex) Search(ctx context.Context, vector []float32, limit, numCandidates int, excludeJobIDs []int64) ([]Match, error) {
	if s == nil {
		return nil, fmt.Errorf("job index unavailable")
	}
	const op = "search"
	if len(vector) == 0 {
		return nil, opErr(op, OperationErrorValidation, "query vector required", nil)
	}
	if s.cfg.VectorDim > 0 && len(vector) != s.cfg.VectorDim {
		return nil, opErr(
			op,
			OperationErrorValidation,
			fmt.Sprintf("query vector dimension mismatch: expected=%d got=%d", s.cfg.VectorDim, len(vector)),
			nil,
		)
	}
	if limit <= 0 {
		limit = 10
	}
	if numCandidates < limit {
		numCandidates = limit
	}

	req := map[string]any{
		"vector":       vector,
		"limit":        limit,
		"with_payload": false,
		"with_vector":  false,
		"filter":       activeJobsFilter(excludeJobIDs),
		"params": map[string]any{
			"hnsw_ef": numCandidates,
		},
	}

	var rawResults []qdrantSearchResultItem
	if err := s.doJSON(
		ctx,
		op,
		http.MethodPost,
		s.collectionPath("/points/search"),
		req,
		&rawResults,
	); err != nil {
		return nil, err
	}

	out := make([]Match, 0, len(rawResults))
	for _, item := range rawResults {
		var jobID int64
		if err := json.Unmarshal(item.ID, &jobID); err != nil {
			// Points are keyed by integer job id; anything else is noise.
			s.log.Warn("qdrant returned non-integer point id", "raw_id", string(item.ID))
			continue
		}
		out = append(out, Match{JobID: jobID, Score: item.Score})
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Score == out[j].Score {
			return out[i].JobID < out[j].JobID
		}
		return out[i].Score > out[j].Score
	})
	return out, nil
}

// activeJobsFilter builds the fixed conjunction the coordinator needs:
// active=true and job_id not in the caller's seen set.
func activeJobsFilter(excludeJobIDs []int64) map[string]any {
	filter := map[string]any{
		"must": []any{
			map[string]any{
				"key":   "active",
				"match": map[string]any{"value": true},
			},
		},
	}
	if len(excludeJobIDs) > 0 {
		filter["must_not"] = []any{
			map[string]any{
				"key":   "job_id",
				"match": map[string]any{"any": excludeJobIDs},
			},
		}
	}
	return filter
}

func (s *jobIndex) Ready(ctx context.Context) error {
	return s.verifyReady(ctx)
}

func (s *jobIndex) verifyReady(ctx context.Context) error {
	if s == nil {
		return fmt.Errorf("qdrant job index not initialized")
	}
	const op = "bootstrap_verify"

	readyReq, err := http.NewRequestWithContext(defaultCtx(ctx), http.MethodGet, s.baseURL+"/readyz", nil)
	if err != nil {
		return opErr(op, OperationErrorTransportFailed, "build ready request failed", err)
	}
	s.applyAuth(readyReq)
	readyResp, err := s.http.Do(readyReq)
	if err != nil {
		return classifyHTTPCallError(op, "qdrant ready check failed", err)
	}
	_ = readyResp.Body.Close()
	if readyResp.StatusCode < 200 || readyResp.StatusCode >= 300 {
		return &OperationError{
			Code:       OperationErrorQueryFailed,
			Operation:  op,
			StatusCode: readyResp.StatusCode,
			Message:    fmt.Sprintf("qdrant ready check returned status=%d", readyResp.StatusCode),
		}
	}

	var result struct {
		Config struct {
			Params struct {
				Vectors struct {
					Size     int    `json:"size"`
					Distance string `json:"distance"`
				} `json:"vectors"`
			} `json:"params"`
		} `json:"config"`
	}
	if err := s.doJSON(ctx, op, http.MethodGet, s.collectionPath(""), nil, &result); err != nil {
		return err
	}

	size := result.Config.Params.Vectors.Size
	if size != 0 && size != s.cfg.VectorDim {
		return &OperationError{
			Code:      OperationErrorValidation,
			Operation: op,
			Message: fmt.Sprintf(
				"qdrant collection %q vector size mismatch: expected=%d actual=%d",
				s.cfg.Collection,
				s.cfg.VectorDim,
				size,
			),
		}
	}
	return nil
}

func (s *jobIndex) collectionPath(suffix string) string {
	return "/collections/" + s.cfg.Collection + suffix
}

func (s *jobIndex) applyAuth(req *http.Request) {
	if s.cfg.APIKey != "" {
		req.Header.Set("api-key", s.cfg.APIKey)
	}
}

func (s *jobIndex) doJSON(ctx context.Context, op, method, path string, in any, out any) error {
	var body io.Reader
	if in != nil {
		var buf bytes.Buffer
		if err := json.NewEncoder(&buf).Encode(in); err != nil {
			return opErr(op, OperationErrorEncodeFailed, "encode request failed", err)
		}
		body = &buf
	}

	req, err := http.NewRequestWithContext(defaultCtx(ctx), method, s.baseURL+path, body)
	if err != nil {
		return opErr(op, OperationErrorTransportFailed, "build request failed", err)
	}
	req.Header.Set("Content-Type", "application/json")
	s.applyAuth(req)

	resp, err := s.http.Do(req)
	if err != nil {
		return classifyHTTPCallError(op, "qdrant request failed", err)
	}
	defer resp.Body.Close()

	raw, readErr := io.ReadAll(io.LimitReader(resp.Body, 10*maxErrorBodyBytes))
	if readErr != nil {
		return opErr(op, OperationErrorDecodeFailed, "read response failed", readErr)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &OperationError{
			Code:       OperationErrorQueryFailed,
			Operation:  op,
			StatusCode: resp.StatusCode,
			Message:    fmt.Sprintf("qdrant http status=%d body=%q", resp.StatusCode, truncateBody(raw)),
		}
	}

	var envelope qdrantEnvelope
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return opErr(op, OperationErrorDecodeFailed, "decode qdrant envelope failed", err)
	}

	if out == nil {
		return nil
	}
	if len(envelope.Result) == 0 || string(envelope.Result) == "null" {
		return nil
	}
	if err := json.Unmarshal(envelope.Result, out); err != nil {
		return opErr(op, OperationErrorDecodeFailed, "decode qdrant result failed", err)
	}
	return nil
}

func classifyHTTPCallError(op, message string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return opErr(op, OperationErrorTimeout, message, err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return opErr(op, OperationErrorTimeout, message, err)
	}
	return opErr(op, OperationErrorTransportFailed, message, err)
}

func truncateBody(raw []byte) string {
	if len(raw) <= maxErrorBodyBytes {
		return string(raw)
	}
	return string(raw[:maxErrorBodyBytes]) + "..."
}

func defaultCtx(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return ctx
}
