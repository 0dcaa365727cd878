package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/jobreel/jobreel-backend/internal/logger"
)

// TaskRetrievalQuery is the embedding task type used for search queries.
// Corpus documents are embedded with retrieval_document by the ingestion
// pipeline; both sides must agree on the model and dimension.
const TaskRetrievalQuery = "RETRIEVAL_QUERY"

type Client interface {
	// Embed maps text to a vector using the configured model. The caller
	// is responsible for validating the dimension.
	Embed(ctx context.Context, text string, taskType string) ([]float32, error)
}

type client struct {
	log        *logger.Logger
	baseURL    string
	apiKey     string
	model      string
	outputDim  int
	httpClient *http.Client
	maxRetries int
}

func NewClient(log *logger.Logger) (Client, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	apiKey := strings.TrimSpace(os.Getenv("GEMINI_API_KEY"))
	if apiKey == "" {
		return nil, fmt.Errorf("missing GEMINI_API_KEY")
	}

	baseURL := strings.TrimSpace(os.Getenv("GEMINI_BASE_URL"))
	if baseURL == "" {
		baseURL = "https://generativelanguage.googleapis.com"
	}
	baseURL = strings.TrimRight(baseURL, "/")

	model := strings.TrimSpace(os.Getenv("GEMINI_EMBED_MODEL"))
	if model == "" {
		model = "gemini-embedding-001"
	}

	outputDim := 768
	if v := strings.TrimSpace(os.Getenv("EMBEDDING_DIM")); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			outputDim = parsed
		}
	}

	timeoutSec := 30
	if v := strings.TrimSpace(os.Getenv("GEMINI_TIMEOUT_SECONDS")); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			timeoutSec = parsed
		}
	}

	maxRetries := 2
	if v := strings.TrimSpace(os.Getenv("GEMINI_MAX_RETRIES")); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed >= 0 {
			maxRetries = parsed
		}
	}

	return &client{
		log:        log.With("service", "GeminiClient"),
		baseURL:    baseURL,
		apiKey:     apiKey,
		model:      model,
		outputDim:  outputDim,
		httpClient: &http.Client{Timeout: time.Duration(timeoutSec) * time.Second},
		maxRetries: maxRetries,
	}, nil
}

type embedContentRequest struct {
	Content              embedContent `json:"content"`
	TaskType             string       `json:"taskType,omitempty"`
	OutputDimensionality int          `json:"outputDimensionality,omitempty"`
}

type embedContent struct {
	Parts []embedPart `json:"parts"`
}

type embedPart struct {
	Text string `json:"text"`
}

type embedContentResponse struct {
	Embedding struct {
		Values []float32 `json:"values"`
	} `json:"embedding"`
}

func (c *client) Embed(ctx context.Context, text string, taskType string) ([]float32, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("empty text")
	}
	if taskType == "" {
		taskType = TaskRetrievalQuery
	}

	req := embedContentRequest{
		Content:              embedContent{Parts: []embedPart{{Text: text}}},
		TaskType:             taskType,
		OutputDimensionality: c.outputDim,
	}

	var resp embedContentResponse
	if err := c.do(ctx, &req, &resp); err != nil {
		return nil, err
	}
	if len(resp.Embedding.Values) == 0 {
		return nil, fmt.Errorf("gemini returned empty embedding")
	}
	return resp.Embedding.Values, nil
}

func (c *client) do(ctx context.Context, payload any, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}
	url := fmt.Sprintf("%s/v1beta/models/%s:embedContent", c.baseURL, c.model)

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Duration(attempt) * 500 * time.Millisecond):
			}
		}

		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
		if err != nil {
			return err
		}
		httpReq.Header.Set("Content-Type", "application/json")
		httpReq.Header.Set("x-goog-api-key", c.apiKey)

		httpResp, err := c.httpClient.Do(httpReq)
		if err != nil {
			lastErr = err
			continue
		}

		respBody, readErr := io.ReadAll(io.LimitReader(httpResp.Body, 1<<20))
		_ = httpResp.Body.Close()
		if readErr != nil {
			lastErr = readErr
			continue
		}

		if httpResp.StatusCode == http.StatusOK {
			if err := json.Unmarshal(respBody, out); err != nil {
				return fmt.Errorf("decode gemini response: %w", err)
			}
			return nil
		}

		lastErr = fmt.Errorf("gemini status %d: %s", httpResp.StatusCode, truncate(string(respBody), 256))
		if httpResp.StatusCode < 500 && httpResp.StatusCode != http.StatusTooManyRequests {
			return lastErr
		}
	}
	return lastErr
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
