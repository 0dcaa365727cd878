// Package renderer wraps the text-to-video rendering service. The
// renderer runs next to the worker and writes its HLS output to a shared
// local filesystem; the response carries the path of the master playlist.
package renderer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/jobreel/jobreel-backend/internal/logger"
)

type Client interface {
	// Generate renders a video for the description and returns the local
	// directory that holds the HLS bundle.
	Generate(ctx context.Context, description, outputPath, outputName, templateID string) (string, error)
}

type client struct {
	log        *logger.Logger
	baseURL    string
	httpClient *http.Client
}

func NewClient(log *logger.Logger) (Client, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}

	baseURL := strings.TrimSpace(os.Getenv("RENDERER_API_URL"))
	if baseURL == "" {
		baseURL = "http://text-to-video:8000"
	}
	baseURL = strings.TrimRight(baseURL, "/")

	// Rendering is slow; the timeout doubles as the per-call render budget.
	timeoutSec := 300
	if v := strings.TrimSpace(os.Getenv("RENDERER_TIMEOUT_SECONDS")); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			timeoutSec = parsed
		}
	}

	return &client{
		log:        log.With("service", "RendererClient"),
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: time.Duration(timeoutSec) * time.Second},
	}, nil
}

type generateRequest struct {
	JobDescription string `json:"job_description"`
	OutputPath     string `json:"output_path"`
	OutputName     string `json:"output_name"`
	TemplateID     string `json:"template_id,omitempty"`
}

type generateResponse struct {
	VideoPath string `json:"video_path"`
}

func (c *client) Generate(ctx context.Context, description, outputPath, outputName, templateID string) (string, error) {
	body, err := json.Marshal(generateRequest{
		JobDescription: description,
		OutputPath:     outputPath,
		OutputName:     outputName,
		TemplateID:     templateID,
	})
	if err != nil {
		return "", fmt.Errorf("marshal generate request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/generate", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("renderer request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("read renderer response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("renderer status %d: %s", resp.StatusCode, truncate(string(raw), 256))
	}

	var out generateResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", fmt.Errorf("decode renderer response: %w", err)
	}
	if strings.TrimSpace(out.VideoPath) == "" {
		return "", fmt.Errorf("renderer returned no video path")
	}

	// video_path points at master.m3u8; the bundle is its directory.
	return filepath.Dir(out.VideoPath), nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
