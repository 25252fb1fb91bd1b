package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"log"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/smartdirector/api/internal/config"
)

// DashScopeClient implements ImageGenerator and VideoGenerator against
// the DashScope AIGC endpoints. Image synthesis is one request/response
// call; video synthesis is submit-then-poll against the task endpoint.
type DashScopeClient struct {
	httpClient *http.Client
	cfg        *config.DashScopeConfig
}

// NewDashScopeClient creates a DashScope client. A missing or
// placeholder API key is fatal here, not at first call.
func NewDashScopeClient(cfg *config.DashScopeConfig) (*DashScopeClient, error) {
	if cfg.APIKey == "" || strings.Contains(cfg.APIKey, "please_put_your_key_here") {
		return nil, &ProviderError{Code: CodeMissingAPIKey, Message: "DASHSCOPE_API_KEY is not configured"}
	}
	return &DashScopeClient{
		httpClient: &http.Client{
			Timeout: cfg.RequestTimeout,
		},
		cfg: cfg,
	}, nil
}

// GenerateImage submits one text-to-image request and downloads the
// resulting artifact into outputDir.
func (c *DashScopeClient) GenerateImage(ctx context.Context, prompt, outputDir string) (*ImageResult, error) {
	payload := map[string]any{
		"model": c.cfg.ImageModel,
		"input": map[string]any{"prompt": prompt},
	}

	data, err := c.postJSON(ctx, c.cfg.ImageEndpoint, payload, false)
	if err != nil {
		return nil, err
	}

	resultURL, err := extractFirstURL(data)
	if err != nil {
		return nil, err
	}

	localPath, err := c.download(ctx, outputDir, resultURL)
	if err != nil {
		return nil, err
	}

	width, height := readImageSize(localPath)
	return &ImageResult{
		LocalPath: localPath,
		Width:     width,
		Height:    height,
		Model:     c.cfg.ImageModel,
	}, nil
}

// GenerateVideo submits one video synthesis job, polls it to a terminal
// status, and downloads the resulting artifact into outputDir. A
// non-empty referenceURL switches to the image-to-video model and must
// be remotely fetchable; local paths are rejected before any network
// call.
func (c *DashScopeClient) GenerateVideo(ctx context.Context, prompt, outputDir, referenceURL string) (*VideoResult, error) {
	modelID := c.cfg.VideoT2VModel
	input := map[string]any{"prompt": prompt}
	if referenceURL != "" {
		if !isHTTPURL(referenceURL) {
			return nil, &ProviderError{Code: CodeReferenceNotURL, Message: "reference must be a fetchable http(s) URL"}
		}
		modelID = c.cfg.VideoI2VModel
		input["image_url"] = referenceURL
	}
	payload := map[string]any{
		"model": modelID,
		"input": input,
	}

	data, err := c.postJSON(ctx, c.cfg.VideoEndpoint, payload, true)
	if err != nil {
		return nil, err
	}

	jobID, err := extractTaskID(data)
	if err != nil {
		return nil, err
	}

	taskData, err := c.pollTask(ctx, jobID)
	if err != nil {
		return nil, err
	}

	resultURL, err := extractFirstURL(taskData)
	if err != nil {
		return nil, err
	}

	localPath, err := c.download(ctx, outputDir, resultURL)
	if err != nil {
		return nil, err
	}

	return &VideoResult{
		LocalPath:   localPath,
		DurationSec: 4.0,
		Model:       modelID,
	}, nil
}

// IsConfigured returns true if the client has valid configuration
func (c *DashScopeClient) IsConfigured() bool {
	return c.cfg.APIKey != ""
}

// pollTask performs one status request per interval until the provider
// reports a terminal status or the absolute deadline passes.
func (c *DashScopeClient) pollTask(ctx context.Context, jobID string) (map[string]any, error) {
	deadline := time.Now().Add(c.cfg.PollDeadline)
	statusURL := strings.TrimRight(c.cfg.TaskEndpoint, "/") + "/" + jobID
	attempt := 0

	for time.Now().Before(deadline) {
		attempt++
		data, err := c.getJSON(ctx, statusURL)
		if err != nil {
			return nil, err
		}

		status, _ := data["status"].(string)
		status = strings.ToLower(status)
		log.Printf("[DashScope] Poll #%d (task=%s) — status: %s", attempt, jobID, status)

		switch status {
		case "succeeded", "success":
			return data, nil
		case "failed", "error":
			return nil, &ProviderError{Code: CodeTaskFailed, Message: compactJSON(data)}
		}

		select {
		case <-ctx.Done():
			log.Printf("[DashScope] Poll (task=%s) — context cancelled", jobID)
			return nil, ctx.Err()
		case <-time.After(c.cfg.PollInterval):
		}
	}

	return nil, &ProviderError{Code: CodeTaskTimeout, Message: fmt.Sprintf("task %s did not finish within %v", jobID, c.cfg.PollDeadline)}
}

// postJSON sends a POST request with JSON body and parses the response
func (c *DashScopeClient) postJSON(ctx context.Context, endpoint string, body any, async bool) (map[string]any, error) {
	bodyBytes, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if async {
		req.Header.Set("X-DashScope-Async", "enable")
	}

	return c.doRequest(req)
}

// getJSON sends a GET request and parses the JSON response
func (c *DashScopeClient) getJSON(ctx context.Context, endpoint string) (map[string]any, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	return c.doRequest(req)
}

// doRequest executes an HTTP request and decodes the response into a
// loose map. Non-2xx responses and unparseable bodies are both typed
// provider errors, distinct from a provider-reported failure.
func (c *DashScopeClient) doRequest(req *http.Request) (map[string]any, error) {
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	log.Printf("[DashScope] → %s %s", req.Method, req.URL.String())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.Printf("[DashScope] ✗ %s %s — request failed: %v", req.Method, req.URL.String(), err)
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		log.Printf("[DashScope] ✗ %s %s — failed to read response: %v", req.Method, req.URL.String(), err)
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	log.Printf("[DashScope] ← %d %s %s", resp.StatusCode, req.Method, req.URL.String())

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &ProviderError{Code: fmt.Sprintf("HTTP_%d", resp.StatusCode), Message: string(respBody)}
	}

	var data map[string]any
	if err := json.Unmarshal(respBody, &data); err != nil {
		return nil, &ProviderError{Code: CodeInvalidJSON, Message: string(respBody)}
	}

	return data, nil
}

// download streams the artifact at rawURL into outputDir, named from
// the URL's path component or a generic fallback.
func (c *DashScopeClient) download(ctx context.Context, outputDir, rawURL string) (string, error) {
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return "", err
	}

	filename := "artifact"
	if u, err := url.Parse(rawURL); err == nil {
		if base := path.Base(u.Path); base != "" && base != "." && base != "/" {
			filename = base
		}
	}
	target := filepath.Join(outputDir, filename)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to fetch artifact: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(resp.Body)
		return "", &ProviderError{Code: fmt.Sprintf("DOWNLOAD_%d", resp.StatusCode), Message: string(body)}
	}

	out, err := os.Create(target)
	if err != nil {
		return "", err
	}
	defer out.Close()

	if _, err := io.Copy(out, resp.Body); err != nil {
		return "", fmt.Errorf("failed to write artifact: %w", err)
	}
	return target, nil
}

// extractTaskID locates the provider job id, which appears either at
// the top level or nested under output.
func extractTaskID(data map[string]any) (string, error) {
	if id, ok := data["task_id"].(string); ok && id != "" {
		return id, nil
	}
	if output, ok := data["output"].(map[string]any); ok {
		if id, ok := output["task_id"].(string); ok && id != "" {
			return id, nil
		}
	}
	return "", &ProviderError{Code: CodeTaskIDMissing, Message: compactJSON(data)}
}

// extractFirstURL scans a fixed priority list of output fields for the
// first value that looks like an http(s) URL.
func extractFirstURL(data map[string]any) (string, error) {
	output, _ := data["output"].(map[string]any)

	candidates := []any{}
	if output != nil {
		candidates = append(candidates, output["url"], output["image_url"], output["video_url"])
		if list, ok := output["data"].([]any); ok {
			for _, item := range list {
				entry, ok := item.(map[string]any)
				if !ok {
					continue
				}
				for _, key := range []string{"url", "image_url", "video_url"} {
					if v, ok := entry[key]; ok && v != nil {
						candidates = append(candidates, v)
						break
					}
				}
			}
		}
	}

	for _, v := range candidates {
		if s, ok := v.(string); ok && isHTTPURL(s) {
			return s, nil
		}
	}
	return "", &ProviderError{Code: CodeURLMissing, Message: compactJSON(data)}
}

func isHTTPURL(value string) bool {
	return strings.HasPrefix(value, "http://") || strings.HasPrefix(value, "https://")
}

// readImageSize reads pixel dimensions when the artifact decodes as a
// known image format, zero otherwise.
func readImageSize(localPath string) (int, int) {
	f, err := os.Open(localPath)
	if err != nil {
		return 0, 0
	}
	defer f.Close()

	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		return 0, 0
	}
	return cfg.Width, cfg.Height
}

func compactJSON(data map[string]any) string {
	b, err := json.Marshal(data)
	if err != nil {
		return fmt.Sprintf("%v", data)
	}
	return string(b)
}
