package client

import "context"

// ImageGenerator is the image generation capability. Implementations
// are selected once at construction; callers never branch on which
// one they hold.
type ImageGenerator interface {
	GenerateImage(ctx context.Context, prompt, outputDir string) (*ImageResult, error)
}

// VideoGenerator is the video generation capability. referenceURL, if
// non-empty, must be a remotely fetchable http(s) URL.
type VideoGenerator interface {
	GenerateVideo(ctx context.Context, prompt, outputDir, referenceURL string) (*VideoResult, error)
}

// ImageResult describes one generated image artifact on local disk.
type ImageResult struct {
	LocalPath string
	Width     int
	Height    int
	Model     string
}

// VideoResult describes one generated video artifact on local disk.
type VideoResult struct {
	LocalPath   string
	DurationSec float64
	Model       string
}

// Provider error codes.
const (
	CodeMissingAPIKey   = "MISSING_API_KEY"
	CodeInvalidJSON     = "INVALID_JSON"
	CodeTaskIDMissing   = "TASK_ID_MISSING"
	CodeURLMissing      = "URL_MISSING"
	CodeTaskFailed      = "TASK_FAILED"
	CodeTaskTimeout     = "TASK_TIMEOUT"
	CodeReferenceNotURL = "REFERENCE_NOT_URL"
)

// ProviderError is a provider-layer failure carrying a machine-readable
// code from the error taxonomy plus a human-readable message.
type ProviderError struct {
	Code    string
	Message string
}

func (e *ProviderError) Error() string {
	return e.Code + ": " + e.Message
}
