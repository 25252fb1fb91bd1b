package client

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
)

// MockProvider is a deterministic in-process implementation of both
// generation capabilities, used in development when DashScope is not
// configured and throughout the tests. No network, no sleeping.
type MockProvider struct {
	ImageModel string
	VideoModel string
}

// NewMockProvider creates a mock provider with default model names.
func NewMockProvider() *MockProvider {
	return &MockProvider{
		ImageModel: "mock-image",
		VideoModel: "mock-video",
	}
}

// GenerateImage writes a small solid PNG into outputDir.
func (m *MockProvider) GenerateImage(ctx context.Context, prompt, outputDir string) (*ImageResult, error) {
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, err
	}

	const width, height = 768, 432
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	fill := color.RGBA{R: 18, G: 24, B: 38, A: 255}
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, fill)
		}
	}

	target := filepath.Join(outputDir, "mock_image.png")
	f, err := os.Create(target)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		return nil, err
	}

	return &ImageResult{
		LocalPath: target,
		Width:     width,
		Height:    height,
		Model:     m.ImageModel,
	}, nil
}

// GenerateVideo writes a stand-in text artifact describing the request.
func (m *MockProvider) GenerateVideo(ctx context.Context, prompt, outputDir, referenceURL string) (*VideoResult, error) {
	if referenceURL != "" && !isHTTPURL(referenceURL) {
		return nil, &ProviderError{Code: CodeReferenceNotURL, Message: "reference must be a fetchable http(s) URL"}
	}
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, err
	}

	target := filepath.Join(outputDir, "mock_video.txt")
	content := fmt.Sprintf("MOCK VIDEO\nprompt: %s\n", prompt)
	if referenceURL != "" {
		content += fmt.Sprintf("reference: %s\n", referenceURL)
	}
	if err := os.WriteFile(target, []byte(content), 0o644); err != nil {
		return nil, err
	}

	return &VideoResult{
		LocalPath:   target,
		DurationSec: 4.0,
		Model:       m.VideoModel,
	}, nil
}
