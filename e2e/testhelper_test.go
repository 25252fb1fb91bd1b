package e2e

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/smartdirector/api/internal/client"
	"github.com/smartdirector/api/internal/config"
	"github.com/smartdirector/api/internal/handler"
	"github.com/smartdirector/api/internal/queue"
	"github.com/smartdirector/api/internal/runner"
	"github.com/smartdirector/api/internal/service"
	"github.com/smartdirector/api/internal/store"
	ws "github.com/smartdirector/api/internal/websocket"
	"github.com/smartdirector/api/internal/worker"
)

// testApp holds all components needed for testing
type testApp struct {
	app         *fiber.App
	projectsDir string
}

// setupApp creates a Fiber app identical to main.go but backed by a
// temp projects dir and the mock provider, with a fast worker loop.
func setupApp(t *testing.T) *testApp {
	t.Helper()

	projectsDir := t.TempDir()

	projectStore := store.NewProjectStore()
	taskQueue, err := queue.NewTaskQueue(1)
	if err != nil {
		t.Fatalf("failed to create queue: %v", err)
	}

	validate := validator.New()

	hub := ws.NewHub()
	go hub.Run()

	mock := client.NewMockProvider()

	cfg := &config.DashScopeConfig{
		ImageModel:    "wanx2.1-t2i-turbo",
		VideoT2VModel: "wanx2.1-t2v-turbo",
		VideoI2VModel: "wanx2.1-i2v-turbo",
	}

	projectService := service.NewProjectService(projectStore, projectsDir)
	renderService := service.NewRenderService(projectStore, taskQueue, hub, projectService, cfg)

	taskRunner := runner.NewTaskRunner(projectStore, taskQueue, mock, mock)
	pipelineWorker := worker.NewPipelineWorker(taskRunner, hub, 5*time.Millisecond)

	workerCtx, stopWorker := context.WithCancel(context.Background())
	t.Cleanup(stopWorker)
	go pipelineWorker.Run(workerCtx)

	projectHandler := handler.NewProjectHandler(projectService, validate)
	shotHandler := handler.NewShotHandler(projectService, validate)
	assetHandler := handler.NewAssetHandler(projectService, validate)
	renderHandler := handler.NewRenderHandler(renderService, validate)

	app := fiber.New(fiber.Config{
		BodyLimit: 50 * 1024 * 1024,
	})

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":              "ok",
			"provider_configured": false,
			"queue":               taskQueue.Stats(),
		})
	})

	api := app.Group("/api")

	projects := api.Group("/projects")
	projects.Post("/", projectHandler.Create)
	projects.Get("/", projectHandler.List)
	projects.Get("/:project", projectHandler.Get)
	projects.Post("/:project/rebuild-index", projectHandler.RebuildIndex)

	projects.Post("/:project/shots", shotHandler.Create)
	projects.Get("/:project/shots/:shotId", shotHandler.Get)
	projects.Put("/:project/shots/:shotId", shotHandler.Update)
	projects.Get("/:project/shots/:shotId/candidates", shotHandler.ListCandidates)

	projects.Post("/:project/assets", assetHandler.Import)

	projects.Post("/:project/render", renderHandler.Start)
	projects.Get("/:project/render/status/:taskId", renderHandler.Status)
	projects.Get("/:project/render/result/:taskId", renderHandler.Result)
	projects.Post("/:project/render/cancel/:taskId", renderHandler.Cancel)
	api.Get("/render/stats", renderHandler.Stats)

	return &testApp{app: app, projectsDir: projectsDir}
}

// doRequest is a helper to perform HTTP requests against the test app.
func doRequest(app *fiber.App, method, path string, body string) (*http.Response, error) {
	var bodyReader io.Reader
	if body != "" {
		bodyReader = strings.NewReader(body)
	}

	req, err := http.NewRequest(method, path, bodyReader)
	if err != nil {
		return nil, err
	}
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}

	return app.Test(req, -1)
}

// readBody reads and returns the response body as a string.
func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("failed to read response body: %v", err)
	}
	return string(b)
}

// parseJSON parses response body into a map.
func parseJSON(t *testing.T, resp *http.Response) map[string]interface{} {
	t.Helper()
	body := readBody(t, resp)
	var result map[string]interface{}
	if err := json.Unmarshal([]byte(body), &result); err != nil {
		t.Fatalf("failed to parse JSON: %v\nbody: %s", err, body)
	}
	return result
}

// assertStatus checks the HTTP status code.
func assertStatus(t *testing.T, resp *http.Response, expected int) {
	t.Helper()
	if resp.StatusCode != expected {
		t.Errorf("expected status %d, got %d", expected, resp.StatusCode)
	}
}

// waitForTerminal polls the status endpoint until the task leaves the
// queued/running states or the timeout passes.
func waitForTerminal(t *testing.T, app *fiber.App, project, taskID string) map[string]interface{} {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		resp, err := doRequest(app, http.MethodGet, "/api/projects/"+project+"/render/status/"+taskID, "")
		if err != nil {
			t.Fatalf("status request failed: %v", err)
		}
		if resp.StatusCode == http.StatusOK {
			result := parseJSON(t, resp)
			state, _ := result["state"].(string)
			if state != "queued" && state != "running" {
				return result
			}
		} else {
			resp.Body.Close()
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("task %s never reached a terminal state", taskID)
	return nil
}
