package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

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

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize file store and task queue
	projectStore := store.NewProjectStore()
	taskQueue, err := queue.NewTaskQueue(cfg.Pipeline.MaxRunning)
	if err != nil {
		log.Fatalf("Failed to create task queue: %v", err)
	}

	// Initialize validator
	validate := validator.New()

	// Initialize WebSocket hub
	hub := ws.NewHub()
	go hub.Run()

	// Pick the generation provider. Without an API key the server runs
	// against the deterministic mock so the pipeline stays usable.
	var (
		imageProvider      client.ImageGenerator
		videoProvider      client.VideoGenerator
		providerConfigured bool
	)
	if dashscope, err := client.NewDashScopeClient(&cfg.DashScope); err == nil {
		imageProvider = dashscope
		videoProvider = dashscope
		providerConfigured = true
		log.Printf("[Server] DashScope provider configured (image=%s, video=%s)",
			cfg.DashScope.ImageModel, cfg.DashScope.VideoT2VModel)
	} else {
		mock := client.NewMockProvider()
		imageProvider = mock
		videoProvider = mock
		log.Printf("[Server] DashScope not configured (%v), using mock provider", err)
	}

	// Initialize services
	projectService := service.NewProjectService(projectStore, cfg.Pipeline.ProjectsDir)
	renderService := service.NewRenderService(projectStore, taskQueue, hub, projectService, &cfg.DashScope)

	// Initialize runner and worker loop
	taskRunner := runner.NewTaskRunner(projectStore, taskQueue, imageProvider, videoProvider)
	pipelineWorker := worker.NewPipelineWorker(taskRunner, hub, cfg.Pipeline.WorkerInterval)

	// Initialize handlers
	projectHandler := handler.NewProjectHandler(projectService, validate)
	shotHandler := handler.NewShotHandler(projectService, validate)
	assetHandler := handler.NewAssetHandler(projectService, validate)
	renderHandler := handler.NewRenderHandler(renderService, validate)

	// Initialize Fiber app
	app := fiber.New(fiber.Config{
		ErrorHandler: customErrorHandler,
		BodyLimit:    50 * 1024 * 1024, // 50MB
	})

	// Global middleware
	app.Use(recover.New())
	app.Use(logger.New(logger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept,Authorization",
	}))

	// Health check
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":              "ok",
			"provider_configured": providerConfigured,
			"queue":               taskQueue.Stats(),
		})
	})

	// API routes
	api := app.Group("/api")

	// Project routes
	projects := api.Group("/projects")
	projects.Post("/", projectHandler.Create)
	projects.Get("/", projectHandler.List)
	projects.Get("/:project", projectHandler.Get)
	projects.Post("/:project/rebuild-index", projectHandler.RebuildIndex)

	// Shot routes
	projects.Post("/:project/shots", shotHandler.Create)
	projects.Get("/:project/shots/:shotId", shotHandler.Get)
	projects.Put("/:project/shots/:shotId", shotHandler.Update)
	projects.Get("/:project/shots/:shotId/candidates", shotHandler.ListCandidates)

	// Asset routes
	projects.Post("/:project/assets", assetHandler.Import)

	// Render routes
	projects.Post("/:project/render", renderHandler.Start)
	projects.Get("/:project/render/status/:taskId", renderHandler.Status)
	projects.Get("/:project/render/result/:taskId", renderHandler.Result)
	projects.Post("/:project/render/cancel/:taskId", renderHandler.Cancel)
	api.Get("/render/stats", renderHandler.Stats)

	// WebSocket routes
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})

	app.Get("/ws/tasks/:taskId", websocket.New(func(c *websocket.Conn) {
		taskID := c.Params("taskId")
		hub.HandleConnection(c, taskID)
	}))

	// Start pipeline worker
	workerCtx, stopWorker := context.WithCancel(context.Background())
	go pipelineWorker.Run(workerCtx)

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		log.Println("Shutting down server...")
		stopWorker()
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			log.Printf("Server shutdown error: %v", err)
		}
	}()

	// Start server
	addr := ":" + cfg.Server.Port
	log.Printf("Server starting on %s", addr)
	if err := app.Listen(addr); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}

func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal Server Error"

	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
		message = e.Message
	}

	return c.Status(code).JSON(fiber.Map{
		"error": fiber.Map{
			"code":    "SERVICE_ERROR",
			"message": message,
		},
	})
}
