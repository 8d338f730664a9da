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
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"

	"github.com/narriq/api/internal/bus"
	"github.com/narriq/api/internal/client"
	"github.com/narriq/api/internal/config"
	"github.com/narriq/api/internal/handler"
	"github.com/narriq/api/internal/middleware"
	"github.com/narriq/api/internal/service"
	"github.com/narriq/api/internal/state"
	"github.com/narriq/api/internal/step"
	"github.com/narriq/api/internal/worker"
	ws "github.com/narriq/api/internal/websocket"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize Redis client. When Redis is unreachable we fall back to the
	// in-memory store and run without the asynq queue and rate limiting, which
	// keeps local development working with zero infrastructure.
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	ctx := context.Background()
	redisUp := true
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Printf("Warning: Redis not available, using in-memory state: %v", err)
		redisUp = false
	}

	var store state.Store
	var limiterRedis *redis.Client
	if redisUp {
		store = state.NewRedisStore(redisClient)
		limiterRedis = redisClient
	} else {
		store = state.NewMemoryStore()
	}

	// Initialize Asynq client
	var asynqClient *asynq.Client
	var enqueuer service.TaskEnqueuer
	if redisUp {
		asynqClient = asynq.NewClient(asynq.RedisClientOpt{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer asynqClient.Close()
		enqueuer = asynqClient
	}

	// Initialize external clients
	openaiClient := client.NewOpenAIClient(&cfg.OpenAI)
	elevenLabsClient := client.NewElevenLabsClient(&cfg.ElevenLabs)
	replicateClient := client.NewReplicateClient(&cfg.Replicate)
	scraper := client.NewScraper(&cfg.Scrape)
	renderWorkerClient := client.NewRenderWorkerClient(&cfg.RenderWorker)

	var storage client.StorageClient
	r2Client, err := client.NewR2Client(&cfg.R2)
	if err != nil {
		log.Printf("Warning: R2 storage not configured: %v", err)
	} else {
		storage = r2Client
	}

	// Initialize validator
	validate := validator.New()

	// Initialize the pipeline engine and register its steps
	engine := bus.New(store, validate)
	if err := step.RegisterAll(engine, step.Deps{
		Store:           store,
		Scraper:         scraper,
		Chat:            openaiClient,
		Moderation:      openaiClient,
		ImagePrimary:    replicateClient,
		ImageSecondary:  openaiClient,
		SpeechPrimary:   elevenLabsClient,
		SpeechSecondary: openaiClient,
		Storage:         storage,
		Enqueuer:        enqueuer,
	}); err != nil {
		log.Fatalf("Failed to register pipeline steps: %v", err)
	}

	// Initialize WebSocket hub
	hub := ws.NewHub()
	go hub.Run()

	// Initialize services
	projectService := service.NewProjectService(store, engine)
	renderService := service.NewRenderService(store, enqueuer)
	storyboardService := service.NewStoryboardService(openaiClient)

	// Initialize handlers
	generateHandler := handler.NewGenerateHandler(projectService, validate)
	projectHandler := handler.NewProjectHandler(projectService)
	renderHandler := handler.NewRenderHandler(renderService, validate)
	workerHandler := handler.NewWorkerHandler(renderService, hub, validate)
	storyboardHandler := handler.NewStoryboardHandler(storyboardService, validate)

	// Initialize middleware
	rateLimiter := middleware.NewRateLimiter(limiterRedis)

	// Initialize Fiber app
	app := fiber.New(fiber.Config{
		ErrorHandler: customErrorHandler,
		BodyLimit:    20 * 1024 * 1024, // sketch uploads are base64 images
	})

	// Global middleware
	app.Use(recover.New())
	logFormat := "[${time}] ${status} - ${latency} ${method} ${path}\n"
	if cfg.Server.LogLevel == "debug" {
		logFormat = "[${time}] ${status} - ${latency} ${method} ${path} ip=${ip} bytes=${bytesSent}\n"
	}
	app.Use(logger.New(logger.Config{
		Format: logFormat,
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept,Authorization",
	}))

	// Health check
	app.Get("/api/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "healthy",
			"service": "narriq-api",
			"services": fiber.Map{
				"scraping":        true,
				"aiGeneration":    openaiClient.IsConfigured(),
				"imageGeneration": replicateClient.IsConfigured() || openaiClient.IsConfigured(),
				"tts":             elevenLabsClient.IsConfigured() || openaiClient.IsConfigured(),
				"rendering":       renderWorkerClient.IsConfigured(),
				"storage":         storage != nil,
			},
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
	})

	// API routes
	api := app.Group("/api")

	api.Post("/generate", rateLimiter.GenerateLimit(cfg.RateLimit.GeneratePerHour), generateHandler.Generate)
	api.Post("/sketch-to-storyboard", storyboardHandler.FromSketch)

	api.Get("/project/:projectId", projectHandler.Get)
	api.Get("/project/:projectId/events", projectHandler.Events)

	api.Get("/analytics", projectHandler.Analytics)
	api.Get("/analytics/:projectId", projectHandler.Analytics)

	api.Post("/render", rateLimiter.RenderLimit(cfg.RateLimit.RenderPerHour), renderHandler.Start)
	api.Get("/render-status/:jobId", renderHandler.Status)
	api.Get("/download/:jobId", renderHandler.Download)

	// Render worker callbacks
	api.Post("/worker/progress/:jobId", workerHandler.Progress)
	api.Post("/worker/complete/:jobId", workerHandler.Complete)
	api.Post("/worker/failed/:jobId", workerHandler.Failed)

	// WebSocket routes
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})

	app.Get("/ws/render/:jobId", websocket.New(func(c *websocket.Conn) {
		jobID := c.Params("jobId")
		hub.HandleConnection(c, jobID)
	}))

	// Hourly cleanup of expired projects
	cronRunner := cron.New()
	if _, err := cronRunner.AddFunc("0 * * * *", func() {
		sweepCtx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		cleaned, err := projectService.CleanupSweep(sweepCtx)
		if err != nil {
			log.Printf("Cleanup sweep error: %v", err)
			return
		}
		if cleaned > 0 {
			log.Printf("Cleanup sweep removed %d expired project(s)", cleaned)
		}
	}); err != nil {
		log.Fatalf("Failed to schedule cleanup: %v", err)
	}
	cronRunner.Start()
	defer cronRunner.Stop()

	// Start Asynq worker server
	if redisUp {
		go startWorkerServer(cfg, renderService, renderWorkerClient, hub)
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		log.Println("Shutting down server...")
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

func startWorkerServer(cfg *config.Config, renderService *service.RenderService, workerClient *client.RenderWorkerClient, hub *ws.Hub) {
	srv := asynq.NewServer(
		asynq.RedisClientOpt{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		},
		asynq.Config{
			Concurrency: 10,
			Queues: map[string]int{
				"render": 10,
			},
		},
	)

	dispatcher := worker.NewRenderDispatcher(renderService, workerClient, hub)

	mux := asynq.NewServeMux()
	mux.HandleFunc(service.TaskTypeRenderDispatch, dispatcher.ProcessTask)

	if err := srv.Run(mux); err != nil {
		log.Printf("Asynq worker error: %v", err)
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
