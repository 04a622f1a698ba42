package main

import (
	"context"
	"log"
	"math/rand"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	httpSwagger "github.com/swaggo/http-swagger"

	_ "secret-santa-backend/docs"
	"secret-santa-backend/internal/assignment"
	"secret-santa-backend/internal/config"
	"secret-santa-backend/internal/database"
	"secret-santa-backend/internal/dispatch"
	"secret-santa-backend/internal/gateway"
	"secret-santa-backend/internal/group"
)

// @title        Secret Santa API
// @version      1.0
// @description  Gift exchange draws, one-time reveal links and paced WhatsApp delivery
// @BasePath     /api/v1
func main() {
	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	// Load configuration
	cfg := config.Load()

	// Initialize database connection
	db, err := database.NewPostgresConnection(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	log.Println("Connected to database successfully")

	// Initialize redis (backs the delivery queue)
	redisClient, err := database.NewRedisClient(cfg.RedisAddr)
	if err != nil {
		log.Fatalf("Failed to connect to redis: %v", err)
	}
	defer redisClient.Close()

	log.Println("Connected to redis successfully")

	// Separate random sources: draws and pacing must not contend
	drawRnd := rand.New(rand.NewSource(time.Now().UnixNano()))
	paceRnd := rand.New(rand.NewSource(time.Now().UnixNano() + 1))

	// Repositories
	groupRepo := group.NewRepository(db)
	assignmentRepo := assignment.NewRepository(db)
	dispatchRepo := dispatch.NewRepository(db)

	// Delivery pipeline
	queue := dispatch.NewRedisQueue(redisClient, dispatch.QueueOptions{
		BaseBackoff: cfg.RetryBackoff,
	})
	gatewayClient := gateway.NewClient(cfg.GatewayBaseURL, cfg.GatewayInstance, cfg.GatewayAPIKey, cfg.GatewayTimeout)
	pacer := dispatch.NewPacer(dispatch.PacingMode(cfg.PacingMode), cfg.PacingFixed, cfg.PacingMin, cfg.PacingMax, paceRnd)

	// Group feature
	groupService := group.NewService(groupRepo, assignmentRepo)
	groupHandler := group.NewHandler(groupService)

	// Assignment feature (draw + reveal)
	assignmentService := assignment.NewService(assignmentRepo, groupRepo, cfg.AppBaseURL, drawRnd)
	assignmentHandler := assignment.NewHandler(assignmentService)

	// Dispatch feature
	dispatchService := dispatch.NewService(queue, pacer, assignmentRepo, groupRepo, dispatchRepo, cfg.MaxAttempts)
	dispatchHandler := dispatch.NewHandler(dispatchService)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Delivery workers run independently of the request path
	for i := 0; i < cfg.WorkerCount; i++ {
		worker := dispatch.NewWorker(queue, gatewayClient, dispatchRepo, cfg.SettleDelay)
		go worker.Run(ctx)
	}

	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})

	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))

	// API routes
	r.Route("/api/v1", func(r chi.Router) {
		groupRouter := groupHandler.Routes()
		assignmentHandler.GroupRoutes(groupRouter)
		dispatchHandler.GroupRoutes(groupRouter)

		r.Mount("/groups", groupRouter)
		r.Mount("/jobs", dispatchHandler.JobRoutes())
	})

	// Public reveal links live outside the API prefix
	r.Mount("/reveal", assignmentHandler.RevealRoutes())

	server := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: r,
	}

	go func() {
		log.Printf("Server starting on port %s", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed to start: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}
}
