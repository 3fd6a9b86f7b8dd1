package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/flightchat/backend/internal/chat"
	"github.com/flightchat/backend/internal/llm"
	"github.com/flightchat/backend/internal/logger"
	"github.com/flightchat/backend/internal/middleware"
	"github.com/flightchat/backend/internal/routes"
	"github.com/flightchat/backend/internal/store"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

func CORSMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := "http://localhost:5173"
		if corsOrigin := os.Getenv("CORS_ORIGIN"); corsOrigin != "" {
			origin = corsOrigin
		}

		c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Origin, Content-Type, Authorization")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Max-Age", "86400")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusOK)
			return
		}

		c.Next()
	}
}

func main() {
	logger.Initialize()

	if err := godotenv.Load(); err != nil {
		logger.Warn("No .env file found, using environment variables", nil)
	}

	llmClient, err := llm.NewClientFromEnv()
	if err != nil {
		logger.Fatal("Failed to configure reasoning provider", map[string]interface{}{
			"error": err.Error(),
		})
	}

	flightLogs := store.NewMemoryFlightLogRepository()

	// Conversations live in Postgres when DB_HOST is configured, otherwise
	// in process memory.
	var conversations store.ConversationRepository = store.NewMemoryConversationRepository()
	if os.Getenv("DB_HOST") != "" {
		db, err := store.Connect()
		if err != nil {
			logger.Fatal("Failed to connect to database", map[string]interface{}{
				"error": err.Error(),
			})
		}
		pgRepo, err := store.NewPostgresConversationRepository(db)
		if err != nil {
			logger.Fatal("Failed to prepare conversation store", map[string]interface{}{
				"error": err.Error(),
			})
		}
		conversations = pgRepo
		logger.Info("Using Postgres conversation store", nil)
	}

	service := chat.NewService(flightLogs, conversations, llmClient)

	if os.Getenv("GIN_MODE") == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.RedirectTrailingSlash = false
	r.RedirectFixedPath = false

	r.Use(middleware.CustomLoggerMiddleware())
	r.Use(CORSMiddleware())
	r.Use(gin.Recovery())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "ok",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
			"version":   "1.0.0",
			"provider":  llmClient.Name(),
		})
	})

	routes.SetupRoutes(r, service)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	srv := &http.Server{
		Addr:    ":" + port,
		Handler: r,
	}

	logger.Info("Starting FlightChat backend server", map[string]interface{}{
		"port":     port,
		"gin_mode": gin.Mode(),
		"provider": llmClient.Name(),
	})

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server", map[string]interface{}{
				"error": err.Error(),
			})
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)
	<-sigChan

	logger.Info("Shutting down server gracefully...", nil)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", map[string]interface{}{
			"error": err.Error(),
		})
	} else {
		logger.Info("Server exited gracefully", nil)
	}
}
