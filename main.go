package main

import (
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/bie71/veo3-studio/config"
	"github.com/bie71/veo3-studio/handlers"
	"github.com/bie71/veo3-studio/middleware"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	config.InitLogger(cfg.LogLevel)
	config.Log.Infof("Configuration loaded: %s", cfg)
	if len(cfg.GeminiAPIKeys) == 0 {
		config.Log.Warn("GEMINI_API_KEYS is not set; requests must carry an x-gemini-key header")
	}

	// Create Gin router
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger())

	// Setup CORS
	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"http://localhost:5173", "http://localhost:3000"},
		AllowMethods:     []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "x-gemini-key"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	// Health check endpoint
	router.GET("/api/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})

	// Static serve job outputs
	router.Static("/jobs", cfg.JobsDir)

	// Initialize storyboard handler
	storyboardHandler := handlers.NewStoryboardHandler(cfg)

	// API routes
	api := router.Group("/api/veo3")
	{
		api.POST("/generate", storyboardHandler.Generate)
		api.POST("/segments", storyboardHandler.Segments)
		api.POST("/concat", storyboardHandler.Concat)
		api.POST("/frame-extract", storyboardHandler.FrameExtract)
		api.GET("/models", storyboardHandler.Models)
		api.GET("/jobs/:job_id", storyboardHandler.GetJob)
		api.DELETE("/jobs/:job_id", storyboardHandler.DeleteJob)
	}

	// Start server
	addr := fmt.Sprintf(":%s", cfg.Port)
	config.Log.Infof("Starting server on %s", addr)
	if err := router.Run(addr); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
