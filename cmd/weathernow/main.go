package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	httpapi "weathernow/internal/api/http"
	"weathernow/internal/config"
	"weathernow/internal/meteo"
	"weathernow/internal/refresh"
	"weathernow/internal/search"
	"weathernow/internal/session"
)

func main() {
	// Load configuration.
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	// Shared HTTP client for outbound provider calls.
	httpClient := &http.Client{
		Timeout: cfg.HTTPTimeout,
	}

	// Open-Meteo client serving both suggestions and forecast lookups.
	meteoClient := meteo.NewClient(httpClient, meteo.ClientConfig{
		GeocodingBaseURL: cfg.GeocodingBaseURL,
		ForecastBaseURL:  cfg.ForecastBaseURL,
		SuggestLimit:     cfg.SuggestLimit,
	})

	// Session store; each session owns one search controller.
	sessions := session.NewStore(cfg.SessionMax, cfg.SessionTTL, func() *search.Controller {
		return search.NewController(meteoClient, meteoClient, search.Config{
			Debounce:     cfg.SuggestDebounce,
			RecentLimit:  cfg.RecentLimit,
			FetchTimeout: cfg.HTTPTimeout,
		})
	})

	// Background refresh of displayed forecasts.
	refresher := refresh.New(sessions, cfg.RefreshInterval)
	if err := refresher.Start(); err != nil {
		log.Fatalf("failed to start refresher: %v", err)
	}
	defer refresher.Stop()

	// Basic app configuration
	app := fiber.New(fiber.Config{
		AppName:               "weathernow",
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          10 * time.Second,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			// Centralized error response
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"error":   true,
				"message": err.Error(),
			})
		},
	})

	// Global middleware
	app.Use(logger.New())
	app.Use(recover.New())

	// Basic health endpoint
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "ok",
			"service": "weathernow",
		})
	})

	// API routes.
	httpapi.RegisterRoutes(app, sessions)

	// Start server with graceful shutdown
	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Printf("fiber server stopped: %v", err)
		}
	}()

	// Wait for termination signal
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Printf("error during shutdown: %v", err)
	}
}
