package api

import (
	"context"
	"log/slog"

	"github.com/gofiber/fiber/v2"
)

// Server is the ragchat API server.
type Server struct {
	config Config
	logger *slog.Logger
	app    *fiber.App
}

// NewServer creates a new API server.
func NewServer(config Config, logger *slog.Logger) *Server {
	if config.DefaultTopK <= 0 {
		config.DefaultTopK = DefaultTopK
	}

	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		ErrorHandler:          errorHandler,
	})

	s := &Server{
		config: config,
		logger: logger.With("component", "api"),
		app:    app,
	}

	if config.RequestTimeout > 0 {
		app.Use(s.withRequestTimeout)
	}

	app.Get("/ping", s.handlePing)

	v1 := app.Group("/api/v1")
	v1.Post("/chat", s.handleChat)
	v1.Post("/chunks", s.handleIngest)

	return s
}

// withRequestTimeout bounds the user context handed to handlers.
func (s *Server) withRequestTimeout(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), s.config.RequestTimeout)
	defer cancel()

	c.SetUserContext(ctx)
	return c.Next()
}

// Run starts the API server on the configured address.
func (s *Server) Run() error {
	s.logger.Info("starting API server",
		"listen", s.config.ListenAddr,
	)
	return s.app.Listen(s.config.ListenAddr)
}

// Shutdown gracefully shuts down the API server.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}
