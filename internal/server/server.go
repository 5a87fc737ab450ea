package server

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/luma-pay/luma_pay/internal/routes"
)

// Server wraps the Fiber application and the background runtime components.
type Server struct {
	app     *fiber.App
	deps    routes.Deps
	runtime *routes.Runtime
}

// New instantiates the HTTP server and delegates route wiring to routes.Setup.
func New(d routes.Deps) (*Server, error) {
	app := fiber.New(fiber.Config{
		AppName:      d.Cfg.AppName,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	})

	runtime, err := routes.Setup(app, d)
	if err != nil {
		return nil, err
	}

	return &Server{app: app, deps: d, runtime: runtime}, nil
}

// Runtime exposes the background components for main to drive.
func (s *Server) Runtime() *routes.Runtime {
	return s.runtime
}

// Listen starts the HTTP server.
func (s *Server) Listen() error {
	return s.app.Listen(s.deps.Cfg.Address())
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}
