package server

import (
	"agent-fleettrack/internal/auth"
	"agent-fleettrack/internal/config"
	"agent-fleettrack/internal/stream"
	"agent-fleettrack/internal/track"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
)

type Server struct {
	App     *fiber.App
	Cfg     config.Config
	Tracker *track.Tracker
	Hub     *stream.Hub
}

func NewServer(cfg config.Config, tracker *track.Tracker, authClient *auth.Client, hub *stream.Hub) *Server {
	app := fiber.New()
	app.Use(recover.New())
	app.Use(logger.New())

	s := &Server{
		App:     app,
		Cfg:     cfg,
		Tracker: tracker,
		Hub:     hub,
	}

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	auth.RegisterRoutes(app.Group("/auth"), authClient)
	track.RegisterRoutes(app.Group("/v1"), tracker)
	stream.RegisterRoutes(app.Group("/stream"), hub)

	return s
}
