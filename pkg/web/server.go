// Package web provides a local status dashboard for an interview
// session: current turn state, captions, connection quality, and a
// websocket event feed.
package web

import (
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/websocket/v2"

	"github.com/voxhire/go-voxhire/pkg/caption"
	"github.com/voxhire/go-voxhire/pkg/device"
	"github.com/voxhire/go-voxhire/pkg/hub"
	"github.com/voxhire/go-voxhire/pkg/latency"
	"github.com/voxhire/go-voxhire/pkg/turn"
)

// Server is the dashboard HTTP server. It reads session state through
// narrow interfaces and owns none of it.
type Server struct {
	app  *fiber.App
	port string

	machine  *turn.Machine
	captions *caption.Queue
	monitor  *latency.Monitor
	devices  *device.Manager
	events   *hub.Hub

	logger *slog.Logger
}

// NewServer creates the dashboard server for one session.
func NewServer(port string, machine *turn.Machine, captions *caption.Queue, monitor *latency.Monitor, devices *device.Manager) *Server {
	s := &Server{
		port:     port,
		machine:  machine,
		captions: captions,
		monitor:  monitor,
		devices:  devices,
		events:   hub.New("events"),
		logger:   slog.Default().With("component", "web.server"),
	}

	app := fiber.New(fiber.Config{
		AppName:               "voxhire-dashboard",
		DisableStartupMessage: true,
	})

	// CORS for local development
	app.Use(cors.New())

	app.Get("/health", s.handleHealth)

	api := app.Group("/api")
	api.Get("/state", s.handleState)
	api.Get("/captions", s.handleCaptions)
	api.Get("/latency", s.handleLatency)
	api.Get("/devices", s.handleDevices)

	// WebSocket upgrade middleware
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/events", websocket.New(s.handleEventsWS))

	s.app = app
	return s
}

// Events returns the event hub so the orchestrator can publish.
func (s *Server) Events() *hub.Hub {
	return s.events
}

// Start runs the event hub and serves until Shutdown.
func (s *Server) Start() error {
	go s.events.Run()
	s.logger.Info("dashboard listening", "addr", "http://localhost:"+s.port)
	return s.app.Listen(":" + s.port)
}

// StartAsync starts the server in a goroutine.
func (s *Server) StartAsync() {
	go func() {
		if err := s.Start(); err != nil {
			s.logger.Error("dashboard server stopped", "error", err)
		}
	}()
}

// Shutdown stops the server and disconnects event clients.
func (s *Server) Shutdown() error {
	s.events.Stop()
	return s.app.Shutdown()
}
