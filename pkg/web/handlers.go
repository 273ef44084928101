package web

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"

	"github.com/voxhire/go-voxhire/pkg/hub"
)

// handleHealth reports liveness and the connected client count.
func (s *Server) handleHealth(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":  "ok",
		"clients": s.events.ClientCount(),
	})
}

// handleState returns the current turn state.
func (s *Server) handleState(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"state":      s.machine.State(),
		"audio_only": s.machine.AudioOnly(),
	})
}

// handleCaptions returns the current caption and recent history.
func (s *Server) handleCaptions(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"current": s.captions.Current(),
		"history": s.captions.History(10),
	})
}

// handleLatency returns the connection-quality snapshot.
func (s *Server) handleLatency(c *fiber.Ctx) error {
	return c.JSON(s.monitor.Snapshot())
}

// handleDevices returns both device session snapshots.
func (s *Server) handleDevices(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"microphone": s.devices.Microphone(),
		"camera":     s.devices.Camera(),
	})
}

// handleEventsWS attaches a dashboard client to the event feed.
func (s *Server) handleEventsWS(conn *websocket.Conn) {
	client := hub.NewClient(s.events, conn)
	client.Run()
}
