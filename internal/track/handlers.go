package track

import (
	"errors"

	"github.com/gofiber/fiber/v2"
)

func RegisterRoutes(r fiber.Router, tr *Tracker) {
	r.Post("/permission", func(c *fiber.Ctx) error {
		status, err := tr.EnsurePermission(c.Context())
		if err != nil && !errors.Is(err, ErrPermissionDenied) {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		return c.JSON(fiber.Map{"permission": status})
	})

	r.Post("/session/connect", func(c *fiber.Ctx) error {
		if err := tr.Connect(c.Context()); err != nil {
			return statusError(err)
		}
		return c.JSON(tr.Snapshot())
	})

	r.Post("/session/disconnect", func(c *fiber.Ctx) error {
		tr.Disconnect()
		return c.JSON(tr.Snapshot())
	})

	r.Get("/session", func(c *fiber.Ctx) error {
		return c.JSON(tr.Snapshot())
	})

	r.Post("/tracking/start", func(c *fiber.Ctx) error {
		if err := tr.StartTracking(c.Context()); err != nil {
			return statusError(err)
		}
		return c.JSON(tr.Snapshot())
	})

	r.Post("/tracking/stop", func(c *fiber.Ctx) error {
		tr.StopTracking()
		return c.JSON(tr.Snapshot())
	})

	r.Post("/locations/manual", func(c *fiber.Ctx) error {
		rec, err := tr.SendManual(c.Context())
		if err != nil {
			return statusError(err)
		}
		return c.Status(fiber.StatusCreated).JSON(rec)
	})

	r.Post("/locations/test", func(c *fiber.Ctx) error {
		sample, submitted, err := tr.SendTestLocation()
		if err != nil {
			return statusError(err)
		}
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{
			"sample":    sample,
			"submitted": submitted,
		})
	})

	r.Get("/history", func(c *fiber.Ctx) error {
		return c.JSON(tr.Snapshot().History)
	})

	r.Delete("/history", func(c *fiber.Ctx) error {
		confirm := c.QueryBool("confirm")
		if err := tr.ClearHistory(confirm); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		return c.JSON(fiber.Map{"status": "cleared"})
	})
}

func statusError(err error) *fiber.Error {
	switch {
	case errors.Is(err, ErrAuthMissing),
		errors.Is(err, ErrNotConnected),
		errors.Is(err, ErrPermissionDenied):
		return fiber.NewError(fiber.StatusConflict, err.Error())
	case errors.Is(err, ErrLocationFetch):
		return fiber.NewError(fiber.StatusBadGateway, err.Error())
	default:
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}
}
