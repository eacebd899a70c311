package auth

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"agent-fleettrack/internal/tokenstore"
)

func RegisterRoutes(r fiber.Router, client *Client) {
	r.Post("/login", func(c *fiber.Ctx) error {
		var req LoginRequest
		if err := c.BodyParser(&req); err != nil || req.Email == "" || req.Password == "" {
			return fiber.NewError(fiber.StatusBadRequest, "email and password required")
		}

		if err := client.Login(c.Context(), req.Email, req.Password); err != nil {
			switch {
			case errors.Is(err, ErrUnauthorized):
				return fiber.NewError(fiber.StatusUnauthorized, err.Error())
			case errors.Is(err, ErrMalformedResponse):
				return fiber.NewError(fiber.StatusBadGateway, err.Error())
			default:
				return fiber.NewError(fiber.StatusBadGateway, err.Error())
			}
		}
		return c.JSON(fiber.Map{"status": "ok"})
	})

	r.Post("/logout", func(c *fiber.Ctx) error {
		if err := client.Logout(c.Context()); err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		return c.JSON(fiber.Map{"status": "ok"})
	})

	r.Get("/me", func(c *fiber.Ctx) error {
		user, err := client.Me(c.Context())
		if err != nil {
			switch {
			case errors.Is(err, tokenstore.ErrNotFound):
				return fiber.NewError(fiber.StatusUnauthorized, "not logged in")
			case errors.Is(err, ErrUnauthorized):
				return fiber.NewError(fiber.StatusUnauthorized, err.Error())
			default:
				return fiber.NewError(fiber.StatusBadGateway, err.Error())
			}
		}
		return c.JSON(fiber.Map{"user": user})
	})
}
