package handler

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/krishkalaria12/art-curator/auth"
	"github.com/krishkalaria12/art-curator/database"
	"github.com/krishkalaria12/art-curator/middleware"
)

// ProxySignIn signs a user in from an RSA sealed credentials payload.
func (h *Handler) ProxySignIn(c *fiber.Ctx) error {
	var req struct {
		Ciphertext string `json:"ciphertext"`
	}
	if err := c.BodyParser(&req); err != nil {
		return errorJSON(c, fiber.StatusBadRequest, "Invalid request body")
	}

	session, err := h.auth.ProxySignIn(c.UserContext(), req.Ciphertext)
	if err != nil {
		if errors.Is(err, auth.ErrProxyDisabled) {
			return errorJSON(c, fiber.StatusServiceUnavailable, "Sign-in proxy is not configured")
		}
		if msg, ok := auth.ClientMessage(err); ok {
			return errorJSON(c, fiber.StatusBadRequest, msg)
		}
		return errorJSON(c, fiber.StatusInternalServerError, err.Error())
	}

	c.Cookie(&fiber.Cookie{
		Name:     middleware.JWTCookie,
		Value:    session.AccessToken,
		Expires:  time.Unix(session.ExpiresAt, 0),
		HTTPOnly: true,
		SameSite: "Lax",
	})
	return c.Status(fiber.StatusOK).JSON(session)
}

// Register sets the password of a new or implicitly created user.
func (h *Handler) Register(c *fiber.Ctx) error {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.BodyParser(&req); err != nil {
		return errorJSON(c, fiber.StatusBadRequest, "Invalid request body")
	}

	err := h.auth.Register(c.UserContext(), req.Email, req.Password)
	if errors.Is(err, database.ErrPasswordExists) {
		return errorJSON(c, fiber.StatusConflict, "User already registered")
	}
	if err != nil {
		if msg, ok := auth.ClientMessage(err); ok {
			return errorJSON(c, fiber.StatusBadRequest, msg)
		}
		return errorJSON(c, fiber.StatusInternalServerError, err.Error())
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "User registered",
		"email":   req.Email,
	})
}

// Me returns the user of the session token.
func (h *Handler) Me(c *fiber.Ctx) error {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		return errorJSON(c, fiber.StatusUnauthorized, "You are not authorized!")
	}
	return c.JSON(user)
}
