package handler

import (
	"errors"
	"io"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/krishkalaria12/art-curator/pipeline"
)

// Predict classifies the uploaded painting and records the result.
func (h *Handler) Predict(c *fiber.Ctx) error {
	email := strings.TrimSpace(c.FormValue("user_email"))
	if email == "" {
		return errorJSON(c, fiber.StatusBadRequest, "user_email is required")
	}

	file, err := c.FormFile("file")
	if err != nil {
		return errorJSON(c, fiber.StatusBadRequest, "file is required")
	}
	blobFile, err := file.Open()
	if err != nil {
		return errorJSON(c, fiber.StatusInternalServerError, err.Error())
	}
	defer blobFile.Close()

	data, err := io.ReadAll(blobFile)
	if err != nil {
		return errorJSON(c, fiber.StatusInternalServerError, err.Error())
	}

	res, err := h.predictor.Predict(c.UserContext(), pipeline.Upload{
		Filename:  file.Filename,
		Data:      data,
		UserEmail: email,
	})
	switch {
	case errors.Is(err, pipeline.ErrNotArtwork):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": pipeline.NotArtworkMessage,
		})
	case errors.Is(err, pipeline.ErrInvalidImage):
		return errorJSON(c, fiber.StatusBadRequest, err.Error())
	case err != nil:
		return errorJSON(c, fiber.StatusInternalServerError, err.Error())
	}

	return c.Status(fiber.StatusOK).JSON(res)
}
