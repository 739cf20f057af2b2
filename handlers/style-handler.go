package handler

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/krishkalaria12/art-curator/imaging"
	"github.com/krishkalaria12/art-curator/styletransfer"
	"github.com/rs/zerolog/log"
)

const styledJPEGQuality = 95

func (h *Handler) Styles(c *fiber.Ctx) error {
	return c.JSON(h.styles)
}

// TransferStyle restyles the uploaded image and returns it as a download.
func (h *Handler) TransferStyle(c *fiber.Ctx) error {
	name := strings.TrimSpace(c.FormValue("style_name"))
	if name == "" {
		return errorJSON(c, fiber.StatusBadRequest, "style_name is required")
	}
	file, err := c.FormFile("image")
	if err != nil {
		return errorJSON(c, fiber.StatusBadRequest, "image is required")
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
	img, err := imaging.Decode(data)
	if err != nil {
		return errorJSON(c, fiber.StatusBadRequest, err.Error())
	}

	styled, err := h.transfer.Transfer(name, img)
	if errors.Is(err, styletransfer.ErrStyleNotFound) {
		return errorJSON(c, fiber.StatusNotFound, "Style model not found: "+name)
	}
	if err != nil {
		log.Error().Err(err).Str("style", name).Msg("Style transfer failed")
		return errorJSON(c, fiber.StatusInternalServerError, "Style transfer failed: "+err.Error())
	}

	out, err := imaging.EncodeJPEG(styled, styledJPEGQuality)
	if err != nil {
		return errorJSON(c, fiber.StatusInternalServerError, "Style transfer failed: "+err.Error())
	}

	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	c.Set(fiber.HeaderContentType, "image/jpeg")
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf("attachment; filename=styled_%s_%s.jpg", name, suffix))
	return c.Status(fiber.StatusOK).Send(out)
}
