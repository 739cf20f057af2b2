package handler

import (
	"bytes"
	"errors"

	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/krishkalaria12/art-curator/database"
	"github.com/krishkalaria12/art-curator/models"
	"github.com/rs/zerolog/log"
)

const notFoundOrDenied = "Prediction not found or access denied"

// History lists every prediction of a user, newest first.
func (h *Handler) History(c *fiber.Ctx) error {
	email := c.Query("user_email")
	if email == "" {
		return errorJSON(c, fiber.StatusBadRequest, "user_email is required")
	}
	rows, err := h.predictions.ListByUser(c.UserContext(), email)
	if err != nil {
		return errorJSON(c, fiber.StatusInternalServerError, err.Error())
	}
	if rows == nil {
		rows = []models.Prediction{}
	}
	return c.JSON(rows)
}

// Gallery groups a user's images by style. An image whose hash was already
// shown under any style is skipped.
func (h *Handler) Gallery(c *fiber.Ctx) error {
	email := c.Query("user_email")
	if email == "" {
		return errorJSON(c, fiber.StatusBadRequest, "user_email is required")
	}
	items, err := h.predictions.GalleryItems(c.UserContext(), email)
	if err != nil {
		return errorJSON(c, fiber.StatusInternalServerError, err.Error())
	}
	return c.JSON(groupGallery(items))
}

// PredictionDetails returns one prediction if it belongs to the user. A
// missing and a foreign prediction give the same answer.
func (h *Handler) PredictionDetails(c *fiber.Ctx) error {
	id, email := c.Query("prediction_id"), c.Query("user_email")
	if id == "" || email == "" {
		return errorJSON(c, fiber.StatusBadRequest, "prediction_id and user_email are required")
	}
	if uuid.Validate(id) != nil {
		return errorJSON(c, fiber.StatusNotFound, notFoundOrDenied)
	}

	p, err := h.predictions.FindForUser(c.UserContext(), id, email)
	if errors.Is(err, database.ErrNotFound) {
		return errorJSON(c, fiber.StatusNotFound, notFoundOrDenied)
	}
	if err != nil {
		return errorJSON(c, fiber.StatusInternalServerError, err.Error())
	}
	return c.JSON(p)
}

// DeletePrediction removes the stored image, then the row.
func (h *Handler) DeletePrediction(c *fiber.Ctx) error {
	id := c.Query("prediction_id")
	if id == "" {
		return errorJSON(c, fiber.StatusBadRequest, "prediction_id is required")
	}
	if uuid.Validate(id) != nil {
		return errorJSON(c, fiber.StatusNotFound, "Prediction not found")
	}

	ctx := c.UserContext()
	p, err := h.predictions.FindByID(ctx, id)
	if errors.Is(err, database.ErrNotFound) {
		return errorJSON(c, fiber.StatusNotFound, "Prediction not found")
	}
	if err != nil {
		return errorJSON(c, fiber.StatusInternalServerError, err.Error())
	}

	if p.StoragePath != "" {
		if err := h.objects.Delete(ctx, p.StoragePath); err != nil {
			return errorJSON(c, fiber.StatusInternalServerError, err.Error())
		}
	}

	err = h.predictions.DeletePrediction(ctx, id)
	if errors.Is(err, database.ErrNotFound) {
		// Removed concurrently; the object is gone as well.
		log.Warn().Str("id", id).Msg("Prediction disappeared during delete")
	} else if err != nil {
		return errorJSON(c, fiber.StatusInternalServerError, err.Error())
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"message": "Deleted from DB and storage",
	})
}

// galleryGroups keeps styles in first-seen order when serialised.
type galleryGroups struct {
	order []string
	urls  map[string][]string
}

func groupGallery(items []models.GalleryItem) galleryGroups {
	g := galleryGroups{urls: make(map[string][]string)}
	seen := make(map[string]bool)
	for _, it := range items {
		if seen[it.ImageHash] {
			continue
		}
		seen[it.ImageHash] = true
		if _, ok := g.urls[it.Style]; !ok {
			g.order = append(g.order, it.Style)
		}
		g.urls[it.Style] = append(g.urls[it.Style], it.ImageURL)
	}
	return g
}

func (g galleryGroups) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, style := range g.order {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(style)
		if err != nil {
			return nil, err
		}
		urls, err := json.Marshal(g.urls[style])
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(urls)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
