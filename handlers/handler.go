// Package handler holds the HTTP handlers. Every handler is a method on
// Handler, which carries the services it needs.
package handler

import (
	"context"
	"errors"
	"image"

	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"
	"github.com/krishkalaria12/art-curator/auth"
	"github.com/krishkalaria12/art-curator/models"
	"github.com/krishkalaria12/art-curator/pipeline"
	"github.com/krishkalaria12/art-curator/storage"
	"github.com/krishkalaria12/art-curator/styletransfer"
	"github.com/rs/zerolog/log"
)

type Predictor interface {
	Predict(ctx context.Context, up pipeline.Upload) (*pipeline.Result, error)
}

type PredictionStore interface {
	ListByUser(ctx context.Context, email string) ([]models.Prediction, error)
	GalleryItems(ctx context.Context, email string) ([]models.GalleryItem, error)
	FindForUser(ctx context.Context, id, email string) (*models.Prediction, error)
	FindByID(ctx context.Context, id string) (*models.Prediction, error)
	DeletePrediction(ctx context.Context, id string) error
}

type StyleTransferer interface {
	Transfer(name string, img image.Image) (*image.RGBA, error)
}

type Authenticator interface {
	ProxySignIn(ctx context.Context, ciphertext string) (*auth.Session, error)
	Register(ctx context.Context, email, password string) error
}

// Deps lists what the handlers need. Ping is optional.
type Deps struct {
	Predictor   Predictor
	Predictions PredictionStore
	Objects     storage.ObjectStore
	Styles      []styletransfer.Style
	Transfer    StyleTransferer
	Auth        Authenticator
	Ping        func(ctx context.Context) error
}

type Handler struct {
	predictor   Predictor
	predictions PredictionStore
	objects     storage.ObjectStore
	styles      []styletransfer.Style
	transfer    StyleTransferer
	auth        Authenticator
	ping        func(ctx context.Context) error
}

func New(d Deps) *Handler {
	return &Handler{
		predictor:   d.Predictor,
		predictions: d.Predictions,
		objects:     d.Objects,
		styles:      d.Styles,
		transfer:    d.Transfer,
		auth:        d.Auth,
		ping:        d.Ping,
	}
}

func errorJSON(c *fiber.Ctx, status int, msg string) error {
	return c.Status(status).JSON(fiber.Map{"error": msg})
}

// ErrorHandler renders errors that escape a handler, including fiber's own
// (body too large, unknown route), in the {"error": ...} shape.
func ErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
	}
	if code >= fiber.StatusInternalServerError {
		log.Error().Err(err).Str("path", c.Path()).Msg("Request failed")
	}
	return errorJSON(c, code, err.Error())
}

// AppConfig is the fiber configuration the handlers rely on. Immutable makes
// fiber copy request strings, so values such as ids and style names stay
// valid after the handler returns.
func AppConfig(bodyLimit int) fiber.Config {
	return fiber.Config{
		AppName:      "art-curator",
		BodyLimit:    bodyLimit,
		Immutable:    true,
		JSONEncoder:  json.Marshal,
		JSONDecoder:  json.Unmarshal,
		ErrorHandler: ErrorHandler,
	}
}
