package router

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	handler "github.com/krishkalaria12/art-curator/handlers"
	"github.com/krishkalaria12/art-curator/middleware"
)

func SetupRoutes(app *fiber.App, h *handler.Handler, tokens middleware.TokenParser, allowOrigins string) {
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: allowOrigins,
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET,POST,DELETE,OPTIONS",
	}))
	app.Use(logger.New())

	app.Get("/health", h.Health)

	// Inference
	app.Post("/predict/", h.Predict)

	// Queries
	app.Get("/history/", h.History)
	app.Get("/gallery/", h.Gallery)
	app.Get("/prediction-details/", h.PredictionDetails)
	app.Delete("/delete/", h.DeletePrediction)

	// Style transfer
	app.Get("/styles", h.Styles)
	app.Post("/transfer-style/", h.TransferStyle)

	// Auth
	app.Post("/proxy-signin", h.ProxySignIn)
	auth := app.Group("/auth")
	auth.Post("/register", h.Register)
	auth.Get("/me", middleware.AuthMiddleware(tokens), h.Me)
}
