package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/krishkalaria12/art-curator/auth"
	"github.com/krishkalaria12/art-curator/config"
	"github.com/krishkalaria12/art-curator/database"
	handler "github.com/krishkalaria12/art-curator/handlers"
	"github.com/krishkalaria12/art-curator/narrative"
	"github.com/krishkalaria12/art-curator/pipeline"
	"github.com/krishkalaria12/art-curator/router"
	"github.com/krishkalaria12/art-curator/storage"
	"github.com/krishkalaria12/art-curator/styletransfer"
	"github.com/krishkalaria12/art-curator/vision"
	"github.com/krishkalaria12/art-curator/vision/cvnet"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}
	setupLogging(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	gormLevel := logger.Warn
	if zerolog.GlobalLevel() <= zerolog.DebugLevel {
		gormLevel = logger.Info
	}
	db, err := database.Open(cfg.DatabaseURL, gormLevel)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	// close the database connection
	defer func() {
		if err := database.Close(db); err != nil {
			log.Error().Err(err).Msg("Error closing the database connection")
		}
	}()
	store := database.NewStore(db)

	objects, closeObjects, err := openObjectStore(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create object storage client")
	}
	defer closeObjects()

	models := &modelSet{}
	defer models.Close()
	svc, err := buildPipeline(ctx, cfg, models, store, objects)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load inference models")
	}

	styles, err := styletransfer.LoadCatalog(cfg.StyleCatalogPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load style catalog")
	}
	registry := styletransfer.NewRegistry(cfg.StyleModelDir, cfg.StyleInputSize, loadModel)
	defer registry.Close()

	watcher, err := styletransfer.NewWatcher(cfg.StyleModelDir, registry.Evict)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create style model watcher")
	}
	if err := watcher.Start(); err != nil {
		log.Fatal().Err(err).Msg("Failed to watch style models")
	}
	defer watcher.Stop()

	authSvc, err := buildAuth(cfg, store)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to set up authentication")
	}

	h := handler.New(handler.Deps{
		Predictor:   svc,
		Predictions: store,
		Objects:     objects,
		Styles:      styles,
		Transfer:    registry,
		Auth:        authSvc,
		Ping:        store.Ping,
	})

	app := fiber.New(handler.AppConfig(cfg.MaxUploadMB << 20))
	router.SetupRoutes(app, h, authSvc, cfg.AllowOrigins)

	go func() {
		<-ctx.Done()
		log.Info().Msg("Shutting down")
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			log.Error().Err(err).Msg("Server shutdown failed")
		}
	}()

	log.Info().Str("addr", cfg.ServerAddr).Msg("Server is listening")
	if err := app.Listen(cfg.ServerAddr); err != nil {
		log.Error().Err(err).Msg("Server stopped")
	}
}

func setupLogging(cfg *config.Config) {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	if cfg.LogPretty {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	}
}

func openObjectStore(ctx context.Context, cfg *config.Config) (storage.ObjectStore, func(), error) {
	switch cfg.StorageBackend {
	case config.StorageS3:
		s3, err := storage.NewS3(ctx, storage.S3Options{
			Bucket:     cfg.StorageBucket,
			Region:     cfg.S3Region,
			Endpoint:   cfg.S3Endpoint,
			AccessKey:  cfg.S3AccessKey,
			SecretKey:  cfg.S3SecretKey,
			PublicBase: cfg.S3PublicBaseURL,
		})
		return s3, func() {}, err
	default:
		gcs, err := storage.NewGCS(ctx, cfg.StorageBucket, cfg.GCSPublicBaseURL)
		if err != nil {
			return nil, nil, err
		}
		return gcs, func() {
			if err := gcs.Close(); err != nil {
				log.Warn().Err(err).Msg("Error closing storage client")
			}
		}, nil
	}
}

func loadModel(path string) (vision.Model, error) {
	net, err := cvnet.Load(path)
	if err != nil {
		return nil, err
	}
	return net, nil
}

// modelSet closes every network loaded at start.
type modelSet struct {
	loaded []vision.Model
}

func (m *modelSet) load(path string) (vision.Model, error) {
	model, err := loadModel(path)
	if err != nil {
		return nil, err
	}
	m.loaded = append(m.loaded, model)
	return model, nil
}

func (m *modelSet) Close() {
	for _, model := range m.loaded {
		if err := model.Close(); err != nil {
			log.Warn().Err(err).Msg("Error closing model")
		}
	}
}

func buildPipeline(ctx context.Context, cfg *config.Config, models *modelSet, store *database.Store, objects storage.ObjectStore) (*pipeline.Service, error) {
	var detector pipeline.Detector
	detModel, err := models.load(cfg.DetectorModelPath)
	switch {
	case errors.Is(err, os.ErrNotExist):
		log.Warn().Str("path", cfg.DetectorModelPath).Msg("Detector model not found, region detection disabled")
	case err != nil:
		return nil, err
	default:
		detector = vision.NewDetector(detModel, cfg.DetectionConfidence)
	}

	clipModel, err := models.load(cfg.ClipModelPath)
	if err != nil {
		return nil, err
	}
	prompts, err := vision.LoadPromptSet(cfg.PromptEmbeddingsPath)
	if err != nil {
		return nil, err
	}

	clsModel, err := models.load(cfg.ClassifierModelPath)
	if err != nil {
		return nil, err
	}
	labels, err := vision.LoadLabels(cfg.ClassNamesPath)
	if err != nil {
		return nil, err
	}
	log.Info().Int("labels", len(labels)).Int("prompt_dim", prompts.Dim()).Msg("Inference models loaded")

	var describer narrative.Describer
	if cfg.GeminiAPIKey != "" {
		gemini, err := narrative.NewGemini(ctx, cfg.GeminiAPIKey, cfg.GeminiModel, cfg.GeminiTimeout)
		if err != nil {
			return nil, err
		}
		describer = gemini
	} else {
		log.Warn().Msg("GEMINI_API_KEY not set, using fallback descriptions")
	}

	return pipeline.New(pipeline.Options{
		Detector:   detector,
		Gate:       vision.NewGate(clipModel, prompts),
		Classifier: vision.NewClassifier(clsModel, labels),
		Describer:  describer,
		Objects:    objects,
		Store:      store,
	}), nil
}

func buildAuth(cfg *config.Config, store *database.Store) (*auth.Service, error) {
	secret := cfg.JWTSecret
	if secret == "" {
		buf := make([]byte, 32)
		if _, err := rand.Read(buf); err != nil {
			return nil, err
		}
		secret = hex.EncodeToString(buf)
		log.Warn().Msg("JWT_SECRET not set, sessions will not survive a restart")
	}

	opts := auth.Options{
		Users:         store,
		Secret:        secret,
		TokenDuration: cfg.TokenDuration,
	}
	if cfg.AuthPrivateKeyPEM != "" {
		key, err := auth.ParsePrivateKey(cfg.AuthPrivateKeyPEM)
		if err != nil {
			return nil, err
		}
		opts.PrivateKey = key
	} else {
		log.Warn().Msg("AUTH_PRIVATE_KEY_PEM not set, /proxy-signin is disabled")
	}
	return auth.NewService(opts), nil
}
