// Package pipeline chains the inference stages behind the predict endpoint.
package pipeline

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"time"

	"github.com/google/uuid"
	"github.com/krishkalaria12/art-curator/imaging"
	"github.com/krishkalaria12/art-curator/models"
	"github.com/krishkalaria12/art-curator/narrative"
	"github.com/krishkalaria12/art-curator/storage"
	"github.com/krishkalaria12/art-curator/vision"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const topK = 3

var (
	ErrInvalidImage = errors.New("invalid image")
	ErrNotArtwork   = errors.New("image is not an artwork")
)

type Detector interface {
	Detect(img image.Image) ([]vision.Box, error)
}

type Gate interface {
	Check(img image.Image) (vision.Verdict, error)
}

type Classifier interface {
	Classify(img image.Image, k int) ([]vision.Score, error)
}

type PredictionStore interface {
	SavePrediction(ctx context.Context, p *models.Prediction) error
}

// Options wires the stages. Detector and Describer are optional.
type Options struct {
	Detector   Detector
	Gate       Gate
	Classifier Classifier
	Describer  narrative.Describer
	Objects    storage.ObjectStore
	Store      PredictionStore
	Logger     *zerolog.Logger
}

// Service runs uploads through detection, gating, classification,
// description and persistence.
type Service struct {
	detector   Detector
	gate       Gate
	classifier Classifier
	describer  narrative.Describer
	objects    storage.ObjectStore
	store      PredictionStore
	log        zerolog.Logger

	now   func() time.Time
	newID func() string
}

func New(opts Options) *Service {
	logger := log.Logger
	if opts.Logger != nil {
		logger = *opts.Logger
	}
	return &Service{
		detector:   opts.Detector,
		gate:       opts.Gate,
		classifier: opts.Classifier,
		describer:  opts.Describer,
		objects:    opts.Objects,
		store:      opts.Store,
		log:        logger.With().Str("component", "pipeline").Logger(),
		now:        func() time.Time { return time.Now().UTC() },
		newID:      uuid.NewString,
	}
}

// Upload is one image submitted for classification.
type Upload struct {
	Filename  string
	Data      []byte
	UserEmail string
}

// Predict runs every stage in order. Nothing is stored unless the image
// passes the gate and classification succeeds.
func (s *Service) Predict(ctx context.Context, up Upload) (*Result, error) {
	img, err := imaging.Decode(up.Data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}

	var stages Stages
	var processed image.Image
	processed, stages.Detection = s.crop(img)

	verdict, err := s.gate.Check(processed)
	if err != nil {
		return nil, fmt.Errorf("content gate: %w", err)
	}
	s.log.Debug().
		Float64("positive", verdict.PositiveScore).
		Float64("negative", verdict.NegativeScore).
		Str("positive_prompt", verdict.PositivePrompt).
		Str("negative_prompt", verdict.NegativePrompt).
		Bool("accepted", verdict.Accepted).
		Msg("content gate")
	if !verdict.Accepted {
		return nil, ErrNotArtwork
	}

	scores, err := s.classifier.Classify(processed, topK)
	if err != nil {
		return nil, fmt.Errorf("classify: %w", err)
	}
	if len(scores) == 0 {
		return nil, errors.New("classify: no scores returned")
	}
	predictions := make([]StyleScore, len(scores))
	for i, sc := range scores {
		predictions[i] = StyleScore{Label: sc.Label, Score: Round4(sc.Probability)}
	}
	style, confidence := predictions[0].Label, predictions[0].Score

	jpeg, err := imaging.EncodeJPEG(processed, imaging.JPEGQuality)
	if err != nil {
		return nil, fmt.Errorf("encode image: %w", err)
	}

	var description string
	description, stages.Description = s.describe(ctx, style, jpeg)

	hash, err := imaging.AverageHash(processed)
	if err != nil {
		return nil, fmt.Errorf("hash image: %w", err)
	}

	key := storage.ObjectKey(up.Filename)
	url, err := s.objects.Upload(ctx, key, "image/jpeg", jpeg)
	if err != nil {
		return nil, fmt.Errorf("upload image: %w", err)
	}

	ts := s.now()
	p := &models.Prediction{
		ID:          s.newID(),
		UserEmail:   up.UserEmail,
		Style:       style,
		ImageURL:    url,
		StoragePath: key,
		Timestamp:   ts,
		Confidence:  confidence,
		Description: description,
		ImageHash:   hash,
	}
	if err := s.store.SavePrediction(ctx, p); err != nil {
		s.log.Error().Err(err).Str("key", key).Msg("prediction not recorded, uploaded object is orphaned")
		return nil, fmt.Errorf("save prediction: %w", err)
	}

	res := &Result{
		ID:            p.ID,
		Filename:      up.Filename,
		Style:         style,
		Confidence:    confidence,
		Predictions:   predictions,
		ImageURL:      url,
		Description:   description,
		Base64Preview: base64.StdEncoding.EncodeToString(jpeg),
		Timestamp:     ts.Format(time.RFC3339Nano),
		Stages:        stages,
	}
	if confidence < LowConfidence {
		res.Warning = LowConfidenceWarning
	}
	return res, nil
}

// crop narrows img to the largest detected region. Any failure leaves img
// untouched.
func (s *Service) crop(img image.Image) (image.Image, StageOutcome) {
	if s.detector == nil {
		return img, skipped("detector not configured")
	}
	boxes, err := s.detector.Detect(img)
	if err != nil {
		s.log.Warn().Err(err).Msg("region detection failed, using full image")
		return img, degraded(err)
	}
	best, ok := vision.LargestBox(boxes)
	if !ok {
		return img, skipped("no region detected")
	}
	r := best.Rect().Intersect(img.Bounds())
	if r.Empty() {
		return img, skipped("detected region is empty")
	}
	return imaging.Crop(img, r), applied()
}

func (s *Service) describe(ctx context.Context, style string, jpeg []byte) (string, StageOutcome) {
	if s.describer == nil {
		return narrative.Fallback(style), skipped("description generator not configured")
	}
	text, err := s.describer.Describe(ctx, style, jpeg)
	if err != nil {
		s.log.Warn().Err(err).Str("style", style).Msg("description generation failed")
		return narrative.Fallback(style), degraded(err)
	}
	return text, applied()
}
