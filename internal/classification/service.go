package classification

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"regexp"
	"strings"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/vatavaran/vatavaran-backend/pkg/config"
	"github.com/vatavaran/vatavaran-backend/pkg/enums"
	pkgerrors "github.com/vatavaran/vatavaran-backend/pkg/errors"
	"github.com/vatavaran/vatavaran-backend/pkg/gemini"
	"github.com/vatavaran/vatavaran-backend/pkg/logger"
	"github.com/vatavaran/vatavaran-backend/pkg/metrics"
)

const (
	minPayloadChars   = 100
	defaultMimeType   = "image/jpeg"
	successConfidence = 0.95
	cacheTTL          = 24 * time.Hour

	fallbackLabel = "Plastic"

	msgBusy        = "System busy. Using default category."
	msgUnavailable = "AI unavailable. Defaulting to Plastic."
	msgNoKey       = "Fallback response (API key not configured)"

	prompt = "Identify the primary type of waste in this image.\n" +
		"Choose ONLY ONE from these exact categories:\n" +
		"Plastic, Paper, Metal, Glass, Organic, E-Waste, Clothes.\n" +
		"Return ONLY the category name."
)

// labels are matched in order against the model answer.
var labels = []string{"Plastic", "Paper", "Metal", "Glass", "Organic", "E-Waste", "Clothes"}

var dataURLPattern = regexp.MustCompile(`^data:(image/[\w.+-]+);base64,`)

type generator interface {
	GenerateText(ctx context.Context, prompt string, image gemini.InlineImage) (string, error)
}

type resultCache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	ClassificationKey(digest string) string
}

// Suggestion is a proposed category for a pickup photo. Confidence is 0 for
// fallback answers.
type Suggestion struct {
	Label      string              `json:"suggestion"`
	Category   enums.WasteCategory `json:"category"`
	Confidence float64             `json:"confidence"`
	Message    string              `json:"message,omitempty"`
	Fallback   bool                `json:"fallback"`
}

// Service suggests a waste category for an image. Outages degrade to a
// fallback suggestion instead of failing the request.
type Service interface {
	Classify(ctx context.Context, image string) (*Suggestion, error)
}

type service struct {
	gen            generator
	cache          resultCache
	sem            *semaphore.Weighted
	timeout        time.Duration
	acquireTimeout time.Duration
	metrics        *metrics.ClassifierMetrics
	logg           *logger.Logger
}

// NewService wires the classifier. gen may be nil when no API key is
// configured; cache may be nil to disable result caching.
func NewService(gen generator, cache resultCache, cfg config.ClassifierConfig, cm *metrics.ClassifierMetrics, logg *logger.Logger) (Service, error) {
	if cfg.MaxInFlight <= 0 {
		return nil, fmt.Errorf("classifier max in-flight must be positive")
	}
	return &service{
		gen:            gen,
		cache:          cache,
		sem:            semaphore.NewWeighted(cfg.MaxInFlight),
		timeout:        cfg.Timeout,
		acquireTimeout: cfg.AcquireTimeout,
		metrics:        cm,
		logg:           logg,
	}, nil
}

func (s *service) Classify(ctx context.Context, image string) (*Suggestion, error) {
	mimeType, data, err := splitPayload(image)
	if err != nil {
		s.metrics.IncOutcome(metrics.OutcomeRejected)
		return nil, err
	}

	if s.gen == nil {
		s.warn(ctx, "classifier.no_api_key", nil)
		return s.fallback(msgNoKey), nil
	}

	digest := digestOf(data)
	if label, ok := s.cached(ctx, digest); ok {
		s.metrics.IncOutcome(metrics.OutcomeSuccess)
		return suggestionFor(label), nil
	}

	acquireCtx := ctx
	if s.acquireTimeout > 0 {
		var cancel context.CancelFunc
		acquireCtx, cancel = context.WithTimeout(ctx, s.acquireTimeout)
		defer cancel()
	}
	if err := s.sem.Acquire(acquireCtx, 1); err != nil {
		s.metrics.IncOutcome(metrics.OutcomeBusy)
		s.warn(ctx, "classifier.busy", err)
		return s.fallbackWith(msgBusy), nil
	}
	defer s.sem.Release(1)
	defer s.metrics.TrackInFlight()()

	callCtx := ctx
	if s.timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	answer, err := s.gen.GenerateText(callCtx, prompt, gemini.InlineImage{MimeType: mimeType, Data: data})
	if err != nil {
		s.warn(ctx, "classifier.upstream_failed", err)
		return s.fallback(msgUnavailable), nil
	}

	label := matchLabel(answer)
	s.store(ctx, digest, label)
	s.metrics.IncOutcome(metrics.OutcomeSuccess)
	return suggestionFor(label), nil
}

func (s *service) fallback(message string) *Suggestion {
	s.metrics.IncOutcome(metrics.OutcomeFallback)
	return s.fallbackWith(message)
}

func (s *service) fallbackWith(message string) *Suggestion {
	out := suggestionFor(fallbackLabel)
	out.Confidence = 0
	out.Message = message
	out.Fallback = true
	return out
}

func (s *service) cached(ctx context.Context, digest string) (string, bool) {
	if s.cache == nil {
		return "", false
	}
	label, err := s.cache.Get(ctx, s.cache.ClassificationKey(digest))
	if err != nil || label == "" {
		return "", false
	}
	return label, true
}

func (s *service) store(ctx context.Context, digest, label string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Set(ctx, s.cache.ClassificationKey(digest), label, cacheTTL); err != nil {
		s.warn(ctx, "classifier.cache_write_failed", err)
	}
}

func (s *service) warn(ctx context.Context, msg string, err error) {
	if s.logg == nil {
		return
	}
	if err != nil {
		ctx = s.logg.WithField(ctx, "error", err.Error())
	}
	s.logg.Warn(ctx, msg)
}

// splitPayload accepts raw base64 or a data URL and returns the mime type and
// the bare base64 body.
func splitPayload(image string) (string, string, error) {
	image = strings.TrimSpace(image)
	if image == "" {
		return "", "", pkgerrors.New(pkgerrors.CodeValidation, "invalid or missing image data")
	}
	mimeType := defaultMimeType
	if m := dataURLPattern.FindStringSubmatch(image); m != nil {
		mimeType = m[1]
	}
	data := image
	if idx := strings.Index(image, ","); idx >= 0 {
		data = image[idx+1:]
	}
	if len(data) < minPayloadChars {
		return "", "", pkgerrors.New(pkgerrors.CodeValidation, "corrupted or invalid image data")
	}
	return mimeType, data, nil
}

func matchLabel(answer string) string {
	lower := strings.ToLower(answer)
	for _, label := range labels {
		if strings.Contains(lower, strings.ToLower(label)) {
			return label
		}
	}
	return fallbackLabel
}

func suggestionFor(label string) *Suggestion {
	return &Suggestion{
		Label:      label,
		Category:   enums.NormalizeWasteCategory(label),
		Confidence: successConfidence,
	}
}

func digestOf(data string) string {
	sum := sha256.Sum256([]byte(data))
	return hex.EncodeToString(sum[:])
}
