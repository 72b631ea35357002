package rating

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"ReviewAspects/internal/domain"
	"ReviewAspects/internal/ports"
)

const (
	defaultTemperature = 0.1
	defaultTopP        = 1.0
	schemaName         = "AspectRating"
)

// Options tunes the sampling parameters sent with every completion.
type Options struct {
	Temperature float64
	TopP        float64
}

// Engine rates a single review through a language model.
type Engine struct {
	completer ports.Completer
	logger    zerolog.Logger
	opts      Options
	system    string
	schema    map[string]any
}

var _ ports.Rater = (*Engine)(nil)

// NewEngine wires the completer; zero options fall back to deterministic sampling.
func NewEngine(completer ports.Completer, logger zerolog.Logger, opts Options) *Engine {
	if opts.Temperature <= 0 {
		opts.Temperature = defaultTemperature
	}
	if opts.TopP <= 0 {
		opts.TopP = defaultTopP
	}
	return &Engine{
		completer: completer,
		logger:    logger,
		opts:      opts,
		system:    domain.SystemPrompt(),
		schema:    domain.JSONSchema(),
	}
}

// Rate returns the aspect rating for the review. Invalid input and model faults
// resolve to the neutral rating; a refusal or a done ctx is returned as an error.
func (e *Engine) Rate(ctx context.Context, review string) (domain.AspectRating, error) {
	r, err := e.rate(ctx, review)
	if err == nil {
		return r, nil
	}

	var refusal *domain.RefusalError
	if errors.As(err, &refusal) {
		e.logger.Error().Str("refusal", refusal.Refusal).Msg("model refused review")
		return domain.AspectRating{}, err
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return domain.AspectRating{}, fmt.Errorf("rate review: %w", ctxErr)
	}

	e.logger.Warn().Err(err).Str("cause", classify(err)).Msg("rating fell back to neutral")
	return domain.NeutralRating(), nil
}

func (e *Engine) rate(ctx context.Context, review string) (domain.AspectRating, error) {
	if err := validate(review); err != nil {
		return domain.AspectRating{}, err
	}
	if e.completer == nil {
		return domain.AspectRating{}, fmt.Errorf("%w: no completer configured", domain.ErrModelUnavailable)
	}

	text := Normalize(review)
	completion, err := e.completer.Complete(ctx, ports.CompletionRequest{
		System:      e.system,
		User:        text,
		SchemaName:  schemaName,
		Schema:      e.schema,
		Temperature: e.opts.Temperature,
		TopP:        e.opts.TopP,
	})
	if err != nil {
		return domain.AspectRating{}, fmt.Errorf("%w: %v", domain.ErrModelUnavailable, err)
	}

	switch {
	case len(completion.Payload) > 0:
		r, err := domain.ParseAspectRating(completion.Payload)
		if err != nil {
			return domain.AspectRating{}, err
		}
		e.logger.Debug().Interface("rating", r).Msg("review rated")
		return r, nil
	case completion.Refusal != "":
		return domain.AspectRating{}, &domain.RefusalError{Refusal: completion.Refusal, Review: review}
	default:
		return domain.AspectRating{}, fmt.Errorf("%w: no response from the model", domain.ErrModelUnavailable)
	}
}

func classify(err error) string {
	switch {
	case errors.Is(err, domain.ErrInvalidReview):
		return "invalid_review"
	case errors.Is(err, domain.ErrSchemaValidation):
		return "schema_validation"
	case errors.Is(err, domain.ErrModelUnavailable):
		return "model_unavailable"
	default:
		return "unknown"
	}
}
