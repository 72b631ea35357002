package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidReview marks empty, numeric-only or placeholder review text.
	ErrInvalidReview = errors.New("invalid review")
	// ErrModelUnavailable marks a completion that carried neither content nor a refusal,
	// or a transport failure reaching the model.
	ErrModelUnavailable = errors.New("model unavailable")
	// ErrSchemaValidation marks a rating that does not match the aspect schema.
	ErrSchemaValidation = errors.New("schema validation failed")
	// ErrConfiguration marks an invalid processor or driver setup.
	ErrConfiguration = errors.New("invalid configuration")
)

// RefusalError is returned when the model declines to rate a review.
type RefusalError struct {
	Refusal string
	Review  string
}

func (e *RefusalError) Error() string {
	return fmt.Sprintf("model refused to rate review %q: %s", e.Review, e.Refusal)
}
