package rating

import (
	"fmt"
	"strings"
	"unicode"

	"ReviewAspects/internal/domain"
)

const (
	// PlaceholderReview is the marker the source table uses for reviews without content.
	PlaceholderReview = "Not Defined."

	sentenceDelimiter = ". "
)

// validate rejects text that cannot carry a review.
func validate(text string) error {
	if strings.TrimSpace(text) == "" {
		return fmt.Errorf("%w: empty review", domain.ErrInvalidReview)
	}
	if isNumeric(text) {
		return fmt.Errorf("%w: numeric review %q", domain.ErrInvalidReview, text)
	}
	if strings.HasPrefix(text, PlaceholderReview) {
		return fmt.Errorf("%w: placeholder review", domain.ErrInvalidReview)
	}
	return nil
}

func isNumeric(text string) bool {
	for _, r := range text {
		if !unicode.IsNumber(r) {
			return false
		}
	}
	return text != ""
}

// Normalize removes repeated sentences, keeping the first occurrence of each.
func Normalize(text string) string {
	segments := strings.Split(text, sentenceDelimiter)
	seen := make(map[string]struct{}, len(segments))
	kept := segments[:0]
	for _, s := range segments {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		kept = append(kept, s)
	}
	return strings.Join(kept, sentenceDelimiter)
}
