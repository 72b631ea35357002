package chat

import (
	"encoding/json"
	"fmt"

	"ReviewAspects/internal/domain"
)

// Greeting opens every chat session.
const Greeting = "Hello, I'm the ABSA bot. Please provide a review."

// CodeBlock renders a rating as an indented JSON fenced code block.
func CodeBlock(r domain.AspectRating) (string, error) {
	raw, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode rating: %w", err)
	}
	return "\n```json\n" + string(raw) + "\n```\n", nil
}
