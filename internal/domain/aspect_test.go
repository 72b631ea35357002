package domain

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAspectRating(t *testing.T) {
	t.Parallel()

	payload := `{"general":"positive","food":"positive","price":"not_given","ambience":"not_given","service":"not_given","location":"not_given"}`
	r, err := ParseAspectRating([]byte(payload))
	require.NoError(t, err)

	assert.Equal(t, SentimentPositive, r.General)
	assert.Equal(t, SentimentPositive, r.Food)
	assert.Equal(t, SentimentNotGiven, r.Price)
	assert.Equal(t, SentimentNotGiven, r.Location)
}

func TestParseAspectRatingRejectsSchemaViolations(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"empty":          ``,
		"not json":       `positive`,
		"illegal value":  `{"general":"great","food":"positive","price":"neutral","ambience":"neutral","service":"neutral","location":"neutral"}`,
		"missing field":  `{"general":"positive","food":"positive","price":"neutral","ambience":"neutral","service":"neutral"}`,
		"unknown field":  `{"general":"positive","food":"positive","price":"neutral","ambience":"neutral","service":"neutral","location":"neutral","parking":"neutral"}`,
		"upper case":     `{"general":"POSITIVE","food":"positive","price":"neutral","ambience":"neutral","service":"neutral","location":"neutral"}`,
		"wrong type":     `{"general":1,"food":"positive","price":"neutral","ambience":"neutral","service":"neutral","location":"neutral"}`,
		"array envelope": `[{"general":"positive"}]`,
	}

	for name, payload := range cases {
		payload := payload
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			_, err := ParseAspectRating([]byte(payload))
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrSchemaValidation), "got %v", err)
		})
	}
}

func TestNewAspectRatingValidates(t *testing.T) {
	t.Parallel()

	_, err := NewAspectRating(map[Aspect]Sentiment{AspectFood: SentimentPositive})
	require.ErrorIs(t, err, ErrSchemaValidation)

	values := map[Aspect]Sentiment{}
	for _, a := range Aspects() {
		values[a] = SentimentNegative
	}
	r, err := NewAspectRating(values)
	require.NoError(t, err)
	assert.Equal(t, SentimentNegative, r.Service)
}

func TestNeutralRatingCoversEveryAspect(t *testing.T) {
	t.Parallel()

	r := NeutralRating()
	require.NoError(t, r.Validate())
	for _, a := range Aspects() {
		assert.Equal(t, SentimentNeutral, r.Get(a), "aspect %s", a)
	}
}

func TestPromptAndSchemaShareVocabulary(t *testing.T) {
	t.Parallel()

	prompt := SystemPrompt()
	schema := JSONSchema()
	props := schema["properties"].(map[string]any)
	required := schema["required"].([]string)

	require.Len(t, props, len(Aspects()))
	require.Len(t, required, len(Aspects()))

	for _, a := range Aspects() {
		assert.Contains(t, prompt, "**"+string(a)+"**")
		prop, ok := props[string(a)].(map[string]any)
		require.True(t, ok, "schema misses %s", a)
		enum := prop["enum"].([]string)
		assert.Len(t, enum, len(sentiments))
	}
	for _, s := range sentiments {
		assert.True(t, strings.Contains(prompt, string(s)), "prompt misses %s", s)
	}
}

func TestRefusalErrorMessageCarriesReview(t *testing.T) {
	t.Parallel()

	var err error = &RefusalError{Refusal: "I can't help with that.", Review: "X"}
	var refusal *RefusalError
	require.True(t, errors.As(err, &refusal))
	assert.Contains(t, err.Error(), `"X"`)
}
