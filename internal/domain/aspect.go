package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Aspect is one facet of a restaurant review that receives its own rating.
type Aspect string

const (
	AspectGeneral  Aspect = "general"
	AspectFood     Aspect = "food"
	AspectPrice    Aspect = "price"
	AspectAmbience Aspect = "ambience"
	AspectService  Aspect = "service"
	AspectLocation Aspect = "location"
)

// Sentiment is the rating value attached to an aspect.
type Sentiment string

const (
	SentimentPositive Sentiment = "positive"
	SentimentNeutral  Sentiment = "neutral"
	SentimentNegative Sentiment = "negative"
	SentimentNotGiven Sentiment = "not_given"
)

type aspectSpec struct {
	aspect    Aspect
	guideline string
}

// aspectTable is the single source for column names, prompt guidelines and the
// response schema.
var aspectTable = []aspectSpec{
	{AspectGeneral, "Provide an overall rating based on the review's sentiment."},
	{AspectFood, "Rate based on taste, quality, freshness, and portion size."},
	{AspectPrice, "Consider affordability, value for money, and fairness of pricing."},
	{AspectAmbience, "Assess atmosphere, cleanliness, noise levels, and decor."},
	{AspectService, "Evaluate staff friendliness, responsiveness, and efficiency."},
	{AspectLocation, "Rate based on nearby attractions, accessibility, and parking."},
}

var sentiments = []Sentiment{SentimentPositive, SentimentNeutral, SentimentNegative, SentimentNotGiven}

// Aspects returns the aspects in canonical column order.
func Aspects() []Aspect {
	out := make([]Aspect, len(aspectTable))
	for i, spec := range aspectTable {
		out[i] = spec.aspect
	}
	return out
}

// Valid reports whether s is one of the four legal rating values.
func (s Sentiment) Valid() bool {
	for _, legal := range sentiments {
		if s == legal {
			return true
		}
	}
	return false
}

// AspectRating holds the validated rating of every aspect of one review.
type AspectRating struct {
	General  Sentiment `json:"general"`
	Food     Sentiment `json:"food"`
	Price    Sentiment `json:"price"`
	Ambience Sentiment `json:"ambience"`
	Service  Sentiment `json:"service"`
	Location Sentiment `json:"location"`
}

// NeutralRating is the fallback used when a review cannot be rated safely.
func NeutralRating() AspectRating {
	return AspectRating{
		General:  SentimentNeutral,
		Food:     SentimentNeutral,
		Price:    SentimentNeutral,
		Ambience: SentimentNeutral,
		Service:  SentimentNeutral,
		Location: SentimentNeutral,
	}
}

// NewAspectRating builds a rating from per-aspect values and validates it.
func NewAspectRating(values map[Aspect]Sentiment) (AspectRating, error) {
	r := AspectRating{
		General:  values[AspectGeneral],
		Food:     values[AspectFood],
		Price:    values[AspectPrice],
		Ambience: values[AspectAmbience],
		Service:  values[AspectService],
		Location: values[AspectLocation],
	}
	if err := r.Validate(); err != nil {
		return AspectRating{}, err
	}
	return r, nil
}

// Get returns the rating of a single aspect.
func (r AspectRating) Get(a Aspect) Sentiment {
	switch a {
	case AspectGeneral:
		return r.General
	case AspectFood:
		return r.Food
	case AspectPrice:
		return r.Price
	case AspectAmbience:
		return r.Ambience
	case AspectService:
		return r.Service
	case AspectLocation:
		return r.Location
	default:
		return ""
	}
}

// Validate fails with ErrSchemaValidation when any aspect holds an illegal value.
func (r AspectRating) Validate() error {
	for _, a := range Aspects() {
		if v := r.Get(a); !v.Valid() {
			return fmt.Errorf("%w: aspect %s has value %q", ErrSchemaValidation, a, v)
		}
	}
	return nil
}

// ParseAspectRating decodes an untyped model payload and validates it against the schema.
func ParseAspectRating(payload []byte) (AspectRating, error) {
	if len(bytes.TrimSpace(payload)) == 0 {
		return AspectRating{}, fmt.Errorf("%w: empty payload", ErrSchemaValidation)
	}

	dec := json.NewDecoder(bytes.NewReader(payload))
	dec.DisallowUnknownFields()

	var r AspectRating
	if err := dec.Decode(&r); err != nil {
		return AspectRating{}, fmt.Errorf("%w: decode payload: %v", ErrSchemaValidation, err)
	}
	if err := r.Validate(); err != nil {
		return AspectRating{}, err
	}
	return r, nil
}

// SystemPrompt renders the rating instructions sent to the model.
func SystemPrompt() string {
	var b strings.Builder
	b.WriteString("You are an Aspect-Based Sentiment Analysis (ABSA) tool for restaurant reviews. ")
	b.WriteString("When given a review, evaluate and rate each of the following aspects: ")

	names := make([]string, len(aspectTable))
	for i, spec := range aspectTable {
		names[i] = string(spec.aspect)
	}
	b.WriteString(strings.Join(names, ", "))
	b.WriteString(". Each aspect's rating must be one of the following values: ")

	values := make([]string, len(sentiments))
	for i, s := range sentiments {
		values[i] = string(s)
	}
	b.WriteString(strings.Join(values, ", "))
	b.WriteString(".\n\nGuidelines for aspects:\n")
	for _, spec := range aspectTable {
		fmt.Fprintf(&b, "- **%s**: %s\n", spec.aspect, spec.guideline)
	}

	b.WriteString("\nRating rules:\n")
	fmt.Fprintf(&b, "- Use %s if the review explicitly praises the aspect.\n", SentimentPositive)
	fmt.Fprintf(&b, "- Use %s if the review explicitly criticizes the aspect.\n", SentimentNegative)
	fmt.Fprintf(&b, "- Use %s if the review provides mixed feedback or presents facts without opinion.\n", SentimentNeutral)
	fmt.Fprintf(&b, "- Use %s if the aspect is not mentioned.\n", SentimentNotGiven)
	return b.String()
}

// JSONSchema returns the strict JSON schema describing AspectRating.
func JSONSchema() map[string]any {
	enum := make([]string, len(sentiments))
	for i, s := range sentiments {
		enum[i] = string(s)
	}

	properties := make(map[string]any, len(aspectTable))
	required := make([]string, 0, len(aspectTable))
	for _, spec := range aspectTable {
		properties[string(spec.aspect)] = map[string]any{
			"type": "string",
			"enum": enum,
		}
		required = append(required, string(spec.aspect))
	}

	return map[string]any{
		"type":                 "object",
		"properties":           properties,
		"required":             required,
		"additionalProperties": false,
	}
}
