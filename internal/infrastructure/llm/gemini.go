package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"google.golang.org/genai"

	"ReviewAspects/internal/config"
	"ReviewAspects/internal/ports"
)

const defaultGeminiModel = "gemini-2.0-flash"

// GeminiClient implements ports.Completer with Google's Gemini API.
type GeminiClient struct {
	client *genai.Client
	model  string
}

var _ ports.Completer = (*GeminiClient)(nil)

// NewGeminiClient creates a Gemini client. An empty endpoint uses the public API.
func NewGeminiClient(ctx context.Context, cfg config.LLMConfig) (*GeminiClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}

	model := cfg.Model
	if model == "" {
		model = defaultGeminiModel
	}

	cc := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.Endpoint != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.Endpoint}
	}

	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}

	return &GeminiClient{client: client, model: model}, nil
}

// Complete asks Gemini for a JSON answer matching the request schema. Blocked prompts and
// safety stops are reported as refusals.
func (c *GeminiClient) Complete(ctx context.Context, req ports.CompletionRequest) (ports.Completion, error) {
	cfg := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(req.System, genai.RoleUser),
		Temperature:       genai.Ptr(float32(req.Temperature)),
		TopP:              genai.Ptr(float32(req.TopP)),
	}
	if req.Schema != nil {
		cfg.ResponseMIMEType = "application/json"
		cfg.ResponseSchema = toGeminiSchema(req.Schema)
	}

	resp, err := c.client.Models.GenerateContent(ctx, c.model, genai.Text(req.User), cfg)
	if err != nil {
		return ports.Completion{}, fmt.Errorf("generate content: %w", err)
	}

	if fb := resp.PromptFeedback; fb != nil && fb.BlockReason != "" {
		reason := fb.BlockReasonMessage
		if reason == "" {
			reason = string(fb.BlockReason)
		}
		return ports.Completion{Refusal: reason}, nil
	}
	if len(resp.Candidates) == 0 {
		return ports.Completion{}, nil
	}

	cand := resp.Candidates[0]
	switch cand.FinishReason {
	case genai.FinishReasonSafety, genai.FinishReasonProhibitedContent, genai.FinishReasonBlocklist:
		reason := cand.FinishMessage
		if reason == "" {
			reason = string(cand.FinishReason)
		}
		return ports.Completion{Refusal: reason}, nil
	}

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return ports.Completion{}, nil
	}
	return ports.Completion{Payload: json.RawMessage(text)}, nil
}

// toGeminiSchema converts the JSON schema subset used for ratings (objects of string enums).
func toGeminiSchema(raw map[string]any) *genai.Schema {
	s := &genai.Schema{}

	switch raw["type"] {
	case "object":
		s.Type = genai.TypeObject
	case "string":
		s.Type = genai.TypeString
	case "number":
		s.Type = genai.TypeNumber
	case "boolean":
		s.Type = genai.TypeBoolean
	}

	if enum, ok := raw["enum"].([]string); ok {
		s.Enum = append([]string(nil), enum...)
	}

	if props, ok := raw["properties"].(map[string]any); ok {
		s.Properties = make(map[string]*genai.Schema, len(props))
		for name, p := range props {
			if child, ok := p.(map[string]any); ok {
				s.Properties[name] = toGeminiSchema(child)
			}
		}
	}

	if required, ok := raw["required"].([]string); ok {
		s.Required = append([]string(nil), required...)
		s.PropertyOrdering = append([]string(nil), required...)
	} else if len(s.Properties) > 0 {
		for name := range s.Properties {
			s.PropertyOrdering = append(s.PropertyOrdering, name)
		}
		sort.Strings(s.PropertyOrdering)
	}

	return s
}
