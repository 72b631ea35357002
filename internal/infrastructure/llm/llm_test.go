package llm

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ReviewAspects/internal/config"
	"ReviewAspects/internal/domain"
	"ReviewAspects/internal/ports"
)

const ratingJSON = `{"general":"positive","food":"positive","price":"not_given","ambience":"not_given","service":"not_given","location":"not_given"}`

func testRequest() ports.CompletionRequest {
	return ports.CompletionRequest{
		System:      domain.SystemPrompt(),
		User:        "Great food.",
		SchemaName:  "AspectRating",
		Schema:      domain.JSONSchema(),
		Temperature: 0.1,
		TopP:        1,
	}
}

func openAIServer(t *testing.T, status int, body string, seen *map[string]any) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		if seen != nil {
			raw, _ := io.ReadAll(r.Body)
			_ = json.Unmarshal(raw, seen)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newOpenAI(url string) *OpenAIClient {
	return NewOpenAIClient(config.LLMConfig{Endpoint: url, Model: "gpt-4o-mini", APIKey: "sk-test", Timeout: 5 * time.Second})
}

func TestOpenAIParsedContent(t *testing.T) {
	t.Parallel()

	body := `{"choices":[{"message":{"role":"assistant","content":` + jsonString(ratingJSON) + `,"refusal":null},"finish_reason":"stop"}]}`
	var seen map[string]any
	srv := openAIServer(t, http.StatusOK, body, &seen)

	got, err := newOpenAI(srv.URL).Complete(context.Background(), testRequest())
	require.NoError(t, err)
	assert.JSONEq(t, ratingJSON, string(got.Payload))
	assert.Empty(t, got.Refusal)

	assert.Equal(t, "gpt-4o-mini", seen["model"])
	assert.InDelta(t, 0.1, seen["temperature"], 1e-9)
	format := seen["response_format"].(map[string]any)
	assert.Equal(t, "json_schema", format["type"])
	schema := format["json_schema"].(map[string]any)
	assert.Equal(t, "AspectRating", schema["name"])
	assert.Equal(t, true, schema["strict"])

	messages := seen["messages"].([]any)
	require.Len(t, messages, 2)
	assert.Equal(t, "system", messages[0].(map[string]any)["role"])
	assert.Equal(t, "Great food.", messages[1].(map[string]any)["content"])
}

func TestOpenAIRefusal(t *testing.T) {
	t.Parallel()

	body := `{"choices":[{"message":{"role":"assistant","content":null,"refusal":"I'm sorry, I can't help with that."},"finish_reason":"stop"}]}`
	srv := openAIServer(t, http.StatusOK, body, nil)

	got, err := newOpenAI(srv.URL).Complete(context.Background(), testRequest())
	require.NoError(t, err)
	assert.Empty(t, got.Payload)
	assert.Equal(t, "I'm sorry, I can't help with that.", got.Refusal)
}

func TestOpenAIEmptyResponse(t *testing.T) {
	t.Parallel()

	srv := openAIServer(t, http.StatusOK, `{"choices":[]}`, nil)

	got, err := newOpenAI(srv.URL).Complete(context.Background(), testRequest())
	require.NoError(t, err)
	assert.Empty(t, got.Payload)
	assert.Empty(t, got.Refusal)
}

func TestOpenAIHTTPError(t *testing.T) {
	t.Parallel()

	srv := openAIServer(t, http.StatusPaymentRequired, `{"error":{"message":"billing hard limit reached"}}`, nil)

	_, err := newOpenAI(srv.URL).Complete(context.Background(), testRequest())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "billing hard limit reached")
}

func TestOpenAIMisconfigured(t *testing.T) {
	t.Parallel()

	c := NewOpenAIClient(config.LLMConfig{Endpoint: "http://localhost", Model: "m"})
	_, err := c.Complete(context.Background(), testRequest())
	require.Error(t, err)
}

func TestOpenAIRateLimiterHonoursContext(t *testing.T) {
	t.Parallel()

	body := `{"choices":[{"message":{"content":` + jsonString(ratingJSON) + `}}]}`
	srv := openAIServer(t, http.StatusOK, body, nil)

	c := NewOpenAIClient(config.LLMConfig{Endpoint: srv.URL, Model: "m", APIKey: "sk-test", RequestsPerSecond: 0.001})
	_, err := c.Complete(context.Background(), testRequest())
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = c.Complete(ctx, testRequest())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rate limit")
}

func geminiServer(t *testing.T, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, ":generateContent"), "path %s", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newGemini(t *testing.T, url string) *GeminiClient {
	t.Helper()
	c, err := NewGeminiClient(context.Background(), config.LLMConfig{Endpoint: url, APIKey: "test-key", Model: "gemini-test"})
	require.NoError(t, err)
	return c
}

func TestGeminiParsedContent(t *testing.T) {
	t.Parallel()

	body := `{"candidates":[{"content":{"role":"model","parts":[{"text":` + jsonString(ratingJSON) + `}]},"finishReason":"STOP"}]}`
	srv := geminiServer(t, body)

	got, err := newGemini(t, srv.URL).Complete(context.Background(), testRequest())
	require.NoError(t, err)
	assert.JSONEq(t, ratingJSON, string(got.Payload))
}

func TestGeminiBlockedPromptIsRefusal(t *testing.T) {
	t.Parallel()

	srv := geminiServer(t, `{"promptFeedback":{"blockReason":"SAFETY"}}`)

	got, err := newGemini(t, srv.URL).Complete(context.Background(), testRequest())
	require.NoError(t, err)
	assert.Equal(t, "SAFETY", got.Refusal)
	assert.Empty(t, got.Payload)
}

func TestGeminiSafetyStopIsRefusal(t *testing.T) {
	t.Parallel()

	srv := geminiServer(t, `{"candidates":[{"finishReason":"SAFETY"}]}`)

	got, err := newGemini(t, srv.URL).Complete(context.Background(), testRequest())
	require.NoError(t, err)
	assert.Equal(t, "SAFETY", got.Refusal)
}

func TestGeminiRequiresKey(t *testing.T) {
	t.Parallel()

	_, err := NewGeminiClient(context.Background(), config.LLMConfig{})
	require.Error(t, err)
}

func TestToGeminiSchema(t *testing.T) {
	t.Parallel()

	s := toGeminiSchema(domain.JSONSchema())
	require.Len(t, s.Properties, len(domain.Aspects()))
	assert.Equal(t, "general", s.PropertyOrdering[0])
	assert.Len(t, s.Properties["food"].Enum, 4)
	assert.Len(t, s.Required, len(domain.Aspects()))
}

func jsonString(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}
