package chat

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ReviewAspects/internal/domain"
)

type stubRater struct {
	rating  domain.AspectRating
	err     error
	panic   bool
	reviews chan string
}

func (s stubRater) Rate(_ context.Context, review string) (domain.AspectRating, error) {
	if s.reviews != nil {
		s.reviews <- review
	}
	if s.panic {
		panic("boom")
	}
	if s.err != nil {
		return domain.AspectRating{}, s.err
	}
	return s.rating, nil
}

func serve(t *testing.T, rater stubRater) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(NewRouter(rater, zerolog.Nop()))
	t.Cleanup(srv.Close)
	return srv
}

func TestHealth(t *testing.T) {
	t.Parallel()

	resp, err := http.Get(serve(t, stubRater{}).URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestRateEndpoint(t *testing.T) {
	t.Parallel()

	srv := serve(t, stubRater{rating: domain.NeutralRating()})
	resp, err := http.Post(srv.URL+"/api/rate", "application/json", strings.NewReader(`{"review":"Fine."}`))
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	var got domain.AspectRating
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	assert.Equal(t, domain.NeutralRating(), got)
}

func TestRateEndpointRefusal(t *testing.T) {
	t.Parallel()

	srv := serve(t, stubRater{err: &domain.RefusalError{Refusal: "not allowed", Review: "x"}})
	resp, err := http.Post(srv.URL+"/api/rate", "application/json", strings.NewReader(`{"review":"x"}`))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "not allowed", body["refusal"])
}

func TestRateEndpointErrors(t *testing.T) {
	t.Parallel()

	srv := serve(t, stubRater{err: errors.New("down")})

	resp, err := http.Post(srv.URL+"/api/rate", "application/json", strings.NewReader(`not json`))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, err = http.Post(srv.URL+"/api/rate", "application/json", strings.NewReader(`{"review":"x"}`))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)

	resp, err = http.Get(srv.URL + "/api/rate")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestRecoveryMiddleware(t *testing.T) {
	t.Parallel()

	srv := serve(t, stubRater{panic: true})
	resp, err := http.Post(srv.URL+"/api/rate", "application/json", strings.NewReader(`{"review":"x"}`))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/ws", nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func TestWebSocketSession(t *testing.T) {
	t.Parallel()

	rating := domain.NeutralRating()
	rating.Food = domain.SentimentPositive
	conn := dial(t, serve(t, stubRater{rating: rating}))

	_, greeting, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, Greeting, string(greeting))

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("Great food.")))
	_, reply, err := conn.ReadMessage()
	require.NoError(t, err)

	want, err := CodeBlock(rating)
	require.NoError(t, err)
	assert.Equal(t, want, string(reply))
	assert.Contains(t, string(reply), `"food": "positive"`)
}

func TestWebSocketPassesMessageVerbatim(t *testing.T) {
	t.Parallel()

	reviews := make(chan string, 1)
	conn := dial(t, serve(t, stubRater{rating: domain.NeutralRating(), reviews: reviews}))
	_, _, err := conn.ReadMessage()
	require.NoError(t, err)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("  Not Defined.\n")))
	_, _, err = conn.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, "  Not Defined.\n", <-reviews)
}

func TestWebSocketRefusal(t *testing.T) {
	t.Parallel()

	conn := dial(t, serve(t, stubRater{err: &domain.RefusalError{Refusal: "no", Review: "x"}}))
	_, _, err := conn.ReadMessage()
	require.NoError(t, err)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("x")))
	_, reply, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.Contains(t, string(reply), "refused")
}

func TestCodeBlock(t *testing.T) {
	t.Parallel()

	block, err := CodeBlock(domain.NeutralRating())
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(block, "\n```json\n{\n  \"general\": \"neutral\""))
	assert.True(t, strings.HasSuffix(block, "}\n```\n"))
}
