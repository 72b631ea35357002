package chat

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"ReviewAspects/internal/domain"
	"ReviewAspects/internal/ports"
)

const maxReviewBytes = 64 << 10

type handler struct {
	rater    ports.Rater
	logger   zerolog.Logger
	upgrader websocket.Upgrader
}

// NewRouter creates and configures the HTTP router.
func NewRouter(rater ports.Rater, log zerolog.Logger) http.Handler {
	h := &handler{
		rater:  rater,
		logger: log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
		},
	}

	r := mux.NewRouter()
	r.HandleFunc("/health", healthCheckHandler).Methods(http.MethodGet)
	r.HandleFunc("/ws", h.chat).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/rate", h.rate).Methods(http.MethodPost)

	r.Use(loggingMiddleware(log))
	r.Use(recoveryMiddleware(log))

	return r
}

func healthCheckHandler(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "service": "absa-chat"})
}

type rateRequest struct {
	Review string `json:"review"`
}

func (h *handler) rate(w http.ResponseWriter, r *http.Request) {
	var req rateRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxReviewBytes)).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "body must be {\"review\": \"...\"}"})
		return
	}

	rating, err := h.rater.Rate(r.Context(), req.Review)
	if err != nil {
		var refusal *domain.RefusalError
		if errors.As(err, &refusal) {
			writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": refusal.Error(), "refusal": refusal.Refusal})
			return
		}
		h.logger.Error().Err(err).Msg("rate review")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "rating failed"})
		return
	}

	writeJSON(w, http.StatusOK, rating)
}

// chat serves one WebSocket session: a greeting, then one rating per text message.
func (h *handler) chat(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn().Err(err).Msg("websocket upgrade")
		return
	}
	defer conn.Close()
	conn.SetReadLimit(maxReviewBytes)

	if err := conn.WriteMessage(websocket.TextMessage, []byte(Greeting)); err != nil {
		return
	}

	for {
		kind, msg, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				h.logger.Debug().Err(err).Msg("websocket closed")
			}
			return
		}
		if kind != websocket.TextMessage {
			continue
		}

		reply := h.reply(r, string(msg))
		_ = conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
		if err := conn.WriteMessage(websocket.TextMessage, []byte(reply)); err != nil {
			return
		}
	}
}

func (h *handler) reply(r *http.Request, review string) string {
	rating, err := h.rater.Rate(r.Context(), review)
	if err != nil {
		var refusal *domain.RefusalError
		if errors.As(err, &refusal) {
			return "Sorry, the model refused to rate this review: " + refusal.Refusal
		}
		h.logger.Error().Err(err).Msg("rate review")
		return "Sorry, something went wrong while rating this review."
	}

	block, err := CodeBlock(rating)
	if err != nil {
		return "Sorry, something went wrong while rating this review."
	}
	return block
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// loggingMiddleware logs HTTP requests.
func loggingMiddleware(log zerolog.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			next.ServeHTTP(w, r)
			log.Debug().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Dur("duration", time.Since(start)).
				Msg("http request")
		})
	}
}

// recoveryMiddleware recovers from panics.
func recoveryMiddleware(log zerolog.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					log.Error().Interface("panic", rec).Str("path", r.URL.Path).Msg("panic recovered")
					writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}
