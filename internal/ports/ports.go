package ports

import (
	"context"
	"encoding/json"
	"time"

	"ReviewAspects/internal/domain"
	"ReviewAspects/internal/frame"
)

// CompletionRequest carries one schema-constrained chat completion.
type CompletionRequest struct {
	System      string
	User        string
	SchemaName  string
	Schema      map[string]any
	Temperature float64
	TopP        float64
}

// Completion is the tri-state model answer: a payload, a refusal, or neither.
type Completion struct {
	Payload json.RawMessage
	Refusal string
}

// Completer talks to a language model (OpenAI, Gemini, etc.).
type Completer interface {
	Complete(ctx context.Context, req CompletionRequest) (Completion, error)
}

// Rater turns one review text into an aspect rating.
type Rater interface {
	Rate(ctx context.Context, review string) (domain.AspectRating, error)
}

// Warehouse executes read queries and loads files into warehouse tables.
// DistinctValues and AppendFile quote table and column names the same way.
type Warehouse interface {
	RunQuery(ctx context.Context, query string) (*frame.Frame, error)
	DistinctValues(ctx context.Context, table, column string) ([]any, error)
	AppendFile(ctx context.Context, path, table string) (int64, error)
	Close() error
}

// RunLedger keeps the history of incremental passes.
type RunLedger interface {
	RecordRun(ctx context.Context, report domain.RunReport) error
	RecentRuns(ctx context.Context, limit int) ([]domain.RunReport, error)
}

// Notifier announces finished passes on Telegram or other channels.
type Notifier interface {
	PublishRun(ctx context.Context, report domain.RunReport) error
}

// Scheduler controls when pipelines execute.
type Scheduler interface {
	Start(ctx context.Context, job func(time.Time)) error
	Stop(ctx context.Context) error
}
