package app

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ReviewAspects/internal/config"
	"ReviewAspects/internal/domain"
	"ReviewAspects/internal/frame"
)

const foodReply = `{"choices":[{"message":{"role":"assistant","content":"{\"general\":\"positive\",\"food\":\"positive\",\"price\":\"not_given\",\"ambience\":\"not_given\",\"service\":\"not_given\",\"location\":\"not_given\"}"}}]}`

func testApp(t *testing.T) (*Application, string) {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, foodReply)
	}))
	t.Cleanup(srv.Close)

	dir := t.TempDir()
	source := frame.New("review_id", "review_title", "review_description")
	source.Append(frame.Row{"review_id": "r1", "review_title": "Lovely", "review_description": "Great food."})
	source.Append(frame.Row{"review_id": "r2", "review_title": "Again", "review_description": "<p>Great <b>food</b>.</p>"})
	sourcePath := filepath.Join(dir, "reviews.parquet")
	require.NoError(t, frame.WriteParquet(sourcePath, source))

	cfg := config.Config{
		LLM: config.LLMConfig{
			Provider:    config.ProviderOpenAI,
			Endpoint:    srv.URL,
			Model:       "gpt-test",
			APIKey:      "sk-test",
			Temperature: 0.1,
			TopP:        1,
		},
		Warehouse: config.WarehouseConfig{Driver: config.DriverDuckDB, DSN: filepath.Join(dir, "db", "warehouse.duckdb")},
		Pipeline: config.PipelineConfig{
			SourceQuery:   "SELECT * FROM read_parquet('" + sourcePath + "');",
			TargetTable:   "dim_review_absa",
			IDColumn:      "review_id",
			ReviewColumns: []string{"review_title", "review_description"},
			ArtifactDir:   filepath.Join(dir, "artifacts"),
		},
		Scheduler: config.SchedulerConfig{CronExpression: "0 6 * * *"},
		Ledger:    config.LedgerConfig{Path: filepath.Join(dir, "runs.db")},
	}

	logger := zerolog.Nop()
	a := New(cfg, &logger)
	t.Cleanup(func() { _ = a.Close() })
	return a, dir
}

func TestRunOnceIsIncremental(t *testing.T) {
	ctx := context.Background()
	a, _ := testApp(t)

	first, err := a.RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.RunStatusCompleted, first.Status)
	assert.EqualValues(t, 2, first.LoadedRows)
	assert.FileExists(t, first.Artifact)

	second, err := a.RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.RunStatusNoop, second.Status)
	assert.Equal(t, 2, second.AlreadyLabeled)

	labeled, err := a.warehouse.RunQuery(ctx, "SELECT review_id, food FROM dim_review_absa ORDER BY review_id")
	require.NoError(t, err)
	require.Equal(t, 2, labeled.Len())
	assert.Equal(t, "positive", labeled.Rows[1]["food"])

	runs, err := a.History(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, second.RunID, runs[0].RunID)
	assert.Equal(t, first.RunID, runs[1].RunID)
}

func TestRunOnceWithTargetNameNeedingQuotes(t *testing.T) {
	ctx := context.Background()
	a, _ := testApp(t)
	a.cfg.Pipeline.TargetTable = "Reviews-ABSA"

	first, err := a.RunOnce(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, first.LoadedRows)

	second, err := a.RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.RunStatusNoop, second.Status)
	assert.Equal(t, 2, second.AlreadyLabeled)

	ids, err := a.warehouse.DistinctValues(ctx, "Reviews-ABSA", "review_id")
	require.NoError(t, err)
	assert.Len(t, ids, 2, "no review is appended twice")

	count, err := a.warehouse.RunQuery(ctx, `SELECT COUNT(*) AS n FROM "Reviews-ABSA"`)
	require.NoError(t, err)
	assert.EqualValues(t, 2, count.Rows[0]["n"])
}

func TestRate(t *testing.T) {
	ctx := context.Background()
	a, _ := testApp(t)

	got, err := a.Rate(ctx, "Great food.")
	require.NoError(t, err)
	assert.Equal(t, domain.SentimentPositive, got.Food)

	got, err = a.Rate(ctx, "   ")
	require.NoError(t, err)
	assert.Equal(t, domain.NeutralRating(), got)
}

func TestPipelineRejectsInvalidConfig(t *testing.T) {
	a, _ := testApp(t)
	a.cfg.Pipeline.ReviewColumns = nil

	_, err := a.RunOnce(context.Background())
	require.ErrorIs(t, err, domain.ErrConfiguration)
}

func TestHistoryWithoutLedger(t *testing.T) {
	a, _ := testApp(t)
	a.cfg.Ledger.Path = ""

	_, err := a.History(context.Background(), 5)
	require.ErrorIs(t, err, domain.ErrConfiguration)
}

func TestUnknownProvider(t *testing.T) {
	a, _ := testApp(t)
	a.cfg.LLM.Provider = "llama"

	_, err := a.Rate(context.Background(), "x")
	require.ErrorIs(t, err, domain.ErrConfiguration)
}
