package usecase

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"ReviewAspects/internal/domain"
	"ReviewAspects/internal/frame"
	"ReviewAspects/internal/ports"
)

const (
	artifactTimeLayout = "2006-01-02_15-04-05"
	recordTimeout      = 10 * time.Second
)

// PipelineDeps wires all driven adapters into the incremental pass.
type PipelineDeps struct {
	Warehouse ports.Warehouse
	Processor *Processor
	Ledger    ports.RunLedger
	Notifier  ports.Notifier
	Logger    zerolog.Logger

	SourceQuery   string
	TargetTable   string
	IDColumn      string
	ReviewColumns []string
	ArtifactDir   string

	Clock    func() time.Time
	NewRunID func() string
}

// Pipeline labels reviews that are not yet present in the target table and appends them.
// It assumes a single writer per target table: the labeled-id lookup and the append are
// not guarded by a transaction.
type Pipeline struct {
	warehouse ports.Warehouse
	processor *Processor
	ledger    ports.RunLedger
	notifier  ports.Notifier
	logger    zerolog.Logger

	sourceQuery   string
	targetTable   string
	idColumn      string
	reviewColumns []string
	artifactDir   string

	now      func() time.Time
	newRunID func() string
}

// NewPipeline constructs the orchestration component.
func NewPipeline(deps PipelineDeps) *Pipeline {
	p := &Pipeline{
		warehouse:     deps.Warehouse,
		processor:     deps.Processor,
		ledger:        deps.Ledger,
		notifier:      deps.Notifier,
		logger:        deps.Logger,
		sourceQuery:   deps.SourceQuery,
		targetTable:   deps.TargetTable,
		idColumn:      deps.IDColumn,
		reviewColumns: deps.ReviewColumns,
		artifactDir:   deps.ArtifactDir,
		now:           deps.Clock,
		newRunID:      deps.NewRunID,
	}
	if p.now == nil {
		p.now = time.Now
	}
	if p.newRunID == nil {
		p.newRunID = uuid.NewString
	}
	if p.idColumn == "" {
		p.idColumn = "review_id"
	}
	if p.artifactDir == "" {
		p.artifactDir = "data"
	}
	return p
}

// RunIncrementalPass fetches source reviews, labels the ones missing from the target
// table and appends them. Re-running without new source rows is a no-op.
func (p *Pipeline) RunIncrementalPass(ctx context.Context) (domain.RunReport, error) {
	report := domain.RunReport{RunID: p.newRunID(), StartedAt: p.now()}
	log := p.logger.With().Str("run_id", report.RunID).Logger()

	err := p.run(ctx, &report, log)
	report.FinishedAt = p.now()
	if err != nil {
		report.Error = err.Error()
		if report.Status == "" {
			report.Status = domain.RunStatusFailed
		}
		log.Error().Err(err).Str("status", string(report.Status)).Msg("incremental pass failed")
	} else {
		log.Info().
			Str("status", string(report.Status)).
			Int("delta", report.DeltaRows).
			Int64("loaded", report.LoadedRows).
			Dur("took", report.Duration()).
			Msg("incremental pass finished")
	}

	p.record(ctx, report, log)
	return report, err
}

func (p *Pipeline) run(ctx context.Context, report *domain.RunReport, log zerolog.Logger) error {
	if p.warehouse == nil || p.processor == nil {
		return fmt.Errorf("%w: pipeline needs a warehouse and a processor", domain.ErrConfiguration)
	}
	if p.targetTable == "" {
		return fmt.Errorf("%w: target table is empty", domain.ErrConfiguration)
	}

	source, err := p.warehouse.RunQuery(ctx, p.sourceQuery)
	if err != nil {
		return fmt.Errorf("fetch source reviews: %w", err)
	}
	if !source.Has(p.idColumn) {
		return fmt.Errorf("%w: source has no %s column", domain.ErrConfiguration, p.idColumn)
	}
	report.SourceRows = source.Len()

	labeled := p.labeledIDs(ctx, log)
	report.AlreadyLabeled = len(labeled)

	delta := Delta(source, p.idColumn, labeled)
	report.DeltaRows = delta.Len()
	if delta.Len() == 0 {
		log.Info().Int("source", report.SourceRows).Msg("no new reviews to process")
		report.Status = domain.RunStatusNoop
		return nil
	}

	log.Info().Int("delta", delta.Len()).Msg("processing new reviews")
	out, procErr := p.processor.RateTable(ctx, delta, p.reviewColumns)
	report.LabeledRows = out.Len()
	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("pass interrupted after %d of %d rows: %w", out.Len(), delta.Len(), ctxErr)
	}
	if out.Len() == 0 {
		if procErr != nil {
			return fmt.Errorf("rate reviews: %w", procErr)
		}
		return fmt.Errorf("rate reviews: no rows labeled")
	}

	path, err := p.writeArtifact(report.RunID, out)
	if err != nil {
		return err
	}
	report.Artifact = path

	loaded, err := p.warehouse.AppendFile(ctx, path, p.targetTable)
	if err != nil {
		return fmt.Errorf("append %s to %s: %w", path, p.targetTable, err)
	}
	report.LoadedRows = loaded
	log.Info().Str("artifact", path).Int64("loaded", loaded).Msg("labeled reviews appended")

	if procErr != nil {
		report.Status = domain.RunStatusPartial
		return fmt.Errorf("batch incomplete, %d of %d rows labeled: %w", out.Len(), delta.Len(), procErr)
	}

	report.Status = domain.RunStatusCompleted
	return nil
}

// labeledIDs reads the ids already present in the target table. A failed read, such as a
// missing table on the first run, counts as an empty set.
func (p *Pipeline) labeledIDs(ctx context.Context, log zerolog.Logger) map[string]struct{} {
	ids, err := p.warehouse.DistinctValues(ctx, p.targetTable, p.idColumn)
	if err != nil {
		log.Info().Err(err).Str("table", p.targetTable).Msg("no existing reviews found")
		return map[string]struct{}{}
	}

	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[frame.Stringify(id)] = struct{}{}
	}
	log.Info().Int("count", len(set)).Msg("found existing reviews")
	return set
}

// Delta returns the source rows whose id is not in labeled.
func Delta(source *frame.Frame, idColumn string, labeled map[string]struct{}) *frame.Frame {
	return source.Filter(func(row frame.Row) bool {
		_, seen := labeled[row.String(idColumn)]
		return !seen
	})
}

func (p *Pipeline) writeArtifact(runID string, out *frame.Frame) (string, error) {
	if err := os.MkdirAll(p.artifactDir, 0o755); err != nil {
		return "", fmt.Errorf("create artifact dir: %w", err)
	}

	name := fmt.Sprintf("absa_result_%s_%s.parquet", p.now().Format(artifactTimeLayout), shortID(runID))
	path := filepath.Join(p.artifactDir, name)
	if err := frame.WriteParquet(path, out); err != nil {
		return "", fmt.Errorf("write artifact: %w", err)
	}
	return path, nil
}

// record runs on a context detached from the cancellation of the pass.
func (p *Pipeline) record(parent context.Context, report domain.RunReport, log zerolog.Logger) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(parent), recordTimeout)
	defer cancel()

	if p.ledger != nil {
		if err := p.ledger.RecordRun(ctx, report); err != nil {
			log.Warn().Err(err).Msg("record run")
		}
	}

	if p.notifier == nil || report.Status == domain.RunStatusNoop {
		return
	}
	if err := p.notifier.PublishRun(ctx, report); err != nil {
		log.Warn().Err(err).Msg("publish run summary")
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
