package usecase

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"ReviewAspects/internal/domain"
	"ReviewAspects/internal/frame"
	"ReviewAspects/internal/markup"
	"ReviewAspects/internal/ports"
)

// ProcessorOptions configures how review text is assembled from a row.
type ProcessorOptions struct {
	IDColumn    string
	StripMarkup bool
}

// Processor applies the rater to every row of a review batch.
type Processor struct {
	rater  ports.Rater
	logger zerolog.Logger
	opts   ProcessorOptions
}

// NewProcessor builds a sequential batch rater.
func NewProcessor(rater ports.Rater, logger zerolog.Logger, opts ProcessorOptions) *Processor {
	return &Processor{rater: rater, logger: logger, opts: opts}
}

// RateTable labels rows in input order and attaches one column per aspect.
// When a row fails, the rows labeled before it are returned together with the error.
func (p *Processor) RateTable(ctx context.Context, rows *frame.Frame, reviewColumns []string) (*frame.Frame, error) {
	if len(reviewColumns) == 0 {
		return nil, fmt.Errorf("%w: no review columns specified", domain.ErrConfiguration)
	}
	if p.rater == nil {
		return nil, fmt.Errorf("%w: no rater configured", domain.ErrConfiguration)
	}
	if rows == nil {
		rows = frame.New()
	}
	for _, col := range reviewColumns {
		if !rows.Has(col) {
			return nil, fmt.Errorf("%w: review column %s not found", domain.ErrConfiguration, col)
		}
	}

	aspects := domain.Aspects()
	aspectCols := make([]string, len(aspects))
	for i, a := range aspects {
		aspectCols[i] = string(a)
	}

	labeled := make([]frame.Row, 0, rows.Len())
	out := func() *frame.Frame {
		return &frame.Frame{Columns: rows.WithColumns(aspectCols...), Rows: labeled}
	}

	for i, row := range rows.Rows {
		p.logger.Debug().Int("row", i).Str("review_id", row.String(p.opts.IDColumn)).Msg("processing review")

		r, err := p.rateRow(ctx, p.reviewText(row, reviewColumns))
		if err != nil {
			p.logger.Error().Err(err).Int("row", i).Int("labeled", len(labeled)).Msg("batch aborted")
			return out(), fmt.Errorf("rate row %d (review_id %s): %w", i, row.String(p.opts.IDColumn), err)
		}

		next := row.Clone()
		for _, a := range aspects {
			next[string(a)] = string(r.Get(a))
		}
		labeled = append(labeled, next)
	}

	return out(), nil
}

func (p *Processor) rateRow(ctx context.Context, review string) (r domain.AspectRating, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("rater panic: %v", rec)
		}
	}()
	return p.rater.Rate(ctx, review)
}

func (p *Processor) reviewText(row frame.Row, columns []string) string {
	connector := ""
	if len(columns) > 1 {
		connector = ". "
	}

	parts := make([]string, len(columns))
	for i, col := range columns {
		text := row.String(col)
		if p.opts.StripMarkup {
			text = markup.Text(text)
		}
		parts[i] = text
	}
	return strings.Join(parts, connector)
}
