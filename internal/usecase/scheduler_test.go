package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// manualDriver records the job so tests can fire it synchronously.
type manualDriver struct {
	job     func(time.Time)
	stopped bool
}

func (d *manualDriver) Start(_ context.Context, job func(time.Time)) error {
	d.job = job
	return nil
}

func (d *manualDriver) Stop(context.Context) error {
	d.stopped = true
	return nil
}

func TestSchedulerRunsPassOnTrigger(t *testing.T) {
	t.Parallel()

	fx := newFixture(t, sourceReviews("1", "2"))
	driver := &manualDriver{}
	s := NewScheduler(driver, fx.pipeline, zerolog.Nop())

	require.NoError(t, s.Start(context.Background()))
	require.NotNil(t, driver.job)

	driver.job(time.Now())
	assert.Equal(t, 2, fx.warehouse.tables["dim_review_absa"].Len())

	driver.job(time.Now())
	require.Len(t, fx.ledger.runs, 2)
	assert.Equal(t, "noop", string(fx.ledger.runs[1].Status))

	require.NoError(t, s.Stop(context.Background()))
	assert.True(t, driver.stopped)
}

func TestSchedulerSurvivesFailedPass(t *testing.T) {
	t.Parallel()

	fx := newFixture(t, sourceReviews("1"))
	fx.warehouse.sourceErr = errors.New("offline")
	driver := &manualDriver{}

	require.NoError(t, NewScheduler(driver, fx.pipeline, zerolog.Nop()).Start(context.Background()))
	assert.NotPanics(t, func() { driver.job(time.Now()) })

	fx.warehouse.sourceErr = nil
	driver.job(time.Now())
	assert.Equal(t, 1, fx.warehouse.tables["dim_review_absa"].Len())
}

func TestSchedulerWithoutDriver(t *testing.T) {
	t.Parallel()

	s := NewScheduler(nil, nil, zerolog.Nop())
	assert.NoError(t, s.Start(context.Background()))
	assert.NoError(t, s.Stop(context.Background()))
}
