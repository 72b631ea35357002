package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"ReviewAspects/internal/config"
	"ReviewAspects/internal/domain"
	"ReviewAspects/internal/infrastructure/chat"
	"ReviewAspects/internal/infrastructure/ledger"
	"ReviewAspects/internal/infrastructure/llm"
	"ReviewAspects/internal/infrastructure/scheduler"
	"ReviewAspects/internal/infrastructure/telegram"
	"ReviewAspects/internal/infrastructure/warehouse"
	"ReviewAspects/internal/logging"
	"ReviewAspects/internal/ports"
	"ReviewAspects/internal/rating"
	"ReviewAspects/internal/usecase"
)

const shutdownTimeout = 30 * time.Second

// Application wires configs to use cases and lifecycle orchestration.
// Adapters are opened on first use so that commands only touch what they need.
type Application struct {
	cfg    config.Config
	logger zerolog.Logger

	engine    *rating.Engine
	warehouse ports.Warehouse
	ledger    *ledger.SQLiteLedger
}

// New builds an application instance. A nil logger is replaced by one built from cfg.
func New(cfg config.Config, baseLogger *zerolog.Logger) *Application {
	logger := logging.New(cfg.Logging.Level, cfg.Logging.Format)
	if baseLogger != nil {
		logger = *baseLogger
	}
	return &Application{cfg: cfg, logger: logger}
}

// Rate labels one review with the configured model.
func (a *Application) Rate(ctx context.Context, review string) (domain.AspectRating, error) {
	engine, err := a.rater(ctx)
	if err != nil {
		return domain.AspectRating{}, err
	}
	return engine.Rate(ctx, review)
}

// RunOnce performs a single incremental pass.
func (a *Application) RunOnce(ctx context.Context) (domain.RunReport, error) {
	pipeline, err := a.pipeline(ctx)
	if err != nil {
		return domain.RunReport{}, err
	}
	return pipeline.RunIncrementalPass(ctx)
}

// Schedule runs incremental passes on the configured cron expression until ctx is done.
func (a *Application) Schedule(ctx context.Context) error {
	pipeline, err := a.pipeline(ctx)
	if err != nil {
		return err
	}

	driver := scheduler.NewCronScheduler(
		a.cfg.Scheduler.CronExpression,
		a.cfg.Scheduler.Location(),
		a.component("scheduler"),
	)
	sched := usecase.NewScheduler(driver, pipeline, a.component("scheduler"))
	if err := sched.Start(ctx); err != nil {
		return err
	}

	<-ctx.Done()

	stopCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return sched.Stop(stopCtx)
}

// ServeChat serves the interactive front-end until ctx is done.
func (a *Application) ServeChat(ctx context.Context) error {
	engine, err := a.rater(ctx)
	if err != nil {
		return err
	}

	log := a.component("chat")
	server := chat.NewServer(a.cfg.Chat.Addr, log, chat.NewRouter(engine, log))

	errCh := make(chan error, 1)
	go func() { errCh <- server.Start() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}

// History lists the most recent passes from the run ledger.
func (a *Application) History(ctx context.Context, limit int) ([]domain.RunReport, error) {
	l, err := a.runLedger(ctx)
	if err != nil {
		return nil, err
	}
	if l == nil {
		return nil, fmt.Errorf("%w: ledger.path is empty", domain.ErrConfiguration)
	}
	return l.RecentRuns(ctx, limit)
}

// Close releases every adapter that was opened.
func (a *Application) Close() error {
	var errs []error
	if a.warehouse != nil {
		errs = append(errs, a.warehouse.Close())
	}
	if a.ledger != nil {
		errs = append(errs, a.ledger.Close())
	}
	return errors.Join(errs...)
}

func (a *Application) component(name string) zerolog.Logger {
	return a.logger.With().Str("component", name).Logger()
}

func (a *Application) rater(ctx context.Context) (*rating.Engine, error) {
	if a.engine != nil {
		return a.engine, nil
	}

	completer, err := newCompleter(ctx, a.cfg.LLM)
	if err != nil {
		return nil, err
	}
	a.engine = rating.NewEngine(completer, a.component("rating"), rating.Options{
		Temperature: a.cfg.LLM.Temperature,
		TopP:        a.cfg.LLM.TopP,
	})
	return a.engine, nil
}

func (a *Application) pipeline(ctx context.Context) (*usecase.Pipeline, error) {
	if err := a.cfg.Validate(); err != nil {
		return nil, err
	}

	engine, err := a.rater(ctx)
	if err != nil {
		return nil, err
	}

	if a.warehouse == nil {
		w, err := newWarehouse(a.cfg.Warehouse)
		if err != nil {
			return nil, err
		}
		a.warehouse = w
	}

	deps := usecase.PipelineDeps{
		Warehouse: a.warehouse,
		Processor: usecase.NewProcessor(engine, a.component("processor"), usecase.ProcessorOptions{
			IDColumn:    a.cfg.Pipeline.IDColumn,
			StripMarkup: a.cfg.Pipeline.StripMarkupEnabled(),
		}),
		Logger:        a.component("pipeline"),
		SourceQuery:   a.cfg.Pipeline.SourceQuery,
		TargetTable:   a.cfg.Pipeline.TargetTable,
		IDColumn:      a.cfg.Pipeline.IDColumn,
		ReviewColumns: a.cfg.Pipeline.ReviewColumns,
		ArtifactDir:   a.cfg.Pipeline.ArtifactDir,
	}

	l, err := a.runLedger(ctx)
	if err != nil {
		a.logger.Warn().Err(err).Msg("run ledger disabled")
	} else if l != nil {
		deps.Ledger = l
	}

	if tg := a.cfg.Notifications.Telegram; tg.BotToken != "" && tg.ChatID != "" {
		deps.Notifier = telegram.NewNotifier(tg.BotToken, tg.ChatID)
	}

	return usecase.NewPipeline(deps), nil
}

func (a *Application) runLedger(ctx context.Context) (*ledger.SQLiteLedger, error) {
	if a.ledger != nil || a.cfg.Ledger.Path == "" {
		return a.ledger, nil
	}
	l, err := ledger.Open(ctx, a.cfg.Ledger.Path)
	if err != nil {
		return nil, err
	}
	a.ledger = l
	return l, nil
}

func newCompleter(ctx context.Context, cfg config.LLMConfig) (ports.Completer, error) {
	switch cfg.Provider {
	case config.ProviderOpenAI:
		return llm.NewOpenAIClient(cfg), nil
	case config.ProviderGemini:
		client, err := llm.NewGeminiClient(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return client, nil
	default:
		return nil, fmt.Errorf("%w: unknown llm provider %q", domain.ErrConfiguration, cfg.Provider)
	}
}

func newWarehouse(cfg config.WarehouseConfig) (ports.Warehouse, error) {
	switch cfg.Driver {
	case config.DriverDuckDB:
		w, err := warehouse.NewDuckDB(cfg.DSN)
		if err != nil {
			return nil, err
		}
		return w, nil
	case config.DriverPostgres:
		w, err := warehouse.NewPostgres(cfg.DSN)
		if err != nil {
			return nil, err
		}
		return w, nil
	default:
		return nil, fmt.Errorf("%w: unknown warehouse driver %q", domain.ErrConfiguration, cfg.Driver)
	}
}
