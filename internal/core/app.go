package core

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"

	"github.com/go-co-op/gocron"
	"github.com/phuslu/log"
	"github.com/vrsandeep/shelfie-go/internal/assets"
	"github.com/vrsandeep/shelfie-go/internal/config"
	"github.com/vrsandeep/shelfie-go/internal/db"
	"github.com/vrsandeep/shelfie-go/internal/events"
	"github.com/vrsandeep/shelfie-go/internal/jobs"
	"github.com/vrsandeep/shelfie-go/internal/logging"
	"github.com/vrsandeep/shelfie-go/internal/scraper"
	"github.com/vrsandeep/shelfie-go/internal/store"
	"github.com/vrsandeep/shelfie-go/internal/util"
	"github.com/vrsandeep/shelfie-go/internal/websocket"
)

// App holds the core components of the application that are shared
// between the server and the CLI.
type App struct {
	config    *config.Config
	db        *sql.DB
	store     *store.Store
	registry  *scraper.Registry
	runner    *jobs.Runner
	hub       *websocket.Hub
	publisher *events.KafkaPublisher
	scheduler *gocron.Scheduler
	closers   []io.Closer
}

// Option customises how NewWithConfig assembles the App.
type Option func(*options)

type options struct {
	engine     jobs.Engine
	runnerOpts []jobs.Option
}

// WithEngine replaces the scrape engine built from the configuration.
func WithEngine(engine jobs.Engine) Option {
	return func(o *options) { o.engine = engine }
}

// WithRunnerOptions passes extra options to the job runner.
func WithRunnerOptions(opts ...jobs.Option) Option {
	return func(o *options) { o.runnerOpts = append(o.runnerOpts, opts...) }
}

// New sets up and returns a new App instance. It handles loading the
// configuration, logging, the database connection and migrations.
func New(opts ...Option) (*App, error) {
	// Load configuration from config.yml
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logCloser := logging.Setup(cfg.Log.Level, cfg.Log.File)
	app, err := NewWithConfig(cfg, opts...)
	if err != nil {
		logCloser.Close()
		return nil, err
	}
	app.closers = append(app.closers, logCloser)
	return app, nil
}

// NewWithConfig builds the App from an already loaded configuration.
func NewWithConfig(cfg *config.Config, opts ...Option) (*App, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	if err := util.EnsureOutputDir(cfg.Output.Path); err != nil {
		return nil, fmt.Errorf("invalid output folder: %w", err)
	}

	// Initialize the database connection
	database, err := db.InitDB(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	// Run database migrations
	if err := db.RunMigrations(database, assets.MigrationsFS); err != nil {
		// We can't proceed without a valid database schema.
		// Close the DB connection before failing.
		database.Close()
		return nil, fmt.Errorf("failed to run database migrations: %w", err)
	}

	app := &App{
		config:   cfg,
		db:       database,
		store:    store.New(database),
		registry: scraper.DefaultRegistry(),
		hub:      websocket.NewHub(),
	}
	go app.hub.Run()

	engine := o.engine
	if engine == nil {
		engine, err = app.newEngine()
		if err != nil {
			app.Close(context.Background())
			return nil, err
		}
	}

	listeners := []jobs.Listener{store.NewHistoryRecorder(app.store), app.hub}
	if broker := cfg.Events.Kafka.Broker; broker != "" {
		app.publisher = events.NewKafkaPublisher(broker, cfg.Events.Kafka.Topic)
		listeners = append(listeners, app.publisher)
		log.Info().Str("broker", broker).Str("topic", cfg.Events.Kafka.Topic).Msg("Publishing run events to Kafka")
	}

	runnerOpts := []jobs.Option{
		jobs.WithListener(listeners...),
		jobs.WithValidator(app.registry.Resolve),
		jobs.WithLogTail(cfg.Status.LogTail),
	}
	app.runner = jobs.NewRunner(engine, append(runnerOpts, o.runnerOpts...)...)

	log.Info().Str("output", cfg.Output.Path).Str("database", cfg.Database.Path).Msg("Core application setup complete.")
	return app, nil
}

func (a *App) newEngine() (jobs.Engine, error) {
	sc := a.config.Scraper
	userAgent := sc.UserAgent
	if userAgent == "" {
		userAgent = config.DefaultUserAgent
	}

	var fetcher scraper.Fetcher
	if sc.Browser {
		bf := scraper.NewBrowserFetcher(userAgent, sc.RequestTimeout())
		a.closers = append(a.closers, bf)
		fetcher = bf
		log.Info().Msg("Using headless Chrome to load store pages")
	} else {
		hf, err := scraper.NewHTTPFetcher(userAgent, sc.RequestTimeout())
		if err != nil {
			return nil, fmt.Errorf("failed to create HTTP fetcher: %w", err)
		}
		fetcher = hf
	}

	return scraper.NewEngine(a.registry, fetcher, a.config.Output.Path,
		scraper.WithPageDelay(sc.PageDelay()),
		scraper.WithCategoryDelay(sc.CategoryDelay()),
	), nil
}

func (a *App) Config() *config.Config      { return a.config }
func (a *App) DB() *sql.DB                 { return a.db }
func (a *App) Store() *store.Store         { return a.store }
func (a *App) Registry() *scraper.Registry { return a.registry }
func (a *App) Runner() *jobs.Runner        { return a.runner }
func (a *App) WsHub() *websocket.Hub       { return a.hub }

// StartScheduler starts the configured periodic scrapes. Calling it again is a no-op.
func (a *App) StartScheduler() {
	if a.scheduler != nil {
		return
	}
	a.scheduler = jobs.StartScheduler(a.runner, a.config.Schedules)
}

// Close stops the scheduler, cancels any active run and releases every resource.
// ctx bounds how long Close waits for the active run to stop.
func (a *App) Close(ctx context.Context) error {
	var errs []error
	if a.scheduler != nil {
		a.scheduler.Stop()
	}
	if a.runner != nil {
		if err := a.runner.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("stop active run: %w", err))
		}
	}
	if a.hub != nil {
		a.hub.Stop()
	}
	if a.publisher != nil {
		if err := a.publisher.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close kafka publisher: %w", err))
		}
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	// Closers run last so the log file sees the shutdown messages.
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
