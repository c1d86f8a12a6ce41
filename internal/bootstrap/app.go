package bootstrap

import (
	"context"
	"database/sql"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rotisserie/eris"

	"translation-backend/internal/billing"
	"translation-backend/internal/callbacks"
	"translation-backend/internal/dispatch"
	"translation-backend/internal/documents"
	"translation-backend/internal/feedback"
	"translation-backend/internal/quotefiles"
	"translation-backend/internal/quotes"
	"translation-backend/internal/runs"
	"translation-backend/internal/shared/config"
	"translation-backend/internal/shared/resilience"
	"translation-backend/internal/shared/server"
	"translation-backend/internal/shared/storage/db"
	"translation-backend/internal/shared/storage/object"
	localstore "translation-backend/internal/shared/storage/object/local"
	s3store "translation-backend/internal/shared/storage/object/s3"
	"translation-backend/internal/shared/telemetry"
)

// App holds shared dependencies and the HTTP router.
type App struct {
	Config config.Config
	Router *gin.Engine
	DB     *sql.DB
	Store  object.ObjectStore
	Signer object.Signer
	Sender dispatch.Sender

	QuotesRepo    quotes.Repo
	FilesRepo     quotefiles.Repo
	RunsRepo      runs.Repo
	DocumentsRepo documents.Repo
	FeedbackRepo  feedback.Repo

	RunsService     *runs.Service
	FeedbackService *feedback.Service
	Ingestor        *callbacks.Ingestor
}

// Build prepares dependencies and wires routes.
func Build(ctx context.Context, cfg config.Config) (*App, error) {
	sqlDB, err := buildDB(ctx, cfg)
	if err != nil {
		return nil, err
	}

	store, signer, verifier, err := buildStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	sender, err := buildSender(ctx, cfg)
	if err != nil {
		return nil, err
	}

	app := &App{
		Config: cfg,
		DB:     sqlDB,
		Store:  store,
		Signer: signer,
		Sender: sender,
	}
	buildRepos(app)

	quoteSvc := &quotes.Service{Repo: app.QuotesRepo}
	fileSvc := &quotefiles.Service{Store: store, Repo: app.FilesRepo, Quotes: app.QuotesRepo}
	app.FeedbackService = feedback.NewService(app.FeedbackRepo)
	app.RunsService = &runs.Service{
		Repo:      app.RunsRepo,
		Quotes:    app.QuotesRepo,
		Documents: app.DocumentsRepo,
		Files:     app.FilesRepo,
		Signer:    signer,
		Sender:    sender,
		Feedback:  app.FeedbackService,
		Billing:   &billing.Aggregator{Quotes: app.QuotesRepo, DefaultPageRate: cfg.DefaultPageRate},
		Options: runs.DispatchOptions{
			PublicBaseURL:  cfg.PublicBaseURL,
			CallbackSecret: cfg.CallbackSecret,
			SignedURLTTL:   cfg.SignedURLTTL,
			Retry: resilience.RetryConfig{
				MaxAttempts:    cfg.Dispatch.MaxAttempts,
				InitialBackoff: cfg.Dispatch.InitialBackoff,
				MaxBackoff:     cfg.Dispatch.MaxBackoff,
			},
		},
	}
	app.Ingestor = &callbacks.Ingestor{Quotes: app.QuotesRepo, Runs: app.RunsRepo, Documents: app.DocumentsRepo}

	var fileVerifier quotefiles.Verifier
	if verifier != nil {
		fileVerifier = verifier
	}
	app.Router = server.NewRouter(server.RouterDeps{
		Config:          cfg,
		QuoteHandler:    quotes.NewHandler(quoteSvc),
		FileHandler:     quotefiles.NewHandler(fileSvc, fileVerifier),
		RunHandler:      runs.NewHandler(app.RunsService),
		CallbackHandler: callbacks.NewHandler(app.Ingestor, cfg.CallbackSecret),
		FeedbackHandler: feedback.NewHandler(app.FeedbackService),
	})
	return app, nil
}

// Close releases the database pool.
func (a *App) Close() error {
	if a == nil || a.DB == nil {
		return nil
	}
	return a.DB.Close()
}

func buildDB(ctx context.Context, cfg config.Config) (*sql.DB, error) {
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		if isDevLike(cfg.Env) {
			telemetry.Warn("bootstrap.memory_repos", map[string]any{"reason": "DATABASE_URL empty"})
			return nil, nil
		}
		return nil, eris.New("DATABASE_URL is required")
	}

	sqlDB, err := db.Connect(ctx, cfg.DatabaseURL, db.DefaultServerOptions().WithOverrides(cfg.DB))
	if err != nil {
		if isDevLike(cfg.Env) {
			telemetry.Warn("bootstrap.memory_repos", map[string]any{"reason": "database connect failed", "error": err})
			return nil, nil
		}
		return nil, err
	}
	if isDevLike(cfg.Env) {
		if err := db.RunMigrations(ctx, sqlDB); err != nil {
			_ = sqlDB.Close()
			return nil, eris.Wrap(err, "run migrations")
		}
	}
	return sqlDB, nil
}

func buildStore(ctx context.Context, cfg config.Config) (object.ObjectStore, object.Signer, *localstore.Store, error) {
	switch cfg.ObjectStoreType {
	case "s3":
		store, err := s3store.New(ctx, cfg.AWSRegion, cfg.S3Bucket, s3store.WithPrefix(cfg.S3Prefix), s3store.WithKMSKey(cfg.SSEKMSKeyID))
		if err != nil {
			return nil, nil, nil, err
		}
		return store, store, nil, nil
	default:
		var opts []localstore.Option
		if cfg.PublicBaseURL != "" && cfg.URLSigningKey != "" {
			opts = append(opts, localstore.WithSigning(cfg.PublicBaseURL, cfg.URLSigningKey))
		}
		store := localstore.New(cfg.LocalStoreDir, opts...)
		if len(opts) == 0 {
			return store, nil, nil, nil
		}
		return store, store, store, nil
	}
}

func buildSender(ctx context.Context, cfg config.Config) (dispatch.Sender, error) {
	switch cfg.Dispatch.Transport {
	case "sqs":
		return dispatch.NewSQSSender(ctx, cfg.AWSRegion, cfg.Dispatch.SQSQueueURL)
	case "webhook":
		if cfg.Dispatch.WorkerURL == "" {
			telemetry.Warn("bootstrap.dispatch_disabled", map[string]any{"reason": "WORKER_URL empty"})
			return nil, nil
		}
		return dispatch.NewWebhookSender(cfg.Dispatch.WorkerURL, cfg.Dispatch.WorkerToken, cfg.Dispatch.Timeout)
	default:
		return nil, nil
	}
}

func buildRepos(app *App) {
	if app.DB != nil {
		app.QuotesRepo = &quotes.PGRepo{DB: app.DB}
		app.FilesRepo = &quotefiles.PGRepo{DB: app.DB}
		app.RunsRepo = &runs.PGRepo{DB: app.DB}
		app.DocumentsRepo = &documents.PGRepo{DB: app.DB}
		app.FeedbackRepo = &feedback.PGRepo{DB: app.DB}
		return
	}
	app.QuotesRepo = quotes.NewMemoryRepo()
	app.FilesRepo = quotefiles.NewMemoryRepo()
	app.RunsRepo = runs.NewMemoryRepo()
	app.DocumentsRepo = documents.NewMemoryRepo()
	app.FeedbackRepo = feedback.NewMemoryRepo()
}

func isDevLike(env string) bool {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "dev", "local":
		return true
	default:
		return false
	}
}
