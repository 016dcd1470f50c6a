// Package server initializes and runs the media vault application server.
// It wires configuration, storage backends, the service core, and the HTTP
// endpoint, and handles graceful shutdown on OS signals.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/mvasilyev/mediavault/internal/logging"
	"github.com/mvasilyev/mediavault/internal/server/auth"
	"github.com/mvasilyev/mediavault/internal/server/config"
	"github.com/mvasilyev/mediavault/internal/server/httpapi"
	"github.com/mvasilyev/mediavault/internal/server/metrics"
	"github.com/mvasilyev/mediavault/internal/server/repositories/repomanager"
	"github.com/mvasilyev/mediavault/internal/server/services"
	"github.com/mvasilyev/mediavault/internal/server/storage"
	"github.com/mvasilyev/mediavault/internal/server/thumbnail"
)

type App struct {
	config *config.Config
	logger logging.Logger
	db     *sql.DB
	server *httpapi.Server
}

func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {

	logger := logging.NewSlogLogger(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	db, err := sql.Open("pgx", cfg.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	repos := repomanager.NewPostgresRepositoryManager()
	if err := repos.RunMigrations(ctx, db); err != nil {
		return nil, fmt.Errorf("migration error: %w", err)
	}

	blobs, err := storage.NewS3BlobStore(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("blob store init error: %w", err)
	}

	hasher := auth.NewCredentialHasher(cfg.BcryptCost)
	tokens := auth.NewTokenService([]byte(cfg.SecretKey), cfg.AccessTokenValidityDuration)
	identity := auth.NewIdentityExtractor(tokens)
	collector := metrics.NewCollector()

	users := services.NewUserService(db, repos, hasher, tokens)
	assets := services.NewAssetService(db, repos, blobs, thumbnail.NewJPEGGenerator(),
		cfg.MaxUploadSize, logger, collector)

	router := httpapi.NewRouter(&httpapi.RouterDeps{
		Users:         users,
		Assets:        assets,
		Identity:      identity,
		Collector:     collector,
		MaxUploadSize: cfg.MaxUploadSize,
		Logger:        logger,
	})

	return &App{
		config: cfg,
		logger: logger,
		db:     db,
		server: httpapi.NewServer(cfg.EndpointAddrHTTP, router, logger),
	}, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) Run(ctx context.Context) error {

	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "starting app")

	app.initSignalHandler(cancelFunc)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return app.server.Run(ctx)
	})

	err := g.Wait()

	if closeErr := app.db.Close(); closeErr != nil {
		app.logger.Error(ctx, "closing db", "error", closeErr)
	}

	return err
}
