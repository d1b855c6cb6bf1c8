// Package app wires the configured repository backend, blob store and
// data room service together for the server and the admin CLI.
package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	"dataroom/internal/config"
	"dataroom/internal/domain/repositories"
	dataroomRepo "dataroom/internal/domain/repositories/dataroom"
	dataroomSvc "dataroom/internal/domain/services/dataroom"
	"dataroom/internal/repository"
	"dataroom/internal/repository/postgres"
	"dataroom/internal/repository/sqlite"
	serviceDataroom "dataroom/internal/service/dataroom"
	"dataroom/internal/storage"
)

// App holds the wired components for one process
type App struct {
	Config    *config.Config
	Logger    *slog.Logger
	Tables    *repository.TableNames
	Repo      dataroomRepo.TreeRepository
	TxManager repositories.TransactionManager
	Blobs     storage.BlobStore
	Service   dataroomSvc.DataRoomService

	schema schemaOps
	close  func()
}

// schemaOps binds the schema helpers of the selected backend
type schemaOps struct {
	ensure func(ctx context.Context) error
	drop   func(ctx context.Context) error
	clear  func(ctx context.Context) error
}

// New connects to the database, bootstraps the schema and opens the blob store
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	a := &App{
		Config: cfg,
		Logger: logger,
		Tables: repository.NewTableNames(cfg.TablePrefix),
		close:  func() {},
	}

	var err error
	switch cfg.DatabaseDriver {
	case config.DriverPostgres:
		err = a.openPostgres(ctx)
	case config.DriverSQLite:
		err = a.openSQLite(ctx)
	default:
		err = fmt.Errorf("unsupported database driver %q", cfg.DatabaseDriver)
	}
	if err != nil {
		return nil, err
	}

	blobs, err := openBlobStore(ctx, cfg, logger)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.Blobs = blobs

	a.Service = serviceDataroom.NewDataRoomService(a.Repo, a.Blobs, a.TxManager, cfg.Uploads, logger)
	return a, nil
}

func (a *App) openPostgres(ctx context.Context) error {
	pool, err := postgres.CreateConnectionPool(ctx, a.Config.DatabaseURL)
	if err != nil {
		return err
	}

	if err := postgres.EnsureSchema(ctx, pool, a.Tables); err != nil {
		pool.Close()
		return err
	}

	repoConfig := &postgres.RepositoryConfig{
		Pool:   pool,
		Tables: a.Tables,
		Logger: a.Logger,
	}
	a.Repo = postgres.NewTreeRepository(repoConfig)
	a.TxManager = postgres.NewTransactionManager(pool, a.Logger)
	a.schema = postgresSchema(pool, a.Tables)
	a.close = pool.Close

	stat := pool.Stat()
	a.Logger.Info("database connected",
		"driver", config.DriverPostgres,
		"max_conns", stat.MaxConns(),
		"table_prefix", a.Config.TablePrefix,
	)
	return nil
}

func (a *App) openSQLite(ctx context.Context) error {
	path := sqlite.PathFromURL(a.Config.DatabaseURL)
	db, err := sqlite.Open(ctx, path, a.Tables)
	if err != nil {
		return err
	}

	a.Repo = sqlite.NewTreeRepository(&sqlite.RepositoryConfig{
		DB:     db,
		Tables: a.Tables,
		Logger: a.Logger,
	})
	a.TxManager = sqlite.NewTransactionManager(db, a.Logger)
	a.schema = sqliteSchema(db, a.Tables)
	a.close = func() {
		if err := db.Close(); err != nil {
			a.Logger.Warn("failed to close sqlite database", "error", err)
		}
	}

	a.Logger.Info("database connected",
		"driver", config.DriverSQLite,
		"path", path,
		"table_prefix", a.Config.TablePrefix,
	)
	return nil
}

func postgresSchema(pool *pgxpool.Pool, tables *repository.TableNames) schemaOps {
	return schemaOps{
		ensure: func(ctx context.Context) error { return postgres.EnsureSchema(ctx, pool, tables) },
		drop:   func(ctx context.Context) error { return postgres.DropSchema(ctx, pool, tables) },
		clear:  func(ctx context.Context) error { return postgres.ClearData(ctx, pool, tables) },
	}
}

func sqliteSchema(db *sql.DB, tables *repository.TableNames) schemaOps {
	return schemaOps{
		ensure: func(ctx context.Context) error { return sqlite.EnsureSchema(ctx, db, tables) },
		drop:   func(ctx context.Context) error { return sqlite.DropSchema(ctx, db, tables) },
		clear:  func(ctx context.Context) error { return sqlite.ClearData(ctx, db, tables) },
	}
}

// openBlobStore builds the blob backend named by BLOB_BACKEND
func openBlobStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (storage.BlobStore, error) {
	switch cfg.BlobBackend {
	case config.BlobBackendDisk:
		store, err := storage.NewDiskStore(cfg.UploadDir, logger)
		if err != nil {
			return nil, err
		}
		logger.Info("blob store ready", "backend", config.BlobBackendDisk, "root", cfg.UploadDir)
		return store, nil
	case config.BlobBackendMinIO:
		store, err := storage.NewMinIOStore(ctx, storage.MinIOConfig{
			Endpoint:  cfg.MinIO.Endpoint,
			AccessKey: cfg.MinIO.AccessKey,
			SecretKey: cfg.MinIO.SecretKey,
			Bucket:    cfg.MinIO.Bucket,
			UseSSL:    cfg.MinIO.UseSSL,
		}, logger)
		if err != nil {
			return nil, err
		}
		logger.Info("blob store ready",
			"backend", config.BlobBackendMinIO,
			"endpoint", cfg.MinIO.Endpoint,
			"bucket", cfg.MinIO.Bucket,
		)
		return store, nil
	default:
		return nil, fmt.Errorf("unknown blob backend %q", cfg.BlobBackend)
	}
}

// Migrate creates missing tables and indexes
func (a *App) Migrate(ctx context.Context) error {
	return a.schema.ensure(ctx)
}

// DropSchema drops the data room tables
func (a *App) DropSchema(ctx context.Context) error {
	return a.schema.drop(ctx)
}

// ClearData deletes every folder and file row, keeping the schema
func (a *App) ClearData(ctx context.Context) error {
	return a.schema.clear(ctx)
}

// Close releases the database connection
func (a *App) Close() {
	a.close()
}
