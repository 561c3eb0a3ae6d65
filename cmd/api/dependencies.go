package main

import (
	"fmt"
	"log/slog"
	"time"

	gameplanhandler "github.com/campaignops/mediaplanner/internal/domain/gameplan/handler"
	gameplanrepo "github.com/campaignops/mediaplanner/internal/domain/gameplan/repository"
	gameplanservice "github.com/campaignops/mediaplanner/internal/domain/gameplan/service"
	"github.com/campaignops/mediaplanner/internal/domain/import/committer"
	importhandler "github.com/campaignops/mediaplanner/internal/domain/import/handler"
	importservice "github.com/campaignops/mediaplanner/internal/domain/import/service"
	"github.com/campaignops/mediaplanner/internal/domain/import/session"
	"github.com/campaignops/mediaplanner/internal/domain/masterdata"
	"github.com/campaignops/mediaplanner/pkg/config"
	"github.com/campaignops/mediaplanner/pkg/cron"
	"github.com/campaignops/mediaplanner/pkg/db"
	"github.com/campaignops/mediaplanner/pkg/storage"
)

// Dependencies holds all application dependencies
type Dependencies struct {
	Config *config.Config
	DB     *db.DB
	Logger *slog.Logger

	// Repositories
	MasterDataRepo masterdata.Repository
	GamePlanRepo   gameplanrepo.Repository

	// Services
	SessionStore    *session.Store
	FileStorage     storage.Storage
	MasterData      *masterdata.Loader
	Committer       *committer.Committer
	ImportService   *importservice.Service
	GamePlanService *gameplanservice.Service
	Scheduler       *cron.Scheduler

	// Handlers
	ImportHandler     *importhandler.Handler
	GamePlanHandler   *gameplanhandler.Handler
	MasterDataHandler *masterdata.Handler
}

// InitDependencies initializes all application dependencies
func InitDependencies(cfg *config.Config, logger *slog.Logger) (*Dependencies, error) {
	deps := &Dependencies{
		Config: cfg,
		Logger: logger,
	}

	if err := deps.initDatabase(); err != nil {
		return nil, fmt.Errorf("failed to init database: %w", err)
	}

	if err := deps.initRepositories(); err != nil {
		return nil, fmt.Errorf("failed to init repositories: %w", err)
	}

	if err := deps.initServices(); err != nil {
		return nil, fmt.Errorf("failed to init services: %w", err)
	}

	if err := deps.initHandlers(); err != nil {
		return nil, fmt.Errorf("failed to init handlers: %w", err)
	}

	logger.Info("all dependencies initialized successfully")

	return deps, nil
}

// initDatabase initializes the database connection and runs migrations
func (d *Dependencies) initDatabase() error {
	database, err := db.New(db.Config{
		DSN:             d.Config.Database.DSN(),
		MaxConns:        25,
		MinConns:        5,
		MaxConnLifetime: 5 * time.Minute,
		MaxConnIdleTime: 10 * time.Minute,
	}, d.Logger)
	if err != nil {
		return err
	}

	d.DB = database

	if err := d.DB.RunMigrations(); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	d.Logger.Info("database connected and migrations completed successfully")
	return nil
}

// initRepositories initializes all repository layer dependencies
func (d *Dependencies) initRepositories() error {
	d.MasterDataRepo = masterdata.NewPostgresRepository(d.DB.Pool)
	d.GamePlanRepo = gameplanrepo.NewPostgresRepository(d.DB.Pool)

	d.Logger.Info("repositories initialized")
	return nil
}

// initServices initializes all service layer dependencies
func (d *Dependencies) initServices() error {
	store, err := session.NewStore(d.Config.Sessions.Dir, d.Config.Sessions.TimeoutHours, d.Logger)
	if err != nil {
		return fmt.Errorf("failed to init session store: %w", err)
	}
	d.SessionStore = store

	fileStorage, err := storage.NewLocalStorage(d.Config.Uploads.Dir)
	if err != nil {
		return fmt.Errorf("failed to init file storage: %w", err)
	}
	d.FileStorage = fileStorage

	d.MasterData = masterdata.NewLoader(d.MasterDataRepo, d.Logger)
	d.Committer = committer.New(d.GamePlanRepo, d.SessionStore, d.Logger)

	d.ImportService = importservice.New(
		d.MasterData,
		d.GamePlanRepo,
		d.SessionStore,
		d.Committer,
		d.FileStorage,
		d.Logger,
	)
	d.GamePlanService = gameplanservice.New(d.GamePlanRepo, d.Logger)

	d.Scheduler = cron.NewScheduler(d.SessionStore, d.Logger)

	d.Logger.Info("services initialized")
	return nil
}

// initHandlers initializes all handler dependencies
func (d *Dependencies) initHandlers() error {
	d.ImportHandler = importhandler.New(d.ImportService, d.Config.Uploads.MaxSizeBytes, d.Logger)
	d.GamePlanHandler = gameplanhandler.New(d.GamePlanService, d.Logger)
	d.MasterDataHandler = masterdata.NewHandler(d.MasterDataRepo, d.Logger)

	d.Logger.Info("handlers initialized")
	return nil
}

// Cleanup closes all resources
func (d *Dependencies) Cleanup() {
	if d.Scheduler != nil {
		<-d.Scheduler.Stop().Done()
	}
	if d.DB != nil {
		d.DB.Close()
	}
	d.Logger.Info("cleanup completed")
}
