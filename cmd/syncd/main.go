// File: cmd/syncd/main.go
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/zakpestsos/call-center-profiles-sub000/internal/config"
	"github.com/zakpestsos/call-center-profiles-sub000/internal/document"
	"github.com/zakpestsos/call-center-profiles-sub000/internal/ledger"
	"github.com/zakpestsos/call-center-profiles-sub000/internal/metrics"
	"github.com/zakpestsos/call-center-profiles-sub000/internal/remote"
	"github.com/zakpestsos/call-center-profiles-sub000/internal/server"
	"github.com/zakpestsos/call-center-profiles-sub000/internal/syncer"
	"github.com/zakpestsos/call-center-profiles-sub000/pkg/utils"
)

// AppVersion contains the application version
const AppVersion = "1.0.0"

// Application wires the sync engine's components together
type Application struct {
	config       *config.Config
	logger       *logrus.Logger
	store        ledger.Store
	documents    document.Store
	remote       remote.ContentStore
	orchestrator *syncer.Orchestrator
	scheduler    *syncer.Scheduler
	metrics      *metrics.Manager
	server       *server.HTTPServer
	ctx          context.Context
	cancel       context.CancelFunc
}

// NewApplication creates a new application instance
func NewApplication(cfg *config.Config) (*Application, error) {
	ctx, cancel := context.WithCancel(context.Background())

	app := &Application{
		config: cfg,
		ctx:    ctx,
		cancel: cancel,
	}

	if err := app.initializeLogger(); err != nil {
		cancel()
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	if err := app.initializeComponents(); err != nil {
		cancel()
		return nil, fmt.Errorf("failed to initialize components: %w", err)
	}

	return app, nil
}

// initializeLogger initializes the application logger
func (app *Application) initializeLogger() error {
	logCfg := app.config.Logging

	if err := utils.InitLogger(logCfg.Level, logCfg.Format, logCfg.Output, logCfg.File); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	app.logger = utils.GetLogger()
	app.logger.WithFields(logrus.Fields{
		"level":  logCfg.Level,
		"format": logCfg.Format,
		"output": logCfg.Output,
	}).Info("Logger initialized")

	return nil
}

// initializeComponents initializes all application components
func (app *Application) initializeComponents() error {
	app.logger.Info("Initializing application components")

	app.metrics = metrics.NewManager()

	if err := app.initializeLedger(); err != nil {
		return fmt.Errorf("failed to initialize ledger: %w", err)
	}

	if err := app.initializeDocumentStore(); err != nil {
		return fmt.Errorf("failed to initialize document store: %w", err)
	}

	app.remote = remote.NewHTTPContentStore(&app.config.Remote)

	app.orchestrator = syncer.NewOrchestrator(app.store, app.documents, app.remote, &app.config.Sync)
	app.orchestrator.SetMetricsManager(app.metrics)

	app.scheduler = syncer.NewScheduler(app.orchestrator, app.store, &app.config.Sync)
	app.scheduler.SetMetricsManager(app.metrics)

	if err := app.initializeServer(); err != nil {
		return fmt.Errorf("failed to initialize server: %w", err)
	}

	app.logger.Info("All components initialized successfully")
	return nil
}

// initializeLedger initializes the ledger store and runs migrations
func (app *Application) initializeLedger() error {
	app.logger.Info("Initializing ledger store")

	if err := ledger.ValidateLedgerConfig(&app.config.Ledger); err != nil {
		return err
	}

	store, err := ledger.NewStore(&app.config.Ledger)
	if err != nil {
		return err
	}

	if err := store.Connect(); err != nil {
		return fmt.Errorf("failed to connect to ledger: %w", err)
	}

	if err := store.Migrate(); err != nil {
		return fmt.Errorf("failed to run ledger migrations: %w", err)
	}

	switch s := store.(type) {
	case *ledger.SQLiteStore:
		s.SetMetricsManager(app.metrics)
	case *ledger.PostgresStore:
		s.SetMetricsManager(app.metrics)
	}

	app.store = store
	app.logger.WithField("type", app.config.Ledger.Type).Info("Ledger store initialized")
	return nil
}

// initializeDocumentStore initializes the per-company document host client
func (app *Application) initializeDocumentStore() error {
	store, err := document.NewStore(&app.config.Document)
	if err != nil {
		return err
	}

	if httpStore, ok := store.(*document.HTTPStore); ok {
		httpStore.SetMetricsManager(app.metrics)
	}

	app.documents = store
	app.logger.WithField("type", app.config.Document.Type).Info("Document store initialized")
	return nil
}

// initializeServer initializes the HTTP server
func (app *Application) initializeServer() error {
	srv, err := server.NewHTTPServer(
		&app.config.Server,
		app.store,
		app.documents,
		app.orchestrator,
		app.scheduler,
		app.metrics,
	)
	if err != nil {
		return err
	}

	app.server = srv
	return nil
}

// Start starts the application
func (app *Application) Start() error {
	app.logger.WithFields(logrus.Fields{
		"version":     AppVersion,
		"environment": app.config.App.Environment,
	}).Info("Starting profile sync engine")

	if err := app.server.Start(); err != nil {
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}

	if err := app.scheduler.Start(app.ctx); err != nil {
		return fmt.Errorf("failed to start sync scheduler: %w", err)
	}

	app.logger.WithFields(logrus.Fields{
		"server_address": fmt.Sprintf("%s:%d", app.config.Server.Host, app.config.Server.Port),
		"sync_interval":  app.config.Sync.Interval,
		"sync_enabled":   app.config.Sync.Enabled,
	}).Info("Profile sync engine started")

	return nil
}

// Stop stops the application gracefully
func (app *Application) Stop() error {
	app.logger.Info("Stopping profile sync engine")

	app.cancel()

	if app.server != nil {
		if err := app.server.Stop(); err != nil {
			app.logger.WithError(err).Error("Failed to stop HTTP server")
		}
	}

	if app.scheduler != nil {
		if err := app.scheduler.Stop(); err != nil {
			app.logger.WithError(err).Error("Failed to stop sync scheduler")
		}
	}

	if app.store != nil {
		if err := app.store.Close(); err != nil {
			app.logger.WithError(err).Error("Failed to close ledger store")
		}
	}

	app.logger.Info("Profile sync engine stopped")
	return nil
}

// CLI Commands

var rootCmd = &cobra.Command{
	Use:     "syncd",
	Short:   "Service profile synchronization engine",
	Long:    `Keeps call-center service profiles consistent across the intake form, the tabular ledger, per-company documents and the remote content store.`,
	Version: AppVersion,
	RunE:    runEngine,
}

// runEngine is the main command: scheduler plus HTTP API until interrupted
func runEngine(cmd *cobra.Command, args []string) error {
	configPath := viper.GetString("config")
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	app, err := NewApplication(cfg)
	if err != nil {
		return fmt.Errorf("failed to create application: %w", err)
	}

	signalChan := make(chan os.Signal, 1)
	signal.Notify(signalChan, os.Interrupt, syscall.SIGTERM)

	if err := app.Start(); err != nil {
		return fmt.Errorf("failed to start application: %w", err)
	}

	<-signalChan
	fmt.Println("\nReceived shutdown signal, stopping application...")

	if err := app.Stop(); err != nil {
		return fmt.Errorf("failed to stop application: %w", err)
	}

	return nil
}

// syncCmd runs one sync pass and exits; with an argument it syncs a single
// profile
var syncCmd = &cobra.Command{
	Use:   "sync [profileId]",
	Short: "Run one sync pass and exit",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		configPath := viper.GetString("config")
		cfg, err := config.Load(configPath)
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("invalid configuration: %w", err)
		}

		app, err := NewApplication(cfg)
		if err != nil {
			return fmt.Errorf("failed to create application: %w", err)
		}
		defer app.Stop()

		if len(args) == 1 {
			outcome, err := app.orchestrator.RunOne(app.ctx, args[0])
			if err != nil {
				return fmt.Errorf("profile sync failed: %w", err)
			}
			fmt.Printf("Profile %s: status=%s reimported=%t pushed=%t\n",
				outcome.ProfileID, outcome.Status, outcome.Reimported, outcome.Pushed)
			return nil
		}

		result, err := app.orchestrator.RunAll(app.ctx, syncer.TriggerManual)
		if err != nil {
			return fmt.Errorf("sync run failed: %w", err)
		}
		fmt.Printf("Sync run: %d scanned, %d reimported, %d pushed, %d failed, %d abandoned (%s)\n",
			result.ProfilesScanned, result.Reimported, result.Pushed,
			result.Failed, result.Abandoned, result.Duration)
		return nil
	},
}

// versionCmd prints the version number
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("Profile Sync Engine %s\n", AppVersion)
	},
}

// configCmd groups configuration management commands
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Configuration management commands",
}

// validateConfigCmd validates the configuration
var validateConfigCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration file",
	RunE: func(cmd *cobra.Command, args []string) error {
		configPath := viper.GetString("config")
		cfg, err := config.Load(configPath)
		if err != nil {
			return fmt.Errorf("configuration validation failed: %w", err)
		}
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("configuration validation failed: %w", err)
		}

		fmt.Printf("Configuration is valid!\n")
		fmt.Printf("Environment: %s\n", cfg.App.Environment)
		fmt.Printf("Ledger: %s\n", cfg.Ledger.Type)
		fmt.Printf("Document host: %s (%s)\n", cfg.Document.Type, cfg.Document.BaseURL)
		fmt.Printf("Remote store: %s\n", cfg.Remote.Endpoint)
		fmt.Printf("Sync interval: %s\n", cfg.Sync.Interval)

		return nil
	},
}

// init initializes the CLI commands
func init() {
	rootCmd.PersistentFlags().StringP("config", "c", "", "config file path")
	rootCmd.PersistentFlags().StringP("log-level", "l", "info", "log level (debug, info, warn, error)")

	viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))
	viper.BindPFlag("log-level", rootCmd.PersistentFlags().Lookup("log-level"))

	rootCmd.AddCommand(syncCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(validateConfigCmd)
}

// main is the entry point
func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatal(err)
	}
}
