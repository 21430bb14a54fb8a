package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/giygas/dermacare-api/catalog"
	"github.com/giygas/dermacare-api/config"
	"github.com/giygas/dermacare-api/dermatologist"
	"github.com/giygas/dermacare-api/gemini"
	"github.com/giygas/dermacare-api/handlers"
	"github.com/giygas/dermacare-api/health"
	"github.com/giygas/dermacare-api/logging"
	"github.com/giygas/dermacare-api/scheduler"
	"github.com/giygas/dermacare-api/server"
	"github.com/giygas/dermacare-api/upload"
	"github.com/giygas/dermacare-api/validation"
)

func main() {
	startTime := time.Now()

	config.LoadDotEnv()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logging.InitLoggerWithOptions(logging.Options{
		Dir:            cfg.LogDir,
		Level:          cfg.LogLevel,
		RetentionWeeks: cfg.LogRetentionWeeks,
		MaxFileSize:    cfg.MaxLogFileSize,
	})
	defer func() { _ = logging.Close() }()

	if err := run(cfg, startTime); err != nil {
		logging.Error("Application stopped with an error", "error", err)
		_ = logging.Close()
		os.Exit(1)
	}
}

// application is the fully wired service: server plus the background sweeper
type application struct {
	server  *server.Server
	sweeper *scheduler.Scheduler
	model   string
}

// newApplication validates the environment and wires every component. The sweeper is
// already running when it returns.
func newApplication(cfg *config.Config, startTime time.Time) (*application, error) {
	cat, err := catalog.Default()
	if err != nil {
		return nil, fmt.Errorf("failed to load medicine catalog: %w", err)
	}

	validator := validation.NewDataValidator()
	if err := validator.ValidateCatalog(cat); err != nil {
		return nil, fmt.Errorf("invalid medicine catalog: %w", err)
	}

	if err := config.CheckRequirements(cfg); err != nil {
		return nil, err
	}

	client, err := gemini.NewClient(context.Background(), gemini.Config{
		APIKey:  cfg.GeminiAPIKey,
		Model:   cfg.GeminiModel,
		BaseURL: cfg.GeminiBaseURL,
		Timeout: cfg.GeminiTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	store, err := upload.NewStore(cfg.UploadDir)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare upload directory: %w", err)
	}

	tmpl, err := handlers.LoadTemplates(cfg.TemplatesDir)
	if err != nil {
		return nil, err
	}

	sweeper := scheduler.NewScheduler(store, cfg.UploadSweepInterval, cfg.UploadMaxAge)
	if err := sweeper.Start(); err != nil {
		return nil, fmt.Errorf("failed to start upload sweeper: %w", err)
	}

	httpHandler := handlers.NewHTTPHandler(handlers.Dependencies{
		Catalog:   cat,
		Analyzer:  dermatologist.NewService(client),
		Validator: validator,
		Health: health.NewHealthChecker(health.Dependencies{
			Catalog:   cat,
			Sweeper:   sweeper,
			Model:     client.Model(),
			UploadDir: store.Dir(),
			StartTime: startTime,
		}),
		Uploads:           store,
		Templates:         tmpl,
		AllowedExtensions: cfg.AllowedExtensions,
		MaxUploadSize:     cfg.MaxRequestBody,
	})

	return &application{
		server:  server.NewServer(cfg, httpHandler),
		sweeper: sweeper,
		model:   client.Model(),
	}, nil
}

// shutdown stops the server, then the sweeper
func (a *application) shutdown(ctx context.Context) error {
	err := a.server.Shutdown(ctx)
	a.sweeper.Stop()
	return err
}

func run(cfg *config.Config, startTime time.Time) error {
	app, err := newApplication(cfg, startTime)
	if err != nil {
		return err
	}

	// Channel to listen for interrupt signals
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- app.server.Start()
	}()

	printBanner(cfg, app.model)

	select {
	case err := <-serverErr:
		app.sweeper.Stop()
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case sig := <-quit:
		logging.Info("Received signal", "signal", sig.String())
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	return app.shutdown(ctx)
}

func printBanner(cfg *config.Config, model string) {
	fmt.Println("DermaCare - AI Dermatology Assistant")
	fmt.Println("====================================")
	fmt.Printf("Server running at http://%s:%s\n", cfg.Address, cfg.Port)
	fmt.Printf("Model: %s\n", model)
	fmt.Println("Features:")
	fmt.Println("  - Skin image analysis with medicine recommendations")
	fmt.Println("  - Dermatology chat in English and Urdu")
	fmt.Println("  - Medicines available in Pakistan by condition")
	fmt.Println("Press Ctrl+C to stop")
}
