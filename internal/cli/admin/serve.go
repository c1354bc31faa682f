package admin

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/jackc/pgx/v5/stdlib"
	sdkopenai "github.com/sashabaranov/go-openai"
	"github.com/spf13/cobra"

	"github.com/reliefworks/kioskhub/internal/api/handlers"
	"github.com/reliefworks/kioskhub/internal/bias"
	"github.com/reliefworks/kioskhub/internal/config"
	"github.com/reliefworks/kioskhub/internal/corpus"
	"github.com/reliefworks/kioskhub/internal/database"
	"github.com/reliefworks/kioskhub/internal/intent"
	"github.com/reliefworks/kioskhub/internal/jobs"
	"github.com/reliefworks/kioskhub/internal/openai"
	"github.com/reliefworks/kioskhub/internal/repository"
	"github.com/reliefworks/kioskhub/internal/retrieval"
	"github.com/reliefworks/kioskhub/internal/server"
	"github.com/reliefworks/kioskhub/internal/service"
	"github.com/reliefworks/kioskhub/internal/shelter"
	"github.com/reliefworks/kioskhub/internal/telemetry"
)

// ServeCmd returns the serve command
func ServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the hub API server",
		Long:  "Start the kioskhub API server, the embedding worker and the query pipeline",
		RunE:  runServe,
	}

	cmd.Flags().StringP("port", "p", "8080", "Port to listen on")
	cmd.Flags().Bool("no-migrate", false, "Skip automatic database migrations on startup")

	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if dsn := cfg.SentryDSN; dsn != "" {
		environment := os.Getenv("ENVIRONMENT")
		if environment == "" {
			environment = "development"
		}

		sampleRate := 0.1
		if environment == "development" {
			sampleRate = 1.0
		}

		shutdownTelemetry, err := telemetry.Init(telemetry.Config{
			DSN:              dsn,
			Environment:      environment,
			TracesSampleRate: sampleRate,
		})
		if err != nil {
			log.Printf("telemetry init failed (continuing without tracing): %v", err)
		} else {
			defer shutdownTelemetry()
		}
	}

	portFlag, _ := cmd.Flags().GetString("port")
	if portFlag != "" && portFlag != "8080" {
		cfg.Port = portFlag
	}

	if !cfg.HasOpenAI() && cfg.OpenAIBaseURL == "" {
		return fmt.Errorf("an embedding endpoint is required: set KIOSKHUB_OPENAI_API_KEY or KIOSKHUB_OPENAI_BASE_URL")
	}

	pool, err := database.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer pool.Close()
	log.Println("connected to database")

	noMigrate, _ := cmd.Flags().GetBool("no-migrate")
	if !noMigrate {
		if err := runMigrations(cfg.DatabaseURL); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
	}

	entryRepo := repository.NewEntryRepository(pool)
	jobRepo := repository.NewEmbeddingJobRepository(pool)
	configRepo := repository.NewShelterConfigRepository(pool)
	feedbackRepo := repository.NewFeedbackRepository(pool)
	biasRepo := repository.NewBiasRepository(pool)
	queryLogRepo := repository.NewQueryLogRepository(pool)

	embedder := openai.NewClientWithConfig(openai.Config{
		APIKey:         cfg.OpenAIAPIKey,
		BaseURL:        cfg.OpenAIBaseURL,
		EmbeddingModel: sdkopenai.EmbeddingModel(cfg.EmbeddingModel),
	})

	classifier, err := intent.NewClassifier(ctx, embedder)
	if err != nil {
		return fmt.Errorf("failed to build intent classifier: %w", err)
	}
	log.Println("intent classifier ready")

	corpusCache := corpus.NewCache(entryRepo)
	shelterCache := shelter.NewConfigCache(configRepo)
	biasProvider := bias.NewProvider(biasRepo, cfg.BiasCacheTTL)

	engine := retrieval.NewEngine(classifier, embedder, corpusCache, shelterCache, biasProvider, retrieval.Config{
		DirectThreshold:              cfg.DirectThreshold,
		DirectThresholdNonEnglish:    cfg.DirectThresholdNonEnglish,
		ClarificationFloor:           cfg.ClarificationFloor,
		ClarificationFloorNonEnglish: cfg.ClarificationFloorNonEnglish,
		BiasAlpha:                    cfg.BiasAlpha,
	})

	var rewriter service.QueryRewriter
	if cfg.RewriteEnabled {
		transformer := openai.NewTransformClient(openai.TransformConfig{
			APIKey:  cfg.OpenAIAPIKey,
			BaseURL: cfg.OpenAIBaseURL,
			Model:   cfg.RewriteModel,
		})
		rewriter = retrieval.NewRewriter(transformer, true, cfg.RewriteTimeout)
		log.Println("query rewriter enabled")
	}

	embeddingSvc := service.NewEmbeddingService(embedder, entryRepo, corpusCache)
	embeddingProcessor := jobs.NewEmbeddingWorker(jobRepo, embeddingSvc)
	embeddingWorker := jobs.NewWorker(embeddingProcessor, 10*time.Second)
	go embeddingWorker.Start(ctx)
	log.Println("embedding worker started")

	querySvc := service.NewQueryService(engine, rewriter, queryLogRepo, feedbackRepo)
	kbSvc := service.NewKBService(entryRepo, jobRepo, configRepo, corpusCache, shelterCache).
		WithTxRunner(repository.NewTxRunner(pool))

	router := server.NewRouter(server.RouterConfig{
		QueryHandler: handlers.NewQueryHandler(querySvc),
		KBHandler:    handlers.NewKBHandler(kbSvc),
	})

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		log.Printf("starting server on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("shutting down...")

	embeddingWorker.Stop()

	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Println("server exited")
	return nil
}

func runMigrations(databaseURL string) error {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database for migrations: %w", err)
	}
	defer db.Close()

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("failed to create migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(
		"file://migrations",
		"postgres",
		driver,
	)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}

	err = m.Up()
	if err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}

	version, dirty, err := m.Version()
	if err != nil && err != migrate.ErrNilVersion {
		return fmt.Errorf("failed to get migration version: %w", err)
	}

	if err == migrate.ErrNilVersion {
		log.Println("migrations: database is up to date (no migrations applied)")
	} else if dirty {
		return fmt.Errorf("migration version %d is dirty - manual intervention required", version)
	} else if err == migrate.ErrNoChange {
		log.Printf("migrations: database is up to date (version %d)", version)
	} else {
		log.Printf("migrations: applied successfully (version %d)", version)
	}

	return nil
}
