package admin

import (
	"context"
	"fmt"
	"log"

	"github.com/jackc/pgx/v5/pgxpool"
	sdkopenai "github.com/sashabaranov/go-openai"
	"github.com/spf13/cobra"

	"github.com/reliefworks/kioskhub/internal/config"
	"github.com/reliefworks/kioskhub/internal/database"
	"github.com/reliefworks/kioskhub/internal/openai"
	"github.com/reliefworks/kioskhub/internal/repository"
	"github.com/reliefworks/kioskhub/internal/service"
	"github.com/reliefworks/kioskhub/internal/storage"
)

// KBCmd returns the kb command group
func KBCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "kb",
		Short: "Manage the knowledge base",
	}

	cmd.AddCommand(kbBackfillCmd())
	cmd.AddCommand(kbExportCmd())
	cmd.AddCommand(kbImportCmd())
	return cmd
}

func kbBackfillCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "backfill",
		Short: "Embed entries that are missing a vector",
		RunE:  runKBBackfill,
	}
	cmd.Flags().Int("limit", 100, "Maximum number of entries to embed")
	return cmd
}

func runKBBackfill(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if !cfg.HasOpenAI() && cfg.OpenAIBaseURL == "" {
		return fmt.Errorf("an embedding endpoint is required: set KIOSKHUB_OPENAI_API_KEY or KIOSKHUB_OPENAI_BASE_URL")
	}

	pool, err := database.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer pool.Close()

	limit, _ := cmd.Flags().GetInt("limit")

	entryRepo := repository.NewEntryRepository(pool)
	embedder := openai.NewClientWithConfig(openai.Config{
		APIKey:         cfg.OpenAIAPIKey,
		BaseURL:        cfg.OpenAIBaseURL,
		EmbeddingModel: sdkopenai.EmbeddingModel(cfg.EmbeddingModel),
	})
	embeddingSvc := service.NewEmbeddingService(embedder, entryRepo, nil)

	entries, err := entryRepo.ListMissingEmbeddings(ctx, limit)
	if err != nil {
		return fmt.Errorf("failed to list entries: %w", err)
	}
	if len(entries) == 0 {
		log.Println("backfill: nothing to embed")
		return nil
	}

	embedded := 0
	for _, entry := range entries {
		if err := embeddingSvc.GenerateEmbedding(ctx, entry.ID); err != nil {
			log.Printf("backfill: entry %s failed: %v", entry.ID, err)
			continue
		}
		embedded++
	}

	log.Printf("backfill: embedded %d of %d entries", embedded, len(entries))
	return nil
}

func kbExportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export <key>",
		Short: "Export the knowledge base to the snapshot bucket",
		Args:  cobra.ExactArgs(1),
		RunE:  runKBExport,
	}
	return cmd
}

func runKBExport(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	snapshotSvc, pool, err := buildSnapshotService(ctx)
	if err != nil {
		return err
	}
	defer pool.Close()

	count, err := snapshotSvc.Export(ctx, args[0])
	if err != nil {
		return fmt.Errorf("export failed: %w", err)
	}

	log.Printf("exported %d entries to %s", count, args[0])
	return nil
}

func kbImportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import <key>",
		Short: "Seed the knowledge base from a snapshot in the bucket",
		Args:  cobra.ExactArgs(1),
		RunE:  runKBImport,
	}
	return cmd
}

func runKBImport(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	snapshotSvc, pool, err := buildSnapshotService(ctx)
	if err != nil {
		return err
	}
	defer pool.Close()

	count, err := snapshotSvc.Import(ctx, args[0])
	if err != nil {
		return fmt.Errorf("import failed: %w", err)
	}

	log.Printf("imported %d entries from %s; run 'kioskhubd kb backfill' or let the worker embed them", count, args[0])
	return nil
}

func buildSnapshotService(ctx context.Context) (*service.SnapshotService, *pgxpool.Pool, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}
	if !cfg.HasS3() {
		return nil, nil, fmt.Errorf("snapshot storage is not configured: set KIOSKHUB_S3_ENDPOINT, KIOSKHUB_S3_ACCESS_KEY_ID and KIOSKHUB_S3_SECRET_ACCESS_KEY")
	}

	pool, err := database.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	s3Client, err := storage.NewS3Client(ctx, storage.S3ClientConfig{
		Endpoint:        cfg.S3Endpoint,
		Region:          cfg.S3Region,
		AccessKeyID:     cfg.S3AccessKey,
		SecretAccessKey: cfg.S3SecretKey,
		Bucket:          cfg.S3Bucket,
		UsePathStyle:    true,
	})
	if err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("failed to create S3 client: %w", err)
	}
	if err := s3Client.EnsureBucket(ctx); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("failed to ensure S3 bucket: %w", err)
	}

	kbSvc := service.NewKBService(
		repository.NewEntryRepository(pool),
		repository.NewEmbeddingJobRepository(pool),
		repository.NewShelterConfigRepository(pool),
		noopInvalidator{},
		noopInvalidator{},
	).WithTxRunner(repository.NewTxRunner(pool))

	return service.NewSnapshotService(kbSvc, s3Client), pool, nil
}

// noopInvalidator satisfies the cache interfaces for one-off CLI runs, where
// no long-lived cache exists.
type noopInvalidator struct{}

func (noopInvalidator) Invalidate() {}
