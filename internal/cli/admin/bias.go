package admin

import (
	"context"
	"fmt"
	"log"

	"github.com/spf13/cobra"

	"github.com/reliefworks/kioskhub/internal/bias"
	"github.com/reliefworks/kioskhub/internal/config"
	"github.com/reliefworks/kioskhub/internal/database"
	"github.com/reliefworks/kioskhub/internal/repository"
)

// BiasCmd returns the bias command group
func BiasCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bias",
		Short: "Manage the feedback bias signal",
	}

	cmd.AddCommand(biasRebuildCmd())
	return cmd
}

func biasRebuildCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rebuild",
		Short: "Recompute per-entry bias from accumulated feedback",
		Long:  "Recompute per-entry bias from accumulated feedback. Intended to run from cron; concurrent runs are rejected by a lock file.",
		RunE:  runBiasRebuild,
	}
}

func runBiasRebuild(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	pool, err := database.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer pool.Close()

	engine := bias.NewEngine(repository.NewBiasRepository(pool), bias.EngineConfig{
		LockDir: cfg.BiasLockDir,
	})

	if err := engine.Rebuild(ctx); err != nil {
		return fmt.Errorf("bias rebuild failed: %w", err)
	}

	log.Println("bias rebuild complete")
	return nil
}
