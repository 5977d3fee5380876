package cli

import (
	"context"
	"fmt"
	"log"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"omniquiz-service/internal/config"
	redisinfra "omniquiz-service/internal/infra/redis"
)

// NewResetCmd is the operator one-shot that hard-resets the shared live
// document back to the canonical empty state.
func NewResetCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Reset the live game state document",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReset(cmd.Context(), *configPath)
		},
	}
}

func runReset(ctx context.Context, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if cfg.Redis.Addr == "" {
		return fmt.Errorf("redis addr not configured")
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer client.Close()

	if err := redisinfra.NewLiveDocument(client).Reset(ctx); err != nil {
		return err
	}
	log.Printf("live game state reset")
	return nil
}
