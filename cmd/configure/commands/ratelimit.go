package commands

import (
	"context"
	"fmt"

	"github.com/astralume/astral-api/internal/database"
	"github.com/astralume/astral-api/internal/models"
	"github.com/spf13/cobra"
	"github.com/ulule/limiter/v3"
)

// NewRatelimitCmd creates the ratelimit command group.
func NewRatelimitCmd() *cobra.Command {
	rlCmd := &cobra.Command{
		Use:   "ratelimit",
		Short: "Manage rate limit configuration",
	}
	rlCmd.AddCommand(newRatelimitListCmd())
	rlCmd.AddCommand(newRatelimitSetCmd())
	return rlCmd
}

func newRatelimitListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Show the current rate limit",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := openDB()
			if err != nil {
				return err
			}
			defer func() { _ = db.Close() }()

			cfg, err := database.NewRatelimitConfigRepository(db).Get(context.Background())
			if err != nil {
				return err
			}
			if cfg == nil {
				fmt.Println("No rate limit configuration set; the server uses its built-in default.")
				return nil
			}
			fmt.Printf("Rate:    %s\n", cfg.Rate)
			fmt.Printf("Updated: %s\n", cfg.UpdatedAt.Format("2006-01-02 15:04:05"))
			return nil
		},
	}
}

func newRatelimitSetCmd() *cobra.Command {
	var rate string
	cmd := &cobra.Command{
		Use:   "set",
		Short: "Set the rate limit",
		Long:  `Set the per-IP rate limit in limiter format, e.g. "5-S" (5 per second) or "100-M" (100 per minute).`,
		RunE: func(cmd *cobra.Command, args []string) error {
			// Validate before writing so a typo cannot take down the API.
			if _, err := limiter.NewRateFromFormatted(rate); err != nil {
				return fmt.Errorf("invalid rate %q: %w", rate, err)
			}

			db, err := openDB()
			if err != nil {
				return err
			}
			defer func() { _ = db.Close() }()

			if err := database.NewRatelimitConfigRepository(db).Set(context.Background(), &models.RatelimitConfig{Rate: rate}); err != nil {
				return err
			}
			fmt.Printf("Rate limit set to %s.\n", rate)
			return nil
		},
	}
	cmd.Flags().StringVar(&rate, "rate", "", `rate in limiter format, e.g. "5-S" (required)`)
	_ = cmd.MarkFlagRequired("rate")
	return cmd
}
