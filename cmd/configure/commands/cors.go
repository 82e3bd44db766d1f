package commands

import (
	"context"
	"fmt"

	"github.com/astralume/astral-api/internal/database"
	"github.com/astralume/astral-api/internal/models"
	"github.com/spf13/cobra"
)

// NewCorsCmd creates the cors command group.
func NewCorsCmd() *cobra.Command {
	corsCmd := &cobra.Command{
		Use:   "cors",
		Short: "Manage CORS configuration",
	}
	corsCmd.AddCommand(newCorsListCmd())
	corsCmd.AddCommand(newCorsSetCmd())
	return corsCmd
}

func newCorsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Show the current CORS configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := openDB()
			if err != nil {
				return err
			}
			defer func() { _ = db.Close() }()

			cfg, err := database.NewCorsConfigRepository(db).Get(context.Background())
			if err != nil {
				return err
			}
			if cfg == nil {
				fmt.Println("No CORS configuration set; the server falls back to FRONTEND_URL.")
				return nil
			}
			fmt.Printf("Allowed origins:   %s\n", cfg.AllowedOrigins)
			fmt.Printf("Allow credentials: %v\n", cfg.AllowCredentials)
			fmt.Printf("Max age:           %d\n", cfg.MaxAge)
			fmt.Printf("Updated:           %s\n", cfg.UpdatedAt.Format("2006-01-02 15:04:05"))
			return nil
		},
	}
}

func newCorsSetCmd() *cobra.Command {
	var (
		origins     string
		credentials bool
		maxAge      int
	)
	cmd := &cobra.Command{
		Use:   "set",
		Short: "Set the CORS configuration",
		Long:  "Set the allowed origins (comma-separated). The server picks up changes within a minute; no restart needed.",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := openDB()
			if err != nil {
				return err
			}
			defer func() { _ = db.Close() }()

			cfg := &models.CorsConfig{
				AllowedOrigins:   origins,
				AllowCredentials: credentials,
				MaxAge:           maxAge,
			}
			if err := database.NewCorsConfigRepository(db).Set(context.Background(), cfg); err != nil {
				return err
			}
			fmt.Println("CORS configuration updated.")
			return nil
		},
	}
	cmd.Flags().StringVar(&origins, "origins", "", "comma-separated list of allowed origins (required)")
	cmd.Flags().BoolVar(&credentials, "credentials", true, "allow credentials")
	cmd.Flags().IntVar(&maxAge, "max-age", 300, "preflight cache max age in seconds")
	_ = cmd.MarkFlagRequired("origins")
	return cmd
}
