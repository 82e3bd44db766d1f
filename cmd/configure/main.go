package main

import (
	"fmt"
	"os"

	"github.com/astralume/astral-api/cmd/configure/commands"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func main() {
	_ = godotenv.Load()

	rootCmd := &cobra.Command{
		Use:   "astral-configure",
		Short: "Configuration tool for the Astralume API",
		Long:  "Manage database-backed runtime configuration: CORS origins, rate limits, and prompt templates.",
	}

	rootCmd.AddCommand(commands.NewCorsCmd())
	rootCmd.AddCommand(commands.NewRatelimitCmd())
	rootCmd.AddCommand(commands.NewPromptsCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
