package commands

import (
	"fmt"
	"sort"

	"github.com/astralume/astral-api/internal/config"
	"github.com/astralume/astral-api/internal/services/prompt"
	"github.com/spf13/cobra"
)

// NewPromptsCmd creates the prompts command group.
func NewPromptsCmd() *cobra.Command {
	promptsCmd := &cobra.Command{
		Use:   "prompts",
		Short: "Inspect prompt templates",
	}
	promptsCmd.AddCommand(newPromptsListCmd())
	return promptsCmd
}

func newPromptsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List registered prompt templates with their versions and cache TTLs",
		Long:  "Lists templates after applying PROMPT_OVERRIDES_PATH, so the output reflects what the running server would use.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			registry, err := prompt.NewRegistryWithOverrides(cfg.PromptOverridesPath)
			if err != nil {
				return err
			}

			ids := registry.IDs()
			sort.Strings(ids)
			for _, id := range ids {
				t, err := registry.Get(id)
				if err != nil {
					return err
				}
				fmt.Printf("%-20s %-4s ttl=%s\n", t.ID, t.Version, t.TTL)
			}
			return nil
		},
	}
}
