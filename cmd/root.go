package cmd

import (
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "deckgen",
		Short: "Turn a web page into a shareable AI-generated slide deck",
		Long: `Deckgen extracts structured content from a web page and drives the Alai
presentation backend to build one slide per section, returning a public
share link for the finished deck.`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// Load .env file if present (ignore errors)
			_ = godotenv.Load()
		},
	}

	// Add subcommands
	cmd.AddCommand(newGenerateCmd())
	cmd.AddCommand(newExtractCmd())

	return cmd
}
