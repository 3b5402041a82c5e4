package cmd

import (
	"fmt"
	"log/slog"

	"github.com/hallwaylabs/deckgen/internal/config"
	"github.com/hallwaylabs/deckgen/internal/deck"
	"github.com/hallwaylabs/deckgen/internal/extract"
	"github.com/spf13/cobra"
)

// defaultSampleURL is used when no URL argument is given.
const defaultSampleURL = "https://en.wikipedia.org/wiki/Hello"

func newGenerateCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "generate [url]",
		Short: "Build a shareable presentation from a web page",
		Long: `Extracts the page's title, sections, and images, then builds one slide
per section on the Alai backend and prints a public share link.

Requires ALAI_EMAIL, ALAI_PASSWORD, and ALAI_API_KEY, plus FIRECRAWL_API_KEY
(or GEMINI_API_KEY with EXTRACT_PROVIDER=gemini) in the environment or a
.env file.`,
		Example: `  # Build a deck from a page
  deckgen generate https://en.wikipedia.org/wiki/Go_(programming_language)

  # No URL falls back to a sample page
  deckgen generate`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			url := defaultSampleURL
			if len(args) > 0 {
				url = args[0]
			} else {
				slog.Info("No URL provided, using sample page", "url", url)
			}

			link, err := runGenerate(cmd, configPath, url)
			if err != nil {
				// Per-section failures are absorbed inside the run; anything
				// surfacing here aborted the whole deck. Log and exit clean.
				slog.Error("Deck generation failed", "err", err)
				return nil
			}

			fmt.Printf("\nPresentation created successfully!\nShareable link: %s\n", link)
			return nil
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "", "Optional YAML file overriding backend endpoints")

	return cmd
}

func runGenerate(cmd *cobra.Command, configPath, url string) (string, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return "", err
	}

	provider, err := extract.NewProvider(cfg)
	if err != nil {
		return "", err
	}

	poller := &extract.Poller{Provider: provider, SnapshotPath: cfg.SnapshotPath}
	content, err := poller.Extract(cmd.Context(), url)
	if err != nil {
		return "", err
	}

	session := deck.NewSession(cfg)
	return session.Run(cmd.Context(), content)
}
