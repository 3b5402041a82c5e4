package cmd

import (
	"fmt"
	"log/slog"

	"github.com/hallwaylabs/deckgen/internal/config"
	"github.com/hallwaylabs/deckgen/internal/extract"
	"github.com/spf13/cobra"
)

func newExtractCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "extract [url]",
		Short: "Extract structured content from a web page without building a deck",
		Long: `Runs the extraction poller on its own and prints a summary of the
accepted result. The raw payload of every attempt is written to the
snapshot file (data.json by default).`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			url := defaultSampleURL
			if len(args) > 0 {
				url = args[0]
			} else {
				slog.Info("No URL provided, using sample page", "url", url)
			}

			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}

			provider, err := extract.NewProvider(cfg)
			if err != nil {
				return err
			}

			poller := &extract.Poller{Provider: provider, SnapshotPath: cfg.SnapshotPath}
			content, err := poller.Extract(cmd.Context(), url)
			if err != nil {
				return err
			}

			fmt.Printf("Title: %s\n", content.Title)
			for _, section := range content.Sections {
				fmt.Printf("  %-30s %5d chars, %d images\n", section.Heading, len(section.Body), len(section.Images))
			}
			fmt.Printf("Snapshot written to %s\n", cfg.SnapshotPath)
			return nil
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "", "Optional YAML file overriding backend endpoints")

	return cmd
}
