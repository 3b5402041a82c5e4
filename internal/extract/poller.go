package extract

import (
	"context"
	"fmt"
	"log/slog"
	"os"
)

// Poller drives a Provider until its result satisfies the content contract.
// Shape mismatches are retried immediately and without a cap; transport
// errors from the provider are fatal.
type Poller struct {
	Provider Provider

	// SnapshotPath receives the raw payload of every attempt, overwritten
	// each time. Purely diagnostic. Empty disables the snapshot.
	SnapshotPath string
}

// Extract blocks until the extraction backend produces a result with a title,
// more than two paragraph sections, and an images key.
func (p *Poller) Extract(ctx context.Context, url string) (*Content, error) {
	for {
		slog.Info("Extracting webpage content", "url", url)

		raw, err := p.Provider.Extract(ctx, url)
		if err != nil {
			return nil, fmt.Errorf("extraction request failed: %w", err)
		}

		p.snapshot(raw)

		content, err := ParseContent(raw)
		if err != nil {
			slog.Warn("Extraction result failed shape check, retrying", "err", err)
			continue
		}

		slog.Info("Extraction accepted",
			"title", content.Title,
			"sections", len(content.Sections),
			"images", content.imageCount())
		return content, nil
	}
}

func (p *Poller) snapshot(raw []byte) {
	if p.SnapshotPath == "" {
		return
	}
	if err := os.WriteFile(p.SnapshotPath, raw, 0644); err != nil {
		slog.Warn("Failed to write extraction snapshot", "path", p.SnapshotPath, "err", err)
	}
}
