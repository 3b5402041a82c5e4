package deck

import (
	"context"
	"log/slog"

	"github.com/hallwaylabs/deckgen/internal/alai"
	"github.com/hallwaylabs/deckgen/internal/extract"
)

// maxAttempts caps how often one section's slide is recreated before the
// section is skipped.
const maxAttempts = 4

// SlideBackend is the subset of the presentation API the slide loop drives.
type SlideBackend interface {
	CreateSlide(ctx context.Context, presentationID string, order int) (string, error)
	DeleteSlide(ctx context.Context, slideID string) error
	PickVariant(ctx context.Context, slideID, variantID string) error
	UploadImages(ctx context.Context, presentationID string, urls []string) ([]alai.ImageHandle, error)
}

// VariantSource requests slide-content variants over the streaming channel.
type VariantSource interface {
	Negotiate(ctx context.Context, token, presentationID, slideID, slideContext string, images []alai.ImageHandle) (string, Outcome, error)
}

// Orchestrator runs the per-section slide state machine. Sections are
// processed strictly sequentially; within a section a slide is created,
// negotiated, and either committed or removed, up to maxAttempts times.
type Orchestrator struct {
	Backend  SlideBackend
	Variants VariantSource
	Tokens   alai.TokenSource
}

// BuildSlides materializes one slide per section. The first slide comes with
// the presentation shell; every later slide is created at the next order
// index, and removal gives the index back so indices stay dense. A section
// that exhausts its attempts is skipped without error.
func (o *Orchestrator) BuildSlides(ctx context.Context, presentationID, firstSlideID string, content *extract.Content) error {
	currentSlideID := firstSlideID
	order := 0

	remaining := append([]extract.Section(nil), content.Sections...)
	for len(remaining) > 0 {
		idx := nextSection(remaining)
		section := remaining[idx]
		remaining = append(remaining[:idx], remaining[idx+1:]...)

		slideContext := section.Heading + ": " + section.Body

		images, err := o.Backend.UploadImages(ctx, presentationID, section.Images)
		if err != nil {
			return err
		}

		committed := false
		for attempt := 0; attempt < maxAttempts; attempt++ {
			if currentSlideID == "" {
				order++
				slideID, err := o.Backend.CreateSlide(ctx, presentationID, order)
				if err != nil {
					return err
				}
				currentSlideID = slideID
				slog.Info("Slide created", "slide_id", slideID, "order", order)
			}

			token, err := o.Tokens.ValidToken(ctx)
			if err != nil {
				return err
			}

			slog.Info("Requesting slide variants",
				"section", section.Heading, "slide_id", currentSlideID, "attempt", attempt+1)
			variantID, outcome, err := o.Variants.Negotiate(ctx, token, presentationID, currentSlideID, slideContext, images)
			if err != nil {
				return err
			}

			if outcome == OutcomePicked {
				if err := o.Backend.PickVariant(ctx, currentSlideID, variantID); err != nil {
					return err
				}
				currentSlideID = ""
				committed = true
				break
			}

			// On the third attempt an image rejection switches the section
			// to text-only. The slide is still removed below like any other
			// failed attempt; only the image set changes.
			if outcome == OutcomeImageRejected && attempt == 2 {
				slog.Warn("Backend rejected section images, continuing without them", "section", section.Heading)
				images = nil
			}

			if err := o.Backend.DeleteSlide(ctx, currentSlideID); err != nil {
				return err
			}
			order--
			currentSlideID = ""
		}

		if !committed {
			slog.Warn("Section exhausted all attempts, skipping", "section", section.Heading)
		}
	}

	return nil
}

// nextSection picks "Introduction" while present, else the first remaining
// section in source order.
func nextSection(sections []extract.Section) int {
	for i, s := range sections {
		if s.Heading == "Introduction" {
			return i
		}
	}
	return 0
}
