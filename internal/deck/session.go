package deck

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hallwaylabs/deckgen/internal/alai"
	"github.com/hallwaylabs/deckgen/internal/auth"
	"github.com/hallwaylabs/deckgen/internal/config"
	"github.com/hallwaylabs/deckgen/internal/extract"
)

// Session is the top-level driver: it authenticates, creates the presentation
// shell, runs the slide orchestrator over every section, and finalizes the
// share link.
type Session struct {
	Tokens   alai.TokenSource
	Client   *alai.Client
	Variants VariantSource
}

// NewSession wires a session against the configured backends.
func NewSession(cfg *config.Config) *Session {
	tokens := auth.NewManager(cfg.Email, cfg.Password, cfg.APIKey, cfg.AuthURL)
	return &Session{
		Tokens:   tokens,
		Client:   alai.NewClient(tokens, cfg.BackendURL, cfg.ShareBaseURL, cfg.ThemeID, cfg.ColorSetID),
		Variants: NewNegotiator(cfg.VariantEndpoint),
	}
}

// Run builds a presentation from extracted content and returns the public
// share URL.
func (s *Session) Run(ctx context.Context, content *extract.Content) (string, error) {
	if _, err := s.Tokens.ValidToken(ctx); err != nil {
		return "", err
	}
	slog.Info("Authenticated with presentation backend")

	pres, err := s.Client.CreatePresentation(ctx, content.Title)
	if err != nil {
		return "", err
	}
	if len(pres.Slides) == 0 {
		return "", fmt.Errorf("presentation %s was created without a first slide", pres.ID)
	}
	slog.Info("Presentation created", "presentation_id", pres.ID, "title", content.Title)

	orch := &Orchestrator{
		Backend:  s.Client,
		Variants: s.Variants,
		Tokens:   s.Tokens,
	}
	if err := orch.BuildSlides(ctx, pres.ID, pres.Slides[0].ID, content); err != nil {
		return "", err
	}

	link, err := s.Client.ShareLink(ctx, pres.ID)
	if err != nil {
		return "", err
	}

	return link, nil
}
