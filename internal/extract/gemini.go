package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// Gemini is an extraction provider that fetches the page itself and asks
// Google Gemini for the structured JSON, for accounts without Firecrawl
// access.
type Gemini struct {
	model      string
	httpClient *http.Client
}

// NewGemini returns a Gemini provider using the given model.
func NewGemini(model string) *Gemini {
	return &Gemini{
		model: model,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Extract fetches the page HTML and runs one structured extraction over it.
func (g *Gemini) Extract(ctx context.Context, pageURL string) (json.RawMessage, error) {
	apiKey := os.Getenv("GEMINI_API_KEY")
	if apiKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY environment variable not set")
	}

	html, err := g.fetchPage(ctx, pageURL)
	if err != nil {
		return nil, err
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create new gemini client: %w", err)
	}
	defer client.Close()

	model := client.GenerativeModel(g.model)
	model.ResponseMIMEType = "application/json"

	prompt := extractionPrompt + "\n\nThe webpage HTML follows:\n\n" + html
	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return nil, fmt.Errorf("failed to generate content: %w", err)
	}

	if len(resp.Candidates) == 0 {
		return nil, fmt.Errorf("no candidates returned from Gemini")
	}

	candidate := resp.Candidates[0]
	if candidate.Content == nil || len(candidate.Content.Parts) == 0 {
		return nil, fmt.Errorf("empty content returned from Gemini")
	}

	txt, ok := candidate.Content.Parts[0].(genai.Text)
	if !ok {
		return nil, fmt.Errorf("unexpected response format from Gemini")
	}

	if !json.Valid([]byte(txt)) {
		return nil, fmt.Errorf("gemini returned invalid JSON")
	}

	return json.RawMessage(txt), nil
}

func (g *Gemini) fetchPage(ctx context.Context, pageURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", pageURL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create page request: %w", err)
	}

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to fetch page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("page returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read page body: %w", err)
	}

	return string(body), nil
}
