package extract

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hallwaylabs/deckgen/internal/config"
)

// Provider runs one structured-extraction attempt against a backend and
// returns the raw JSON payload. Providers decode transport-level responses
// themselves; any error they return is treated as fatal by the poller.
type Provider interface {
	Extract(ctx context.Context, url string) (json.RawMessage, error)
}

// NewProvider selects the extraction backend from configuration.
func NewProvider(cfg *config.Config) (Provider, error) {
	switch cfg.ExtractProvider {
	case "firecrawl":
		return NewFirecrawl(cfg.FirecrawlAPIKey, cfg.FirecrawlURL), nil
	case "gemini":
		return NewGemini(cfg.GeminiModel), nil
	default:
		return nil, fmt.Errorf("unsupported extraction provider: %s", cfg.ExtractProvider)
	}
}

// extractionPrompt tells the extraction backend exactly what shape to return.
// Kept as one block so both providers send identical instructions.
const extractionPrompt = `
You'll be given the raw HTML of a webpage. Parse it and return a single JSON object with three keys: ` + "`title`, `paragraphs`, and `images`" + `.

1. **Extract the page title**
    - Grab the text inside <title> and set "title" to that string.

2. **Build the paragraphs dictionary**
    - Keys: section headings.
    - Values: the concatenated plain text relevant paragraphs under that heading.
    - Always include an "Introduction" key first.
    - Include at least 4-6 sections total.
    - Order the entries exactly as they appear in the HTML.

3. **Build the images dictionary**
    - Keys: must exactly match the keys in paragraphs.
    - Values: a list of absolute, publicly accessible URLs from all <img src="..."> tags within that section.
    - Try to include at least one image URL per section but if a section has no images, use an empty list. DO NOT INCLUDE EMPTY STRINGS IN THE LISTS.
    - Try to include mostly png images.
    - Include as many png images as possible.

4. **Output format**
    {
        "title": "...",
        "paragraphs": {
            "Introduction": "...",
            "Section 1 Heading": "...",
            ...
        },
        "images": {
            "Introduction": ["https://...", ...],
            "Section 1 Heading": [ ... ],
            ...
        }
    }
`

// extractionSchema is the JSON schema advertised alongside the prompt.
const extractionSchema = `{
  "type": "object",
  "properties": {
    "title": {"type": "string"},
    "paragraphs": {"type": "object"},
    "images": {"type": "object"}
  },
  "required": ["title", "paragraphs", "images"]
}`
