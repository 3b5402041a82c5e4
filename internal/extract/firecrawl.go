package extract

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Firecrawl is an extraction provider backed by the Firecrawl extract API.
type Firecrawl struct {
	apiKey     string
	url        string
	httpClient *http.Client
}

// NewFirecrawl returns a Firecrawl provider.
func NewFirecrawl(apiKey, url string) *Firecrawl {
	return &Firecrawl{
		apiKey: apiKey,
		url:    url,
		httpClient: &http.Client{
			Timeout: 120 * time.Second,
		},
	}
}

// Extract runs one structured extraction of the given page.
func (f *Firecrawl) Extract(ctx context.Context, pageURL string) (json.RawMessage, error) {
	if f.apiKey == "" {
		return nil, fmt.Errorf("FIRECRAWL_API_KEY environment variable not set")
	}

	requestBody, err := json.Marshal(map[string]interface{}{
		"urls":   []string{pageURL},
		"prompt": extractionPrompt,
		"schema": json.RawMessage(extractionSchema),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", f.url, bytes.NewBuffer(requestBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+f.apiKey)

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("received non-200 status code: %d - %s", resp.StatusCode, string(body))
	}

	var response struct {
		Success bool            `json:"success"`
		Data    json.RawMessage `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return nil, fmt.Errorf("failed to decode response body: %w", err)
	}

	if !response.Success {
		return nil, fmt.Errorf("firecrawl reported an unsuccessful extraction")
	}

	return response.Data, nil
}
