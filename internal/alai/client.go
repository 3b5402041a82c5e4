package alai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
)

const appOrigin = "https://app.getalai.com"

// productType tags slides created through the presentation-creator flow.
const productType = "PRESENTATION_CREATOR"

// TokenSource provides a valid bearer token for each request.
type TokenSource interface {
	ValidToken(ctx context.Context) (string, error)
}

// BackendError reports a non-2xx response from the presentation backend.
type BackendError struct {
	Op     string
	Status int
	Body   string
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("%s returned status %d: %s", e.Op, e.Status, e.Body)
}

// Client talks to the Alai presentation backend. All calls fetch a fresh
// token from the TokenSource, so a long run never sends an expired token.
type Client struct {
	BaseURL      string
	ShareBaseURL string
	ThemeID      string
	ColorSetID   int

	tokens     TokenSource
	httpClient *http.Client
}

// NewClient creates a presentation backend client.
func NewClient(tokens TokenSource, baseURL, shareBaseURL, themeID string, colorSetID int) *Client {
	return &Client{
		BaseURL:      baseURL,
		ShareBaseURL: shareBaseURL,
		ThemeID:      themeID,
		ColorSetID:   colorSetID,
		tokens:       tokens,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

// Presentation is the backend's record of a created presentation. Slides
// holds the auto-created first slide.
type Presentation struct {
	ID     string  `json:"id"`
	Slides []Slide `json:"slides"`
}

// Slide is one slide of a presentation.
type Slide struct {
	ID string `json:"id"`
}

// CreatePresentation creates the presentation shell with an auto-created
// first slide. The presentation id is generated client-side.
func (c *Client) CreatePresentation(ctx context.Context, title string) (*Presentation, error) {
	payload := map[string]interface{}{
		"presentation_id":      uuid.NewString(),
		"presentation_title":   title,
		"create_first_slide":   true,
		"theme_id":             c.ThemeID,
		"default_color_set_id": c.ColorSetID,
	}

	body, err := c.postJSON(ctx, "/create-new-presentation", payload)
	if err != nil {
		return nil, err
	}

	var pres Presentation
	if err := json.Unmarshal(body, &pres); err != nil {
		return nil, fmt.Errorf("failed to decode presentation: %w", err)
	}

	return &pres, nil
}

// CreateSlide creates a new slide at the given order index and returns the
// client-generated slide id.
func (c *Client) CreateSlide(ctx context.Context, presentationID string, order int) (string, error) {
	slideID := uuid.NewString()
	payload := map[string]interface{}{
		"slide_id":        slideID,
		"presentation_id": presentationID,
		"product_type":    productType,
		"slide_order":     order,
		"color_set_id":    c.ColorSetID,
	}

	if _, err := c.postJSON(ctx, "/create-new-slide", payload); err != nil {
		return "", err
	}

	return slideID, nil
}

// DeleteSlide removes a slide. The backend ignores unknown ids, and a non-2xx
// response here is not fatal to the run.
func (c *Client) DeleteSlide(ctx context.Context, slideID string) error {
	if _, err := c.postJSON(ctx, "/delete-slides", []string{slideID}); err != nil {
		var backendErr *BackendError
		if errors.As(err, &backendErr) {
			slog.Warn("Slide deletion failed", "slide_id", slideID, "status", backendErr.Status)
			return nil
		}
		return err
	}
	slog.Info("Slide deleted", "slide_id", slideID)
	return nil
}

// PickVariant commits the chosen variant to a slide. A non-2xx response is
// logged and swallowed; the slide keeps whatever the backend last rendered.
func (c *Client) PickVariant(ctx context.Context, slideID, variantID string) error {
	payload := map[string]string{
		"slide_id":   slideID,
		"variant_id": variantID,
	}

	if _, err := c.postJSON(ctx, "/pick-slide-variant", payload); err != nil {
		var backendErr *BackendError
		if errors.As(err, &backendErr) {
			slog.Warn("Picking variant failed", "slide_id", slideID, "variant_id", variantID, "status", backendErr.Status)
			return nil
		}
		return err
	}

	slog.Info("Variant applied", "slide_id", slideID, "variant_id", variantID)
	return nil
}

// ShareLink requests a public share token and composes the share URL. The
// backend returns the token as a quoted JSON string.
func (c *Client) ShareLink(ctx context.Context, presentationID string) (string, error) {
	payload := map[string]string{"presentation_id": presentationID}

	body, err := c.postJSON(ctx, "/upsert-presentation-share", payload)
	if err != nil {
		return "", err
	}

	token := strings.Trim(strings.TrimSpace(string(body)), `"`)
	if token == "" {
		return "", fmt.Errorf("share endpoint returned an empty token")
	}

	return c.ShareBaseURL + "/" + token, nil
}

// postJSON sends one authenticated JSON request and returns the raw response
// body, or a BackendError on a non-2xx status.
func (c *Client) postJSON(ctx context.Context, path string, payload interface{}) ([]byte, error) {
	token, err := c.tokens.ValidToken(ctx)
	if err != nil {
		return nil, err
	}

	requestBody, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.BaseURL+path, bytes.NewBuffer(requestBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create new request: %w", err)
	}
	req.Header.Set("Accept", "*/*")
	req.Header.Set("Accept-Language", "en")
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Origin", appOrigin)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &BackendError{Op: path, Status: resp.StatusCode, Body: string(body)}
	}

	return body, nil
}
