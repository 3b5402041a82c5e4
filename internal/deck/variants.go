package deck

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gorilla/websocket"

	"github.com/hallwaylabs/deckgen/internal/alai"
)

// Outcome classifies one variant negotiation.
type Outcome int

const (
	// OutcomeFailed is a generic negotiation failure, retried by the slide
	// state machine.
	OutcomeFailed Outcome = iota
	// OutcomeImageRejected means the backend refused the uploaded images.
	OutcomeImageRejected
	// OutcomePicked means a variant id was obtained.
	OutcomePicked
)

// imageRejectedPhrase is the backend's validation message when an uploaded
// image is not an accepted format.
const imageRejectedPhrase = "Input should be 'image/jpeg', 'image/png', 'image/gif' or 'image/webp'"

// browserUserAgent mirrors the identity the uploader presents.
const browserUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/134.0.0.0 Safari/537.36"

// variantInstructions is the fixed layout/length guidance sent with every
// variant request.
const variantInstructions = `
Make slides that are engaging and informative with minimal text. Follow these rules for every slide:

Title
- One short relevant title.

Content
- 3-5 bullet points, each <= 8 words.
- One idea per bullet.

Layout depends on image availability in images_on_slide:
- If With image: two-column with text on left and image on right or vice-versa.
- If Without image: centered title + bullets.

If images_on_slide is empty, only then fallback to using text-only layout.
`

// variantRequest is the single outbound frame of a negotiation.
type variantRequest struct {
	AuthToken                            string             `json:"auth_token"`
	PresentationID                       string             `json:"presentation_id"`
	SlideID                              string             `json:"slide_id"`
	SlideSpecificContext                 string             `json:"slide_specific_context"`
	ImagesOnSlide                        []alai.ImageHandle `json:"images_on_slide"`
	AdditionalInstructions               string             `json:"additional_instructions"`
	LayoutType                           string             `json:"layout_type"`
	UpdateToneVerbosityCalibrationStatus bool               `json:"update_tone_verbosity_calibration_status"`
}

// Negotiator drives the streaming variant-generation channel for one slide.
// The backend streams an acknowledgment frame followed by the materialized
// variant, so two frames is the minimum success contract and the second frame
// carries the chosen variant.
type Negotiator struct {
	Endpoint string
	dialer   *websocket.Dialer
}

// NewNegotiator creates a negotiator for the given websocket endpoint.
func NewNegotiator(endpoint string) *Negotiator {
	return &Negotiator{
		Endpoint: endpoint,
		dialer:   websocket.DefaultDialer,
	}
}

// Negotiate requests variants for one slide and blocks until the backend
// closes the stream. It returns the chosen variant id on success; outcomes
// other than OutcomePicked leave the id empty. The error return is reserved
// for dial and send failures, which abort the whole run.
func (n *Negotiator) Negotiate(ctx context.Context, token, presentationID, slideID, slideContext string, images []alai.ImageHandle) (string, Outcome, error) {
	header := http.Header{}
	header.Set("Origin", "https://app.getalai.com")
	header.Set("Accept-Language", "en")
	header.Set("Cache-Control", "no-cache")
	header.Set("Pragma", "no-cache")
	header.Set("User-Agent", browserUserAgent)

	conn, resp, err := n.dialer.DialContext(ctx, n.Endpoint, header)
	if err != nil {
		if resp != nil {
			return "", OutcomeFailed, fmt.Errorf("failed to open variant channel (status %d): %w", resp.StatusCode, err)
		}
		return "", OutcomeFailed, fmt.Errorf("failed to open variant channel: %w", err)
	}
	defer conn.Close()

	if images == nil {
		// The backend distinguishes "no images" by an empty list, not null.
		images = []alai.ImageHandle{}
	}

	request := variantRequest{
		AuthToken:              token,
		PresentationID:         presentationID,
		SlideID:                slideID,
		SlideSpecificContext:   slideContext,
		ImagesOnSlide:          images,
		AdditionalInstructions: variantInstructions,
		LayoutType:             "AI_GENERATED_LAYOUT",
	}
	if err := conn.WriteJSON(request); err != nil {
		return "", OutcomeFailed, fmt.Errorf("failed to send variant request: %w", err)
	}

	// Collect every inbound frame until the backend closes the stream.
	var frames [][]byte
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				slog.Warn("Variant channel closed", "err", err)
			}
			break
		}
		frames = append(frames, data)
	}

	variantID, outcome := classifyFrames(frames)
	return variantID, outcome, nil
}

// classifyFrames applies the positional contract: the first frame is an
// acknowledgment, the second carries the chosen variant. Anything shorter is
// a failure, split into image rejection and everything else.
func classifyFrames(frames [][]byte) (string, Outcome) {
	if len(frames) < 2 {
		if len(frames) > 0 && strings.Contains(string(frames[len(frames)-1]), imageRejectedPhrase) {
			return "", OutcomeImageRejected
		}
		slog.Warn("Variant stream ended before a variant arrived", "frames", len(frames))
		return "", OutcomeFailed
	}

	var variant struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(frames[1], &variant); err != nil || variant.ID == "" {
		slog.Warn("Variant frame did not carry an id")
		return "", OutcomeFailed
	}

	return variant.ID, OutcomePicked
}
