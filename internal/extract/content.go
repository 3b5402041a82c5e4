package extract

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Section is one heading with its paragraph text and the image URLs found
// under it.
type Section struct {
	Heading string
	Body    string
	Images  []string
}

// Content is the structured result of a webpage extraction. Sections keep the
// order they had in the source document.
type Content struct {
	Title    string
	Sections []Section
}

func (c *Content) imageCount() int {
	total := 0
	for _, s := range c.Sections {
		total += len(s.Images)
	}
	return total
}

// ParseContent validates a raw extraction payload against the acceptance
// contract (title, paragraphs and images keys present, non-empty title, more
// than two paragraph entries) and converts it into ordered sections. Image
// URLs are joined to paragraphs by heading; a heading with no images entry
// gets an empty list.
func ParseContent(raw json.RawMessage) (*Content, error) {
	var payload map[string]json.RawMessage
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("extraction result is not a JSON object: %w", err)
	}

	for _, key := range []string{"title", "paragraphs", "images"} {
		if _, ok := payload[key]; !ok {
			return nil, fmt.Errorf("extraction result missing %q key", key)
		}
	}

	var title string
	if err := json.Unmarshal(payload["title"], &title); err != nil {
		return nil, fmt.Errorf("failed to decode title: %w", err)
	}
	if title == "" {
		return nil, fmt.Errorf("extraction result has empty title")
	}

	paragraphs, err := orderedParagraphs(payload["paragraphs"])
	if err != nil {
		return nil, fmt.Errorf("failed to decode paragraphs: %w", err)
	}
	if len(paragraphs) <= 2 {
		return nil, fmt.Errorf("extraction result has only %d paragraph entries", len(paragraphs))
	}

	var images map[string][]string
	if err := json.Unmarshal(payload["images"], &images); err != nil {
		return nil, fmt.Errorf("failed to decode images: %w", err)
	}

	content := &Content{Title: title}
	for _, p := range paragraphs {
		content.Sections = append(content.Sections, Section{
			Heading: p.heading,
			Body:    p.body,
			Images:  images[p.heading],
		})
	}

	return content, nil
}

type paragraph struct {
	heading string
	body    string
}

// orderedParagraphs decodes a JSON object of heading → body text while
// preserving the key order of the document. encoding/json maps lose ordering,
// and section order must match the source page.
func orderedParagraphs(raw json.RawMessage) ([]paragraph, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))

	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, fmt.Errorf("paragraphs is not a JSON object")
	}

	var out []paragraph
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		heading, ok := keyTok.(string)
		if !ok {
			return nil, fmt.Errorf("unexpected paragraphs key token %v", keyTok)
		}

		var body string
		if err := dec.Decode(&body); err != nil {
			return nil, fmt.Errorf("paragraph %q is not a string: %w", heading, err)
		}

		out = append(out, paragraph{heading: heading, body: body})
	}

	return out, nil
}
