package extract

import (
	"encoding/json"
	"testing"
)

func TestParseContentRejectsBadShapes(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{
			name: "missing title key",
			raw:  `{"paragraphs": {"A": "a", "B": "b", "C": "c"}, "images": {}}`,
		},
		{
			name: "missing images key",
			raw:  `{"title": "X", "paragraphs": {"A": "a", "B": "b", "C": "c"}}`,
		},
		{
			name: "missing paragraphs key",
			raw:  `{"title": "X", "images": {}}`,
		},
		{
			name: "empty title",
			raw:  `{"title": "", "paragraphs": {"A": "a", "B": "b", "C": "c"}, "images": {}}`,
		},
		{
			name: "only two paragraphs",
			raw:  `{"title": "X", "paragraphs": {"A": "a", "B": "b"}, "images": {"A": [], "B": []}}`,
		},
		{
			name: "not an object",
			raw:  `["nope"]`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseContent(json.RawMessage(tt.raw)); err == nil {
				t.Errorf("Expected error for %s", tt.name)
			}
		})
	}
}

func TestParseContentAcceptsMinimalResult(t *testing.T) {
	raw := `{
		"title": "X",
		"paragraphs": {"Intro": "a", "Middle": "b", "End": "c"},
		"images": {"Intro": ["https://example.com/a.png"], "Middle": [], "End": []}
	}`

	content, err := ParseContent(json.RawMessage(raw))
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if content.Title != "X" {
		t.Errorf("Expected title X, got %s", content.Title)
	}
	if len(content.Sections) != 3 {
		t.Fatalf("Expected 3 sections, got %d", len(content.Sections))
	}
	if len(content.Sections[0].Images) != 1 {
		t.Errorf("Expected Intro to keep its image, got %v", content.Sections[0].Images)
	}
}

func TestParseContentPreservesSectionOrder(t *testing.T) {
	// Deliberately not alphabetical: order must follow the document.
	raw := `{
		"title": "X",
		"paragraphs": {"Zebra": "z", "Apple": "a", "Mango": "m", "Introduction": "i"},
		"images": {"Zebra": [], "Apple": [], "Mango": [], "Introduction": []}
	}`

	content, err := ParseContent(json.RawMessage(raw))
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	want := []string{"Zebra", "Apple", "Mango", "Introduction"}
	for i, heading := range want {
		if content.Sections[i].Heading != heading {
			t.Errorf("Section %d: expected %s, got %s", i, heading, content.Sections[i].Heading)
		}
	}
}
