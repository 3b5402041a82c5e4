package deck

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/gorilla/websocket"

	"github.com/hallwaylabs/deckgen/internal/alai"
	"github.com/hallwaylabs/deckgen/internal/extract"
)

// TestSessionEndToEnd runs the full pipeline against fake HTTP and websocket
// backends: three sections, each with one image, every negotiation succeeding
// on the first attempt.
func TestSessionEndToEnd(t *testing.T) {
	var mu sync.Mutex
	var slideCreates int
	var negotiatedContexts []string

	mux := http.NewServeMux()
	mux.HandleFunc("/img.png", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		w.Write([]byte("png-bytes"))
	})
	mux.HandleFunc("/create-new-presentation", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"id":     "pres-1",
			"slides": []map[string]string{{"id": "slide-0"}},
		})
	})
	mux.HandleFunc("/upload-images-for-slide-generation", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"images": []map[string]string{{"id": "handle-1"}},
		})
	})
	mux.HandleFunc("/create-new-slide", func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		slideCreates++
		mu.Unlock()
		w.Write([]byte("{}"))
	})
	mux.HandleFunc("/pick-slide-variant", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("{}"))
	})
	mux.HandleFunc("/delete-slides", func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("No slide should be deleted in the happy path")
	})
	mux.HandleFunc("/upsert-presentation-share", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`"abc123"`))
	})

	upgrader := websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}
	mux.HandleFunc("/ws/create-and-stream-slide-variants", func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("Upgrade failed: %v", err)
			return
		}
		defer conn.Close()

		var req variantRequest
		if err := conn.ReadJSON(&req); err != nil {
			t.Errorf("Failed to read request frame: %v", err)
			return
		}
		mu.Lock()
		negotiatedContexts = append(negotiatedContexts, req.SlideSpecificContext)
		mu.Unlock()

		conn.WriteMessage(websocket.TextMessage, []byte(`{"status": "ack"}`))
		conn.WriteMessage(websocket.TextMessage, []byte(`{"id": "variant-1"}`))
		conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	})

	srv := httptest.NewServer(mux)
	defer srv.Close()

	session := &Session{
		Tokens:   staticTokens("tok"),
		Client:   alai.NewClient(staticTokens("tok"), srv.URL, "https://app.getalai.com/view", "theme-1", 0),
		Variants: NewNegotiator(wsURL(srv) + "/ws/create-and-stream-slide-variants"),
	}

	content := &extract.Content{
		Title: "Hello",
		Sections: []extract.Section{
			{Heading: "History", Body: "h", Images: []string{srv.URL + "/img.png"}},
			{Heading: "Introduction", Body: "i", Images: []string{srv.URL + "/img.png"}},
			{Heading: "Facts", Body: "f", Images: []string{srv.URL + "/img.png"}},
		},
	}

	link, err := session.Run(context.Background(), content)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if link != "https://app.getalai.com/view/abc123" {
		t.Errorf("Unexpected share link %s", link)
	}

	// Three sections: the first rides the implicit slide, so at most two
	// explicit creations.
	if slideCreates > 2 {
		t.Errorf("Expected at most 2 slide creations, got %d", slideCreates)
	}

	if len(negotiatedContexts) != 3 {
		t.Fatalf("Expected 3 negotiations, got %d", len(negotiatedContexts))
	}
	if negotiatedContexts[0] != "Introduction: i" {
		t.Errorf("Expected Introduction first, got %q", negotiatedContexts[0])
	}
}
