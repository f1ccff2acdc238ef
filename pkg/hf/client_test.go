package hf

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestClassifyText(t *testing.T) {
	var gotPath, gotAuth, gotInput string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		var req classifyRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		gotInput = req.Inputs
		w.Write([]byte(`[[{"label":"joy","score":0.9},{"label":"neutral","score":0.06},{"label":"anger","score":0.04}]]`))
	}))
	defer srv.Close()

	c, err := NewClient(srv.URL, "secret", time.Second)
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}

	scores, err := c.ClassifyText(context.Background(), "", "", "what a lovely day")
	if err != nil {
		t.Fatalf("ClassifyText failed: %v", err)
	}

	if gotPath != "/models/"+DefaultModel {
		t.Errorf("Unexpected path %s", gotPath)
	}
	if gotAuth != "Bearer secret" {
		t.Errorf("Unexpected auth header %q", gotAuth)
	}
	if gotInput != "what a lovely day" {
		t.Errorf("Unexpected input %q", gotInput)
	}
	if len(scores) != 3 {
		t.Fatalf("Expected 3 scores, got %d", len(scores))
	}
	if scores[0].Emotion != "anger" || scores[1].Emotion != "joy" {
		t.Errorf("Expected canonical label order, got %+v", scores)
	}
}

func TestClassifyTextFlatResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"label":"fear","score":0.5},{"label":"surprise","score":0.5}]`))
	}))
	defer srv.Close()

	c, _ := NewClient(srv.URL, "", 0)
	scores, err := c.ClassifyText(context.Background(), "local/model", "", "eek")
	if err != nil {
		t.Fatalf("ClassifyText failed: %v", err)
	}
	if len(scores) != 2 {
		t.Errorf("Expected 2 scores, got %d", len(scores))
	}
}

func TestClassifyTextServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model loading", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c, _ := NewClient(srv.URL, "", time.Second)
	if _, err := c.ClassifyText(context.Background(), "", "", "hello"); err == nil {
		t.Error("Expected error for 503 response")
	}
}

func TestNewClientRejectsInvalidURL(t *testing.T) {
	if _, err := NewClient("localhost:8080", "", 0); err == nil {
		t.Error("Expected error for URL without scheme")
	}
}
