package search

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c := NewClient("test-key", testLogger())
	c.SetEndpoint(srv.URL)
	return c
}

func TestSearch(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		if r.Header.Get("X-API-KEY") != "test-key" {
			t.Error("expected api key header")
		}

		var req searchRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("failed to decode request: %v", err)
		}
		if req.Q != "SaaS founders Berlin" || req.Num != 10 {
			t.Errorf("unexpected request: %+v", req)
		}

		w.Write([]byte(`{"organic":[
			{"title":"Jane Doe - CEO","link":"https://acme.example","snippet":"Founder of Acme","attributes":{"company":"Acme"}},
			{"title":"John Roe","link":"https://roe.example","snippet":"CTO"}
		]}`))
	})

	results, err := c.Search(context.Background(), "SaaS founders Berlin", 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].Title != "Jane Doe - CEO" || results[0].Company != "Acme" || results[0].URL != "https://acme.example" {
		t.Errorf("unexpected result: %+v", results[0])
	}
	if results[1].Company != "" {
		t.Errorf("expected empty company when attributes missing, got %q", results[1].Company)
	}
}

func TestSearchCapsResults(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"organic":[
			{"title":"a","link":"https://a.example"},
			{"title":"b","link":"https://b.example"},
			{"title":"c","link":"https://c.example"}
		]}`))
	})

	results, err := c.Search(context.Background(), "founders", 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 2 {
		t.Errorf("expected results capped at 2, got %d", len(results))
	}
}

func TestSearchErrorStatus(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	})

	if _, err := c.Search(context.Background(), "founders", 5); err == nil {
		t.Fatal("expected error for non-200 status")
	}
}
