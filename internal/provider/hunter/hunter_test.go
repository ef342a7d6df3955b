package hunter

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/foxzi/outreach/internal/metrics"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c := NewClient("test-key", metrics.New(), testLogger())
	c.SetBaseURL(srv.URL)
	return c
}

func TestFindEmail(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/email-finder" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		q := r.URL.Query()
		if q.Get("first_name") != "Jane" || q.Get("last_name") != "van Doe" {
			t.Errorf("unexpected name split: %s / %s", q.Get("first_name"), q.Get("last_name"))
		}
		if q.Get("api_key") != "test-key" {
			t.Error("expected api key in query")
		}
		w.Write([]byte(`{"data":{"email":"jane@acme.example","score":91}}`))
	})

	res, err := c.FindEmail(context.Background(), "Jane van Doe", "Acme")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res == nil || res.Email != "jane@acme.example" || res.Confidence != 91 {
		t.Errorf("unexpected result: %+v", res)
	}
}

func TestFindEmailNoMatch(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	res, err := c.FindEmail(context.Background(), "Jane Doe", "Acme")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res != nil {
		t.Errorf("expected nil result for no match, got %+v", res)
	}
}

func TestFindEmailEmptyEmail(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":{"email":"","score":0}}`))
	})

	res, err := c.FindEmail(context.Background(), "Jane Doe", "Acme")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res != nil {
		t.Errorf("expected nil result for empty email, got %+v", res)
	}
}

func TestFindEmailRetriesAfterRateLimit(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write([]byte(`{"data":{"email":"jane@acme.example","score":80}}`))
	})

	res, err := c.FindEmail(context.Background(), "Jane Doe", "Acme")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res == nil || res.Email != "jane@acme.example" {
		t.Errorf("unexpected result: %+v", res)
	}
	if calls.Load() != 2 {
		t.Errorf("expected 2 attempts, got %d", calls.Load())
	}
}

func TestFindEmailAPIErrorIsPermanent(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"errors":[{"details":"invalid api key"}]}`))
	})

	_, err := c.FindEmail(context.Background(), "Jane Doe", "Acme")
	if err == nil {
		t.Fatal("expected error")
	}
	if calls.Load() != 1 {
		t.Errorf("expected no retries for a permanent error, got %d attempts", calls.Load())
	}
}

func TestSplitName(t *testing.T) {
	tests := []struct {
		in          string
		first, last string
	}{
		{"Jane Doe", "Jane", "Doe"},
		{"Jane", "Jane", ""},
		{"Jane van Doe", "Jane", "van Doe"},
		{"", "", ""},
	}

	for _, tc := range tests {
		first, last := splitName(tc.in)
		if first != tc.first || last != tc.last {
			t.Errorf("splitName(%q) = %q, %q; want %q, %q", tc.in, first, last, tc.first, tc.last)
		}
	}
}
