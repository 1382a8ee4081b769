package blacklist

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestStaticCheckerSuffixRule(t *testing.T) {
	checker := NewStaticChecker()

	result, err := checker.Check(context.Background(), "123456789010000")
	if err != nil {
		t.Fatalf("Check error: %v", err)
	}
	if !result.Blacklisted {
		t.Fatal("expected IMEI ending in 0000 to be blacklisted")
	}
	if result.Reason == "" {
		t.Fatal("expected a reason for the registry hit")
	}

	result, err = checker.Check(context.Background(), "123456789012345")
	if err != nil {
		t.Fatalf("Check error: %v", err)
	}
	if result.Blacklisted {
		t.Fatal("expected clean IMEI to pass")
	}
}

func TestStaticCheckerExplicitEntry(t *testing.T) {
	checker := NewStaticChecker()
	checker.Add("490154203237518", "insurance fraud report")

	result, err := checker.Check(context.Background(), "490154203237518")
	if err != nil {
		t.Fatalf("Check error: %v", err)
	}
	if !result.Blacklisted || result.Reason != "insurance fraud report" {
		t.Fatalf("unexpected result: %+v", result)
	}
}

func TestHTTPChecker(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/imei/123456789010000":
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"blacklisted":true,"reason":"reported stolen"}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	checker := NewHTTPChecker(server.URL, 2*time.Second)

	result, err := checker.Check(context.Background(), "123456789010000")
	if err != nil {
		t.Fatalf("Check error: %v", err)
	}
	if !result.Blacklisted || result.Reason != "reported stolen" {
		t.Fatalf("unexpected result: %+v", result)
	}

	result, err = checker.Check(context.Background(), "123456789012345")
	if err != nil {
		t.Fatalf("Check error: %v", err)
	}
	if result.Blacklisted {
		t.Fatal("expected 404 to mean not blacklisted")
	}
}

func TestHTTPCheckerTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer server.Close()

	checker := NewHTTPChecker(server.URL, 20*time.Millisecond)

	if _, err := checker.Check(context.Background(), "123456789012345"); err == nil {
		t.Fatal("expected timeout error from slow registry")
	}
}
