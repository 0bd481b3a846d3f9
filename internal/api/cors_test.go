package api

import (
	"net/http"
	"testing"
)

func TestCORSPreflightOptions(t *testing.T) {
	env := setupTestServer(t)

	resp := doReq(t, env.server.URL, http.MethodOptions, "/api/trainings", nil)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("preflight status = %d, want %d", resp.StatusCode, http.StatusNoContent)
	}
	if got := resp.Header.Get("Access-Control-Allow-Origin"); got != "*" {
		t.Fatalf("allow origin = %q, want %q", got, "*")
	}
	if got := resp.Header.Get("Access-Control-Allow-Methods"); got != "GET, POST, PUT, DELETE, OPTIONS" {
		t.Fatalf("allow methods = %q", got)
	}
	if got := resp.Header.Get("Access-Control-Max-Age"); got != "86400" {
		t.Fatalf("max age = %q", got)
	}
	if env.upstream.Count() != 0 {
		t.Fatalf("preflight must not reach upstream")
	}
}

func TestCORSHeadersIncludedOnNormalGet(t *testing.T) {
	env := setupTestServer(t)

	resp := doReq(t, env.server.URL, http.MethodGet, "/api/status", nil)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if got := resp.Header.Get("Access-Control-Allow-Origin"); got != "*" {
		t.Fatalf("allow origin = %q", got)
	}
}
