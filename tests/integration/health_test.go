//go:build integration

package integration

import (
	"net/http"
	"testing"
)

func TestHealthEndpoints(t *testing.T) {
	for _, path := range []string{"/livez", "/readyz"} {
		t.Run(path, func(t *testing.T) {
			resp := doGet(t, path)
			defer resp.Body.Close()

			if resp.StatusCode != http.StatusOK {
				t.Fatalf("expected 200, got %d", resp.StatusCode)
			}
			if ct := resp.Header.Get("Content-Type"); ct != "application/json" {
				t.Errorf("Content-Type: got %q, want application/json", ct)
			}

			body := decodeJSON[healthResponse](t, resp)
			if body.Status != "ok" {
				t.Fatalf("expected status ok, got %q", body.Status)
			}
			if len(body.Checks) != 0 {
				t.Errorf("failing checks reported: %v", body.Checks)
			}
		})
	}
}

func TestHealthEndpoints_MethodNotAllowed(t *testing.T) {
	resp := doPost(t, "/livez", map[string]string{})
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", resp.StatusCode)
	}
}
