// Package integration drives a running storefront API over HTTP.
// Set BASE_URL to run it, e.g. BASE_URL=http://localhost:5000.
package integration

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"
	"testing"
	"time"
)

func baseURL(t testing.TB) string {
	t.Helper()
	v := os.Getenv("BASE_URL")
	if v == "" {
		t.Skip("BASE_URL not set")
	}
	return strings.TrimRight(v, "/")
}

func waitReady(t *testing.T) string {
	t.Helper()
	u := baseURL(t)
	deadline := time.Now().Add(20 * time.Second)
	for time.Now().Before(deadline) {
		resp, err := http.Get(u + "/healthz")
		if err == nil {
			_ = resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return u
			}
		}
		time.Sleep(250 * time.Millisecond)
	}
	t.Fatalf("service not ready")
	return ""
}

func postJSON(t *testing.T, url, body string, headers map[string]string) (int, map[string]any) {
	t.Helper()
	r, _ := http.NewRequest(http.MethodPost, url, bytes.NewBufferString(body))
	r.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		r.Header.Set(k, v)
	}
	resp, err := http.DefaultClient.Do(r)
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = resp.Body.Close() }()
	out := map[string]any{}
	_ = json.NewDecoder(resp.Body).Decode(&out)
	return resp.StatusCode, out
}

// uniqueIP keeps each test in its own auth rate-limit bucket when the server
// runs with TRUST_FORWARDED_FOR=true.
func uniqueIP() map[string]string {
	n := time.Now().UnixNano()
	return map[string]string{"X-Forwarded-For": fmt.Sprintf("198.18.%d.%d", (n>>8)%256, n%256)}
}

func TestIntegration_RegisterTwice(t *testing.T) {
	u := waitReady(t)
	email := fmt.Sprintf("it-%d@example.com", time.Now().UnixNano())
	body := fmt.Sprintf(`{"name":"Alice","email":%q,"password":"secret1"}`, email)
	ip := uniqueIP()

	code, resp := postJSON(t, u+"/api/auth/register", body, ip)
	if code != http.StatusCreated {
		t.Fatalf("expected 201, got %d %v", code, resp)
	}
	if tok, _ := resp["token"].(string); tok == "" {
		t.Fatalf("expected token, got %v", resp)
	}
	code, resp = postJSON(t, u+"/api/auth/register", body, ip)
	if code != http.StatusBadRequest || resp["error"] != "Email address already registered" {
		t.Fatalf("expected duplicate rejection, got %d %v", code, resp)
	}
}

func TestIntegration_OrderValidation(t *testing.T) {
	u := waitReady(t)
	code, resp := postJSON(t, u+"/api/orders", `{"items":[]}`, nil)
	if code != http.StatusBadRequest || resp["error"] != "No items" {
		t.Fatalf("expected No items, got %d %v", code, resp)
	}
	code, resp = postJSON(t, u+"/api/orders", `{"items":[{"id":1,"qty":2,"price":500}]}`, nil)
	if code != http.StatusBadRequest || resp["error"] != "Customer information required for guest checkout" {
		t.Fatalf("expected guest info error, got %d %v", code, resp)
	}
}

func TestIntegration_GuestCheckout(t *testing.T) {
	u := waitReady(t)
	code, resp := postJSON(t, u+"/api/orders",
		`{"items":[{"id":1,"qty":2,"price":500}],"customerInfo":{"name":"Bob","email":"bob@x.com"},"address":"1 Main St"}`, nil)
	if code != http.StatusOK {
		t.Fatalf("expected 200, got %d %v", code, resp)
	}
	if id, _ := resp["orderId"].(string); id == "" {
		t.Fatalf("expected orderId, got %v", resp)
	}
}

func TestIntegration_AdminRequiresToken(t *testing.T) {
	u := waitReady(t)
	resp, err := http.Get(u + "/api/admin/analytics")
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}
}

func TestIntegration_CatalogAndDocs(t *testing.T) {
	u := waitReady(t)
	for _, path := range []string{"/api/products", "/api/categories", "/openapi.yaml", "/docs", "/metrics"} {
		resp, err := http.Get(u + path)
		if err != nil {
			t.Fatal(err)
		}
		_ = resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("%s: expected 200, got %d", path, resp.StatusCode)
		}
	}
}
