package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func doCORS(origins []string, method, origin string) *httptest.ResponseRecorder {
	handler := CORS(origins)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	req := httptest.NewRequest(method, "/api/health", nil)
	if origin != "" {
		req.Header.Set("Origin", origin)
	}
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	return w
}

func TestCORSAllowsListedOrigin(t *testing.T) {
	w := doCORS([]string{"https://app.example.com"}, http.MethodGet, "https://app.example.com")

	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "https://app.example.com" {
		t.Errorf("Expected allow-origin header, got %q", got)
	}
	if w.Code != http.StatusTeapot {
		t.Errorf("Expected handler to run, got %d", w.Code)
	}
}

func TestCORSWildcardEchoesOrigin(t *testing.T) {
	w := doCORS([]string{"*"}, http.MethodGet, "chrome-extension://abcdef")

	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "chrome-extension://abcdef" {
		t.Errorf("Expected echoed origin, got %q", got)
	}
}

func TestCORSSkipsUnlistedOrigin(t *testing.T) {
	w := doCORS([]string{"https://app.example.com"}, http.MethodGet, "https://evil.example.com")

	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("Expected no allow-origin header, got %q", got)
	}
}

func TestCORSPreflightShortCircuits(t *testing.T) {
	w := doCORS([]string{"*"}, http.MethodOptions, "https://app.example.com")

	if w.Code != http.StatusOK {
		t.Errorf("Expected preflight 200, got %d", w.Code)
	}
}
