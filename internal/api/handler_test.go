package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestJSONWritesContentTypeAndStatus(t *testing.T) {
	w := httptest.NewRecorder()
	JSON(w, http.StatusCreated, map[string]string{"status": "active"})

	if w.Code != http.StatusCreated {
		t.Errorf("Expected 201, got %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Expected application/json, got %q", ct)
	}

	var body map[string]string
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("Failed to decode body: %v", err)
	}
	if body["status"] != "active" {
		t.Errorf("Expected status active, got %q", body["status"])
	}
}

func TestErrorWritesStructuredBody(t *testing.T) {
	w := httptest.NewRecorder()
	Error(w, http.StatusBadRequest, "missing required field: sessionId")

	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400, got %d", w.Code)
	}

	var body map[string]string
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("Failed to decode body: %v", err)
	}
	if body["error"] != "Bad Request" {
		t.Errorf("Expected error %q, got %q", "Bad Request", body["error"])
	}
	if body["message"] != "missing required field: sessionId" {
		t.Errorf("Unexpected message %q", body["message"])
	}
}

func TestHealthEndpoint(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodGet, "/api/health", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}
	body := decodeBody(t, w)
	if body["status"] != "healthy" {
		t.Errorf("Expected status healthy, got %v", body["status"])
	}
	checks, _ := body["checks"].(map[string]interface{})
	if checks["database"] != "ok" {
		t.Errorf("Expected database check ok, got %v", checks["database"])
	}
}
