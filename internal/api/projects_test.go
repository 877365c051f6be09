package api

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"testing"

	"github.com/acrolabs/flowcap/internal/domain"
)

func createProjectViaAPI(t *testing.T, env *testEnv, title string) map[string]interface{} {
	t.Helper()
	w := env.do(t, http.MethodPost, "/api/projects/", map[string]interface{}{"title": title})
	if w.Code != http.StatusCreated {
		t.Fatalf("create project: expected 201, got %d: %s", w.Code, w.Body.String())
	}
	return decodeBody(t, w)
}

func TestCreateProjectDefaultsToSystemFolder(t *testing.T) {
	env := newTestEnv(t)

	body := createProjectViaAPI(t, env, "My Demo")
	if body["title"] != "My Demo" {
		t.Errorf("Expected title to round-trip, got %v", body["title"])
	}
	if body["uuid"] == "" || body["uuid"] == nil {
		t.Error("Expected a generated uuid")
	}

	folder, err := env.repo.FindSystemFolder(context.Background(), domain.DefaultFolderName)
	if err != nil || folder == nil {
		t.Fatalf("Default folder lookup failed: %v", err)
	}
	if got := body["folderId"]; got != float64(folder.ID) {
		t.Errorf("Expected default folder %d, got %v", folder.ID, got)
	}
}

func TestCreateProjectValidation(t *testing.T) {
	env := newTestEnv(t)

	// Missing title.
	w := env.do(t, http.MethodPost, "/api/projects/", map[string]interface{}{})
	if w.Code != http.StatusBadRequest {
		t.Errorf("missing title: expected 400, got %d", w.Code)
	}

	// Blank title.
	w = env.do(t, http.MethodPost, "/api/projects/", map[string]interface{}{"title": "   "})
	if w.Code != http.StatusBadRequest {
		t.Errorf("blank title: expected 400, got %d", w.Code)
	}

	// Oversized title.
	w = env.do(t, http.MethodPost, "/api/projects/", map[string]interface{}{"title": strings.Repeat("x", 256)})
	if w.Code != http.StatusBadRequest {
		t.Errorf("long title: expected 400, got %d", w.Code)
	}

	// Unknown folder.
	w = env.do(t, http.MethodPost, "/api/projects/", map[string]interface{}{"title": "ok", "folderId": 9999})
	if w.Code != http.StatusBadRequest {
		t.Errorf("unknown folder: expected 400, got %d", w.Code)
	}
}

func TestSoftDeletedProjectDisappearsFromListing(t *testing.T) {
	env := newTestEnv(t)

	created := createProjectViaAPI(t, env, "Doomed")
	id := strconv.Itoa(int(created["id"].(float64)))

	w := env.do(t, http.MethodDelete, "/api/projects/"+id, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("delete: expected 200, got %d: %s", w.Code, w.Body.String())
	}

	// Gone from the default listing.
	w = env.do(t, http.MethodGet, "/api/projects/", nil)
	listing := decodeBody(t, w)
	projects, _ := listing["projects"].([]interface{})
	for _, raw := range projects {
		p := raw.(map[string]interface{})
		if p["title"] == "Doomed" {
			t.Error("Soft-deleted project still listed")
		}
	}

	// But the row survives.
	w = env.do(t, http.MethodGet, "/api/projects/"+id, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("get after delete: expected 200, got %d", w.Code)
	}
	body := decodeBody(t, w)
	if body["deletedAt"] == nil {
		t.Error("Expected deletedAt to be set")
	}
}

func TestUpdateProjectTitleAndFolder(t *testing.T) {
	env := newTestEnv(t)

	created := createProjectViaAPI(t, env, "Before")
	id := strconv.Itoa(int(created["id"].(float64)))

	// Create a destination folder.
	w := env.do(t, http.MethodPost, "/api/folders/", map[string]interface{}{"name": "Work"})
	if w.Code != http.StatusCreated {
		t.Fatalf("create folder: expected 201, got %d", w.Code)
	}
	folderID := decodeBody(t, w)["id"].(float64)

	w = env.do(t, http.MethodPut, "/api/projects/"+id, map[string]interface{}{
		"title":    "After",
		"folderId": folderID,
	})
	if w.Code != http.StatusOK {
		t.Fatalf("update: expected 200, got %d: %s", w.Code, w.Body.String())
	}
	body := decodeBody(t, w)
	if body["title"] != "After" {
		t.Errorf("Expected updated title, got %v", body["title"])
	}
	if body["folderId"] != folderID {
		t.Errorf("Expected updated folder, got %v", body["folderId"])
	}
}

func TestGetMissingProjectIs404(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodGet, "/api/projects/9999", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected 404, got %d", w.Code)
	}

	w = env.do(t, http.MethodGet, "/api/projects/no-such-uuid/details", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("details: expected 404, got %d", w.Code)
	}
}
