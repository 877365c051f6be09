package api

import (
	"context"
	"net/http"
	"strconv"
	"testing"

	"github.com/acrolabs/flowcap/internal/domain"
)

func seedStep(t *testing.T, env *testEnv) *domain.Step {
	t.Helper()
	ctx := context.Background()

	folder, err := env.repo.FindSystemFolder(ctx, domain.DefaultFolderName)
	if err != nil || folder == nil {
		t.Fatalf("Default folder lookup failed: %v", err)
	}
	project := &domain.Project{
		Title:    "Scripted",
		FolderID: folder.ID,
	}
	if err := env.repo.CreateProject(ctx, project); err != nil {
		t.Fatalf("Failed to create project: %v", err)
	}
	step := &domain.Step{
		ProjectID:      project.ID,
		OrderIndex:     1,
		ActionType:     domain.ActionClick,
		TargetText:     "Save",
		ScriptText:     "Click on Save",
		AudioURL:       "/static/audio/original.mp3",
		ImageURL:       "/static/images/img-1.png",
		PosX:           10,
		PosY:           20,
		DurationFrames: 150,
	}
	if err := env.repo.CreateStep(ctx, step); err != nil {
		t.Fatalf("Failed to create step: %v", err)
	}
	return step
}

func TestUpdateScriptResynthesizesAudio(t *testing.T) {
	env := newTestEnv(t)
	step := seedStep(t, env)
	id := strconv.FormatInt(step.ID, 10)

	w := env.do(t, http.MethodPost, "/api/steps/"+id+"/update_script", map[string]interface{}{
		"scriptText": "Click on the Save button",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}
	body := decodeBody(t, w)
	if body["scriptText"] != "Click on the Save button" {
		t.Errorf("Expected updated script, got %v", body["scriptText"])
	}
	if body["audioUrl"] != "/static/audio/audio.mp3" {
		t.Errorf("Expected re-synthesized audio, got %v", body["audioUrl"])
	}
	if body["durationFrames"] != float64(120) {
		t.Errorf("Expected re-synthesized duration, got %v", body["durationFrames"])
	}
	if body["warning"] != nil {
		t.Errorf("Unexpected warning: %v", body["warning"])
	}

	persisted, err := env.repo.GetStep(context.Background(), step.ID)
	if err != nil || persisted == nil {
		t.Fatalf("Failed to reload step: %v", err)
	}
	if persisted.ScriptText != "Click on the Save button" {
		t.Errorf("Expected persisted script, got %q", persisted.ScriptText)
	}
	if persisted.DurationFrames != 120 {
		t.Errorf("Expected persisted duration 120, got %d", persisted.DurationFrames)
	}
}

func TestUpdateScriptSynthesisFailureKeepsOldAudio(t *testing.T) {
	env := newTestEnv(t)
	step := seedStep(t, env)
	env.tts.fail = true
	id := strconv.FormatInt(step.ID, 10)

	w := env.do(t, http.MethodPost, "/api/steps/"+id+"/update_script", map[string]interface{}{
		"scriptText": "New narration",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("Expected degraded success 200, got %d: %s", w.Code, w.Body.String())
	}
	body := decodeBody(t, w)
	if body["warning"] == nil {
		t.Error("Expected a warning on degraded success")
	}
	if body["audioUrl"] != "/static/audio/original.mp3" {
		t.Errorf("Expected old audio to be kept, got %v", body["audioUrl"])
	}
	if body["durationFrames"] != float64(150) {
		t.Errorf("Expected old duration to be kept, got %v", body["durationFrames"])
	}

	persisted, err := env.repo.GetStep(context.Background(), step.ID)
	if err != nil || persisted == nil {
		t.Fatalf("Failed to reload step: %v", err)
	}
	if persisted.ScriptText != "New narration" {
		t.Errorf("Expected text to update despite synthesis failure, got %q", persisted.ScriptText)
	}
	if persisted.AudioURL != "/static/audio/original.mp3" {
		t.Errorf("Expected persisted audio unchanged, got %q", persisted.AudioURL)
	}
}

func TestUpdateScriptValidation(t *testing.T) {
	env := newTestEnv(t)
	step := seedStep(t, env)
	id := strconv.FormatInt(step.ID, 10)

	w := env.do(t, http.MethodPost, "/api/steps/"+id+"/update_script", map[string]interface{}{})
	if w.Code != http.StatusBadRequest {
		t.Errorf("missing scriptText: expected 400, got %d", w.Code)
	}

	w = env.do(t, http.MethodPost, "/api/steps/"+id+"/update_script", map[string]interface{}{
		"scriptText": "   ",
	})
	if w.Code != http.StatusBadRequest {
		t.Errorf("blank scriptText: expected 400, got %d", w.Code)
	}

	w = env.do(t, http.MethodPost, "/api/steps/9999/update_script", map[string]interface{}{
		"scriptText": "valid",
	})
	if w.Code != http.StatusNotFound {
		t.Errorf("missing step: expected 404, got %d", w.Code)
	}
}
