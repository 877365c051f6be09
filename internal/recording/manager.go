// Package recording owns the in-process lifecycle of capture sessions:
// chunk ingestion, lazy project creation, and the stop/finish/poll
// finalize protocol.
package recording

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/acrolabs/flowcap/internal/domain"
	"github.com/acrolabs/flowcap/internal/media"
	"github.com/acrolabs/flowcap/internal/narration"
	"github.com/acrolabs/flowcap/internal/store"
	"github.com/google/uuid"
)

// Status is a session's position in the recording lifecycle.
type Status string

const (
	StatusActive     Status = "active"
	StatusUploading  Status = "uploading"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
)

// ErrUnknownSession is returned when a session ID is not in the live map.
// Status lookups never return it: an absent session reads as completed.
var ErrUnknownSession = errors.New("unknown session")

// ValidationError marks client input the caller must fix.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// Chunk is one captured interaction plus its screenshot payload.
type Chunk struct {
	SessionID  string
	OrderIndex int
	ActionType string
	TargetText string
	PosX       int
	PosY       int
	Screenshot string
}

// ChunkResult reports a persisted step. Warning is set when narration
// synthesis failed and the step fell back to the default duration.
type ChunkResult struct {
	StepID   int64
	ImageURL string
	Warning  string
}

// StopResult is the client-facing outcome of stopping a recording.
type StopResult struct {
	ProjectID   int64
	ProjectUUID string
	RedirectURL string
	Status      Status
}

// StatusResult reports finalize progress. Project identity and step
// count are only present on the poll that performs the finalize.
type StatusResult struct {
	Status      Status
	ProjectID   int64
	ProjectUUID string
	StepCount   int
}

// session is the ephemeral per-recording state. Its mutex serializes
// the lazy project create and all field mutation; the manager's mutex
// only guards the map itself.
type session struct {
	mu            sync.Mutex
	id            string
	projectID     int64
	projectUUID   string
	stepCount     int
	firstImageURL string
	status        Status
	lastActivity  time.Time
}

// Manager owns the sessionID -> session map and orchestrates media
// storage, narration synthesis and persistence for each chunk.
type Manager struct {
	mu       sync.Mutex
	sessions map[string]*session

	repo        store.Repository
	media       media.Store
	tts         narration.Synthesizer
	frontendURL string

	now   func() time.Time
	newID func() string
}

// NewManager creates a recording session manager. frontendURL is the
// base for editor redirect targets returned by Stop.
func NewManager(repo store.Repository, mediaStore media.Store, tts narration.Synthesizer, frontendURL string) *Manager {
	return &Manager{
		sessions:    make(map[string]*session),
		repo:        repo,
		media:       mediaStore,
		tts:         tts,
		frontendURL: frontendURL,
		now:         time.Now,
		newID:       uuid.NewString,
	}
}

// Start creates a new active session and returns its opaque ID.
func (m *Manager) Start() string {
	id := m.newID()

	m.mu.Lock()
	m.sessions[id] = &session{
		id:           id,
		status:       StatusActive,
		lastActivity: m.now(),
	}
	m.mu.Unlock()

	slog.Info("Started recording session", "session_id", id)
	return id
}

// Count returns the number of live sessions.
func (m *Manager) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

func (m *Manager) lookup(id string) *session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sessions[id]
}

// UploadChunk ingests one captured interaction: stores the screenshot,
// lazily creates the backing project on the first chunk, synthesizes
// narration, and persists the step. Chunks are accepted in any session
// status; uploads legally race with stop and finish.
func (m *Manager) UploadChunk(ctx context.Context, c Chunk) (*ChunkResult, error) {
	action, err := domain.ParseActionType(c.ActionType)
	if err != nil {
		return nil, &ValidationError{Message: err.Error()}
	}

	s := m.lookup(c.SessionID)
	if s == nil {
		return nil, ErrUnknownSession
	}

	imageURL, err := m.media.SaveImage(c.Screenshot)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.lastActivity = m.now()
	if s.firstImageURL == "" {
		s.firstImageURL = imageURL
	}
	if s.projectID == 0 {
		// First chunk for this session. Holding the session lock makes
		// the create-if-absent atomic: concurrent first chunks get one
		// project, not two.
		if err := m.createProject(ctx, s); err != nil {
			s.mu.Unlock()
			return nil, err
		}
	}
	projectID := s.projectID
	s.mu.Unlock()

	script := domain.ScriptFor(action, c.TargetText)

	var audioURL string
	durationFrames := domain.DefaultDurationFrames
	warning := ""
	if res, ttsErr := m.tts.Synthesize(ctx, script); ttsErr != nil {
		// Narration is enhancement, not correctness. The step still
		// persists with the fallback duration.
		slog.Warn("Narration synthesis failed, using fallback duration",
			"session_id", c.SessionID, "error", ttsErr)
		warning = "narration synthesis failed, using default duration"
	} else {
		audioURL = res.AudioURL
		durationFrames = res.DurationFrames
	}

	step := &domain.Step{
		ProjectID:      projectID,
		OrderIndex:     c.OrderIndex,
		ActionType:     action,
		TargetText:     c.TargetText,
		ScriptText:     script,
		AudioURL:       audioURL,
		ImageURL:       imageURL,
		PosX:           c.PosX,
		PosY:           c.PosY,
		DurationFrames: durationFrames,
	}
	if err := m.repo.CreateStep(ctx, step); err != nil {
		return nil, fmt.Errorf("persist step: %w", err)
	}

	s.mu.Lock()
	s.stepCount++
	count := s.stepCount
	s.mu.Unlock()

	slog.Info("Saved recording step",
		"session_id", c.SessionID, "step_id", step.ID, "order_index", c.OrderIndex, "step_count", count)

	return &ChunkResult{StepID: step.ID, ImageURL: imageURL, Warning: warning}, nil
}

// createProject creates the durable project backing a session, assigned
// to the default system folder. Caller must hold s.mu.
func (m *Manager) createProject(ctx context.Context, s *session) error {
	folder, err := m.repo.FindSystemFolder(ctx, domain.DefaultFolderName)
	if err != nil {
		return fmt.Errorf("find default folder: %w", err)
	}
	if folder == nil {
		// Self-healing: recreate the seed folder if it went missing.
		folder, err = m.repo.CreateFolder(ctx, domain.DefaultFolderName, domain.FolderTypeSystem)
		if err != nil {
			return fmt.Errorf("create default folder: %w", err)
		}
	}

	project := &domain.Project{
		Title:     domain.NewProjectTitle(m.now()),
		FolderID:  folder.ID,
		CreatedAt: m.now(),
	}
	if err := m.repo.CreateProject(ctx, project); err != nil {
		return fmt.Errorf("create project: %w", err)
	}

	s.projectID = project.ID
	s.projectUUID = project.UUID

	slog.Info("Created project for recording session",
		"session_id", s.id, "project_id", project.ID, "uuid", project.UUID)
	return nil
}

// Stop records the user's intent to end the recording. The session
// moves to uploading and stays alive: chunk uploads queued by the
// client may still be in flight. A session with no ingested steps gets
// an empty project so the client always has something to redirect to.
func (m *Manager) Stop(ctx context.Context, sessionID string) (*StopResult, error) {
	s := m.lookup(sessionID)
	if s == nil {
		return nil, ErrUnknownSession
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.lastActivity = m.now()
	if s.projectID == 0 {
		if err := m.createProject(ctx, s); err != nil {
			return nil, err
		}
	}
	s.status = StatusUploading

	slog.Info("Stopped recording session",
		"session_id", sessionID, "project_id", s.projectID, "step_count", s.stepCount)

	return &StopResult{
		ProjectID:   s.projectID,
		ProjectUUID: s.projectUUID,
		RedirectURL: m.frontendURL + "/editor/" + s.projectUUID,
		Status:      StatusUploading,
	}, nil
}

// Finish signals that the client has no more chunks in flight. The
// session moves from uploading to processing; any other status is left
// untouched so a stray finish cannot skip states.
func (m *Manager) Finish(sessionID string) (Status, error) {
	s := m.lookup(sessionID)
	if s == nil {
		return "", ErrUnknownSession
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.lastActivity = m.now()
	if s.status == StatusUploading {
		s.status = StatusProcessing
		slog.Info("Recording session uploads finished", "session_id", sessionID)
	}

	return StatusProcessing, nil
}

// Status reports finalize progress. While the session is still
// accepting uploads the caller sees a single "processing" state. The
// first poll after finish performs the one-time finalize: derive the
// project thumbnail, drop the session, report completed. An absent
// session is indistinguishable from an already-finalized one, which is
// what makes polling safe to repeat.
func (m *Manager) Status(ctx context.Context, sessionID string) *StatusResult {
	s := m.lookup(sessionID)
	if s == nil {
		return &StatusResult{Status: StatusCompleted}
	}

	s.mu.Lock()
	s.lastActivity = m.now()
	if s.status != StatusProcessing {
		s.mu.Unlock()
		return &StatusResult{Status: StatusProcessing}
	}

	m.finalize(ctx, s)

	result := &StatusResult{
		Status:      StatusCompleted,
		ProjectID:   s.projectID,
		ProjectUUID: s.projectUUID,
		StepCount:   s.stepCount,
	}
	s.mu.Unlock()

	m.mu.Lock()
	delete(m.sessions, sessionID)
	m.mu.Unlock()

	slog.Info("Recording session completed",
		"session_id", sessionID, "project_id", result.ProjectID, "step_count", result.StepCount)

	return result
}

// finalize derives the project thumbnail from the first screenshot.
// Failures are swallowed: the project is usable without a thumbnail and
// the caller must still see completed. Caller must hold s.mu.
func (m *Manager) finalize(ctx context.Context, s *session) {
	if s.firstImageURL == "" || s.projectID == 0 {
		return
	}

	project, err := m.repo.GetProject(ctx, s.projectID)
	if err != nil || project == nil {
		slog.Warn("Could not load project during finalize", "session_id", s.id, "error", err)
		return
	}
	if project.ThumbnailURL != "" {
		return
	}

	thumbURL, err := m.media.Thumbnail(s.firstImageURL)
	if err != nil {
		slog.Warn("Thumbnail derivation failed", "session_id", s.id, "error", err)
		return
	}
	if err := m.repo.SetProjectThumbnail(ctx, s.projectID, thumbURL); err != nil {
		slog.Warn("Could not persist thumbnail", "session_id", s.id, "error", err)
		return
	}

	slog.Info("Generated project thumbnail",
		"session_id", s.id, "project_id", s.projectID, "thumbnail_url", thumbURL)
}

// ExpireIdle drops sessions with no activity for longer than ttl and
// returns how many were removed. An expired session behaves as absent
// afterwards: polls read completed, uploads get ErrUnknownSession.
func (m *Manager) ExpireIdle(ttl time.Duration) int {
	threshold := m.now().Add(-ttl)

	m.mu.Lock()
	defer m.mu.Unlock()

	expired := 0
	for id, s := range m.sessions {
		s.mu.Lock()
		idle := s.lastActivity.Before(threshold)
		status := s.status
		s.mu.Unlock()

		if idle {
			delete(m.sessions, id)
			expired++
			slog.Info("Expired idle recording session", "session_id", id, "status", string(status))
		}
	}
	return expired
}
