package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/acrolabs/flowcap/internal/domain"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// SQLiteStore implements Repository using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite creates a new SQLite-backed repository.
func NewSQLite(dbPath string) (Repository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	// Open database with WAL mode for better concurrency.
	dsn := dbPath + "?_journal=WAL&_sync=NORMAL&_busy_timeout=5000"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.initSchema(); err != nil {
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	return store, nil
}

func (s *SQLiteStore) initSchema() error {
	query := `
	PRAGMA busy_timeout = 5000;
	PRAGMA foreign_keys = ON;
	CREATE TABLE IF NOT EXISTS folders (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		type TEXT NOT NULL CHECK (type IN ('system', 'user')),
		created_at INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS projects (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		uuid TEXT NOT NULL UNIQUE,
		title TEXT NOT NULL,
		folder_id INTEGER NOT NULL REFERENCES folders(id),
		thumbnail_url TEXT,
		created_at INTEGER NOT NULL,
		deleted_at INTEGER
	);
	CREATE INDEX IF NOT EXISTS idx_projects_folder ON projects(folder_id) WHERE deleted_at IS NULL;

	CREATE TABLE IF NOT EXISTS steps (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		project_id INTEGER NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
		order_index INTEGER NOT NULL,
		action_type TEXT NOT NULL CHECK (action_type IN ('click', 'scroll')),
		target_text TEXT,
		script_text TEXT NOT NULL,
		audio_url TEXT,
		image_url TEXT NOT NULL,
		pos_x INTEGER NOT NULL,
		pos_y INTEGER NOT NULL,
		duration_frames INTEGER NOT NULL DEFAULT 90
	);
	CREATE INDEX IF NOT EXISTS idx_steps_project ON steps(project_id, order_index);
	`
	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// Ping verifies database connectivity.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close database: %w", err)
	}
	return nil
}

// ListFolders returns all folders ordered by creation time.
func (s *SQLiteStore) ListFolders(ctx context.Context) ([]*domain.Folder, error) {
	query := `SELECT id, name, type, created_at FROM folders ORDER BY created_at ASC, id ASC`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query folders: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			slog.Warn("failed to close folder rows", "error", closeErr)
		}
	}()

	var folders []*domain.Folder
	for rows.Next() {
		folder, err := scanFolder(rows)
		if err != nil {
			return nil, err
		}
		folders = append(folders, folder)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate folders: %w", err)
	}

	return folders, nil
}

// GetFolder retrieves a folder by ID.
func (s *SQLiteStore) GetFolder(ctx context.Context, id int64) (*domain.Folder, error) {
	query := `SELECT id, name, type, created_at FROM folders WHERE id = ?`

	folder, err := scanFolder(s.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return folder, nil
}

// CreateFolder inserts a new folder.
func (s *SQLiteStore) CreateFolder(ctx context.Context, name string, typ domain.FolderType) (*domain.Folder, error) {
	now := time.Now()
	query := `INSERT INTO folders (name, type, created_at) VALUES (?, ?, ?)`

	result, err := s.db.ExecContext(ctx, query, name, string(typ), now.Unix())
	if err != nil {
		return nil, fmt.Errorf("insert folder: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("folder insert id: %w", err)
	}

	return &domain.Folder{ID: id, Name: name, Type: typ, CreatedAt: now}, nil
}

// RenameFolder updates a folder's name.
func (s *SQLiteStore) RenameFolder(ctx context.Context, id int64, name string) error {
	result, err := s.db.ExecContext(ctx, `UPDATE folders SET name = ? WHERE id = ?`, name, id)
	if err != nil {
		return fmt.Errorf("rename folder: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteFolder hard-deletes a folder unless it is a system folder.
func (s *SQLiteStore) DeleteFolder(ctx context.Context, id int64) error {
	folder, err := s.GetFolder(ctx, id)
	if err != nil {
		return err
	}
	if folder == nil {
		return ErrNotFound
	}
	if folder.IsSystem() {
		return ErrSystemFolder
	}

	if _, err := s.db.ExecContext(ctx, `DELETE FROM folders WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete folder: %w", err)
	}
	return nil
}

// FindSystemFolder retrieves a system folder by name.
func (s *SQLiteStore) FindSystemFolder(ctx context.Context, name string) (*domain.Folder, error) {
	query := `SELECT id, name, type, created_at FROM folders WHERE name = ? AND type = 'system'`

	folder, err := scanFolder(s.db.QueryRowContext(ctx, query, name))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return folder, nil
}

// EnsureSystemFolders seeds the default and trash folders if missing.
func (s *SQLiteStore) EnsureSystemFolders(ctx context.Context) error {
	for _, name := range []string{domain.DefaultFolderName, domain.TrashFolderName} {
		folder, err := s.FindSystemFolder(ctx, name)
		if err != nil {
			return err
		}
		if folder != nil {
			continue
		}
		if _, err := s.CreateFolder(ctx, name, domain.FolderTypeSystem); err != nil {
			return fmt.Errorf("seed system folder %q: %w", name, err)
		}
		slog.Info("Seeded system folder", "name", name)
	}
	return nil
}

// CreateProject inserts a project, assigning a UUID if the caller left it empty.
func (s *SQLiteStore) CreateProject(ctx context.Context, p *domain.Project) error {
	if p.UUID == "" {
		p.UUID = uuid.NewString()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now()
	}

	query := `
	INSERT INTO projects (uuid, title, folder_id, thumbnail_url, created_at, deleted_at)
	VALUES (?, ?, ?, ?, ?, NULL)`

	var thumbnail interface{}
	if p.ThumbnailURL != "" {
		thumbnail = p.ThumbnailURL
	}

	result, err := s.db.ExecContext(ctx, query, p.UUID, p.Title, p.FolderID, thumbnail, p.CreatedAt.Unix())
	if err != nil {
		return fmt.Errorf("insert project: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("project insert id: %w", err)
	}
	p.ID = id
	return nil
}

const projectColumns = `id, uuid, title, folder_id, thumbnail_url, created_at, deleted_at`

// GetProject retrieves a project by ID.
func (s *SQLiteStore) GetProject(ctx context.Context, id int64) (*domain.Project, error) {
	query := `SELECT ` + projectColumns + ` FROM projects WHERE id = ?`

	project, err := scanProject(s.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return project, nil
}

// GetProjectByUUID retrieves a project by its external UUID.
func (s *SQLiteStore) GetProjectByUUID(ctx context.Context, projectUUID string) (*domain.Project, error) {
	query := `SELECT ` + projectColumns + ` FROM projects WHERE uuid = ?`

	project, err := scanProject(s.db.QueryRowContext(ctx, query, projectUUID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return project, nil
}

// ListProjects returns non-deleted projects newest-first with step counts.
func (s *SQLiteStore) ListProjects(ctx context.Context, filter ProjectFilter) ([]*ProjectSummary, error) {
	query := `
	SELECT p.id, p.uuid, p.title, p.folder_id, p.thumbnail_url, p.created_at, p.deleted_at,
	       (SELECT COUNT(*) FROM steps st WHERE st.project_id = p.id) AS step_count
	FROM projects p
	WHERE p.deleted_at IS NULL`
	var args []interface{}

	defaultView := filter.FolderID == nil
	if filter.FolderID != nil {
		// The default system folder is a virtual "everything" view, not
		// a real membership filter.
		folder, err := s.GetFolder(ctx, *filter.FolderID)
		if err != nil {
			return nil, err
		}
		if folder != nil && folder.IsSystem() && folder.Name == domain.DefaultFolderName {
			defaultView = true
		} else {
			query += ` AND p.folder_id = ?`
			args = append(args, *filter.FolderID)
		}
	}

	if defaultView {
		trash, err := s.FindSystemFolder(ctx, domain.TrashFolderName)
		if err != nil {
			return nil, err
		}
		if trash != nil {
			query += ` AND p.folder_id != ?`
			args = append(args, trash.ID)
		}
	}

	query += ` ORDER BY p.created_at DESC, p.id DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query projects: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			slog.Warn("failed to close project rows", "error", closeErr)
		}
	}()

	var projects []*ProjectSummary
	for rows.Next() {
		var summary ProjectSummary
		var thumbnail sql.NullString
		var createdAt int64
		var deletedAt sql.NullInt64

		if err := rows.Scan(
			&summary.ID, &summary.UUID, &summary.Title, &summary.FolderID,
			&thumbnail, &createdAt, &deletedAt, &summary.StepCount,
		); err != nil {
			return nil, fmt.Errorf("scan project row: %w", err)
		}

		summary.ThumbnailURL = thumbnail.String
		summary.CreatedAt = time.Unix(createdAt, 0)
		if deletedAt.Valid {
			ts := time.Unix(deletedAt.Int64, 0)
			summary.DeletedAt = &ts
		}
		projects = append(projects, &summary)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate projects: %w", err)
	}

	return projects, nil
}

// UpdateProject persists title and folder changes.
func (s *SQLiteStore) UpdateProject(ctx context.Context, p *domain.Project) error {
	query := `UPDATE projects SET title = ?, folder_id = ? WHERE id = ?`

	result, err := s.db.ExecContext(ctx, query, p.Title, p.FolderID, p.ID)
	if err != nil {
		return fmt.Errorf("update project: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

// SetProjectThumbnail records the derived thumbnail reference.
func (s *SQLiteStore) SetProjectThumbnail(ctx context.Context, id int64, url string) error {
	result, err := s.db.ExecContext(ctx, `UPDATE projects SET thumbnail_url = ? WHERE id = ?`, url, id)
	if err != nil {
		return fmt.Errorf("set project thumbnail: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

// SoftDeleteProject sets the deletion timestamp. Steps are retained.
func (s *SQLiteStore) SoftDeleteProject(ctx context.Context, id int64, at time.Time) error {
	result, err := s.db.ExecContext(ctx, `UPDATE projects SET deleted_at = ? WHERE id = ?`, at.Unix(), id)
	if err != nil {
		return fmt.Errorf("soft delete project: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

// CreateStep inserts a step with its caller-supplied order index.
func (s *SQLiteStore) CreateStep(ctx context.Context, st *domain.Step) error {
	query := `
	INSERT INTO steps (project_id, order_index, action_type, target_text, script_text,
	                   audio_url, image_url, pos_x, pos_y, duration_frames)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	var targetText interface{}
	if st.TargetText != "" {
		targetText = st.TargetText
	}
	var audioURL interface{}
	if st.AudioURL != "" {
		audioURL = st.AudioURL
	}

	result, err := s.db.ExecContext(ctx, query,
		st.ProjectID, st.OrderIndex, string(st.ActionType), targetText, st.ScriptText,
		audioURL, st.ImageURL, st.PosX, st.PosY, st.DurationFrames,
	)
	if err != nil {
		return fmt.Errorf("insert step: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("step insert id: %w", err)
	}
	st.ID = id
	return nil
}

const stepColumns = `id, project_id, order_index, action_type, target_text, script_text,
	audio_url, image_url, pos_x, pos_y, duration_frames`

// GetStep retrieves a step by ID.
func (s *SQLiteStore) GetStep(ctx context.Context, id int64) (*domain.Step, error) {
	query := `SELECT ` + stepColumns + ` FROM steps WHERE id = ?`

	step, err := scanStep(s.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return step, nil
}

// ListSteps returns a project's steps ordered by order_index.
func (s *SQLiteStore) ListSteps(ctx context.Context, projectID int64) ([]*domain.Step, error) {
	query := `SELECT ` + stepColumns + ` FROM steps WHERE project_id = ? ORDER BY order_index ASC, id ASC`

	rows, err := s.db.QueryContext(ctx, query, projectID)
	if err != nil {
		return nil, fmt.Errorf("query steps: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			slog.Warn("failed to close step rows", "error", closeErr)
		}
	}()

	var steps []*domain.Step
	for rows.Next() {
		step, err := scanStep(rows)
		if err != nil {
			return nil, err
		}
		steps = append(steps, step)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate steps: %w", err)
	}

	return steps, nil
}

// CountSteps returns the number of steps in a project.
func (s *SQLiteStore) CountSteps(ctx context.Context, projectID int64) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM steps WHERE project_id = ?`, projectID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count steps: %w", err)
	}
	return count, nil
}

// UpdateStepScript updates narration text, audio reference and duration.
func (s *SQLiteStore) UpdateStepScript(ctx context.Context, id int64, script, audioURL string, durationFrames int) error {
	query := `UPDATE steps SET script_text = ?, audio_url = ?, duration_frames = ? WHERE id = ?`

	var audio interface{}
	if audioURL != "" {
		audio = audioURL
	}

	result, err := s.db.ExecContext(ctx, query, script, audio, durationFrames, id)
	if err != nil {
		return fmt.Errorf("update step script: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanFolder(row rowScanner) (*domain.Folder, error) {
	var folder domain.Folder
	var typ string
	var createdAt int64

	err := row.Scan(&folder.ID, &folder.Name, &typ, &createdAt)
	if err == sql.ErrNoRows {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("scan folder row: %w", err)
	}

	folder.Type = domain.FolderType(typ)
	folder.CreatedAt = time.Unix(createdAt, 0)
	return &folder, nil
}

func scanProject(row rowScanner) (*domain.Project, error) {
	var project domain.Project
	var thumbnail sql.NullString
	var createdAt int64
	var deletedAt sql.NullInt64

	err := row.Scan(
		&project.ID, &project.UUID, &project.Title, &project.FolderID,
		&thumbnail, &createdAt, &deletedAt,
	)
	if err == sql.ErrNoRows {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("scan project row: %w", err)
	}

	project.ThumbnailURL = thumbnail.String
	project.CreatedAt = time.Unix(createdAt, 0)
	if deletedAt.Valid {
		ts := time.Unix(deletedAt.Int64, 0)
		project.DeletedAt = &ts
	}
	return &project, nil
}

func scanStep(row rowScanner) (*domain.Step, error) {
	var step domain.Step
	var actionType string
	var targetText, audioURL sql.NullString

	err := row.Scan(
		&step.ID, &step.ProjectID, &step.OrderIndex, &actionType, &targetText,
		&step.ScriptText, &audioURL, &step.ImageURL, &step.PosX, &step.PosY,
		&step.DurationFrames,
	)
	if err == sql.ErrNoRows {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("scan step row: %w", err)
	}

	step.ActionType = domain.ActionType(actionType)
	step.TargetText = targetText.String
	step.AudioURL = audioURL.String
	return &step, nil
}
