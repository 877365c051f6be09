package media

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"
)

const (
	imagesDir     = "images"
	audioDir      = "audio"
	thumbnailsDir = "thumbnails"

	thumbnailWidth  = 320
	thumbnailHeight = 180
)

// LocalStore implements Store on the local filesystem under a single
// data directory, served by the HTTP layer at /static/.
type LocalStore struct {
	root string
	now  func() time.Time
}

// NewLocalStore creates the storage directories under root.
func NewLocalStore(root string) (*LocalStore, error) {
	for _, dir := range []string{imagesDir, audioDir, thumbnailsDir} {
		if err := os.MkdirAll(filepath.Join(root, dir), 0755); err != nil {
			return nil, fmt.Errorf("create media directory %s: %w", dir, err)
		}
	}
	return &LocalStore{root: root, now: time.Now}, nil
}

// SaveImage decodes a base64 screenshot and stores it as a PNG.
func (s *LocalStore) SaveImage(payload string) (string, error) {
	// Strip a data-URI prefix ("data:image/png;base64,...") if present.
	if idx := strings.IndexByte(payload, ','); idx >= 0 {
		payload = payload[idx+1:]
	}

	raw, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", DecodeError(err)
	}

	img, err := imaging.Decode(bytes.NewReader(raw))
	if err != nil {
		return "", DecodeError(err)
	}

	filename := s.uniqueFilename("png")
	path := filepath.Join(s.root, imagesDir, filename)
	if err := imaging.Save(img, path); err != nil {
		return "", fmt.Errorf("save image: %w", err)
	}

	return "/static/" + imagesDir + "/" + filename, nil
}

// SaveAudio stores raw audio bytes as an MP3 file.
func (s *LocalStore) SaveAudio(data []byte) (string, error) {
	filename := s.uniqueFilename("mp3")
	path := filepath.Join(s.root, audioDir, filename)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("save audio: %w", err)
	}
	return "/static/" + audioDir + "/" + filename, nil
}

// Thumbnail derives a 320x180 thumbnail from a saved image reference.
func (s *LocalStore) Thumbnail(imageURL string) (string, error) {
	source, err := s.resolve(imageURL)
	if err != nil {
		return "", err
	}

	img, err := imaging.Open(source)
	if err != nil {
		return "", fmt.Errorf("open source image: %w", err)
	}

	// Fit preserves aspect ratio within the bounding box, matching the
	// editor's 16:9 card layout.
	thumb := imaging.Fit(img, thumbnailWidth, thumbnailHeight, imaging.Lanczos)

	filename := s.uniqueFilename("png")
	path := filepath.Join(s.root, thumbnailsDir, filename)
	if err := imaging.Save(thumb, path); err != nil {
		return "", fmt.Errorf("save thumbnail: %w", err)
	}

	return "/static/" + thumbnailsDir + "/" + filename, nil
}

// resolve maps a /static/ URL path back to a filesystem path under root.
func (s *LocalStore) resolve(url string) (string, error) {
	rel, ok := strings.CutPrefix(url, "/static/")
	if !ok {
		return "", fmt.Errorf("unexpected media reference %q", url)
	}
	rel = filepath.Clean(rel)
	if rel == "." || strings.HasPrefix(rel, "..") {
		return "", fmt.Errorf("unexpected media reference %q", url)
	}
	path := filepath.Join(s.root, rel)
	if _, err := os.Stat(path); err != nil {
		return "", fmt.Errorf("source image not found: %w", err)
	}
	return path, nil
}

func (s *LocalStore) uniqueFilename(ext string) string {
	id := strings.ReplaceAll(uuid.NewString(), "-", "")
	return fmt.Sprintf("%s_%s.%s", id, s.now().Format("20060102_150405"), ext)
}
