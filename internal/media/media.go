// Package media stores screenshots, narration audio and derived
// thumbnails, handing out stable /static/ URL references.
package media

import (
	"errors"
	"fmt"
)

// ErrDecode indicates an undecodable image payload. Chunks carrying one
// are rejected without creating a step.
var ErrDecode = errors.New("media decode failed")

// Store saves media blobs and returns stable URL-path references.
type Store interface {
	// SaveImage decodes a base64 screenshot payload (with or without a
	// data-URI prefix) and stores it as a PNG. Returns ErrDecode for
	// payloads that are not valid base64 or not a decodable image.
	SaveImage(payload string) (string, error)

	// SaveAudio stores raw audio bytes as an MP3 file.
	SaveAudio(data []byte) (string, error)

	// Thumbnail derives a thumbnail from a previously saved image
	// reference and stores it.
	Thumbnail(imageURL string) (string, error)
}

// DecodeError wraps a decode failure with its cause while matching
// ErrDecode under errors.Is.
func DecodeError(err error) error {
	return fmt.Errorf("%w: %v", ErrDecode, err)
}
