package narration

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/acrolabs/flowcap/internal/domain"
)

type fakeMedia struct {
	saved []byte
}

func (f *fakeMedia) SaveImage(string) (string, error) { return "/static/images/x.png", nil }

func (f *fakeMedia) SaveAudio(data []byte) (string, error) {
	f.saved = data
	return "/static/audio/x.mp3", nil
}

func (f *fakeMedia) Thumbnail(string) (string, error) { return "/static/thumbnails/x.png", nil }

func TestFramesFor(t *testing.T) {
	tests := []struct {
		name     string
		duration time.Duration
		fps      int
		want     int
	}{
		{"three seconds at 30fps", 3 * time.Second, 30, 90},
		{"fraction rounds up", 2500 * time.Millisecond, 30, 75},
		{"sub-frame rounds up", 10 * time.Millisecond, 30, 1},
		{"zero", 0, 30, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FramesFor(tt.duration, tt.fps); got != tt.want {
				t.Errorf("FramesFor(%v, %d) = %d, want %d", tt.duration, tt.fps, got, tt.want)
			}
		})
	}
}

func TestSynthesizeRejectsEmptyText(t *testing.T) {
	g := NewGoogleSynthesizer(&fakeMedia{}, "http://unused.invalid", "en", 30)

	if _, err := g.Synthesize(context.Background(), "   "); err == nil {
		t.Fatal("Expected an error for empty text")
	}
}

func TestSynthesizePassesQueryAndStoresAudio(t *testing.T) {
	var gotQuery map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = map[string]string{
			"client": r.URL.Query().Get("client"),
			"tl":     r.URL.Query().Get("tl"),
			"q":      r.URL.Query().Get("q"),
		}
		// Not a decodable MP3 stream; duration falls back.
		w.Write([]byte("audio-bytes"))
	}))
	defer srv.Close()

	store := &fakeMedia{}
	g := NewGoogleSynthesizer(store, srv.URL, "en", 30)

	res, err := g.Synthesize(context.Background(), "Click on Submit")
	if err != nil {
		t.Fatalf("Synthesize failed: %v", err)
	}
	if res.AudioURL != "/static/audio/x.mp3" {
		t.Errorf("Expected stored audio reference, got %q", res.AudioURL)
	}
	if res.DurationFrames != domain.DefaultDurationFrames {
		t.Errorf("Expected fallback duration %d, got %d", domain.DefaultDurationFrames, res.DurationFrames)
	}
	if string(store.saved) != "audio-bytes" {
		t.Errorf("Expected response body to be stored, got %q", store.saved)
	}

	if gotQuery["client"] != "tw-ob" {
		t.Errorf("Expected client tw-ob, got %q", gotQuery["client"])
	}
	if gotQuery["tl"] != "en" {
		t.Errorf("Expected language en, got %q", gotQuery["tl"])
	}
	if gotQuery["q"] != "Click on Submit" {
		t.Errorf("Expected text in query, got %q", gotQuery["q"])
	}
}

func TestSynthesizeFailsOnNonOKStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	g := NewGoogleSynthesizer(&fakeMedia{}, srv.URL, "en", 30)

	if _, err := g.Synthesize(context.Background(), "hello"); err == nil {
		t.Fatal("Expected an error for non-200 response")
	}
}

func TestSynthesizeFailsOnEmptyBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	g := NewGoogleSynthesizer(&fakeMedia{}, srv.URL, "en", 30)

	if _, err := g.Synthesize(context.Background(), "hello"); err == nil {
		t.Fatal("Expected an error for empty audio response")
	}
}
