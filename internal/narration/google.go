package narration

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/acrolabs/flowcap/internal/domain"
	"github.com/acrolabs/flowcap/internal/media"
	"github.com/tcolgate/mp3"
)

// DefaultEndpoint is the unauthenticated Google Translate TTS endpoint.
const DefaultEndpoint = "https://translate.google.com/translate_tts"

// GoogleSynthesizer implements Synthesizer against the Google Translate
// TTS endpoint, storing the returned MP3 through a media store.
type GoogleSynthesizer struct {
	client   *http.Client
	media    media.Store
	endpoint string
	language string
	fps      int
}

// NewGoogleSynthesizer creates a synthesizer. An empty endpoint selects
// DefaultEndpoint.
func NewGoogleSynthesizer(store media.Store, endpoint, language string, fps int) *GoogleSynthesizer {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	return &GoogleSynthesizer{
		client:   &http.Client{Timeout: 15 * time.Second},
		media:    store,
		endpoint: endpoint,
		language: language,
		fps:      fps,
	}
}

// Synthesize fetches TTS audio for text and saves it. Returns an error
// for empty text or any transport/storage failure; callers treat every
// error as "continue without audio".
func (g *GoogleSynthesizer) Synthesize(ctx context.Context, text string) (*Result, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("empty narration text")
	}

	q := url.Values{}
	q.Set("ie", "UTF-8")
	q.Set("client", "tw-ob")
	q.Set("tl", g.language)
	q.Set("q", text)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.endpoint+"?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build tts request: %w", err)
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("tts request: %w", err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			slog.Warn("failed to close tts response body", "error", closeErr)
		}
	}()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("tts request: unexpected status %d", resp.StatusCode)
	}

	audio, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
	if err != nil {
		return nil, fmt.Errorf("read tts response: %w", err)
	}
	if len(audio) == 0 {
		return nil, fmt.Errorf("tts response was empty")
	}

	frames := g.durationFrames(audio)

	audioURL, err := g.media.SaveAudio(audio)
	if err != nil {
		return nil, fmt.Errorf("store narration audio: %w", err)
	}

	return &Result{AudioURL: audioURL, DurationFrames: frames}, nil
}

// durationFrames walks the MP3 frames to measure playback length. A
// stream that cannot be measured gets the fallback duration instead of
// failing the synthesis.
func (g *GoogleSynthesizer) durationFrames(audio []byte) int {
	dec := mp3.NewDecoder(bytes.NewReader(audio))

	var total time.Duration
	var frame mp3.Frame
	skipped := 0
	decoded := false
	for {
		if err := dec.Decode(&frame, &skipped); err != nil {
			break
		}
		total += frame.Duration()
		decoded = true
	}

	if !decoded || total <= 0 {
		slog.Warn("Could not measure narration duration, using fallback",
			"fallback_frames", domain.DefaultDurationFrames)
		return domain.DefaultDurationFrames
	}

	return FramesFor(total, g.fps)
}
