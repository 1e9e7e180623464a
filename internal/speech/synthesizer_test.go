package speech

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSynthesize(t *testing.T) {
	audioBytes := []byte("mp3 bytes")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/text-to-speech/voice-123", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("xi-api-key"))

		var req synthesizeRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "おおのさとがゆうしょう", req.Text)
		assert.Equal(t, "eleven_multilingual_v2", req.ModelID)
		assert.Equal(t, "ja", req.LanguageCode)
		assert.Equal(t, 0.55, req.VoiceSettings.Stability)
		assert.Equal(t, 0.85, req.VoiceSettings.SimilarityBoost)
		assert.Equal(t, 0.4, req.VoiceSettings.Style)
		assert.True(t, req.VoiceSettings.UseSpeakerBoost)

		w.Write(audioBytes)
	}))
	defer srv.Close()

	s := NewSynthesizer("test-key", srv.URL, "voice-123")
	out := filepath.Join(t.TempDir(), "scene_0.mp3")
	require.NoError(t, s.Synthesize(context.Background(), "おおのさとがゆうしょう", "", out))

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, audioBytes, data)
}

func TestSynthesize_VoiceOverride(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/text-to-speech/custom-voice", r.URL.Path)
		w.Write([]byte("audio"))
	}))
	defer srv.Close()

	s := NewSynthesizer("k", srv.URL, "default-voice")
	out := filepath.Join(t.TempDir(), "out.mp3")
	require.NoError(t, s.Synthesize(context.Background(), "text", "custom-voice", out))
}

func TestSynthesize_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"detail":"invalid key"}`)
	}))
	defer srv.Close()

	s := NewSynthesizer("bad-key", srv.URL, "voice-123")
	err := s.Synthesize(context.Background(), "text", "", filepath.Join(t.TempDir(), "out.mp3"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
}

func TestTranscribe(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "whisper-1", r.FormValue("model"))
		assert.Equal(t, "ja", r.FormValue("language"))

		_, header, err := r.FormFile("file")
		require.NoError(t, err)
		assert.Equal(t, "scene_0.mp3", header.Filename)

		fmt.Fprint(w, `{"text":"おおのさとがゆうしょうしました"}`)
	}))
	defer srv.Close()

	audioPath := filepath.Join(t.TempDir(), "scene_0.mp3")
	require.NoError(t, os.WriteFile(audioPath, []byte("audio"), 0o644))

	tr := NewTranscriber("test-key", srv.URL)
	text, err := tr.Transcribe(context.Background(), audioPath)
	require.NoError(t, err)
	assert.Equal(t, "おおのさとがゆうしょうしました", text)
}

func TestTranscribe_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	audioPath := filepath.Join(t.TempDir(), "a.mp3")
	require.NoError(t, os.WriteFile(audioPath, []byte("audio"), 0o644))

	tr := NewTranscriber("k", srv.URL)
	_, err := tr.Transcribe(context.Background(), audioPath)
	assert.Error(t, err)
}

func TestTranscribe_MissingFile(t *testing.T) {
	tr := NewTranscriber("k", "http://unused")
	_, err := tr.Transcribe(context.Background(), "/nonexistent.mp3")
	assert.Error(t, err)
}
