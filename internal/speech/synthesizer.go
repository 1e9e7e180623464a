package speech

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"golang.org/x/text/language"

	"github.com/sumochan15/agentworkflow/pkg/log"
)

// narrationLang locks synthesis and transcription to Japanese.
var narrationLang = language.Japanese

// Synthesizer speaks narration text through an ElevenLabs-style TTS API and
// writes the returned audio to disk.
type Synthesizer struct {
	apiKey     string
	apiURL     string
	voiceID    string
	httpClient *http.Client
}

func NewSynthesizer(apiKey, apiURL, voiceID string) *Synthesizer {
	return &Synthesizer{
		apiKey:     apiKey,
		apiURL:     strings.TrimSuffix(apiURL, "/"),
		voiceID:    voiceID,
		httpClient: &http.Client{Timeout: 120 * time.Second},
	}
}

type voiceSettings struct {
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
	Style           float64 `json:"style"`
	UseSpeakerBoost bool    `json:"use_speaker_boost"`
}

type synthesizeRequest struct {
	Text                            string        `json:"text"`
	ModelID                         string        `json:"model_id"`
	LanguageCode                    string        `json:"language_code"`
	VoiceSettings                   voiceSettings `json:"voice_settings"`
	PronunciationDictionaryLocators []any         `json:"pronunciation_dictionary_locators"`
}

// Synthesize speaks text into outputPath. An empty voiceID uses the
// configured default voice. Settings are tuned for steady Japanese
// narration.
func (s *Synthesizer) Synthesize(ctx context.Context, text, voiceID, outputPath string) error {
	if voiceID == "" {
		voiceID = s.voiceID
	}
	reqBody := synthesizeRequest{
		Text:         text,
		ModelID:      "eleven_multilingual_v2",
		LanguageCode: narrationLang.String(),
		VoiceSettings: voiceSettings{
			Stability:       0.55,
			SimilarityBoost: 0.85,
			Style:           0.4,
			UseSpeakerBoost: true,
		},
		PronunciationDictionaryLocators: []any{},
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/text-to-speech/%s", s.apiURL, voiceID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("xi-api-key", s.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("tts request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read tts response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("tts API status %d: %s", resp.StatusCode, string(body))
	}

	if err := os.WriteFile(outputPath, body, 0o644); err != nil {
		return fmt.Errorf("write audio: %w", err)
	}

	log.Info("Audio synthesized (%.1fKB)", float64(len(body))/1024)
	return nil
}
