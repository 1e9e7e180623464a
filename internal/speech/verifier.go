package speech

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/sumochan15/agentworkflow/internal/scenario"
	"github.com/sumochan15/agentworkflow/pkg/log"
)

// accuracyThreshold is the minimum transcript similarity to accept audio
// without a retry, in percent.
const accuracyThreshold = 85.0

// maxAttempts bounds the synthesize-verify loop per scene.
const maxAttempts = 3

// TTS speaks text into a file with the given voice (empty for default).
type TTS interface {
	Synthesize(ctx context.Context, text, voiceID, outputPath string) error
}

// STT transcribes an audio file back to text.
type STT interface {
	Transcribe(ctx context.Context, audioPath string) (string, error)
}

// Normalizer prepares narration text for the speech engine.
type Normalizer interface {
	NormalizeWithLog(ctx context.Context, text string) string
}

// Kana converts a whole text to hiragana as the last escalation.
type Kana interface {
	Convert(ctx context.Context, text string) string
}

// Verifier produces narration audio per scene with a transcribe-and-compare
// loop. Each retry escalates how aggressively the text is converted to kana.
type Verifier struct {
	tts        TTS
	stt        STT
	normalizer Normalizer
	kana       Kana
}

func NewVerifier(tts TTS, stt STT, normalizer Normalizer, kana Kana) *Verifier {
	return &Verifier{tts: tts, stt: stt, normalizer: normalizer, kana: kana}
}

// GenerateAll synthesizes verified audio for every scene into outputDir as
// scene_<i>.mp3 and returns the paths in scene order.
func (v *Verifier) GenerateAll(ctx context.Context, scenes []scenario.Scene, outputDir, voiceID string) ([]string, error) {
	log.Info("Generating audio for %d scenes with verification...", len(scenes))

	paths := make([]string, 0, len(scenes))
	for i, scene := range scenes {
		audioPath, err := v.GenerateWithVerification(ctx, scene.Text, i, outputDir, voiceID)
		if err != nil {
			return nil, fmt.Errorf("scene %d: %w", i, err)
		}
		paths = append(paths, audioPath)
	}
	return paths, nil
}

// GenerateWithVerification synthesizes one scene's audio, transcribes it and
// compares against the original text. Attempts escalate: plain
// normalization, then the difficult-word table, then whole-text hiragana.
// After the final attempt the audio is accepted as-is; only a synthesis
// failure on the final attempt is fatal. Transcription failures count as an
// empty transcript.
func (v *Verifier) GenerateWithVerification(ctx context.Context, text string, sceneIndex int, outputDir, voiceID string) (string, error) {
	audioPath := filepath.Join(outputDir, fmt.Sprintf("scene_%d.mp3", sceneIndex))

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		speakText := v.textForAttempt(ctx, text, attempt)

		if err := v.tts.Synthesize(ctx, speakText, voiceID, audioPath); err != nil {
			log.Error("TTS failed for scene %d (attempt %d/%d): %v", sceneIndex, attempt, maxAttempts, err)
			if attempt >= maxAttempts {
				return "", fmt.Errorf("audio synthesis: %w", err)
			}
			continue
		}

		transcribed, err := v.stt.Transcribe(ctx, audioPath)
		if err != nil {
			log.Warn("Transcription failed for scene %d, treating as empty: %v", sceneIndex, err)
			transcribed = ""
		}

		similarity := Similarity(text, transcribed)
		log.Info("Scene %d attempt %d/%d similarity: %.1f%%", sceneIndex, attempt, maxAttempts, similarity)

		if similarity >= accuracyThreshold {
			return audioPath, nil
		}

		log.Warn("Low similarity for scene %d: expected %q, got %q", sceneIndex, clip(text), clip(transcribed))
		if attempt >= maxAttempts {
			log.Warn("Max attempts reached for scene %d, keeping last audio", sceneIndex)
			return audioPath, nil
		}
	}

	return "", fmt.Errorf("audio generation failed for scene %d", sceneIndex)
}

func (v *Verifier) textForAttempt(ctx context.Context, text string, attempt int) string {
	switch attempt {
	case 1:
		return v.normalizer.NormalizeWithLog(ctx, text)
	case 2:
		log.Info("Converting difficult words to kana...")
		return v.normalizer.NormalizeWithLog(ctx, ConvertDifficultWords(text))
	default:
		log.Info("Converting whole text to hiragana...")
		return v.kana.Convert(ctx, text)
	}
}

func clip(s string) string {
	runes := []rune(s)
	if len(runes) <= 50 {
		return s
	}
	return string(runes[:50]) + "..."
}
