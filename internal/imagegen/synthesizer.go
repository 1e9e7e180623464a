package imagegen

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sumochan15/agentworkflow/internal/scenario"
	"github.com/sumochan15/agentworkflow/pkg/log"
)

// Synthesizer renders one PNG per scene through a Gemini-style image API,
// passing the character reference image inline so every scene reuses the
// same character.
type Synthesizer struct {
	apiKey     string
	apiURL     string
	model      string
	httpClient *http.Client
}

func NewSynthesizer(apiKey, apiURL, model string) *Synthesizer {
	return &Synthesizer{
		apiKey:     apiKey,
		apiURL:     strings.TrimSuffix(apiURL, "/"),
		model:      model,
		httpClient: &http.Client{Timeout: 120 * time.Second},
	}
}

type generateRequest struct {
	Contents         []content        `json:"contents"`
	GenerationConfig generationConfig `json:"generationConfig"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text       string      `json:"text,omitempty"`
	InlineData *inlineData `json:"inline_data,omitempty"`
}

type inlineData struct {
	MimeType string `json:"mime_type"`
	Data     string `json:"data"`
}

type generationConfig struct {
	ResponseModalities []string    `json:"responseModalities"`
	ImageConfig        imageConfig `json:"imageConfig"`
}

type imageConfig struct {
	AspectRatio string `json:"aspectRatio"`
	ImageSize   string `json:"imageSize"`
}

// Response parts come back camelCased, unlike the request.
type generateResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				InlineData *struct {
					MimeType string `json:"mimeType"`
					Data     string `json:"data"`
				} `json:"inlineData"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

// GenerateAll renders every scene into outputDir as scene_<i>.png and
// returns the paths in scene order. Any scene failure aborts the batch.
func (s *Synthesizer) GenerateAll(ctx context.Context, scenes []scenario.Scene, referenceImagePath, outputDir string) ([]string, error) {
	log.Info("Generating %d images (9:16 hand-drawn with character reference)...", len(scenes))

	refImage, err := os.ReadFile(referenceImagePath)
	if err != nil {
		return nil, fmt.Errorf("read reference image: %w", err)
	}
	refBase64 := base64.StdEncoding.EncodeToString(refImage)

	paths := make([]string, 0, len(scenes))
	for i, scene := range scenes {
		imagePath, err := s.generateScene(ctx, scene.Text, i, refBase64, outputDir)
		if err != nil {
			return nil, fmt.Errorf("scene %d: %w", i, err)
		}
		paths = append(paths, imagePath)
	}
	return paths, nil
}

func (s *Synthesizer) generateScene(ctx context.Context, sceneText string, index int, refBase64, outputDir string) (string, error) {
	prompt := BuildPrompt(sceneText, index)

	reqBody := generateRequest{
		Contents: []content{{
			Parts: []part{
				{Text: "Using the sumo character from the reference image, " + prompt},
				{InlineData: &inlineData{MimeType: "image/png", Data: refBase64}},
			},
		}},
		GenerationConfig: generationConfig{
			ResponseModalities: []string{"IMAGE"},
			ImageConfig:        imageConfig{AspectRatio: "9:16", ImageSize: "2K"},
		},
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/models/%s:generateContent", s.apiURL, s.model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("x-goog-api-key", s.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("image request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("image API status %d: %s", resp.StatusCode, string(body))
	}

	var genResp generateResponse
	if err := json.Unmarshal(body, &genResp); err != nil {
		return "", fmt.Errorf("parse response: %w", err)
	}

	data := findImageData(genResp)
	if data == "" {
		return "", fmt.Errorf("no image data in response")
	}

	decoded, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		return "", fmt.Errorf("decode image data: %w", err)
	}

	imagePath := filepath.Join(outputDir, fmt.Sprintf("scene_%d.png", index))
	if err := os.WriteFile(imagePath, decoded, 0o644); err != nil {
		return "", fmt.Errorf("write image: %w", err)
	}

	log.Info("Scene %d image generated (%.1fKB)", index+1, float64(len(decoded))/1024)
	return imagePath, nil
}

func findImageData(resp generateResponse) string {
	for _, cand := range resp.Candidates {
		for _, p := range cand.Content.Parts {
			if p.InlineData != nil && strings.HasPrefix(p.InlineData.MimeType, "image/") {
				return p.InlineData.Data
			}
		}
	}
	return ""
}
