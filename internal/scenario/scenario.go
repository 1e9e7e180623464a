package scenario

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/sumochan15/agentworkflow/internal/llm"
	"github.com/sumochan15/agentworkflow/pkg/log"
)

// Scene is one narrated beat of the video: the narration text and the prompt
// hint used for its illustration.
type Scene struct {
	Text        string `json:"text"`
	ImagePrompt string `json:"imagePrompt"`
}

// Scenario is the structured script a video is built from.
type Scenario struct {
	Title  string  `json:"title"`
	Scenes []Scene `json:"scenes"`
}

// Clone returns a deep copy so callers can mutate scenes freely.
func (s *Scenario) Clone() *Scenario {
	if s == nil {
		return nil
	}
	out := &Scenario{Title: s.Title, Scenes: make([]Scene, len(s.Scenes))}
	copy(out.Scenes, s.Scenes)
	return out
}

// Validate rejects scenarios the pipeline cannot render.
func (s *Scenario) Validate() error {
	if s == nil {
		return fmt.Errorf("scenario is nil")
	}
	if len(s.Scenes) == 0 {
		return fmt.Errorf("scenario has no scenes")
	}
	for i, scene := range s.Scenes {
		if strings.TrimSpace(scene.Text) == "" {
			return fmt.Errorf("scene %d has empty text", i)
		}
	}
	return nil
}

// maxContextChars bounds the news content embedded into the prompt.
const maxContextChars = 2000

const scenarioPrompt = `あなたは大相撲専門のショート動画ディレクターです。以下のニュース内容から、
縦型ショート動画のシナリオをJSON形式で作成してください。

ルール:
1. シーンは3〜6個。各シーンのナレーションは60文字以内の日本語
2. 各シーンに、そのシーンを表す画像プロンプト（imagePrompt）を付ける
3. 最初のシーンは視聴者を引き込むつかみ、最後のシーンはまとめにする
4. 力士名や専門用語は正確に使う

出力形式:
{"title": "動画タイトル", "scenes": [{"text": "ナレーション", "imagePrompt": "画像の説明"}]}

## ニュース内容
"%s..."
`

// Generator turns fetched content into a Scenario through the LLM.
type Generator struct {
	client *llm.Client
	model  string
}

func NewGenerator(client *llm.Client, model string) *Generator {
	return &Generator{client: client, model: model}
}

// Generate builds a scenario from the (already fetched) content.
func (g *Generator) Generate(ctx context.Context, content string) (*Scenario, error) {
	if strings.TrimSpace(content) == "" {
		return nil, fmt.Errorf("empty content")
	}

	log.Info("Generating scenario...")

	bounded := content
	if runes := []rune(bounded); len(runes) > maxContextChars {
		bounded = string(runes[:maxContextChars])
	}

	opts := llm.NewChatCompletionOptions()
	if g.model != "" {
		opts = opts.WithModel(g.model)
	}

	raw, err := g.client.JSONChat(ctx, fmt.Sprintf(scenarioPrompt, bounded), opts)
	if err != nil {
		return nil, fmt.Errorf("scenario completion: %w", err)
	}

	var s Scenario
	if err := json.Unmarshal([]byte(raw), &s); err != nil {
		return nil, fmt.Errorf("parse scenario: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}

	log.Info("Scenario generated: %q with %d scenes", s.Title, len(s.Scenes))
	return &s, nil
}
