package normalizer

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/sumochan15/agentworkflow/internal/llm"
)

// reading-extraction prompt. Rank prefixes (横綱, 大関, ...) must be
// stripped so the cache stays keyed by bare ring names.
const extractPrompt = `あなたは大相撲の専門家です。以下のテキストから大相撲の力士名、親方名、理事長名などを全て抽出し、正確な読み仮名（ひらがな）を付けてJSON形式で返してください。

ルール:
1. 番付（横綱、大関、関脇など）を除いた四股名のみを抽出してください（「横綱大の里」→「大の里」）
2. 読み仮名は実際の大相撲で使われている正確な読み方を使用してください
3. 力士名が見つからない場合は空のオブジェクト {} を返してください

出力形式:
{"力士名（漢字のみ、番付なし）": "読み仮名（ひらがな）"}

例:
{"豊昇龍": "ほうしょうりゅう", "安青錦": "あおにしき", "大の里": "おおのさと"}

テキスト: %s`

// LLMExtractor extracts wrestler-name readings through a language model
// constrained to JSON output.
type LLMExtractor struct {
	client *llm.Client
	model  string
}

func NewLLMExtractor(client *llm.Client, model string) *LLMExtractor {
	return &LLMExtractor{client: client, model: model}
}

func (e *LLMExtractor) ExtractReadings(ctx context.Context, text string) (map[string]string, error) {
	opts := llm.NewChatCompletionOptions().WithTemperature(0)
	if e.model != "" {
		opts = opts.WithModel(e.model)
	}

	content, err := e.client.JSONChat(ctx, fmt.Sprintf(extractPrompt, text), opts)
	if err != nil {
		return nil, fmt.Errorf("extract readings: %w", err)
	}

	readings := make(map[string]string)
	if err := json.Unmarshal([]byte(content), &readings); err != nil {
		return nil, fmt.Errorf("parse extracted readings: %w", err)
	}
	return readings, nil
}
