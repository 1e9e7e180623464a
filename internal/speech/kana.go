package speech

import (
	"context"
	"fmt"

	"github.com/sumochan15/agentworkflow/internal/llm"
	"github.com/sumochan15/agentworkflow/pkg/log"
)

const kanaSystemPrompt = "あなたは日本語のテキストを平仮名に変換するアシスタントです。句読点はそのまま残してください。"

// KanaConverter turns a whole text into hiragana through the LLM. Used as
// the last verification escalation when targeted fixes did not help.
type KanaConverter struct {
	client *llm.Client
	model  string
}

func NewKanaConverter(client *llm.Client, model string) *KanaConverter {
	return &KanaConverter{client: client, model: model}
}

// Convert returns the hiragana rendition, or the original text when the
// conversion fails.
func (k *KanaConverter) Convert(ctx context.Context, text string) string {
	opts := llm.NewChatCompletionOptions().
		WithSystemPrompt(kanaSystemPrompt).
		WithTemperature(0)
	if k.model != "" {
		opts = opts.WithModel(k.model)
	}

	prompt := fmt.Sprintf("以下のテキストを平仮名に変換してください（句読点は残す）:\n%s", text)
	converted, err := k.client.SimpleChat(ctx, prompt, opts)
	if err != nil {
		log.Warn("Kana conversion failed, keeping original text: %v", err)
		return text
	}
	if converted == "" {
		return text
	}
	return converted
}
