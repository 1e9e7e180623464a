package llm

// Message represents a chat message.
//
// Role: "system", "user", or "assistant"
// Content: Text content of the message
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ResponseFormat constrains the completion output shape.
// Type "json_object" forces the model to emit a single JSON object.
type ResponseFormat struct {
	Type string `json:"type"`
}

// ChatRequest represents a chat completion request.
// Compatible with the OpenAI API format.
type ChatRequest struct {
	Model          string          `json:"model"`
	Messages       []Message       `json:"messages"`
	MaxTokens      int             `json:"max_tokens,omitempty"`
	Temperature    float64         `json:"temperature,omitempty"`
	ResponseFormat *ResponseFormat `json:"response_format,omitempty"`
}

// ChatResponse represents a chat completion response.
// Compatible with the OpenAI API format.
type ChatResponse struct {
	ID      string   `json:"id"`
	Object  string   `json:"object"`
	Created int64    `json:"created"`
	Model   string   `json:"model"`
	Choices []Choice `json:"choices"`
	Usage   Usage    `json:"usage"`
	Error   *Error   `json:"error,omitempty"`
}

// Choice represents a completion choice.
type Choice struct {
	Index        int     `json:"index"`
	Message      Message `json:"message"`
	FinishReason string  `json:"finish_reason"`
}

// Usage represents token usage statistics.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Error represents an API error.
type Error struct {
	Message string `json:"message"`
	Type    string `json:"type"`
	Param   string `json:"param,omitempty"`
	Code    string `json:"code,omitempty"`
}

func (e *Error) Error() string {
	return e.Message
}

// ChatCompletionOptions represents per-request options.
//
// SystemPrompt: system prompt prepended to the conversation
// Model: overrides the configured default model
// Temperature: sampling temperature; values outside [0,2] fall back to config
// ForceJSON: request a single JSON object as the completion
type ChatCompletionOptions struct {
	SystemPrompt string
	Model        string
	MaxTokens    int
	Temperature  float64
	ForceJSON    bool
}

// NewChatCompletionOptions returns options with the temperature sentinel
// set so the configured default applies.
func NewChatCompletionOptions() *ChatCompletionOptions {
	return &ChatCompletionOptions{Temperature: -1}
}

func (o *ChatCompletionOptions) WithSystemPrompt(prompt string) *ChatCompletionOptions {
	o.SystemPrompt = prompt
	return o
}

func (o *ChatCompletionOptions) WithModel(model string) *ChatCompletionOptions {
	o.Model = model
	return o
}

func (o *ChatCompletionOptions) WithTemperature(temp float64) *ChatCompletionOptions {
	o.Temperature = temp
	return o
}

func (o *ChatCompletionOptions) WithForceJSON() *ChatCompletionOptions {
	o.ForceJSON = true
	return o
}
