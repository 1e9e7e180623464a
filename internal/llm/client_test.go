package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := NewClient(&Config{
		APIKey:      "test-key",
		APIURL:      server.URL,
		Model:       "test-model",
		MaxTokens:   100,
		Temperature: 0.7,
		Timeout:     5,
	})
	require.NoError(t, err)
	return client
}

func TestNewClient_InvalidConfig(t *testing.T) {
	_, err := NewClient(&Config{})
	assert.Error(t, err)
}

func TestSimpleChat(t *testing.T) {
	var captured ChatRequest
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))

		json.NewEncoder(w).Encode(ChatResponse{
			Choices: []Choice{{Message: Message{Role: "assistant", Content: "hello"}, FinishReason: "stop"}},
		})
	})

	opts := NewChatCompletionOptions().WithSystemPrompt("be brief")
	got, err := client.SimpleChat(context.Background(), "hi", opts)
	require.NoError(t, err)
	assert.Equal(t, "hello", got)

	require.Len(t, captured.Messages, 2)
	assert.Equal(t, "system", captured.Messages[0].Role)
	assert.Equal(t, "be brief", captured.Messages[0].Content)
	assert.Nil(t, captured.ResponseFormat)
}

func TestJSONChat_SetsResponseFormat(t *testing.T) {
	var captured ChatRequest
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		json.NewEncoder(w).Encode(ChatResponse{
			Choices: []Choice{{Message: Message{Content: `{"ok":true}`}}},
		})
	})

	got, err := client.JSONChat(context.Background(), "give me json", nil)
	require.NoError(t, err)
	assert.JSONEq(t, `{"ok":true}`, got)

	require.NotNil(t, captured.ResponseFormat)
	assert.Equal(t, "json_object", captured.ResponseFormat.Type)
}

func TestJSONChat_EmptyContent(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(ChatResponse{
			Choices: []Choice{{Message: Message{Content: ""}}},
		})
	})

	_, err := client.JSONChat(context.Background(), "give me json", nil)
	assert.Error(t, err)
}

func TestChatCompletion_APIError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		json.NewEncoder(w).Encode(ChatResponse{
			Error: &Error{Message: "rate limited", Type: "rate_limit"},
		})
	})

	_, err := client.SimpleChat(context.Background(), "hi", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rate limited")
}

func TestChatCompletion_ModelOverride(t *testing.T) {
	var captured ChatRequest
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		json.NewEncoder(w).Encode(ChatResponse{
			Choices: []Choice{{Message: Message{Content: "ok"}}},
		})
	})

	opts := NewChatCompletionOptions().WithModel("other-model").WithTemperature(0)
	_, err := client.ChatCompletion(context.Background(), []Message{{Role: "user", Content: "hi"}}, opts)
	require.NoError(t, err)

	assert.Equal(t, "other-model", captured.Model)
	assert.Equal(t, float64(0), captured.Temperature)
}
