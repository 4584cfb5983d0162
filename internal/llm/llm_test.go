package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGroqClient(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		var got groqRequest
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "Bearer groq_key", r.Header.Get("Authorization"))
			require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{
				"choices": [{"message": {"content": "Try a frittata."}}],
				"usage": {"prompt_tokens": 12, "completion_tokens": 5, "total_tokens": 17}
			}`))
		}))
		defer server.Close()

		client := NewGroqClient("groq_key", Options{
			SystemInstruction: "You are a chef.",
			Temperature:       0.7,
			MaxOutputTokens:   1000,
		}).WithBaseURL(server.URL)

		resp, err := client.GenerateContent(context.Background(), "breakfast ideas?")
		require.NoError(t, err)

		assert.Equal(t, "Try a frittata.", resp.Content)
		assert.Equal(t, 12, resp.Usage.PromptTokens)
		assert.Equal(t, 5, resp.Usage.CompletionTokens)
		assert.Equal(t, DefaultGroqModel, resp.Usage.Model)

		require.Len(t, got.Messages, 2)
		assert.Equal(t, "system", got.Messages[0].Role)
		assert.Equal(t, "breakfast ideas?", got.Messages[1].Content)
		assert.Equal(t, int32(1000), got.MaxTokens)
		assert.Nil(t, got.ResponseFormat)
	})

	t.Run("JSONOutput", func(t *testing.T) {
		var got groqRequest
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
			w.Write([]byte(`{"choices": [{"message": {"content": "{}"}}]}`))
		}))
		defer server.Close()

		client := NewGroqClient("k", Options{JSONOutput: true}).WithBaseURL(server.URL)
		_, err := client.GenerateContent(context.Background(), "x")
		require.NoError(t, err)
		assert.Equal(t, map[string]string{"type": "json_object"}, got.ResponseFormat)
		require.Len(t, got.Messages, 1)
	})

	t.Run("APIError", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "quota exceeded", http.StatusTooManyRequests)
		}))
		defer server.Close()

		client := NewGroqClient("k", Options{}).WithBaseURL(server.URL)
		_, err := client.GenerateContent(context.Background(), "x")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "status=429")
	})

	t.Run("NoChoices", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"choices": []}`))
		}))
		defer server.Close()

		client := NewGroqClient("k", Options{}).WithBaseURL(server.URL)
		_, err := client.GenerateContent(context.Background(), "x")
		assert.Error(t, err)
	})
}

type countingGenerator struct {
	calls atomic.Int32
}

func (g *countingGenerator) GenerateContent(ctx context.Context, prompt string) (ContentResponse, error) {
	g.calls.Add(1)
	return ContentResponse{Content: prompt}, nil
}

func TestRateLimited(t *testing.T) {
	t.Run("Unlimited", func(t *testing.T) {
		next := &countingGenerator{}
		limited := NewRateLimited(next, 0)
		for i := 0; i < 5; i++ {
			_, err := limited.GenerateContent(context.Background(), "hi")
			require.NoError(t, err)
		}
		assert.Equal(t, int32(5), next.calls.Load())
	})

	t.Run("WaitHonoursDeadline", func(t *testing.T) {
		next := &countingGenerator{}
		limited := NewRateLimited(next, 1)

		_, err := limited.GenerateContent(context.Background(), "first")
		require.NoError(t, err)

		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()
		_, err = limited.GenerateContent(ctx, "second")
		assert.Error(t, err)
		assert.Equal(t, int32(1), next.calls.Load())
	})

	t.Run("ShareUsesSameBudget", func(t *testing.T) {
		first, second := &countingGenerator{}, &countingGenerator{}
		limited := NewRateLimited(first, 1)
		shared := limited.Share(second)

		_, err := limited.GenerateContent(context.Background(), "first")
		require.NoError(t, err)

		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()
		_, err = shared.GenerateContent(ctx, "second")
		assert.Error(t, err)
		assert.Equal(t, int32(0), second.calls.Load())
	})
}

func TestGeminiClientLive(t *testing.T) {
	apiKey := os.Getenv("GOOGLE_API_KEY")
	if apiKey == "" {
		t.Skip("Skipping live Gemini test: GOOGLE_API_KEY not set")
	}

	ctx := context.Background()
	client, err := NewGeminiClient(ctx, apiKey, Options{MaxOutputTokens: 50})
	require.NoError(t, err)
	defer client.Close()

	resp, err := client.GenerateContent(ctx, "Name one vegetable. Reply with a single word.")
	require.NoError(t, err)
	assert.NotEmpty(t, resp.Content)
}
