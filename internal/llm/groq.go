package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	groqAPIURL       = "https://api.groq.com/openai/v1/chat/completions"
	DefaultGroqModel = "llama-3.3-70b-versatile"
)

// GroqClient is a client for the OpenAI-compatible Groq API.
type GroqClient struct {
	apiKey     string
	baseURL    string
	opts       Options
	httpClient *http.Client
}

// NewGroqClient creates a new Groq API client.
func NewGroqClient(apiKey string, opts Options) *GroqClient {
	if opts.Model == "" {
		opts.Model = DefaultGroqModel
	}
	return &GroqClient{
		apiKey:  apiKey,
		baseURL: groqAPIURL,
		opts:    opts,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// WithBaseURL points the client at another OpenAI-compatible endpoint.
func (c *GroqClient) WithBaseURL(url string) *GroqClient {
	c.baseURL = url
	return c
}

type groqMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type groqRequest struct {
	Model          string            `json:"model"`
	Messages       []groqMessage     `json:"messages"`
	Temperature    float32           `json:"temperature"`
	MaxTokens      int32             `json:"max_tokens,omitempty"`
	ResponseFormat map[string]string `json:"response_format,omitempty"`
}

type groqResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

// GenerateContent sends a prompt to the Groq model and returns the generated text.
func (c *GroqClient) GenerateContent(ctx context.Context, prompt string) (ContentResponse, error) {
	reqBody := groqRequest{
		Model:       c.opts.Model,
		Temperature: c.opts.Temperature,
		MaxTokens:   c.opts.MaxOutputTokens,
	}
	if c.opts.SystemInstruction != "" {
		reqBody.Messages = append(reqBody.Messages, groqMessage{Role: "system", Content: c.opts.SystemInstruction})
	}
	reqBody.Messages = append(reqBody.Messages, groqMessage{Role: "user", Content: prompt})
	if c.opts.JSONOutput {
		reqBody.ResponseFormat = map[string]string{"type": "json_object"}
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return ContentResponse{}, fmt.Errorf("failed to marshal request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(jsonBody))
	if err != nil {
		return ContentResponse{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return ContentResponse{}, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return ContentResponse{}, fmt.Errorf("groq api error: status=%d body=%s", resp.StatusCode, string(bodyBytes))
	}

	var groqResp groqResponse
	if err := json.NewDecoder(resp.Body).Decode(&groqResp); err != nil {
		return ContentResponse{}, fmt.Errorf("failed to decode response: %w", err)
	}
	if len(groqResp.Choices) == 0 {
		return ContentResponse{}, fmt.Errorf("no content generated")
	}

	return ContentResponse{
		Content: groqResp.Choices[0].Message.Content,
		Usage: TokenUsage{
			PromptTokens:     groqResp.Usage.PromptTokens,
			CompletionTokens: groqResp.Usage.CompletionTokens,
			TotalTokens:      groqResp.Usage.TotalTokens,
			Model:            c.opts.Model,
		},
	}, nil
}
