package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/custodia-labs/docquiz-core/internal/core/domain"
	"github.com/custodia-labs/docquiz-core/internal/core/ports/driven"
)

// Ensure OpenAIQuestionGenerator implements QuestionGenerator
var _ driven.QuestionGenerator = (*OpenAIQuestionGenerator)(nil)

// OpenAIQuestionGenerator implements QuestionGenerator against an
// OpenAI-compatible chat completions endpoint. Questions are requested as a
// JSON object so the response can be decoded without prose stripping.
type OpenAIQuestionGenerator struct {
	apiKey  string
	model   string
	baseURL string
	client  *http.Client
}

// NewOpenAIQuestionGenerator creates a new question generator
func NewOpenAIQuestionGenerator(apiKey, model, baseURL string) (*OpenAIQuestionGenerator, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("OpenAI API key is required")
	}

	if model == "" {
		model = "gpt-4o-mini"
	}

	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}

	return &OpenAIQuestionGenerator{
		apiKey:  apiKey,
		model:   model,
		baseURL: baseURL,
		client: &http.Client{
			Timeout: 120 * time.Second,
		},
	}, nil
}

const questionSystemPrompt = `You are a quiz author. Given excerpts from a document, write multiple-choice questions that test understanding of the material. Each question has exactly 4 options and exactly one correct answer. Respond with a JSON object of the form {"questions": [{"question": "...", "options": ["...", "...", "...", "..."], "correct_answer_index": 0}]}. Do not include any other text.`

// chatRequest is the request body for the chat completions endpoint
type chatRequest struct {
	Model          string        `json:"model"`
	Messages       []chatMessage `json:"messages"`
	ResponseFormat *struct {
		Type string `json:"type"`
	} `json:"response_format,omitempty"`
	Temperature float64 `json:"temperature"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// chatResponse is the response from the chat completions endpoint
type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    string `json:"code"`
	} `json:"error,omitempty"`
}

// questionsPayload is the JSON document the model is instructed to return
type questionsPayload struct {
	Questions []*domain.GeneratedQuestion `json:"questions"`
}

// GenerateQuestions asks the model for count questions grounded in the given
// chunks. The caller batches requests; count should stay small enough for a
// single completion.
func (g *OpenAIQuestionGenerator) GenerateQuestions(ctx context.Context, chunks []string, count int) ([]*domain.GeneratedQuestion, error) {
	if count <= 0 {
		return nil, nil
	}
	if len(chunks) == 0 {
		return nil, fmt.Errorf("at least one chunk is required")
	}

	var prompt strings.Builder
	fmt.Fprintf(&prompt, "Write %d multiple-choice questions based on the following excerpts.\n\n", count)
	for i, chunk := range chunks {
		fmt.Fprintf(&prompt, "Excerpt %d:\n%s\n\n", i+1, chunk)
	}

	reqBody := chatRequest{
		Model: g.model,
		Messages: []chatMessage{
			{Role: "system", Content: questionSystemPrompt},
			{Role: "user", Content: prompt.String()},
		},
		ResponseFormat: &struct {
			Type string `json:"type"`
		}{Type: "json_object"},
		Temperature: 0.7,
	}

	resp, err := g.doRequest(ctx, reqBody)
	if err != nil {
		return nil, err
	}

	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("no completion returned")
	}

	var payload questionsPayload
	if err := json.Unmarshal([]byte(resp.Choices[0].Message.Content), &payload); err != nil {
		return nil, fmt.Errorf("failed to parse generated questions: %w", err)
	}

	return payload.Questions, nil
}

// Model returns the model name being used
func (g *OpenAIQuestionGenerator) Model() string {
	return g.model
}

// Ping verifies the generation service is reachable
func (g *OpenAIQuestionGenerator) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, "GET", g.baseURL+"/models", nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+g.apiKey)

	resp, err := g.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return fmt.Errorf("OpenAI API returned status %d", resp.StatusCode)
	}
	return nil
}

// Close releases resources held by the generator
func (g *OpenAIQuestionGenerator) Close() error {
	g.client.CloseIdleConnections()
	return nil
}

// doRequest makes a request to the chat completions endpoint
func (g *OpenAIQuestionGenerator) doRequest(ctx context.Context, reqBody chatRequest) (*chatResponse, error) {
	body, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", g.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+g.apiKey)

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	var chatResp chatResponse
	if err := json.Unmarshal(respBody, &chatResp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	if chatResp.Error != nil {
		return nil, fmt.Errorf("OpenAI API error: %s (type: %s, code: %s)",
			chatResp.Error.Message, chatResp.Error.Type, chatResp.Error.Code)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("OpenAI API returned status %d", resp.StatusCode)
	}

	return &chatResp, nil
}
