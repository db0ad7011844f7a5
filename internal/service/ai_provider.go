package service

import (
	"ai_course_backend/internal/config"
	"ai_course_backend/internal/util"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-resty/resty/v2"
)

// TextGenerator 屏蔽不同大模型接口的差异
type TextGenerator interface {
	GenerateText(ctx context.Context, prompt string) (string, error)
	Provider() string
}

// APIError 模型接口返回的非 200 响应
type APIError struct {
	StatusCode int
	Status     string
	Message    string
}

func (e *APIError) Error() string {
	if e.Status != "" {
		return fmt.Sprintf("AI API error (status %d %s): %s", e.StatusCode, e.Status, e.Message)
	}
	return fmt.Sprintf("AI API error (status %d): %s", e.StatusCode, e.Message)
}

var errEmptyCompletion = errors.New("AI returned an empty response")

// NewTextGenerator 按配置创建 provider，未配置 key 时返回 ErrAINotConfigured
func NewTextGenerator(cfg config.AIConfig) (TextGenerator, error) {
	if !cfg.Configured() {
		return nil, util.ErrAINotConfigured
	}

	client := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetTimeout(cfg.Timeout).
		SetHeader("Content-Type", "application/json")

	switch strings.ToLower(cfg.Provider) {
	case "", util.ProviderGemini:
		return &GeminiGenerator{client: client.SetHeader("x-goog-api-key", cfg.APIKey), model: cfg.Model}, nil
	case util.ProviderOpenAI:
		return &OpenAIGenerator{client: client.SetAuthToken(cfg.APIKey), model: cfg.Model}, nil
	default:
		return nil, fmt.Errorf("unsupported AI provider %q", cfg.Provider)
	}
}

// GeminiGenerator generateContent REST 接口
type GeminiGenerator struct {
	client *resty.Client
	model  string
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiRequest struct {
	Contents []geminiContent `json:"contents"`
}

type geminiResponse struct {
	Candidates []struct {
		Content      geminiContent `json:"content"`
		FinishReason string        `json:"finishReason"`
	} `json:"candidates"`
}

type geminiErrorResponse struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

func (g *GeminiGenerator) Provider() string { return util.ProviderGemini }

func (g *GeminiGenerator) GenerateText(ctx context.Context, prompt string) (string, error) {
	var result geminiResponse
	var apiErr geminiErrorResponse

	resp, err := g.client.R().
		SetContext(ctx).
		SetBody(geminiRequest{Contents: []geminiContent{{Role: "user", Parts: []geminiPart{{Text: prompt}}}}}).
		SetResult(&result).
		SetError(&apiErr).
		Post(fmt.Sprintf("/v1beta/models/%s:generateContent", g.model))
	if err != nil {
		return "", fmt.Errorf("gemini request: %w", err)
	}
	if resp.IsError() {
		msg := apiErr.Error.Message
		if msg == "" {
			msg = resp.String()
		}
		return "", &APIError{StatusCode: resp.StatusCode(), Status: apiErr.Error.Status, Message: msg}
	}

	if len(result.Candidates) == 0 {
		return "", errEmptyCompletion
	}
	var sb strings.Builder
	for _, part := range result.Candidates[0].Content.Parts {
		sb.WriteString(part.Text)
	}
	if sb.Len() == 0 {
		return "", errEmptyCompletion
	}
	return sb.String(), nil
}

// OpenAIGenerator 兼容 OpenAI 的 /chat/completions 接口
type OpenAIGenerator struct {
	client *resty.Client
	model  string
}

type AIChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ChatCompletionRequest struct {
	Model    string          `json:"model"`
	Messages []AIChatMessage `json:"messages"`
}

type ChatCompletionResponse struct {
	Choices []struct {
		Message AIChatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

func (o *OpenAIGenerator) Provider() string { return util.ProviderOpenAI }

func (o *OpenAIGenerator) GenerateText(ctx context.Context, prompt string) (string, error) {
	var result ChatCompletionResponse
	var apiErr ChatCompletionResponse

	resp, err := o.client.R().
		SetContext(ctx).
		SetBody(ChatCompletionRequest{
			Model: o.model,
			Messages: []AIChatMessage{
				{Role: "system", Content: "You are a course designer. Reply with JSON only."},
				{Role: "user", Content: prompt},
			},
		}).
		SetResult(&result).
		SetError(&apiErr).
		Post("/chat/completions")
	if err != nil {
		return "", fmt.Errorf("chat completion request: %w", err)
	}
	if resp.IsError() {
		msg := resp.String()
		status := ""
		if apiErr.Error != nil {
			msg = apiErr.Error.Message
			status = apiErr.Error.Type
		}
		return "", &APIError{StatusCode: resp.StatusCode(), Status: status, Message: msg}
	}

	if result.Error != nil {
		return "", fmt.Errorf("AI API error: %s", result.Error.Message)
	}
	if len(result.Choices) == 0 || result.Choices[0].Message.Content == "" {
		return "", errEmptyCompletion
	}
	return result.Choices[0].Message.Content, nil
}
