package service

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"ai_course_backend/internal/config"
	"ai_course_backend/internal/util"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeJSON(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write([]byte(body))
}

func TestNewTextGeneratorRequiresKey(t *testing.T) {
	_, err := NewTextGenerator(config.AIConfig{Provider: "gemini"})
	assert.ErrorIs(t, err, util.ErrAINotConfigured)

	_, err = NewTextGenerator(config.AIConfig{Provider: "claude", APIKey: "k"})
	assert.Error(t, err)
}

func TestGeminiGenerator(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1beta/models/gemini-2.5-flash:generateContent", r.URL.Path)
		assert.Equal(t, "secret", r.Header.Get("x-goog-api-key"))

		var req geminiRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "hello", req.Contents[0].Parts[0].Text)

		writeJSON(w, http.StatusOK, `{"candidates":[{"content":{"parts":[{"text":"{\"a\":"},{"text":"1}"}]}}]}`)
	}))
	defer srv.Close()

	gen, err := NewTextGenerator(config.AIConfig{Provider: "gemini", BaseURL: srv.URL, APIKey: "secret", Model: "gemini-2.5-flash", Timeout: 5 * time.Second})
	require.NoError(t, err)
	assert.Equal(t, "gemini", gen.Provider())

	text, err := gen.GenerateText(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, `{"a":1}`, text)
}

func TestGeminiGeneratorRateLimit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusTooManyRequests, `{"error":{"code":429,"message":"Quota exceeded","status":"RESOURCE_EXHAUSTED"}}`)
	}))
	defer srv.Close()

	gen, err := NewTextGenerator(config.AIConfig{Provider: "gemini", BaseURL: srv.URL, APIKey: "k", Model: "m", Timeout: 5 * time.Second})
	require.NoError(t, err)

	_, err = gen.GenerateText(context.Background(), "x")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusTooManyRequests, apiErr.StatusCode)
	assert.Equal(t, "Quota exceeded", apiErr.Message)
	assert.True(t, IsRateLimited(err))
}

func TestOpenAIGenerator(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer k", r.Header.Get("Authorization"))

		var req ChatCompletionRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "gpt-test", req.Model)
		assert.Equal(t, "prompt", req.Messages[len(req.Messages)-1].Content)

		writeJSON(w, http.StatusOK, `{"choices":[{"message":{"role":"assistant","content":"done"}}]}`)
	}))
	defer srv.Close()

	gen, err := NewTextGenerator(config.AIConfig{Provider: "openai", BaseURL: srv.URL + "/", APIKey: "k", Model: "gpt-test", Timeout: 5 * time.Second})
	require.NoError(t, err)

	text, err := gen.GenerateText(context.Background(), "prompt")
	require.NoError(t, err)
	assert.Equal(t, "done", text)
}

func TestOpenAIGeneratorServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusInternalServerError, `{"error":{"message":"boom","type":"server_error"}}`)
	}))
	defer srv.Close()

	gen, err := NewTextGenerator(config.AIConfig{Provider: "openai", BaseURL: srv.URL, APIKey: "k", Model: "m", Timeout: 5 * time.Second})
	require.NoError(t, err)

	_, err = gen.GenerateText(context.Background(), "prompt")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "boom", apiErr.Message)
	assert.False(t, IsRateLimited(err))
}
