package service

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"ai_course_backend/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestImageServiceGenerateBanner(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/generate-image", r.URL.Path)
		assert.Equal(t, "img-key", r.Header.Get("x-api-key"))

		var req generateImageRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, 1024, req.Width)
		assert.Equal(t, "flux", req.Model)
		assert.Equal(t, "16:9", req.AspectRatio)
		assert.Equal(t, "a banner", req.Input)

		writeJSON(w, http.StatusOK, `{"image":"https://cdn.example.com/banner.png"}`)
	}))
	defer srv.Close()

	svc := NewImageService(config.ImageConfig{APIKey: "img-key", BaseURL: srv.URL, Model: "flux", Timeout: 5 * time.Second}, nil)
	url, err := svc.GenerateBanner(context.Background(), "a banner")
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/banner.png", url)
}

func TestImageServiceMirrorsDataURL(t *testing.T) {
	payload := base64.StdEncoding.EncodeToString([]byte("fake-png"))
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, `{"image":"data:image/png;base64,`+payload+`"}`)
	}))
	defer srv.Close()

	dir := t.TempDir()
	storage := NewStorageService(&config.StorageConfig{Type: "local", LocalPath: dir})
	svc := NewImageService(config.ImageConfig{APIKey: "k", BaseURL: srv.URL, Model: "flux", Timeout: 5 * time.Second, MirrorToStorage: true}, storage)

	url, err := svc.GenerateBanner(context.Background(), "prompt")
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(url, "/uploads/banners/"), url)

	data, err := os.ReadFile(filepath.Join(dir, strings.TrimPrefix(url, "/uploads/")))
	require.NoError(t, err)
	assert.Equal(t, "fake-png", string(data))
}

func TestImageServiceNotConfigured(t *testing.T) {
	svc := NewImageService(config.ImageConfig{}, nil)
	_, err := svc.GenerateBanner(context.Background(), "prompt")
	assert.Error(t, err)
}

type stubBanner struct {
	url   string
	err   error
	calls int
}

func (s *stubBanner) GenerateBanner(ctx context.Context, prompt string) (string, error) {
	s.calls++
	return s.url, s.err
}

func TestBannerResolver(t *testing.T) {
	ctx := context.Background()

	t.Run("custom url kept even if invalid", func(t *testing.T) {
		gen := &stubBanner{url: "ignored"}
		url, source := NewBannerResolver(gen).Resolve(ctx, "custom", "not a url", "prompt")
		assert.Equal(t, "not a url", url)
		assert.Equal(t, "custom", source)
		assert.Zero(t, gen.calls)
	})

	t.Run("ai by default", func(t *testing.T) {
		gen := &stubBanner{url: "https://img/1.png"}
		url, source := NewBannerResolver(gen).Resolve(ctx, "", "", "prompt")
		assert.Equal(t, "https://img/1.png", url)
		assert.Equal(t, "ai", source)
	})

	t.Run("no prompt", func(t *testing.T) {
		gen := &stubBanner{url: "https://img/1.png"}
		url, _ := NewBannerResolver(gen).Resolve(ctx, "ai", "", "")
		assert.Empty(t, url)
		assert.Zero(t, gen.calls)
	})

	t.Run("failure swallowed", func(t *testing.T) {
		gen := &stubBanner{err: errors.New("timeout")}
		url, source := NewBannerResolver(gen).Resolve(ctx, "ai", "", "prompt")
		assert.Empty(t, url)
		assert.Equal(t, "ai", source)
	})
}
