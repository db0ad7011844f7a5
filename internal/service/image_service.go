package service

import (
	"ai_course_backend/internal/config"
	"ai_course_backend/internal/util"
	"ai_course_backend/pkg/logger"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type generateImageRequest struct {
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	Input       string `json:"input"`
	Model       string `json:"model"`
	AspectRatio string `json:"aspectRatio"`
}

type generateImageResponse struct {
	Image string `json:"image"`
}

// BannerGenerator 封面图生成
type BannerGenerator interface {
	GenerateBanner(ctx context.Context, prompt string) (string, error)
}

// ImageService 调用图片生成接口，可选转存到对象存储
type ImageService struct {
	client   *resty.Client
	download *resty.Client
	cfg      config.ImageConfig
	storage  *StorageService
}

func NewImageService(cfg config.ImageConfig, storage *StorageService) *ImageService {
	client := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetTimeout(cfg.Timeout).
		SetHeader("Content-Type", "application/json").
		SetHeader("x-api-key", cfg.APIKey)
	return &ImageService{
		client:   client,
		download: resty.New().SetTimeout(cfg.Timeout),
		cfg:      cfg,
		storage:  storage,
	}
}

func (s *ImageService) Configured() bool {
	return s.cfg.APIKey != ""
}

func (s *ImageService) GenerateBanner(ctx context.Context, prompt string) (string, error) {
	if !s.Configured() {
		return "", errors.New("image API key not configured")
	}

	var result generateImageResponse
	resp, err := s.client.R().
		SetContext(ctx).
		SetBody(generateImageRequest{
			Width:       1024,
			Height:      1024,
			Input:       prompt,
			Model:       s.cfg.Model,
			AspectRatio: "16:9",
		}).
		SetResult(&result).
		Post("/api/generate-image")
	if err != nil {
		return "", fmt.Errorf("image generation request: %w", err)
	}
	if resp.IsError() {
		return "", fmt.Errorf("image API error (status %d): %s", resp.StatusCode(), logger.Truncate(resp.String(), 300))
	}
	if result.Image == "" {
		return "", errors.New("image API returned no image")
	}

	if !s.cfg.MirrorToStorage || s.storage == nil {
		return result.Image, nil
	}
	mirrored, err := s.mirror(ctx, result.Image)
	if err != nil {
		logger.Log.Warn("Failed to mirror banner image, keeping original URL", zap.Error(err))
		return result.Image, nil
	}
	return mirrored, nil
}

// mirror 支持 http(s) 地址和 data URL 两种返回
func (s *ImageService) mirror(ctx context.Context, image string) (string, error) {
	var (
		data        []byte
		contentType string
	)

	if strings.HasPrefix(image, "data:") {
		meta, payload, ok := strings.Cut(strings.TrimPrefix(image, "data:"), ",")
		if !ok || !strings.HasSuffix(meta, ";base64") {
			return "", errors.New("unsupported data URL")
		}
		decoded, err := base64.StdEncoding.DecodeString(payload)
		if err != nil {
			return "", err
		}
		data = decoded
		contentType = strings.TrimSuffix(meta, ";base64")
	} else {
		resp, err := s.download.R().SetContext(ctx).Get(image)
		if err != nil {
			return "", err
		}
		if resp.StatusCode() != http.StatusOK {
			return "", fmt.Errorf("download banner: status %d", resp.StatusCode())
		}
		data = resp.Body()
		contentType = resp.Header().Get("Content-Type")
	}

	if contentType == "" {
		contentType = "image/png"
	}
	ext := ".png"
	if exts, _ := mime.ExtensionsByType(contentType); len(exts) > 0 {
		ext = exts[0]
	}
	filename := fmt.Sprintf("banners/%s%s", uuid.NewString(), ext)
	return s.storage.UploadBytes(ctx, filename, data, contentType)
}

// BannerResolver 根据用户选择决定封面来源
type BannerResolver struct {
	generator BannerGenerator
}

func NewBannerResolver(generator BannerGenerator) *BannerResolver {
	return &BannerResolver{generator: generator}
}

// Resolve 返回封面地址和来源；生成失败只记日志
func (r *BannerResolver) Resolve(ctx context.Context, option, customURL, prompt string) (string, string) {
	if option == util.BannerOptionCustom {
		if _, err := url.ParseRequestURI(customURL); err != nil {
			logger.Log.Warn("Invalid custom banner URL, storing as provided", zap.String("url", customURL))
		}
		return customURL, util.BannerOptionCustom
	}

	source := option
	if source == "" {
		source = util.BannerOptionAI
	}
	if prompt == "" || r.generator == nil {
		logger.Log.Info("No banner image prompt, skipping banner generation")
		return "", source
	}

	imageURL, err := r.generator.GenerateBanner(ctx, prompt)
	if err != nil {
		logger.Log.Warn("Banner image generation failed", zap.Error(err))
		return "", source
	}
	return imageURL, source
}
