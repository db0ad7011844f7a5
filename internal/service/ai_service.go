package service

import (
	"ai_course_backend/internal/model"
	"ai_course_backend/internal/normalizer"
	"ai_course_backend/internal/util"
	"ai_course_backend/pkg/logger"
	"ai_course_backend/pkg/monitoring"
	"ai_course_backend/pkg/tracing"
	"context"
	"encoding/json"
	"errors"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

const layoutPrompt = `Generate a comprehensive Learning Course based on the user's input.

Requirements:
- Create a detailed course structure with proper chapters and topics
- Include a creative banner image prompt for visual representation
- Ensure all durations are realistic and appropriate for the content
- Make topics specific, actionable, and well-organized

Return ONLY valid JSON in this exact format (no additional text or markdown):

{
  "course": {
    "name": "Course Title",
    "description": "Detailed course description",
    "duration": "duration of the course",
    "category": "Main category",
    "level": "Beginner/Intermediate/Expert",
    "includevideo": true,
    "chapter": 5,
    "bannerImagePrompt": "Create a modern, flat-style 2D digital illustration for a course banner titled \"{course.name}\". Use a clean, vibrant and professional design with smooth gradients, geometric shapes and minimalist icons. Include stylish typography displaying the course name prominently. Visually represent the course topic using relevant elements or symbols. The final artwork should look like a premium educational platform banner.",
    "chapters": [
      {
        "chapterName": "Chapter Title",
        "duration": "2 hours",
        "topics": ["Topic 1", "Topic 2", "Topic 3"]
      }
    ]
  }
}

User Input:
`

const chapterPrompt = `Generate detailed content for each topic in the course chapter.
CRITICAL: Return ONLY valid JSON with no line breaks in content strings.

Return exactly this JSON structure:
{
  "chapterName": "string",
  "topics": [
    {
      "topic": "string",
      "content": "string (HTML formatted, use <br> instead of newlines)"
    }
  ]
}

IMPORTANT RULES:
1. NO line breaks (\n) inside content strings - use <br> tags instead
2. Content should be 200-300 words per topic
3. Use HTML: <h3>, <p>, <ul>, <li>, <strong>, <em>, <br>
4. Keep all JSON on single lines (no pretty printing)
5. Escape all quotes inside content with \"

User Input:`

type chapterPromptInput struct {
	ChapterName string   `json:"chapterName"`
	Topics      []string `json:"topics"`
}

// AIService 提示词组装、限流重试与结果规整
type AIService struct {
	generator TextGenerator
	settings  *GenerationSettings
	sleep     SleepFunc
}

// NewAIService generator 为 nil 表示未配置 key，调用时返回 ErrAINotConfigured
func NewAIService(generator TextGenerator, settings *GenerationSettings) *AIService {
	return &AIService{generator: generator, settings: settings, sleep: ContextSleep}
}

func (s *AIService) Configured() bool {
	return s.generator != nil
}

func (s *AIService) provider() string {
	if s.generator == nil {
		return "none"
	}
	return s.generator.Provider()
}

func (s *AIService) call(ctx context.Context, operation, prompt string) (string, error) {
	if s.generator == nil {
		return "", util.ErrAINotConfigured
	}

	ctx, span := tracing.StartSpan(ctx, "ai."+operation, attribute.String("ai.provider", s.provider()))
	text, err := WithRateLimitRetry(ctx, s.settings.RetryPolicy(s.sleep), func(ctx context.Context) (string, error) {
		return s.generator.GenerateText(ctx, prompt)
	})
	tracing.EndSpan(span, err)

	outcome := "success"
	switch {
	case errors.Is(err, ErrRateLimitExceeded):
		outcome = "rate_limited"
	case err != nil:
		outcome = "error"
	}
	monitoring.AICalls.WithLabelValues(s.provider(), operation, outcome).Inc()
	return text, err
}

// GenerateLayout 生成课程大纲；解析失败时返回 *normalizer.ParseError
func (s *AIService) GenerateLayout(ctx context.Context, req *LayoutRequest) (*model.CourseLayout, error) {
	input, err := json.MarshalIndent(layoutPromptInput{
		Name:         req.Name,
		Description:  req.Description,
		Chapter:      req.Chapter,
		IncludeVideo: req.IncludeVideo,
		Category:     req.Category.String(),
		Level:        req.Level,
	}, "", "  ")
	if err != nil {
		return nil, err
	}

	text, err := s.call(ctx, "layout", layoutPrompt+string(input))
	if err != nil {
		return nil, err
	}

	layout, strategy, err := normalizer.DecodeLayout(text, s.settings.Get().NewlineMarker)
	if err != nil {
		monitoring.NormalizerStrategy.WithLabelValues("layout", "failed").Inc()
		logger.Log.Warn("Failed to parse course layout",
			zap.Error(err),
			zap.String("raw", logger.Truncate(text, 500)),
		)
		return nil, err
	}
	monitoring.NormalizerStrategy.WithLabelValues("layout", strategy).Inc()
	return layout, nil
}

// GenerateChapter 生成单个章节各主题的正文
func (s *AIService) GenerateChapter(ctx context.Context, chapterName string, topics []string) (*model.ChapterContent, error) {
	input, err := json.MarshalIndent(chapterPromptInput{ChapterName: chapterName, Topics: topics}, "", "  ")
	if err != nil {
		return nil, err
	}

	text, err := s.call(ctx, "chapter", chapterPrompt+string(input))
	if err != nil {
		return nil, err
	}

	chapter, strategy, err := normalizer.DecodeChapter(text, s.settings.Get().NewlineMarker)
	if err != nil {
		monitoring.NormalizerStrategy.WithLabelValues("chapter", "failed").Inc()
		logger.Log.Warn("Failed to parse chapter content",
			zap.String("chapter", chapterName),
			zap.Error(err),
		)
		return nil, err
	}
	if strategy != "direct" {
		logger.Log.Info("Chapter content repaired", zap.String("chapter", chapterName), zap.String("strategy", strategy))
	}
	monitoring.NormalizerStrategy.WithLabelValues("chapter", strategy).Inc()

	if chapter.ChapterName == "" {
		chapter.ChapterName = chapterName
	}
	return chapter, nil
}

// describeError 给前端的简短错误说明
func describeError(err error) string {
	var perr *normalizer.ParseError
	switch {
	case errors.As(err, &perr):
		return "AI generated invalid JSON format"
	case errors.Is(err, ErrRateLimitExceeded):
		return ErrRateLimitExceeded.Error()
	default:
		return err.Error()
	}
}
