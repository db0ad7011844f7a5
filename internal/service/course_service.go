package service

import (
	"ai_course_backend/internal/model"
	"ai_course_backend/internal/repository"
	"ai_course_backend/internal/util"
	"ai_course_backend/pkg/logger"
	"ai_course_backend/pkg/monitoring"
	"ai_course_backend/pkg/tracing"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// CourseService 课程大纲与内容生成
type CourseService struct {
	CourseRepo *repository.CourseRepository
	AI         *AIService
	Videos     VideoSearcher
	Banners    *BannerResolver
	Progress   ProgressTracker
	Settings   *GenerationSettings

	sleep SleepFunc
	now   func() time.Time
}

func NewCourseService(
	courseRepo *repository.CourseRepository,
	ai *AIService,
	videos VideoSearcher,
	banners *BannerResolver,
	progress ProgressTracker,
	settings *GenerationSettings,
) *CourseService {
	return &CourseService{
		CourseRepo: courseRepo,
		AI:         ai,
		Videos:     videos,
		Banners:    banners,
		Progress:   progress,
		Settings:   settings,
		sleep:      ContextSleep,
		now:        time.Now,
	}
}

func (s *CourseService) GetByCid(cid string) (*model.Course, error) {
	course, err := s.CourseRepo.FindByCid(cid)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, util.ErrCourseNotFound
	}
	return course, err
}

func (s *CourseService) ListByOwner(email string) ([]model.Course, error) {
	courses, err := s.CourseRepo.FindByOwner(email)
	if err != nil {
		return nil, fmt.Errorf("list courses: %w", err)
	}
	return courses, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

// GenerateLayout 生成大纲并入库。入库失败时仍返回已生成的大纲
func (s *CourseService) GenerateLayout(ctx context.Context, ownerEmail string, req *LayoutRequest) (*LayoutResult, error) {
	ctx, span := tracing.StartSpan(ctx, "course.generate_layout", attribute.String("course.name", req.Name))
	var spanErr error
	defer func() { tracing.EndSpan(span, spanErr) }()

	layout, err := s.AI.GenerateLayout(ctx, req)
	if err != nil {
		spanErr = err
		return nil, err
	}

	bannerURL, bannerSource := s.Banners.Resolve(ctx, req.BannerImageOption, req.CustomBannerURL, layout.BannerImagePrompt)
	result := &LayoutResult{Layout: layout, BannerImageURL: bannerURL, BannerImageSource: bannerSource}

	outline, err := json.Marshal(model.LayoutEnvelope{Course: layout})
	if err != nil {
		spanErr = err
		return result, fmt.Errorf("encode course outline: %w", err)
	}

	course := &model.Course{
		Cid:               model.GenerateCid(),
		Name:              firstNonEmpty(layout.Name, req.Name),
		Description:       firstNonEmpty(layout.Description, req.Description),
		ChapterCount:      req.Chapter,
		IncludeVideo:      req.IncludeVideo,
		Category:          req.Category.String(),
		Level:             req.Level,
		CourseOutlineJSON: datatypes.JSON(outline),
		OwnerEmail:        ownerEmail,
		BannerImageURL:    bannerURL,
		Status:            model.CourseCreated,
	}
	if err := s.CourseRepo.Create(course); err != nil {
		spanErr = err
		if util.IsForeignKeyViolation(err) {
			return result, util.ErrUserNotFound
		}
		return result, fmt.Errorf("save course: %w", err)
	}

	logger.Log.Info("Course layout generated",
		zap.String("cid", course.Cid),
		zap.String("owner", ownerEmail),
		zap.Int("chapters", len(layout.Chapters)),
	)
	result.Course = course
	return result, nil
}

// GenerateChapter 单章节生成，不入库
func (s *CourseService) GenerateChapter(ctx context.Context, req *ChapterRequest) (*model.ChapterContent, error) {
	topics := model.TopicStrings(req.Topics)
	if strings.TrimSpace(req.ChapterName) == "" || len(topics) == 0 {
		return nil, util.ErrNoChapters
	}

	chapter, err := s.AI.GenerateChapter(ctx, req.ChapterName, topics)
	if err != nil {
		return nil, err
	}
	if req.IncludeVideo && s.Videos != nil {
		s.Videos.EnrichTopics(ctx, chapter.Topics)
	}
	return chapter, nil
}

// resolveCourse courseId 优先，否则按当前用户 + 课程名查找
func (s *CourseService) resolveCourse(ownerEmail string, req *CourseContentRequest) (*model.Course, error) {
	var (
		course *model.Course
		err    error
	)
	if req.CourseID != "" {
		course, err = s.CourseRepo.FindByCid(req.CourseID)
	} else {
		course, err = s.CourseRepo.FindByOwnerAndName(ownerEmail, req.CourseName)
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, util.ErrCourseNotFound
	}
	if err != nil {
		return nil, err
	}
	if course.OwnerEmail != ownerEmail {
		return nil, util.ErrCourseNotFound
	}
	return course, nil
}

func (s *CourseService) saveProgress(ctx context.Context, cid string, p GenerationProgress) {
	if s.Progress == nil {
		return
	}
	// 生成请求结束后进度仍需可查
	if err := s.Progress.Save(context.WithoutCancel(ctx), cid, p); err != nil {
		logger.Log.Warn("Failed to save generation progress", zap.String("cid", cid), zap.Error(err))
	}
}

// GenerateCourseContent 逐章生成全部内容并整体写回课程。
// 单章失败记录在该章的 error 字段中，其余章节继续生成。
// 入库失败时返回已生成的内容和错误。
func (s *CourseService) GenerateCourseContent(ctx context.Context, ownerEmail string, req *CourseContentRequest) (*CourseContentResult, error) {
	if len(req.Chapters) == 0 {
		return nil, util.ErrNoChapters
	}
	if !s.AI.Configured() {
		return nil, util.ErrAINotConfigured
	}
	course, err := s.resolveCourse(ownerEmail, req)
	if err != nil {
		return nil, err
	}

	ctx, span := tracing.StartSpan(ctx, "course.generate_content",
		attribute.String("course.cid", course.Cid),
		attribute.Int("course.chapters", len(req.Chapters)),
	)
	var spanErr error
	defer func() { tracing.EndSpan(span, spanErr) }()

	cfg := s.Settings.Get()
	progress := GenerationProgress{Total: len(req.Chapters), Status: ProgressRunning}
	s.saveProgress(ctx, course.Cid, progress)

	content := &model.CourseContent{
		CourseName:     firstNonEmpty(req.CourseName, course.Name),
		BannerImageURL: firstNonEmpty(req.BannerImageURL, course.BannerImageURL),
		Chapters:       make([]model.GeneratedChapter, 0, len(req.Chapters)),
	}

	rateLimited, anyRateLimited := false, false
	var lastErr error
	for i, ch := range req.Chapters {
		if i > 0 {
			delay := cfg.ChapterDelay
			if rateLimited {
				delay = cfg.RateLimitCooldown
			}
			if err := s.sleep(ctx, delay); err != nil {
				spanErr = err
				progress.Status = ProgressFailed
				s.saveProgress(ctx, course.Cid, progress)
				return nil, err
			}
		}

		progress.Current = ch.ChapterName
		s.saveProgress(ctx, course.Cid, progress)

		generated := model.GeneratedChapter{ChapterName: ch.ChapterName, Duration: ch.Duration, Topics: []model.TopicContent{}}
		chapter, err := s.AI.GenerateChapter(ctx, ch.ChapterName, model.TopicStrings(ch.Topics))
		rateLimited = errors.Is(err, ErrRateLimitExceeded)
		anyRateLimited = anyRateLimited || rateLimited

		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				spanErr = ctxErr
				progress.Status = ProgressFailed
				s.saveProgress(ctx, course.Cid, progress)
				return nil, ctxErr
			}
			logger.Log.Warn("Chapter generation failed",
				zap.String("cid", course.Cid),
				zap.Int("index", i),
				zap.String("chapter", ch.ChapterName),
				zap.Error(err),
			)
			monitoring.ChapterGenerations.WithLabelValues("failed").Inc()
			generated.Error = describeError(err)
			lastErr = err
			content.FailedChapters++
			progress.Failed++
		} else {
			generated.Topics = chapter.Topics
			if req.IncludeVideo && s.Videos != nil {
				generated.VideoCount = s.Videos.EnrichTopics(ctx, generated.Topics)
				content.TotalVideos += generated.VideoCount
			}
			monitoring.ChapterGenerations.WithLabelValues("success").Inc()
			progress.Completed++
		}

		content.Chapters = append(content.Chapters, generated)
		s.saveProgress(ctx, course.Cid, progress)
	}
	content.GeneratedAt = s.now()

	result := &CourseContentResult{
		CourseID:       course.Cid,
		Content:        content,
		ChapterCount:   len(content.Chapters),
		FailedChapters: content.FailedChapters,
		TotalVideos:    content.TotalVideos,
	}

	progress.Current = ""

	// 全部章节失败时保留已有内容和状态
	if content.FailedChapters == len(req.Chapters) {
		cause := lastErr
		if anyRateLimited {
			cause = ErrRateLimitExceeded
		}
		spanErr = cause
		progress.Status = ProgressFailed
		s.saveProgress(ctx, course.Cid, progress)
		logger.Log.Warn("All chapters failed, course content left unchanged",
			zap.String("cid", course.Cid),
			zap.Int("chapters", len(req.Chapters)),
			zap.Error(cause),
		)
		return result, fmt.Errorf("%w: %w", util.ErrAllChaptersFailed, cause)
	}

	data, err := json.Marshal(content)
	if err == nil {
		err = s.CourseRepo.UpdateContent(course.Cid, datatypes.JSON(data), req.BannerImageURL)
	}
	if err != nil {
		spanErr = err
		progress.Status = ProgressFailed
		s.saveProgress(ctx, course.Cid, progress)
		return result, fmt.Errorf("persist course content: %w", err)
	}

	progress.Status = ProgressFinished
	s.saveProgress(ctx, course.Cid, progress)

	logger.Log.Info("Course content generated",
		zap.String("cid", course.Cid),
		zap.Int("chapters", result.ChapterCount),
		zap.Int("failed", result.FailedChapters),
		zap.Int("videos", result.TotalVideos),
	)
	return result, nil
}

// GetProgress 仅课程所有者可查看
func (s *CourseService) GetProgress(ctx context.Context, ownerEmail, cid string) (*GenerationProgress, error) {
	course, err := s.GetByCid(cid)
	if err != nil {
		return nil, err
	}
	if course.OwnerEmail != ownerEmail {
		return nil, util.ErrCourseNotFound
	}
	if s.Progress == nil {
		return nil, util.ErrProgressNotAvailable
	}
	return s.Progress.Get(ctx, cid)
}
