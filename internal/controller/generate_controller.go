package controller

import (
	"ai_course_backend/internal/normalizer"
	"ai_course_backend/internal/service"
	"ai_course_backend/internal/util"
	"ai_course_backend/pkg/logger"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// GenerateController 生成类接口直接返回带 success 字段的响应体，与前端约定一致
type GenerateController struct {
	CourseService *service.CourseService
}

func NewGenerateController(courseService *service.CourseService) *GenerateController {
	return &GenerateController{CourseService: courseService}
}

func generationFailed(ctx *gin.Context, status int, message, details string, extra gin.H) {
	body := gin.H{
		"success": false,
		"error":   message,
		"details": details,
	}
	for k, v := range extra {
		body[k] = v
	}
	ctx.JSON(status, body)
}

// writeGenerationError 把服务层错误映射为 HTTP 响应
func writeGenerationError(ctx *gin.Context, err error, extra gin.H) {
	var perr *normalizer.ParseError
	switch {
	case errors.As(err, &perr):
		extra = mergeH(extra, gin.H{"rawResponse": perr.Raw})
		generationFailed(ctx, http.StatusOK, "AI generated invalid JSON format", perr.Cause.Error(), extra)
	case errors.Is(err, util.ErrAINotConfigured):
		extra = mergeH(extra, gin.H{"code": util.CodeAINotConfigured})
		generationFailed(ctx, http.StatusInternalServerError, "Server configuration error", err.Error(), extra)
	case errors.Is(err, service.ErrRateLimitExceeded):
		extra = mergeH(extra, gin.H{"code": util.CodeRateLimited})
		generationFailed(ctx, http.StatusInternalServerError, err.Error(), err.Error(), extra)
	case errors.Is(err, util.ErrUserNotFound):
		extra = mergeH(extra, gin.H{"code": util.CodeUserNotFound})
		generationFailed(ctx, http.StatusBadRequest, "user not found", "Sign in again so your account can be synced", extra)
	case errors.Is(err, util.ErrCourseNotFound):
		generationFailed(ctx, http.StatusNotFound, "Course not found", err.Error(), extra)
	case errors.Is(err, util.ErrNoChapters):
		generationFailed(ctx, http.StatusBadRequest, "Missing required fields", "chapterName and topics array are required", extra)
	default:
		logger.Log.Error("Generation failed", zap.String("path", ctx.FullPath()), zap.Error(err))
		generationFailed(ctx, http.StatusInternalServerError, "Failed to generate course", err.Error(), extra)
	}
}

func mergeH(base, add gin.H) gin.H {
	if base == nil {
		return add
	}
	for k, v := range add {
		base[k] = v
	}
	return base
}

// GenerateLayout godoc
// @Summary 生成课程大纲
// @Description 调用大模型生成课程大纲、处理封面图并保存课程
// @Tags 生成
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   body body service.LayoutRequest true "课程需求"
// @Success 200 {object} map[string]interface{} "success=true 时包含 course / courseId / dbRecord"
// @Failure 400 {object} map[string]interface{} "参数错误或用户未同步"
// @Failure 401 {object} util.Response "未授权"
// @Failure 500 {object} map[string]interface{} "生成或保存失败"
// @Router /generate-layout-ai [post]
func (c *GenerateController) GenerateLayout(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	var req service.LayoutRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		generationFailed(ctx, http.StatusBadRequest, "Missing required fields", err.Error(), nil)
		return
	}

	res, err := c.CourseService.GenerateLayout(ctx.Request.Context(), claims.Email, &req)
	if err != nil {
		if res != nil && !errors.Is(err, util.ErrUserNotFound) {
			generationFailed(ctx, http.StatusInternalServerError, "Failed to save course to database", err.Error(), gin.H{"course": res.Layout})
			return
		}
		extra := gin.H{"course": nil}
		if res != nil {
			extra["course"] = res.Layout
		}
		writeGenerationError(ctx, err, extra)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"success":           true,
		"message":           "Course generated and saved successfully",
		"course":            res.Layout,
		"courseId":          res.Course.Cid,
		"dbRecord":          res.Course,
		"userEmail":         claims.Email,
		"bannerImageurl":    res.BannerImageURL,
		"bannerImageSource": res.BannerImageSource,
		"generatedAt":       time.Now().UTC().Format(time.RFC3339),
	})
}

// GenerateContent godoc
// @Summary 生成课程内容
// @Description 请求体含 chapters 时逐章生成整门课程并保存，否则只生成单个章节
// @Tags 生成
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   body body service.CourseContentRequest true "整门课程（或 service.ChapterRequest 单章节）"
// @Success 200 {object} map[string]interface{} "成功"
// @Failure 400 {object} map[string]interface{} "参数错误"
// @Failure 401 {object} util.Response "未授权"
// @Failure 500 {object} map[string]interface{} "生成或保存失败"
// @Router /generate-content [post]
func (c *GenerateController) GenerateContent(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	body, err := ctx.GetRawData()
	if err != nil {
		generationFailed(ctx, http.StatusBadRequest, "Invalid request body", err.Error(), nil)
		return
	}

	var probe struct {
		Chapters json.RawMessage `json:"chapters"`
	}
	if err := json.Unmarshal(body, &probe); err != nil {
		generationFailed(ctx, http.StatusBadRequest, "Invalid request body", err.Error(), nil)
		return
	}

	if len(probe.Chapters) > 0 && string(probe.Chapters) != "null" {
		c.generateCourseContent(ctx, claims.Email, body)
		return
	}
	c.generateChapter(ctx, body)
}

func (c *GenerateController) generateChapter(ctx *gin.Context, body []byte) {
	var req service.ChapterRequest
	if err := json.Unmarshal(body, &req); err != nil {
		generationFailed(ctx, http.StatusBadRequest, "Invalid request body", err.Error(), nil)
		return
	}

	chapter, err := c.CourseService.GenerateChapter(ctx.Request.Context(), &req)
	if err != nil {
		writeGenerationError(ctx, err, nil)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"success":     true,
		"message":     "Content generated successfully",
		"data":        chapter,
		"generatedAt": time.Now().UTC().Format(time.RFC3339),
	})
}

func (c *GenerateController) generateCourseContent(ctx *gin.Context, ownerEmail string, body []byte) {
	var req service.CourseContentRequest
	if err := json.Unmarshal(body, &req); err != nil {
		generationFailed(ctx, http.StatusBadRequest, "Invalid request body", err.Error(), nil)
		return
	}
	if req.CourseID == "" && req.CourseName == "" {
		generationFailed(ctx, http.StatusBadRequest, "Missing required fields", "courseId or courseName is required", nil)
		return
	}

	res, err := c.CourseService.GenerateCourseContent(ctx.Request.Context(), ownerEmail, &req)
	if errors.Is(err, util.ErrAllChaptersFailed) && res != nil {
		extra := gin.H{
			"courseId":       res.CourseID,
			"content":        res.Content,
			"chapterCount":   res.ChapterCount,
			"failedChapters": res.FailedChapters,
			"totalVideos":    res.TotalVideos,
		}
		// 限流按限流错误返回，其余按生成失败返回 200
		if errors.Is(err, service.ErrRateLimitExceeded) {
			extra["code"] = util.CodeRateLimited
			generationFailed(ctx, http.StatusInternalServerError, service.ErrRateLimitExceeded.Error(), err.Error(), extra)
			return
		}
		generationFailed(ctx, http.StatusOK, "Failed to generate course content", err.Error(), extra)
		return
	}
	if err != nil {
		if res != nil {
			logger.Log.Error("Failed to persist course content", zap.String("cid", res.CourseID), zap.Error(err))
			generationFailed(ctx, http.StatusInternalServerError, "Failed to save course content", err.Error(), gin.H{
				"courseId":       res.CourseID,
				"content":        res.Content,
				"chapterCount":   res.ChapterCount,
				"failedChapters": res.FailedChapters,
				"totalVideos":    res.TotalVideos,
			})
			return
		}
		writeGenerationError(ctx, err, nil)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"success":        true,
		"courseId":       res.CourseID,
		"content":        res.Content,
		"chapterCount":   res.ChapterCount,
		"failedChapters": res.FailedChapters,
		"totalVideos":    res.TotalVideos,
	})
}

// GetProgress godoc
// @Summary 查询生成进度
// @Tags 生成
// @Produce  json
// @Security ApiKeyAuth
// @Param   courseId query string true "课程 cid"
// @Success 200 {object} util.Response{data=service.GenerationProgress} "成功"
// @Failure 404 {object} util.Response "无进度记录"
// @Router /generate-content/progress [get]
func (c *GenerateController) GetProgress(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	cid := ctx.Query("courseId")
	if cid == "" {
		util.BadRequest(ctx, "courseId is required")
		return
	}

	progress, err := c.CourseService.GetProgress(ctx.Request.Context(), claims.Email, cid)
	switch {
	case errors.Is(err, util.ErrCourseNotFound), errors.Is(err, util.ErrProgressNotAvailable):
		util.Error(ctx, http.StatusNotFound, err.Error())
	case err != nil:
		util.LogInternalError(ctx, err)
	default:
		util.Success(ctx, progress)
	}
}
