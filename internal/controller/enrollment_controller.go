package controller

import (
	"ai_course_backend/internal/service"
	"ai_course_backend/internal/util"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
)

type EnrollmentController struct {
	EnrollmentService *service.EnrollmentService
}

func NewEnrollmentController(enrollmentService *service.EnrollmentService) *EnrollmentController {
	return &EnrollmentController{EnrollmentService: enrollmentService}
}

// EnrollRequest swagger:model EnrollRequest
type EnrollRequest struct {
	CourseID string `json:"courseId" binding:"required"`
}

// ChapterProgressRequest swagger:model ChapterProgressRequest
type ChapterProgressRequest struct {
	CourseID     string `json:"courseId" binding:"required"`
	ChapterIndex *int   `json:"chapterIndex" binding:"required"`
}

// Enroll godoc
// @Summary 报名课程
// @Description 已报名时返回 "Already enrolled"
// @Tags 报名
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   body body EnrollRequest true "课程 cid"
// @Success 200 {object} util.Response "已报名"
// @Success 201 {object} util.Response{data=model.Enrollment} "报名成功"
// @Failure 400 {object} util.Response "参数错误、课程不存在或用户未同步"
// @Failure 401 {object} util.Response "未授权"
// @Router /enroll-course [post]
func (c *EnrollmentController) Enroll(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	var req EnrollRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	enrollment, err := c.EnrollmentService.Enroll(req.CourseID, claims.Email)
	switch {
	case errors.Is(err, util.ErrAlreadyEnrolled):
		util.Message(ctx, err.Error())
	case errors.Is(err, util.ErrCourseNotFound), errors.Is(err, util.ErrUserNotFound):
		util.BadRequest(ctx, err.Error())
	case err != nil:
		util.LogInternalError(ctx, err)
	default:
		util.Created(ctx, enrollment)
	}
}

// ListEnrolled godoc
// @Summary 我的报名
// @Description 当前用户的报名及对应课程，最新报名在前
// @Tags 报名
// @Produce  json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response{data=[]service.EnrolledCourse} "成功"
// @Failure 401 {object} util.Response "未授权"
// @Router /enroll-course [get]
func (c *EnrollmentController) ListEnrolled(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	items, err := c.EnrollmentService.ListEnrolled(claims.Email)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, items)
}

// UpdateProgress godoc
// @Summary 记录章节完成
// @Tags 报名
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   body body ChapterProgressRequest true "章节下标"
// @Success 200 {object} util.Response{data=model.Enrollment} "成功"
// @Failure 400 {object} util.Response "章节越界"
// @Failure 404 {object} util.Response "未报名"
// @Router /enroll-course/progress [put]
func (c *EnrollmentController) UpdateProgress(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	var req ChapterProgressRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	enrollment, err := c.EnrollmentService.CompleteChapter(req.CourseID, claims.Email, *req.ChapterIndex)
	switch {
	case errors.Is(err, util.ErrEnrollmentNotFound):
		util.Error(ctx, http.StatusNotFound, err.Error())
	case errors.Is(err, util.ErrChapterOutOfRange):
		util.BadRequest(ctx, err.Error())
	case err != nil:
		util.LogInternalError(ctx, err)
	default:
		util.Success(ctx, enrollment)
	}
}
