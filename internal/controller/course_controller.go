package controller

import (
	"ai_course_backend/internal/service"
	"ai_course_backend/internal/util"
	"errors"

	"github.com/gin-gonic/gin"
)

type CourseController struct {
	CourseService *service.CourseService
}

func NewCourseController(courseService *service.CourseService) *CourseController {
	return &CourseController{CourseService: courseService}
}

// GetCourses godoc
// @Summary 获取课程
// @Description 带 courseId 时返回单个课程，否则返回当前用户创建的课程（最新在前）
// @Tags 课程
// @Produce  json
// @Security ApiKeyAuth
// @Param   courseId query string false "课程 cid"
// @Success 200 {object} util.Response{data=model.Course} "单个课程"
// @Success 200 {object} util.Response{data=[]model.Course} "课程列表"
// @Failure 401 {object} util.Response "未授权"
// @Failure 404 {object} util.Response "课程不存在"
// @Router /courses [get]
func (c *CourseController) GetCourses(ctx *gin.Context) {
	if cid := ctx.Query("courseId"); cid != "" {
		course, err := c.CourseService.GetByCid(cid)
		if errors.Is(err, util.ErrCourseNotFound) {
			util.NotFound(ctx)
			return
		}
		if err != nil {
			util.LogInternalError(ctx, err)
			return
		}
		util.Success(ctx, course)
		return
	}

	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	courses, err := c.CourseService.ListByOwner(claims.Email)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, courses)
}
