package controller

import (
	"ai_course_backend/internal/service"
	"ai_course_backend/internal/util"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
)

// UserController 处理用户相关的HTTP请求
type UserController struct {
	UserService *service.UserService
}

func NewUserController(userService *service.UserService) *UserController {
	return &UserController{
		UserService: userService,
	}
}

// CreateUserRequest 首次登录时同步用户
// swagger:model CreateUserRequest
type CreateUserRequest struct {
	Email string `json:"email" binding:"required,email"`
	Name  string `json:"name"`
}

// UpdateSubscriptionRequest swagger:model UpdateSubscriptionRequest
type UpdateSubscriptionRequest struct {
	SubscriptionID string `json:"subscriptionId" binding:"required"`
}

// CreateUser godoc
// @Summary 同步用户
// @Description 用户不存在时创建，已存在时返回提示，不做更新
// @Tags 用户
// @Accept  json
// @Produce  json
// @Param   body body CreateUserRequest true "用户信息"
// @Success 200 {object} util.Response{data=model.User} "已存在"
// @Success 201 {object} util.Response{data=model.User} "已创建"
// @Failure 400 {object} util.Response "参数错误"
// @Failure 500 {object} util.Response "服务器内部错误"
// @Router /user [post]
func (c *UserController) CreateUser(ctx *gin.Context) {
	var req CreateUserRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	user, err := c.UserService.EnsureUser(req.Email, req.Name)
	if errors.Is(err, util.ErrUserAlreadyExists) {
		util.Message(ctx, err.Error())
		return
	}
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}

	util.Created(ctx, user)
}

// UpdateSubscription godoc
// @Summary 更新订阅
// @Description 更新当前用户的订阅 ID
// @Tags 用户
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   body body UpdateSubscriptionRequest true "订阅信息"
// @Success 200 {object} util.Response{data=model.User} "成功"
// @Failure 401 {object} util.Response "未授权"
// @Failure 404 {object} util.Response "用户不存在"
// @Router /user/subscription [put]
func (c *UserController) UpdateSubscription(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	var req UpdateSubscriptionRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	user, err := c.UserService.UpdateSubscription(claims.Email, req.SubscriptionID)
	if errors.Is(err, util.ErrUserNotFound) {
		util.Error(ctx, http.StatusNotFound, err.Error())
		return
	}
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}

	util.Success(ctx, user)
}
