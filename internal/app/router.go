package app

import (
	"ai_course_backend/docs"
	"ai_course_backend/internal/config"
	"ai_course_backend/internal/middleware"
	"ai_course_backend/pkg/monitoring"
	"ai_course_backend/pkg/security"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

func (a *App) registerRoutes(router *gin.Engine, c *controllers, cfg *config.Config) {
	docs.SwaggerInfo.BasePath = "/api"
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler, ginSwagger.URL("/swagger/doc.json")))

	router.GET("/metrics", monitoring.PrometheusHandler())

	api := router.Group("/api")

	// 1. 公共路由(无需登录)
	api.GET("/health", c.health.HealthCheck)
	api.POST("/user", c.user.CreateUser)
	// 单个课程可匿名查看，列表需登录
	api.GET("/courses", middleware.TryAuthMiddleware(cfg), c.course.GetCourses)

	// 2. 需要授权的路由
	authGroup := api.Group("")
	authGroup.Use(middleware.AuthMiddleware(cfg))
	{
		authGroup.PUT("/user/subscription", c.user.UpdateSubscription)

		authGroup.GET("/generate-content/progress", c.generate.GetProgress)

		authGroup.POST("/enroll-course", c.enrollment.Enroll)
		authGroup.GET("/enroll-course", c.enrollment.ListEnrolled)
		authGroup.PUT("/enroll-course/progress", c.enrollment.UpdateProgress)
	}

	// 3. 生成类接口单独限流
	generate := authGroup.Group("")
	generate.Use(security.RateLimiter(cfg.RateLimit.GenerateMaxRequests, rateWindow(cfg)))
	{
		generate.POST("/generate-layout-ai", c.generate.GenerateLayout)
		generate.POST("/generate-content", c.generate.GenerateContent)
	}
}
