package app

import (
	"ai_course_backend/internal/config"
	"ai_course_backend/internal/controller"
	"ai_course_backend/internal/repository"
	"ai_course_backend/internal/service"
	"ai_course_backend/pkg/configwatcher"
	"ai_course_backend/pkg/database"
	"ai_course_backend/pkg/logger"
	"ai_course_backend/pkg/monitoring"
	"ai_course_backend/pkg/security"
	"ai_course_backend/pkg/tracing"
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type App struct {
	Config          *config.Config
	Router          *gin.Engine
	DB              *gorm.DB
	Redis           *redis.Client
	services        *services
	tracer          *sdktrace.TracerProvider
	configDir       string
	configCallbacks []func(*config.Config)
}

type repositories struct {
	user       *repository.UserRepository
	course     *repository.CourseRepository
	enrollment *repository.EnrollmentRepository
}

type services struct {
	settings   *service.GenerationSettings
	storage    *service.StorageService
	ai         *service.AIService
	video      *service.VideoService
	image      *service.ImageService
	progress   service.ProgressTracker
	user       *service.UserService
	course     *service.CourseService
	enrollment *service.EnrollmentService
}

type controllers struct {
	user       *controller.UserController
	course     *controller.CourseController
	generate   *controller.GenerateController
	enrollment *controller.EnrollmentController
	health     *controller.HealthController
}

func (a *App) RegisterConfigCallback(callback func(*config.Config)) {
	a.configCallbacks = append(a.configCallbacks, callback)
}

func (a *App) initRepositories(db *gorm.DB) *repositories {
	return &repositories{
		user:       repository.NewUserRepository(db),
		course:     repository.NewCourseRepository(db),
		enrollment: repository.NewEnrollmentRepository(db),
	}
}

func (a *App) initServices(repos *repositories, cfg *config.Config, rdb *redis.Client) (*services, error) {
	s := &services{}

	s.settings = service.NewGenerationSettings(cfg.Generation)
	s.storage = service.NewStorageService(&cfg.Storage)

	// 未配置 key 时仍可启动，生成接口返回 AI_NOT_CONFIGURED
	generator, err := service.NewTextGenerator(cfg.AI)
	if err != nil {
		logger.Log.Warn("AI provider unavailable", zap.String("provider", cfg.AI.Provider), zap.Error(err))
		generator = nil
	}
	s.ai = service.NewAIService(generator, s.settings)

	s.video, err = service.NewVideoService(context.Background(), cfg.Video, rdb)
	if err != nil {
		return nil, err
	}
	s.image = service.NewImageService(cfg.Image, s.storage)
	s.progress = service.NewProgressTracker(rdb)

	s.user = service.NewUserService(repos.user)
	s.course = service.NewCourseService(
		repos.course,
		s.ai,
		s.video,
		service.NewBannerResolver(s.image),
		s.progress,
		s.settings,
	)
	s.enrollment = service.NewEnrollmentService(repos.enrollment, repos.course)

	a.RegisterConfigCallback(func(newCfg *config.Config) {
		s.settings.Update(newCfg.Generation)
		logger.Log.Info("Generation settings reloaded",
			zap.Duration("chapter_delay", newCfg.Generation.ChapterDelay),
			zap.Int("retry_attempts", newCfg.Generation.RetryAttempts),
		)
	})
	return s, nil
}

func (a *App) initControllers(s *services, db *gorm.DB, rdb *redis.Client) *controllers {
	return &controllers{
		user:       controller.NewUserController(s.user),
		course:     controller.NewCourseController(s.course),
		generate:   controller.NewGenerateController(s.course),
		enrollment: controller.NewEnrollmentController(s.enrollment),
		health:     controller.NewHealthController(db, rdb),
	}
}

func (a *App) setupMiddlewares(router *gin.Engine, cfg *config.Config) {
	router.Use(security.CORS(cfg.CORS.AllowedOrigins))
	router.Use(security.Secure())
	router.Use(security.RateLimiter(cfg.RateLimit.MaxRequests, rateWindow(cfg)))

	if cfg.Tracing.Enabled {
		router.Use(tracing.GinMiddleware())
	}

	router.Use(monitoring.MetricsMiddleware())
}

func rateWindow(cfg *config.Config) time.Duration {
	if cfg.RateLimit.WindowMinutes <= 0 {
		return time.Minute
	}
	return time.Duration(cfg.RateLimit.WindowMinutes) * time.Minute
}

// build 组装依赖和路由，db / rdb 由调用方创建
func build(cfg *config.Config, db *gorm.DB, rdb *redis.Client) (*App, error) {
	app := &App{
		Config: cfg,
		DB:     db,
		Redis:  rdb,
	}

	repos := app.initRepositories(db)
	svcs, err := app.initServices(repos, cfg, rdb)
	if err != nil {
		return nil, err
	}
	app.services = svcs
	controllers := app.initControllers(svcs, db, rdb)

	monitoring.Init()

	gin.SetMode(cfg.Server.Mode)
	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())
	app.Router = router

	app.setupMiddlewares(router, cfg)
	app.registerRoutes(router, controllers, cfg)

	if cfg.Storage.Type == "local" {
		router.Static("/uploads", cfg.Storage.LocalPath)
	}
	return app, nil
}

func NewApp(cfg *config.Config, configDir string) *App {
	logger.InitLogger(cfg)
	logger.Log.Info("Logger initialized successfully")

	db, err := database.InitDB(&cfg.Database, cfg.ForceMigrate || cfg.Server.Mode != "release")
	if err != nil {
		logger.Log.Fatal("Failed to initialize database", zap.Error(err))
		log.Fatalf("Failed to initialize database: %v", err)
	}

	if cfg.MigrateOnly {
		return &App{Config: cfg, DB: db}
	}

	rdb, err := database.InitRedis(&cfg.Redis)
	if err != nil {
		logger.Log.Fatal("Failed to initialize redis", zap.Error(err))
	}

	app, err := build(cfg, db, rdb)
	if err != nil {
		logger.Log.Fatal("Failed to initialize services", zap.Error(err))
	}
	app.configDir = configDir

	if cfg.Tracing.Enabled {
		tp, err := tracing.InitTracer("ai-course-backend", cfg.Tracing.CollectorEndpoint)
		if err != nil {
			logger.Log.Fatal("Failed to initialize tracing", zap.Error(err))
		}
		app.tracer = tp
	}

	return app
}

func (a *App) watchConfig(ctx context.Context) {
	if !a.Config.Server.WatchConfig || a.configDir == "" {
		return
	}
	file := filepath.Join(a.configDir, "config.yaml")
	go func() {
		err := configwatcher.WatchConfig(ctx, file, func(newCfg *config.Config) {
			for _, cb := range a.configCallbacks {
				cb(newCfg)
			}
		})
		if err != nil {
			logger.Log.Error("Config watcher stopped", zap.Error(err))
		}
	}()
}

func (a *App) Run() {
	srv := &http.Server{
		Addr:              ":" + a.Config.Server.Port,
		Handler:           a.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a.watchConfig(ctx)

	// 启动服务器
	go func() {
		logger.Log.Info("Server running", zap.String("port", a.Config.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Log.Fatal("listen failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Log.Info("Shutting down server...")

	// 多章节生成可能持续较久，给进行中的请求留出时间
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Log.Error("Server forced to shutdown", zap.Error(err))
	}

	if a.tracer != nil {
		if err := a.tracer.Shutdown(shutdownCtx); err != nil {
			logger.Log.Error("Failed to shutdown tracer provider", zap.Error(err))
		}
	}
	if a.Redis != nil {
		a.Redis.Close()
	}
	if sqlDB, err := a.DB.DB(); err == nil {
		sqlDB.Close()
	}

	logger.Log.Info("Server exiting")
	logger.Log.Sync()
}
