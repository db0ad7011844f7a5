// @title AI 课程生成后端 API
// @version 1.0
// @description 根据用户需求调用大模型生成课程大纲与章节内容，并提供课程与报名接口。

// @host localhost:8080
// @BasePath /api
// @securityDefinitions.apikey ApiKeyAuth
// @in header
// @name Authorization

package main

import (
	"ai_course_backend/internal/app"
	"ai_course_backend/internal/config"
	"ai_course_backend/internal/util"
	"ai_course_backend/pkg/logger"
	"flag"
	"fmt"
	"log"

	"github.com/joho/godotenv"
)

func main() {
	migrateOnly := flag.Bool("migrate-only", false, "只执行数据库迁移，完成后退出")
	migrate := flag.Bool("migrate", false, "启动时强制执行数据库迁移（即使是 release 模式）")
	issueEmail := flag.String("issue-token", "", "为指定邮箱签发本地调试用 JWT 后退出")
	issueName := flag.String("name", "", "签发 JWT 时附带的用户名")
	flag.Parse()

	// .env 不存在时直接使用进程环境变量
	_ = godotenv.Load()

	cfg, err := config.LoadConfig("configs")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if *issueEmail != "" {
		token, err := util.GenerateJWT(*issueEmail, *issueName, cfg.JWT.Secret, cfg.JWT.ExpireTime)
		if err != nil {
			log.Fatalf("Failed to issue token: %v", err)
		}
		fmt.Println(token)
		return
	}

	cfg.ForceMigrate = *migrate || *migrateOnly
	cfg.MigrateOnly = *migrateOnly

	application := app.NewApp(cfg, "configs")
	defer logger.Log.Sync()

	if *migrateOnly {
		log.Println("数据库迁移完成，退出程序")
		return
	}

	application.Run()
}
