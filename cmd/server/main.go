package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"ay-digital/backend/config"
	"ay-digital/backend/internal/api/handler"
	"ay-digital/backend/internal/api/router"
	"ay-digital/backend/internal/repository"
	"ay-digital/backend/internal/service"
	"ay-digital/backend/pkg/database"
	"ay-digital/backend/pkg/jwt"
	applogger "ay-digital/backend/pkg/logger"
	"ay-digital/backend/pkg/mailer"
	"ay-digital/backend/pkg/redis"
)

func main() {
	// 1. 加载配置（AYD_CONFIG_FILE 可指定配置文件路径）
	cfg, err := config.Load(os.Getenv("AYD_CONFIG_FILE"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "加载配置失败: %v\n", err)
		os.Exit(1)
	}

	// 2. 初始化日志
	logger, err := applogger.NewLogger(&cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "初始化日志失败: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if cfg.Log.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}

	logger.Info("应用启动中...",
		zap.Int("port", cfg.Server.Port),
		zap.String("log_level", cfg.Log.Level),
		zap.Bool("enforce_admin_routes", cfg.Feature.EnforceAdminRoutes),
	)

	// 3. 连接数据库
	db, err := database.NewDB(&cfg.Database, cfg.Log.Level, logger)
	if err != nil {
		logger.Fatal("数据库连接失败", zap.Error(err))
	}
	sqlDB, err := db.DB()
	if err != nil {
		logger.Fatal("获取底层 sql.DB 失败", zap.Error(err))
	}

	// 3.1 执行数据库迁移
	if err := database.RunMigrations(sqlDB, logger); err != nil {
		logger.Fatal("数据库迁移失败", zap.Error(err))
	}

	// 4. 连接 Redis（可选：连接失败时降级运行，不中断启动）
	rdb, err := redis.NewClient(&cfg.Redis, logger)
	if err != nil {
		logger.Warn("Redis 连接失败，Token 吊销、限流与设置缓存将不可用", zap.Error(err))
		rdb = nil
	}

	// 5. JWT 与验证码投递
	jwtMgr := jwt.NewManager(&cfg.Auth)
	sender := mailer.New(&cfg.Mail, logger)

	// 6. 依赖注入: Repository → Service → Handler
	repo := repository.NewRepository(db)
	svc := service.NewService(cfg, repo, jwtMgr, rdb, sender, logger)
	h := handler.NewHandler(svc)

	// 7. 种子数据
	seedCtx, seedCancel := context.WithTimeout(context.Background(), 30*time.Second)
	if err := service.SeedAdmin(seedCtx, &cfg.Bootstrap, repo, logger); err != nil {
		logger.Fatal("初始化管理员失败", zap.Error(err))
	}
	if err := svc.Settings.SeedDefaults(seedCtx); err != nil {
		logger.Fatal("初始化站点设置失败", zap.Error(err))
	}
	seedCancel()

	// 8. 初始化路由
	engine, err := router.Setup(cfg, h, jwtMgr, rdb, sqlDB, logger)
	if err != nil {
		logger.Fatal("初始化路由失败", zap.Error(err))
	}

	// 9. 启动 HTTP 服务器（优雅关闭）
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           engine,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logger.Info("HTTP 服务器已启动", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("HTTP 服务器异常", zap.Error(err))
		}
	}()

	// 10. 监听系统信号，优雅关闭
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	logger.Info("收到关闭信号，开始优雅关闭...", zap.String("signal", sig.String()))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("服务器关闭异常", zap.Error(err))
	}

	if err := sqlDB.Close(); err != nil {
		logger.Warn("关闭数据库连接失败", zap.Error(err))
	}
	if err := rdb.Close(); err != nil {
		logger.Warn("关闭 Redis 连接失败", zap.Error(err))
	}

	logger.Info("服务器已关闭")
}
