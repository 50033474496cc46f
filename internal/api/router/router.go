package router

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"ay-digital/backend/config"
	"ay-digital/backend/internal/api/handler"
	"ay-digital/backend/internal/api/middleware"
	"ay-digital/backend/pkg/jwt"
	"ay-digital/backend/pkg/redis"
	"ay-digital/backend/pkg/response"
)

// 认证入口限流：每个 IP 每分钟 10 次
const (
	authRateLimit  = 10
	authRateWindow = time.Minute
)

// Pinger 数据库健康检查，*sql.DB 满足该接口
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Setup 初始化并返回 Gin 路由引擎
func Setup(cfg *config.Config, h *handler.Handler, jwtMgr *jwt.Manager, rdb *redis.Client, db Pinger, logger *zap.Logger) (*gin.Engine, error) {
	if err := handler.RegisterValidators(); err != nil {
		return nil, err
	}

	r := gin.New()

	// ── 全局中间件 ──
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(logger))
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.CORS(cfg.Server.CORS.AllowOrigins))
	r.Use(middleware.BodyLimit(cfg.Server.MaxBodyBytes))

	// ── 健康检查 ──
	r.GET("/health", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := db.PingContext(ctx); err != nil {
			logger.Warn("健康检查失败", zap.Error(err))
			response.Error(c, http.StatusServiceUnavailable, "Database unavailable")
			return
		}
		response.OK(c, gin.H{"status": "ok"})
	})

	// 认证入口限流，Redis 不可用时不挂载
	limited := func(hf gin.HandlerFunc) []gin.HandlerFunc {
		if cfg.Feature.RateLimitEnabled && rdb != nil {
			return []gin.HandlerFunc{middleware.RateLimit(rdb, authRateLimit, authRateWindow, logger), hf}
		}
		return []gin.HandlerFunc{hf}
	}

	jwtAuth := middleware.JWTAuth(jwtMgr, rdb)

	// 管理接口默认开放，开启 enforce_admin_routes 后要求管理员身份
	admin := func(hf gin.HandlerFunc) []gin.HandlerFunc {
		if cfg.Feature.EnforceAdminRoutes {
			return []gin.HandlerFunc{jwtAuth, middleware.RoleAuth("admin"), hf}
		}
		return []gin.HandlerFunc{hf}
	}

	api := r.Group("/api")
	{
		// 账号与验证码
		api.POST("/register", h.Auth.Register)
		api.POST("/login", limited(h.Auth.Login)...)
		api.POST("/otp/send", limited(h.Auth.SendOTP)...)
		api.POST("/otp/login", limited(h.Auth.LoginWithOTP)...)
		api.POST("/forgot-password", limited(h.Auth.ForgotPassword)...)
		api.POST("/reset-password", h.Auth.ResetPassword)

		// 会话
		api.POST("/auth/refresh", h.Auth.RefreshToken)
		session := api.Group("/auth", jwtAuth)
		{
			session.POST("/logout", h.Auth.Logout)
			session.GET("/me", h.Auth.GetCurrentUser)
		}

		// 个人资料
		api.POST("/update-profile", h.User.UpdateProfile)
		api.POST("/change-password", h.User.ChangePassword)

		// 账号管理
		api.GET("/users", admin(h.User.ListUsers)...)
		api.POST("/users/create", admin(h.User.CreateUser)...)
		api.POST("/users/reset-password", admin(h.User.AdminResetPassword)...)
		api.POST("/users/import", admin(h.User.ImportUsers)...)

		// 站点设置
		api.GET("/settings", h.Settings.GetSettings)
		api.POST("/settings", admin(h.Settings.UpdateSettings)...)
		api.GET("/settings/menu", h.Settings.GetMenu)
		api.PUT("/settings/menu", admin(h.Settings.SaveMenu)...)
		api.GET("/settings/branding", h.Settings.GetBranding)

		// 课程报名
		api.POST("/enroll", h.Enrollment.Enroll)
		api.GET("/enrollments", admin(h.Enrollment.ListEnrollments)...)
		api.GET("/enrollments/export", admin(h.Enrollment.ExportEnrollments)...)
	}

	return r, nil
}
