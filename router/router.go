package router

import (
	"log/slog"
	"net/http"
	"time"

	"expenseai/api"
	"expenseai/config"
	"expenseai/database"
	_ "expenseai/docs"
	"expenseai/middleware"
	"expenseai/service"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// 限流参数
const (
	loginAttempts   = 5
	loginWindow     = time.Minute
	insightRequests = 10
	insightWindow   = time.Minute
)

// SetupRouter 设置路由
func SetupRouter(cfg *config.Config) *gin.Engine {
	// 设置运行模式
	gin.SetMode(cfg.Server.Mode)

	r := gin.Default()

	// CORS 中间件
	r.Use(CORSMiddleware())

	// Swagger 文档
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	emailService := service.NewEmailService(&cfg.Email)
	insightService := service.NewInsightService(database.DB, cfg, emailService, slog.Default())

	v1 := r.Group("/api/v1")
	{
		// 认证相关路由（无需登录）
		authHandler := api.NewAuthHandler(cfg)
		auth := v1.Group("/auth")
		{
			auth.POST("/register", authHandler.Register)
			auth.POST("/login", middleware.LoginRateLimit(loginAttempts, loginWindow), authHandler.Login)
		}

		// 消费类别（无需登录）
		expenseHandler := api.NewExpenseHandler()
		v1.GET("/categories", expenseHandler.GetCategories)

		// 需要 JWT 认证的路由
		authorized := v1.Group("")
		authorized.Use(middleware.JWTAuth())
		{
			// 用户相关
			authorized.GET("/auth/profile", authHandler.GetProfile)
			authorized.PUT("/auth/password", authHandler.ChangePassword)

			// 消费记录相关
			expenses := authorized.Group("/expenses")
			{
				expenses.POST("", expenseHandler.Create)
				expenses.GET("", expenseHandler.List)
				expenses.GET("/:id", expenseHandler.Get)
				expenses.PUT("/:id", expenseHandler.Update)
				expenses.DELETE("/:id", expenseHandler.Delete)
			}

			// 统计
			analyticsHandler := api.NewAnalyticsHandler()
			stats := authorized.Group("/analytics")
			{
				stats.GET("/total", analyticsHandler.GetTotal)
				stats.GET("/category", analyticsHandler.GetCategoryTotals)
				stats.GET("/monthly", analyticsHandler.GetMonthlyTotals)
				stats.GET("/summary", analyticsHandler.GetSummary)
			}

			// AI 洞察
			insightHandler := api.NewInsightHandler(insightService)
			insightLimit := middleware.InsightRateLimit(insightRequests, insightWindow)
			ai := authorized.Group("/ai")
			{
				ai.GET("/insight", insightLimit, insightHandler.GetInsight)
				ai.GET("/insight/history", insightHandler.GetHistory)
				ai.POST("/insight/email", insightLimit, insightHandler.EmailInsight)
			}

			// 导出相关
			exportHandler := api.NewExportHandler()
			export := authorized.Group("/export")
			{
				export.GET("/csv", exportHandler.ExportCSV)
				export.GET("/json", exportHandler.ExportJSON)
				export.GET("/excel", exportHandler.ExportExcel)
			}
		}
	}

	// 健康检查
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "ok",
		})
	})

	return r
}

// CORSMiddleware CORS 跨域中间件
func CORSMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE, PATCH")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
