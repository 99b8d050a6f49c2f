// Package router 组装Gin引擎：全局中间件、运维接口与业务路由
package router

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/xiebiao/library/docs" // 注册Swagger文档
	"github.com/xiebiao/library/internal/infrastructure/config"
	"github.com/xiebiao/library/internal/interface/http/handler"
	"github.com/xiebiao/library/internal/interface/http/middleware"
	"github.com/xiebiao/library/pkg/response"
)

// CoverDir 封面文件目录(storage.CoverStore)
type CoverDir interface {
	Dir() string
}

// New 创建Gin引擎并注册全部路由
func New(
	cfg *config.Config,
	userHandler *handler.UserHandler,
	bookHandler *handler.BookHandler,
	lendingHandler *handler.LendingHandler,
	authMiddleware *middleware.AuthMiddleware,
	covers CoverDir,
) *gin.Engine {
	switch cfg.Server.Mode {
	case gin.ReleaseMode, gin.TestMode:
		gin.SetMode(cfg.Server.Mode)
	default:
		gin.SetMode(gin.DebugMode)
	}

	r := gin.New()
	r.Use(
		middleware.Recovery(),
		middleware.CORS(cfg.CORS),
		middleware.Logger(),
		middleware.Tracing(),
		middleware.Metrics(),
	)

	r.GET("/ping", func(c *gin.Context) {
		response.Success(c, gin.H{
			"message": "pong",
			"status":  "healthy",
		})
	})
	if cfg.Metrics.Enabled {
		r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	}
	// 访问 /swagger/index.html 查看API文档
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// base_url为完整URL时由外部静态服务器提供封面
	if base := strings.TrimRight(cfg.Storage.BaseURL, "/"); strings.HasPrefix(base, "/") && covers != nil {
		r.Static(base, covers.Dir())
	}

	auth := authMiddleware.RequireAuth()

	v1 := r.Group("/api/v1")
	{
		users := v1.Group("/users")
		{
			users.POST("/register", userHandler.Register)
			users.POST("/login", userHandler.Login)
			users.POST("/refresh", userHandler.Refresh)
			users.POST("/logout", auth, userHandler.Logout)
		}

		books := v1.Group("/books")
		{
			// 公开接口
			books.GET("", bookHandler.List)
			books.GET("/:id", bookHandler.Get)
			books.GET("/:id/borrow-history", lendingHandler.BookHistory)

			// 需要登录
			books.GET("/my-borrows", auth, lendingHandler.MyBorrows)
			books.POST("", auth, bookHandler.Create)
			books.PUT("/:id", auth, bookHandler.Update)
			books.DELETE("/:id", auth, bookHandler.Delete)
			books.GET("/:id/stock-logs", auth, bookHandler.StockLogs)
			books.POST("/:id/borrow", auth, lendingHandler.Borrow)
			books.POST("/:id/return", auth, lendingHandler.Return)
		}

		loans := v1.Group("/loans")
		loans.Use(auth)
		{
			loans.GET("/overdue", lendingHandler.Overdue)
		}
	}

	return r
}
