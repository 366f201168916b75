package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/BerniceZTT/sales_pipeline/controllers"
	"github.com/BerniceZTT/sales_pipeline/middleware"
	"github.com/BerniceZTT/sales_pipeline/repository"
)

// RegisterRoutes 注册所有路由
func RegisterRoutes(router *gin.Engine, ctl *controllers.Controller) {
	// 注册认证路由
	RegisterAuthRoutes(router, ctl)

	// 注册销售看板和成交路由
	RegisterSalesRoutes(router, ctl)

	// 注册管道、批次、积分等查询路由
	RegisterCatalogRoutes(router, ctl)

	// 注册数据看板统计路由
	RegisterDashboardRoutes(router, ctl)

	// 健康检查路由
	router.GET("/api/health", ctl.Health)

	// 数据库状态检查路由
	router.GET("/api/db-status", ctl.DBStatus)
}

// NewRouter 创建应用中间件并注册路由的 gin 实例
func NewRouter(ctl *controllers.Controller, store repository.Store, corsOrigins []string) *gin.Engine {
	router := gin.New()

	// 应用中间件
	router.Use(middleware.Logger())
	router.Use(middleware.Recovery())
	router.Use(middleware.CORS(corsOrigins))
	router.Use(middleware.OperationLoggerMiddleware(store))
	router.Use(middleware.ErrorHandler())

	RegisterRoutes(router, ctl)
	return router
}
