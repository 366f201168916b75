package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/BerniceZTT/sales_pipeline/controllers"
	"github.com/BerniceZTT/sales_pipeline/middleware"
)

// RegisterCatalogRoutes 注册管道、批次和积分查询路由
func RegisterCatalogRoutes(router *gin.Engine, ctl *controllers.Controller) {
	api := router.Group("/api")
	api.Use(middleware.AuthMiddleware())

	api.GET("/pipelines", ctl.ListPipelines)
	api.GET("/pipelines/:id/stages", ctl.ListStages)
	api.GET("/batches", ctl.ListBatches)
	api.GET("/points", ctl.PointsSummary)
}
