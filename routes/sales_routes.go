package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/BerniceZTT/sales_pipeline/controllers"
	"github.com/BerniceZTT/sales_pipeline/middleware"
	"github.com/BerniceZTT/sales_pipeline/models"
)

// RegisterSalesRoutes 注册看板、成交流程和任务分配路由
func RegisterSalesRoutes(router *gin.Engine, ctl *controllers.Controller) {
	sales := router.Group("/api/sales")
	sales.Use(middleware.AuthMiddleware())
	{
		sales.GET("/board", ctl.GetBoard)
		sales.POST("/board/moves", ctl.MoveEnquiry)

		closings := sales.Group("/closings")
		closings.GET("/:id", ctl.GetClosing)
		closings.PUT("/:id", ctl.SubmitClosing)
		closings.POST("/:id/confirm", ctl.ConfirmClosing)
		closings.POST("/:id/retry", ctl.RetryClosing)
		closings.DELETE("/:id", ctl.CancelClosing)
	}

	enquiries := router.Group("/api/enquiries")
	enquiries.Use(middleware.AuthMiddleware())
	enquiries.POST("/:id/tasks",
		middleware.RoleMiddleware(models.UserRoleADMIN, models.UserRoleSALES),
		ctl.AssignTask)
}
