package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/BerniceZTT/sales_pipeline/models"
	"github.com/BerniceZTT/sales_pipeline/utils"
)

// AssignTask 分配任务并交接询价单
func (ctl *Controller) AssignTask(c *gin.Context) {
	op, ok := operator(c)
	if !ok {
		return
	}

	var req models.AssignTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, "无效的请求参数: "+err.Error(), http.StatusBadRequest)
		return
	}

	assignment, err := ctl.tasks.Assign(c.Request.Context(), c.Param("id"), req, op)
	if err != nil {
		_ = c.Error(err)
		return
	}
	utils.SuccessResponse(c, assignment, "任务分配成功", http.StatusCreated)
}
