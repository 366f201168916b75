package controllers

import (
	"github.com/gin-gonic/gin"

	"github.com/BerniceZTT/sales_pipeline/utils"
)

// GetPipelineStats 获取数据看板的管道统计信息
func (ctl *Controller) GetPipelineStats(c *gin.Context) {
	op, ok := operator(c)
	if !ok {
		return
	}
	filter, ok := boardFilter(c)
	if !ok {
		return
	}

	utils.LogInfo(map[string]interface{}{
		"username":   op.Name,
		"pipelineId": filter.PipelineID,
		"assignedTo": filter.AssignedTo,
	}, "获取管道统计信息")

	stats, err := ctl.stats.PipelineStats(c.Request.Context(), filter)
	if err != nil {
		_ = c.Error(err)
		return
	}
	utils.SuccessResponse(c, stats, "")
}
