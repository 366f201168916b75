package controllers

import (
	"github.com/gin-gonic/gin"

	"github.com/BerniceZTT/sales_pipeline/utils"
)

// ListPipelines 管道列表
func (ctl *Controller) ListPipelines(c *gin.Context) {
	pipelines, err := ctl.catalog.ListPipelines(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		return
	}
	utils.SuccessResponse(c, pipelines, "")
}

// ListStages 管道阶段
func (ctl *Controller) ListStages(c *gin.Context) {
	stages, err := ctl.catalog.ListStages(c.Request.Context(), c.Param("id"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	utils.SuccessResponse(c, stages, "")
}

// ListBatches 按产品分组的批次
func (ctl *Controller) ListBatches(c *gin.Context) {
	batches, err := ctl.catalog.BatchesByProduct(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		return
	}
	utils.SuccessResponse(c, batches, "")
}

// PointsSummary 销售积分汇总
func (ctl *Controller) PointsSummary(c *gin.Context) {
	summary, err := ctl.catalog.PointsSummary(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		return
	}
	utils.SuccessResponse(c, summary, "")
}
