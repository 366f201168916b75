package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/BerniceZTT/sales_pipeline/models"
	"github.com/BerniceZTT/sales_pipeline/service"
	"github.com/BerniceZTT/sales_pipeline/utils"
)

// GetClosing 查询成交流程
func (ctl *Controller) GetClosing(c *gin.Context) {
	op, ok := operator(c)
	if !ok {
		return
	}

	snapshot, err := ctl.sessions.Closing(op, c.Param("id"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	utils.SuccessResponse(c, snapshot, "")
}

// SubmitClosing 提交成交表单
func (ctl *Controller) SubmitClosing(c *gin.Context) {
	op, ok := operator(c)
	if !ok {
		return
	}

	var req models.ClosingFormRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, "无效的请求参数: "+err.Error(), http.StatusBadRequest)
		return
	}

	snapshot, err := ctl.sessions.Submit(op, c.Param("id"), service.ClosingForm{
		BatchCodesByProduct: req.BatchCodesByProduct,
		SelectedPipelineID:  req.SelectedPipelineID,
		WaitingNumber:       req.WaitingNumber,
		JobCardNumber:       req.JobCardNumber,
	})
	if err != nil {
		failWithData(c, err, snapshot)
		return
	}
	utils.SuccessResponse(c, snapshot, "")
}

// ConfirmClosing 确认或退回成交
func (ctl *Controller) ConfirmClosing(c *gin.Context) {
	op, ok := operator(c)
	if !ok {
		return
	}

	var req models.ConfirmRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, "无效的请求参数: "+err.Error(), http.StatusBadRequest)
		return
	}

	outcome, err := ctl.sessions.Confirm(c.Request.Context(), op, c.Param("id"), req.Confirmed)
	if err != nil {
		failWithData(c, err, outcome)
		return
	}

	message := ""
	if outcome.Closing.State == service.ClosingCommitted {
		message = "成交已保存"
	}
	utils.SuccessResponse(c, outcome, message)
}

// RetryClosing 重试失败的成交提交
func (ctl *Controller) RetryClosing(c *gin.Context) {
	op, ok := operator(c)
	if !ok {
		return
	}

	outcome, err := ctl.sessions.Retry(c.Request.Context(), op, c.Param("id"))
	if err != nil {
		failWithData(c, err, outcome)
		return
	}
	utils.SuccessResponse(c, outcome, "成交已保存")
}

// CancelClosing 取消成交流程并撤销看板移动
func (ctl *Controller) CancelClosing(c *gin.Context) {
	op, ok := operator(c)
	if !ok {
		return
	}

	outcome, err := ctl.sessions.Cancel(op, c.Param("id"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	utils.SuccessResponse(c, outcome, "成交已取消")
}
