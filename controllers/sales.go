package controllers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/BerniceZTT/sales_pipeline/models"
	"github.com/BerniceZTT/sales_pipeline/service"
	"github.com/BerniceZTT/sales_pipeline/utils"
)

const dateLayout = "2006-01-02"

// parseDate 支持 RFC3339 和 yyyy-mm-dd，endOfDay 为真时日期取当天结束
func parseDate(value string, endOfDay bool) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return &t, nil
	}
	t, err := time.ParseInLocation(dateLayout, value, time.Local)
	if err != nil {
		return nil, err
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return &t, nil
}

// boardFilter 解析看板和统计共用的查询参数，失败时已写入响应
func boardFilter(c *gin.Context) (service.BoardFilter, bool) {
	filter := service.BoardFilter{
		PipelineID: c.Query("pipelineId"),
		AssignedTo: c.Query("assignedTo"),
	}

	var err error
	if filter.From, err = parseDate(c.Query("from"), false); err != nil {
		utils.ErrorResponse(c, "无效的开始日期: "+err.Error(), http.StatusBadRequest)
		return filter, false
	}
	if filter.To, err = parseDate(c.Query("to"), true); err != nil {
		utils.ErrorResponse(c, "无效的结束日期: "+err.Error(), http.StatusBadRequest)
		return filter, false
	}
	if completed := c.Query("completed"); completed != "" {
		if filter.CompletedOnly, err = strconv.ParseBool(completed); err != nil {
			utils.ErrorResponse(c, "无效的 completed 参数", http.StatusBadRequest)
			return filter, false
		}
	}
	return filter, true
}

// GetBoard 加载看板
func (ctl *Controller) GetBoard(c *gin.Context) {
	op, ok := operator(c)
	if !ok {
		return
	}
	filter, ok := boardFilter(c)
	if !ok {
		return
	}

	board, err := ctl.sessions.LoadBoard(c.Request.Context(), op, filter)
	if err != nil {
		_ = c.Error(err)
		return
	}

	utils.SuccessResponse(c, board, "")
}

// MoveEnquiry 处理看板拖拽
func (ctl *Controller) MoveEnquiry(c *gin.Context) {
	op, ok := operator(c)
	if !ok {
		return
	}

	var req models.MoveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, "无效的请求参数: "+err.Error(), http.StatusBadRequest)
		return
	}

	move := service.Move{
		SourceStageID: req.SourceStageID,
		SourceIndex:   *req.SourceIndex,
		DestStageID:   req.DestStageID,
		DestIndex:     *req.DestIndex,
	}

	outcome, err := ctl.sessions.Move(c.Request.Context(), op, move)
	if err != nil {
		// 存储失败时看板保留乐观更新，一并返回
		failWithData(c, err, outcome)
		return
	}

	utils.SuccessResponse(c, outcome, "")
}
