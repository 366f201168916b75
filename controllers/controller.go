package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/BerniceZTT/sales_pipeline/repository"
	"github.com/BerniceZTT/sales_pipeline/service"
	"github.com/BerniceZTT/sales_pipeline/utils"
)

// Controller 持有各处理器依赖的服务
type Controller struct {
	store    repository.Store
	sessions *service.SessionManager
	tasks    *service.TaskService
	catalog  *service.CatalogService
	stats    *service.StatsService
}

// New 创建控制器
func New(store repository.Store, sessions *service.SessionManager) *Controller {
	return &Controller{
		store:    store,
		sessions: sessions,
		tasks:    service.NewTaskService(store, service.NewAuditTrailBuilder(store)),
		catalog:  service.NewCatalogService(store),
		stats:    service.NewStatsService(store),
	}
}

// operator 从上下文取当前用户
func operator(c *gin.Context) (service.Operator, bool) {
	user, err := utils.GetUser(c)
	if err != nil {
		utils.HandleError(c, utils.CreateUnauthorizedError())
		return service.Operator{}, false
	}
	return service.Operator{ID: user.ID, Name: user.Username}, true
}

// failWithData 返回错误响应，同时带上调用方需要的最新数据
func failWithData(c *gin.Context, err error, data interface{}) {
	status := http.StatusInternalServerError
	code := string(service.KindStore)
	var pe *service.PipelineError
	if errors.As(err, &pe) {
		status = pe.StatusCode()
		code = string(pe.Kind)
	}

	_ = c.Error(err)
	response := gin.H{
		"success": false,
		"error":   err.Error(),
		"code":    code,
	}
	if data != nil {
		response["data"] = data
	}
	c.JSON(status, response)
}
