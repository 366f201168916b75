package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/BerniceZTT/sales_pipeline/repository"
)

// Health 健康检查
func (ctl *Controller) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// DBStatus 各集合文档数
func (ctl *Controller) DBStatus(c *gin.Context) {
	c.JSON(http.StatusOK, repository.GetDatabaseStatus(c.Request.Context(), ctl.store))
}
