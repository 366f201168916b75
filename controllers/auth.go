package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/BerniceZTT/sales_pipeline/models"
	"github.com/BerniceZTT/sales_pipeline/service"
	"github.com/BerniceZTT/sales_pipeline/utils"
)

// Login 用户登录
func (ctl *Controller) Login(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, "无效的请求参数: "+err.Error(), http.StatusBadRequest)
		return
	}

	utils.Logger.Info().Str("username", req.Username).Msg("登录尝试")

	user, err := service.Authenticate(c.Request.Context(), ctl.store, req.Username, req.Password)
	if errors.Is(err, service.ErrInvalidCredentials) {
		utils.ErrorResponse(c, "用户名或密码错误", http.StatusUnauthorized)
		return
	}
	if err != nil {
		_ = c.Error(utils.NewAppError("登录失败", http.StatusInternalServerError, err))
		return
	}

	token, err := utils.GenerateToken(*user)
	if err != nil {
		utils.Logger.Error().Err(err).Msg("生成令牌失败")
		utils.ErrorResponse(c, "登录失败: 生成令牌错误", http.StatusInternalServerError)
		return
	}

	utils.Logger.Info().Str("username", user.Username).Msg("登录成功")
	utils.SuccessResponse(c, models.LoginResponse{Token: token, User: user}, "登录成功")
}

// ValidateToken 验证令牌并返回当前用户
func (ctl *Controller) ValidateToken(c *gin.Context) {
	user, err := utils.GetUser(c)
	if err != nil {
		utils.HandleError(c, utils.CreateUnauthorizedError())
		return
	}
	utils.SuccessResponse(c, user, "")
}
