package middleware

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/BerniceZTT/sales_pipeline/service"
	"github.com/BerniceZTT/sales_pipeline/utils"
)

// ErrorHandler 全局错误处理中间件，把处理器通过 c.Error 记录的错误转换为JSON响应
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		// 如果已经写出响应，不重复处理
		if c.Writer.Written() || len(c.Errors) == 0 {
			return
		}

		utils.HandleError(c, ToApiError(c.Errors.Last().Err))
	}
}

// ToApiError 将业务错误转换为带状态码的API错误
func ToApiError(err error) error {
	var pe *service.PipelineError
	if !errors.As(err, &pe) {
		return err
	}
	switch pe.Kind {
	case service.KindValidation:
		return utils.CreateBadRequestError(pe.Error())
	case service.KindConflict:
		return utils.CreateConflictError(pe.Error())
	case service.KindNotFound:
		return utils.NewApiError(pe.Error(), pe.StatusCode(), string(pe.Kind))
	default:
		// 存储失败时写入可能已部分生效
		return utils.CreateUncertainOperationError(pe.Error())
	}
}
