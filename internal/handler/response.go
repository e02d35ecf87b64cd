package handler

import (
	"github.com/blues/dps/internal/apperr"
	"github.com/gin-gonic/gin"
)

// SuccessResponse 成功响应
func SuccessResponse(c *gin.Context, statusCode int, message string, data interface{}) {
	c.JSON(statusCode, Response{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// ErrorResponse 错误响应
func ErrorResponse(c *gin.Context, statusCode int, message string) {
	c.JSON(statusCode, Response{
		Success: false,
		Message: message,
		Data:    nil,
	})
}

// FailResponse 按错误类别映射HTTP状态码的错误响应
func FailResponse(c *gin.Context, err error) {
	c.JSON(apperr.HTTPStatus(err), Response{
		Success: false,
		Message: err.Error(),
		Data:    nil,
	})
}
