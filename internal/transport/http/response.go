package httptransport

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Response 统一响应结构
type Response struct {
	Code  int         `json:"code"`            // 业务状态码
	Msg   string      `json:"msg"`             // 中文提示信息
	Error string      `json:"error,omitempty"` // 机器可读错误标识
	Data  interface{} `json:"data,omitempty"`  // 数据载荷
}

// Success 成功响应（200）
func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Code: http.StatusOK,
		Msg:  "成功",
		Data: data,
	})
}

// Created 创建成功响应（201）
func Created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, Response{
		Code: http.StatusCreated,
		Msg:  "创建成功",
		Data: data,
	})
}

// BadRequest 请求参数错误（400）
func BadRequest(c *gin.Context, errCode, msg string) {
	c.JSON(http.StatusBadRequest, Response{
		Code:  http.StatusBadRequest,
		Msg:   msg,
		Error: errCode,
	})
}

// Unauthorized 未认证错误（401）
func Unauthorized(c *gin.Context, errCode, msg string) {
	c.JSON(http.StatusUnauthorized, Response{
		Code:  http.StatusUnauthorized,
		Msg:   msg,
		Error: errCode,
	})
}

// InternalError 服务器内部错误（500）
func InternalError(c *gin.Context, msg string) {
	c.JSON(http.StatusInternalServerError, Response{
		Code:  http.StatusInternalServerError,
		Msg:   msg,
		Error: "internal_error",
	})
}

// UpstreamFailure 上游失败响应（502），附带上游状态与原始内容。
func UpstreamFailure(c *gin.Context, errCode, msg string, detail interface{}) {
	c.JSON(http.StatusBadGateway, Response{
		Code:  http.StatusBadGateway,
		Msg:   msg,
		Error: errCode,
		Data:  detail,
	})
}

// PassthroughStatus 透传上游状态码的错误响应。
func PassthroughStatus(c *gin.Context, status int, errCode, msg string, detail interface{}) {
	c.JSON(status, Response{
		Code:  status,
		Msg:   msg,
		Error: errCode,
		Data:  detail,
	})
}
