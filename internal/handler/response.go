package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ashwinyue/questbank/internal/service/taxonomy"
)

// Response 统一响应格式
type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Kind    string      `json:"kind,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

// success 成功响应
func success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{Code: 0, Message: "success", Data: data})
}

// created 创建成功响应
func created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, Response{Code: 0, Message: "created", Data: data})
}

// badRequest 请求参数错误
func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, Response{Code: -1, Message: "请求参数不合法: " + err.Error(), Kind: "validation"})
}

// errorResponse 按错误分类映射 HTTP 状态码
func errorResponse(c *gin.Context, err error) {
	c.JSON(statusOf(err), Response{Code: -1, Message: err.Error(), Kind: taxonomy.KindOf(err)})
}

func statusOf(err error) int {
	switch {
	case errors.Is(err, taxonomy.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, taxonomy.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, taxonomy.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, taxonomy.ErrConstraint):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}
