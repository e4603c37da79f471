package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"exam-duty/internal/api/middleware"
	"exam-duty/pkg/response"
)

// MustGetIDParam 读取 UUID 路径参数，为空或格式错误时写入 400 响应。
// 调用方应在 ok=false 时直接 return。
func MustGetIDParam(c *gin.Context, name string, code int) (string, bool) {
	v := strings.TrimSpace(c.Param(name))
	if v == "" {
		response.BadRequest(c, code, name+" 不能为空")
		return "", false
	}
	if _, err := uuid.Parse(v); err != nil {
		response.BadRequest(c, code, name+" 格式错误")
		return "", false
	}
	return v, true
}

// bindFailed 写入参数校验失败响应，details 列出未通过校验的字段
func bindFailed(c *gin.Context, code int, err error) {
	if middleware.IsBodyTooLarge(err) {
		response.Error(c, http.StatusRequestEntityTooLarge, 10005, "请求体过大")
		return
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		fields := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			fields = append(fields, fe.Field()+":"+fe.Tag())
		}
		response.ErrorWithDetails(c, http.StatusBadRequest, code, "参数校验失败", strings.Join(fields, ", "))
		return
	}
	response.BadRequest(c, code, "参数校验失败")
}
