package handler

import (
	"errors"
	"net/http"

	"chat_fanout_server/pkg/constants"
	"chat_fanout_server/pkg/errorx"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

// ResponseData 统一响应结构体
type ResponseData struct {
	Code int `json:"code"`           // 业务响应状态码
	Msg  any `json:"msg"`            // 提示信息
	Data any `json:"data,omitempty"` // 数据
}

// HandleSuccess 返回成功响应
func HandleSuccess(c *gin.Context, data any) {
	c.JSON(http.StatusOK, ResponseData{
		Code: errorx.CodeSuccess,
		Msg:  "success",
		Data: data,
	})
}

// HandleError 业务错误按错误码映射 HTTP 状态，其余错误统一为服务繁忙
// 依赖故障只记日志，不把底层错误透出给客户端
func HandleError(c *gin.Context, err error) {
	var codeErr *errorx.CodeError
	if errors.As(err, &codeErr) {
		if errorx.IsDependency(err) {
			logError(c, err)
		}
		c.JSON(errorx.HTTPStatus(codeErr.Code), ResponseData{
			Code: codeErr.Code,
			Msg:  codeErr.Msg,
		})
		return
	}

	logError(c, err)
	c.JSON(http.StatusInternalServerError, ResponseData{
		Code: errorx.ErrServerBusy.Code,
		Msg:  errorx.ErrServerBusy.Msg,
	})
}

func logError(c *gin.Context, err error) {
	_ = c.Error(err)
	zap.L().Error("system error",
		zap.String("path", c.Request.URL.Path),
		zap.String("method", c.Request.Method),
		zap.Error(err),
	)
}

// HandleParamError 处理参数绑定错误，validator 错误会被翻译
func HandleParamError(c *gin.Context, err error) {
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) && Trans != nil {
		c.JSON(http.StatusBadRequest, ResponseData{
			Code: errorx.ErrInvalidParam.Code,
			Msg:  RemoveTopStruct(validationErrs.Translate(Trans)),
		})
		return
	}

	// 非 validator 错误（如 JSON 格式错误）
	zap.L().Debug("param bind error", zap.Error(err))
	c.JSON(http.StatusBadRequest, ResponseData{
		Code: errorx.ErrInvalidParam.Code,
		Msg:  errorx.ErrInvalidParam.Msg,
	})
}

// currentUserID 取鉴权中间件写入的用户 id
func currentUserID(c *gin.Context) (int64, bool) {
	v, ok := c.Get(constants.CTX_USER_ID)
	if !ok {
		return 0, false
	}
	id, ok := v.(int64)
	return id, ok && id > 0
}

// mustUserID 取不到时直接写 401，调用方需判断返回值
func mustUserID(c *gin.Context) (int64, bool) {
	id, ok := currentUserID(c)
	if !ok {
		HandleError(c, errorx.ErrUnauthorized)
	}
	return id, ok
}
