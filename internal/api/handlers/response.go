// Package handlers 放置各路由共用的回應工具。
package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"meal-recommender/internal/pkg/common"

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RespondError 把錯誤轉成 JSON 回應。4xx 錯誤回傳具體原因，
// 5xx 只回傳通用訊息，debug 時附上細節。
func RespondError(c *gin.Context, err error, debug bool) {
	ce, ok := common.AsCustomError(err)
	if !ok {
		ce = common.Wrap(common.ErrInternalError, err)
	}

	resp := common.ErrorResponse{
		Error: ce.Message,
		Code:  ce.Code,
	}
	if ce.Status < http.StatusInternalServerError {
		if ce.Err != nil {
			resp.Error = ce.Err.Error()
		}
	} else {
		common.LogError("請求處理失敗",
			zap.Error(err),
			zap.String("path", c.Request.URL.Path),
			zap.String("request_id", requestid.Get(c)),
		)
		if debug && ce.Err != nil {
			resp.Details = ce.Err.Error()
		}
	}

	_ = c.Error(err)
	c.AbortWithStatusJSON(ce.Status, resp)
}

// ParseID 解析正整數 ID，無效時回傳 0
func ParseID(raw string) int64 {
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || id <= 0 {
		return 0
	}
	return id
}
