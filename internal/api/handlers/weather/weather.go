// Package weather 提供天氣查詢的除錯與金鑰驗證端點。
package weather

import (
	"context"
	"net/http"
	"strings"

	"meal-recommender/internal/core/food"
	coreWeather "meal-recommender/internal/core/weather"
	"meal-recommender/internal/pkg/common"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// KeyVerifier 驗證天氣服務金鑰
type KeyVerifier interface {
	VerifyKey(ctx context.Context, city, key string) *coreWeather.Verification
}

// DebugResponse GET /debug/weather 回應
type DebugResponse struct {
	City      string   `json:"city"`
	Weather   string   `json:"weather"`
	Condition string   `json:"condition"`
	Synonyms  []string `json:"synonyms"`
	Fallback  bool     `json:"fallback_weather_used"`
	Message   string   `json:"message"`
	Error     string   `json:"error,omitempty"`
}

// Handler 天氣處理程序
type Handler struct {
	provider    food.WeatherProvider
	verifier    KeyVerifier
	defaultCity string
	fallback    coreWeather.Condition
}

// NewHandler 創建天氣處理程序
func NewHandler(provider food.WeatherProvider, verifier KeyVerifier, defaultCity string, fallback coreWeather.Condition) *Handler {
	return &Handler{
		provider:    provider,
		verifier:    verifier,
		defaultCity: defaultCity,
		fallback:    fallback,
	}
}

func (h *Handler) city(c *gin.Context) string {
	if city := strings.TrimSpace(c.Query("city")); city != "" {
		return city
	}
	return h.defaultCity
}

// HandleDebugWeather 查詢城市天氣與對應的食物天氣標籤
func (h *Handler) HandleDebugWeather(c *gin.Context) {
	city := h.city(c)

	label, err := h.provider.CurrentWeather(c.Request.Context(), city)
	normalized, ok := coreWeather.Normalize(label)
	if err != nil || !ok {
		d := coreWeather.Default(h.fallback)
		resp := DebugResponse{
			City:      city,
			Weather:   d.Label,
			Condition: d.Condition.String(),
			Synonyms:  d.Synonyms,
			Fallback:  true,
			Message:   "使用默认天气: " + d.Synonyms[0],
		}
		if err != nil {
			resp.Error = err.Error()
		}
		common.LogWarn("天氣除錯查詢失敗", zap.String("city", city), zap.Error(err))
		c.JSON(http.StatusOK, resp)
		return
	}

	c.JSON(http.StatusOK, DebugResponse{
		City:      city,
		Weather:   normalized.Label,
		Condition: normalized.Condition.String(),
		Synonyms:  normalized.Synonyms,
		Message:   "天气查询成功",
	})
}

// HandleVerifyKey 以指定或設定中的金鑰查詢一次天氣
func (h *Handler) HandleVerifyKey(c *gin.Context) {
	city := h.city(c)
	key := strings.TrimSpace(c.Query("api_key"))

	result := h.verifier.VerifyKey(c.Request.Context(), city, key)
	common.LogInfo("天氣金鑰驗證",
		zap.String("city", city),
		zap.String("api_key", common.MaskSecret(key)),
		zap.Bool("ok", result.OK),
		zap.Int("upstream_status", result.StatusCode),
	)

	status := http.StatusOK
	if !result.OK && result.StatusCode == http.StatusBadRequest {
		status = http.StatusBadRequest
	}
	c.JSON(status, result)
}
