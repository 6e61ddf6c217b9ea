package weather

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"meal-recommender/internal/infrastructure/config"
	"meal-recommender/internal/pkg/common"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// OpenWeatherService OpenWeather 天氣服務
type OpenWeatherService struct {
	config *config.WeatherConfig
	client *resty.Client
}

// currentResponse /data/2.5/weather 回應中用到的欄位
type currentResponse struct {
	Weather []struct {
		Main        string `json:"main"`
		Description string `json:"description"`
	} `json:"weather"`
	Main struct {
		Temp *float64 `json:"temp"`
	} `json:"main"`
}

// Verification 金鑰驗證結果
type Verification struct {
	OK         bool        `json:"ok"`
	StatusCode int         `json:"status_code"`
	City       string      `json:"city"`
	Weather    string      `json:"weather,omitempty"`
	TempC      *float64    `json:"temp_c,omitempty"`
	Message    string      `json:"message"`
	Error      interface{} `json:"error,omitempty"`
}

// NewOpenWeatherService 創建 OpenWeather 服務
func NewOpenWeatherService(cfg *config.WeatherConfig) *OpenWeatherService {
	client := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(cfg.Timeout).
		SetHeader("Accept", "application/json")

	return &OpenWeatherService{
		config: cfg,
		client: client,
	}
}

// CurrentWeather 查詢城市目前天氣，回傳 weather[0].main
func (s *OpenWeatherService) CurrentWeather(ctx context.Context, city string) (string, error) {
	if s.config.APIKey == "" {
		return "", common.Wrapf(common.ErrWeatherUnavailable, "OPENWEATHER_API_KEY not configured")
	}

	start := time.Now()
	resp, err := s.fetch(ctx, city, s.config.APIKey)
	common.LogUpstreamCall("openweather", time.Since(start), err)
	if err != nil {
		return "", common.Wrap(common.ErrWeatherUnavailable, err)
	}

	if resp.StatusCode() != http.StatusOK {
		return "", common.Wrapf(common.ErrWeatherUnavailable, "openweather returned status %d", resp.StatusCode())
	}

	var result currentResponse
	if err := common.ParseJSONBytes(resp.Body(), &result); err != nil {
		return "", common.Wrap(common.ErrWeatherUnavailable, fmt.Errorf("failed to parse weather response: %w", err))
	}

	if len(result.Weather) == 0 || result.Weather[0].Main == "" {
		return "", common.Wrapf(common.ErrWeatherUnavailable, "no weather in response")
	}

	common.LogDebug("天氣查詢成功",
		zap.String("city", city),
		zap.String("weather", result.Weather[0].Main),
	)
	return result.Weather[0].Main, nil
}

// VerifyKey 驗證金鑰是否可用，key 為空時使用設定中的金鑰
func (s *OpenWeatherService) VerifyKey(ctx context.Context, city, key string) *Verification {
	if key == "" {
		key = s.config.APIKey
	}
	if key == "" {
		return &Verification{
			OK:         false,
			StatusCode: http.StatusBadRequest,
			City:       city,
			Message:    "OPENWEATHER_API_KEY 未配置",
		}
	}

	resp, err := s.fetch(ctx, city, key)
	if err != nil {
		return &Verification{
			OK:         false,
			StatusCode: http.StatusInternalServerError,
			City:       city,
			Message:    fmt.Sprintf("网络请求失败: %v", err),
		}
	}

	status := resp.StatusCode()
	if status == http.StatusOK {
		var result currentResponse
		_ = common.ParseJSONBytes(resp.Body(), &result)
		v := &Verification{
			OK:         true,
			StatusCode: status,
			City:       city,
			TempC:      result.Main.Temp,
			Message:    "验证成功",
		}
		if len(result.Weather) > 0 {
			v.Weather = result.Weather[0].Main
		}
		return v
	}

	var payload interface{}
	_ = common.ParseJSONBytes(resp.Body(), &payload)

	message := fmt.Sprintf("请求失败：状态码 %d", status)
	switch status {
	case http.StatusUnauthorized:
		message = "401 Unauthorized：Key 无效或未生效"
	case http.StatusNotFound:
		message = "404 Not Found：城市不存在或拼写错误"
	}

	return &Verification{
		OK:         false,
		StatusCode: status,
		City:       city,
		Message:    message,
		Error:      payload,
	}
}

func (s *OpenWeatherService) fetch(ctx context.Context, city, key string) (*resty.Response, error) {
	resp, err := s.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"q":     city,
			"appid": key,
			"units": "metric",
			"lang":  s.config.Lang,
		}).
		Get("/data/2.5/weather")
	if err != nil {
		return nil, fmt.Errorf("failed to send request to OpenWeather: %w", err)
	}
	return resp, nil
}

// Close 關閉閒置連線
func (s *OpenWeatherService) Close() error {
	s.client.GetClient().CloseIdleConnections()
	return nil
}
