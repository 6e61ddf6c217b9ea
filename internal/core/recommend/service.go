// Package recommend 依天氣、時段、熱量與健康狀況篩選食物並組成套餐。
package recommend

import (
	"context"
	"time"

	"meal-recommender/internal/core/food"
	"meal-recommender/internal/core/weather"
)

// MessageEmpty 沒有結果時的提示
const MessageEmpty = "没有找到符合条件的食物"

// Options 推薦服務設定
type Options struct {
	// WeatherTimeout 單次天氣查詢上限，<= 0 時為 5 秒
	WeatherTimeout time.Duration
	// DefaultWeather 天氣不可用時使用的類別名稱，無法辨識時為 Clear
	DefaultWeather string
}

// Service 推薦服務
type Service struct {
	catalog        food.Catalog
	users          food.UserStore
	weather        food.WeatherProvider
	history        History
	weatherTimeout time.Duration
	defaultWeather weather.Condition
}

// Recommendation 食物清單推薦結果
type Recommendation struct {
	Items   []food.Item
	Meta    food.FilterMeta
	Message string
}

// NewService 創建推薦服務。provider 為 nil 時一律使用預設天氣；history 為 nil 時使用記憶體紀錄。
func NewService(catalog food.Catalog, users food.UserStore, provider food.WeatherProvider, history History, opts Options) *Service {
	if history == nil {
		history = NewMemoryHistory(DefaultHistoryCapacity)
	}
	if opts.WeatherTimeout <= 0 {
		opts.WeatherTimeout = defaultWeatherTimeout
	}
	return &Service{
		catalog:        catalog,
		users:          users,
		weather:        provider,
		history:        history,
		weatherTimeout: opts.WeatherTimeout,
		defaultWeather: weather.Lookup(opts.DefaultWeather),
	}
}

// Recommend 回傳排序後的食物清單
func (s *Service) Recommend(ctx context.Context, userID int64, req food.RequestContext) (*Recommendation, error) {
	res, err := s.Filter(ctx, userID, req)
	if err != nil {
		return nil, err
	}

	rec := &Recommendation{Items: res.Items, Meta: res.Meta}
	if len(res.Items) == 0 {
		rec.Items = []food.Item{}
		rec.Message = MessageEmpty
	}
	return rec, nil
}

// RecommendMeal 篩選後組成套餐
func (s *Service) RecommendMeal(ctx context.Context, userID int64, req food.RequestContext) (*MealResult, error) {
	res, err := s.Filter(ctx, userID, req)
	if err != nil {
		return nil, err
	}

	if len(res.Items) == 0 {
		return &MealResult{
			Alternatives: emptyAlternatives(),
			Meta:         res.Meta,
			Message:      MessageEmpty,
		}, nil
	}
	return s.Assemble(ctx, userID, res.Items, res.Meta)
}

// ResetHistory 清除使用者的推薦紀錄
func (s *Service) ResetHistory(ctx context.Context, userID int64) error {
	return s.history.Reset(ctx, userID)
}

// RecentHistory 使用者最近推薦過的食物 ID
func (s *Service) RecentHistory(ctx context.Context, userID int64) ([]int64, error) {
	return s.history.Recent(ctx, userID)
}

// ResetAllHistory 清除所有使用者的推薦紀錄
func (s *Service) ResetAllHistory(ctx context.Context) error {
	return s.history.ResetAll(ctx)
}
