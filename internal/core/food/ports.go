package food

import "context"

// Catalog 提供食物資料。實作可以是 SQLite、記憶體或其他後端。
type Catalog interface {
	QueryFoods(ctx context.Context, q Query) ([]Item, error)
	QueryFoodsByNames(ctx context.Context, names []string) ([]Item, error)
	AllFoods(ctx context.Context) ([]Item, error)
	GetFood(ctx context.Context, id int64) (*Item, error)
}

// UserStore 提供使用者資料，找不到時回傳 common.ErrUserNotFound
type UserStore interface {
	GetUser(ctx context.Context, id int64) (*UserProfile, error)
	SaveUser(ctx context.Context, user *UserProfile) error
}

// WeatherProvider 查詢城市目前天氣，回傳供應商的天氣標籤
type WeatherProvider interface {
	CurrentWeather(ctx context.Context, city string) (string, error)
}
