package storage

import (
	"context"
	"fmt"
	"os"
	"strings"

	"meal-recommender/internal/core/food"
	"meal-recommender/internal/pkg/common"

	"go.uber.org/zap"
)

// FoodRecord 匯入檔與除錯輸出共用的食物格式
type FoodRecord struct {
	ID        int64    `json:"id,omitempty"`
	Name      string   `json:"food_name"`
	Calories  int      `json:"calories"`
	Sugar     float64  `json:"sugar_content"`
	Category  string   `json:"food_type"`
	Time      string   `json:"recommend_time"`
	Weather   string   `json:"weather_conditions"`
	Allergens string   `json:"allergens"`
	ImageURL  *string  `json:"image_url"`
	Salt      *float64 `json:"salt_content,omitempty"`
	Fat       *float64 `json:"fat_content,omitempty"`
}

// NewFoodRecord 轉為輸出格式
func NewFoodRecord(it food.Item) FoodRecord {
	r := FoodRecord{
		ID:        it.ID,
		Name:      it.Name,
		Calories:  it.Calories,
		Sugar:     it.Sugar,
		Category:  string(it.Category),
		Time:      string(it.Time),
		Weather:   common.JoinList(it.WeatherTags),
		Allergens: encodeAllergens(it.Allergens),
		Salt:      it.Salt.Ptr(),
		Fat:       it.Fat.Ptr(),
	}
	if it.ImageURL != "" {
		url := it.ImageURL
		r.ImageURL = &url
	}
	return r
}

// Item 驗證並轉為食物紀錄
func (r FoodRecord) Item() (food.Item, error) {
	name := strings.TrimSpace(r.Name)
	if name == "" {
		return food.Item{}, fmt.Errorf("food_name is required")
	}
	if r.Calories < 0 || r.Sugar < 0 {
		return food.Item{}, fmt.Errorf("%s: calories and sugar_content must be non-negative", name)
	}
	t, ok := food.ParseMealTime(r.Time)
	if !ok {
		return food.Item{}, fmt.Errorf("%s: unknown recommend_time %q", name, r.Time)
	}
	if strings.TrimSpace(r.Category) == "" {
		return food.Item{}, fmt.Errorf("%s: food_type is required", name)
	}

	it := food.Item{
		Name:        name,
		Calories:    r.Calories,
		Sugar:       r.Sugar,
		Category:    food.Category(strings.TrimSpace(r.Category)),
		Time:        t,
		WeatherTags: common.SplitList(r.Weather),
		Allergens:   decodeAllergens(r.Allergens),
	}
	if r.ImageURL != nil {
		it.ImageURL = strings.TrimSpace(*r.ImageURL)
	}
	if r.Salt != nil {
		it.Salt = food.Some(*r.Salt)
	}
	if r.Fat != nil {
		it.Fat = food.Some(*r.Fat)
	}
	return it, nil
}

// LoadFoodsFile 讀取 JSON 陣列格式的食物檔，任何一筆無效時整個檔案視為無效
func LoadFoodsFile(path string) ([]food.Item, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open foods file: %w", err)
	}
	defer f.Close()

	var records []FoodRecord
	if err := common.DecodeJSON(f, &records); err != nil {
		return nil, fmt.Errorf("failed to parse foods file: %w", err)
	}

	items := make([]food.Item, 0, len(records))
	for i, r := range records {
		it, err := r.Item()
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		items = append(items, it)
	}
	return items, nil
}

// ImportFile 讀取食物檔並依名稱寫入，之後補上缺少的圖片
func (s *SQLiteStore) ImportFile(ctx context.Context, path string) (int, error) {
	items, err := LoadFoodsFile(path)
	if err != nil {
		return 0, err
	}

	written, err := s.UpsertFoods(ctx, items)
	if err != nil {
		return 0, err
	}
	if _, err := s.BackfillImages(ctx); err != nil {
		return written, err
	}

	common.LogInfo("食物檔已匯入",
		zap.String("path", path),
		zap.Int("records", len(items)),
		zap.Int("written", written),
	)
	return written, nil
}
