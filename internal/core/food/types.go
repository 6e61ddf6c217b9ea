// Package food 定義食物推薦領域的資料型別與外部協作者介面。
package food

import (
	"strings"
)

// MealTime 推薦時段
type MealTime string

const (
	Breakfast MealTime = "早餐"
	Lunch     MealTime = "午餐"
	Dinner    MealTime = "晚餐"
)

// MealTimes 全部時段，依一天先後排序
var MealTimes = []MealTime{Breakfast, Lunch, Dinner}

var mealTimeAliases = map[string]MealTime{
	"早餐":        Breakfast,
	"午餐":        Lunch,
	"晚餐":        Dinner,
	"breakfast": Breakfast,
	"lunch":     Lunch,
	"dinner":    Dinner,
}

// ParseMealTime 解析時段，接受中文或英文名稱
func ParseMealTime(s string) (MealTime, bool) {
	t, ok := mealTimeAliases[strings.ToLower(strings.TrimSpace(s))]
	return t, ok
}

// Category 食物分類，對應 foods.food_type
type Category string

const (
	CategoryStaple    Category = "主食"
	CategoryProtein   Category = "蛋白"
	CategoryVegetable Category = "蔬菜"
)

// Role 餐盤中的角色
type Role string

const (
	RoleStaple    Role = "staple"
	RoleProtein   Role = "protein"
	RoleVegetable Role = "vegetable"
	RoleOther     Role = "other"
)

// MealRoles 組餐時依序填入的角色
var MealRoles = []Role{RoleStaple, RoleProtein, RoleVegetable}

// RoleOf 依分類取得角色，未知分類歸入 other
func RoleOf(c Category) Role {
	switch c {
	case CategoryStaple:
		return RoleStaple
	case CategoryProtein:
		return RoleProtein
	case CategoryVegetable:
		return RoleVegetable
	default:
		return RoleOther
	}
}

// Nutrient 可選的營養素欄位，Present 為 false 表示食物庫沒有此數值
type Nutrient struct {
	Value   float64
	Present bool
}

// Some 建立有值的營養素
func Some(v float64) Nutrient {
	return Nutrient{Value: v, Present: true}
}

// Ptr 轉成 JSON 友善的指標，缺值時為 nil
func (n Nutrient) Ptr() *float64 {
	if !n.Present {
		return nil
	}
	v := n.Value
	return &v
}

// Item 食物紀錄
type Item struct {
	ID          int64
	Name        string
	Calories    int
	Sugar       float64
	Category    Category
	Time        MealTime
	WeatherTags []string
	Allergens   []string
	ImageURL    string
	Salt        Nutrient
	Fat         Nutrient
}

// HasAllergen 檢查是否含有任一過敏原
func (it Item) HasAllergen(allergens map[string]struct{}) bool {
	for _, a := range it.Allergens {
		if _, ok := allergens[a]; ok {
			return true
		}
	}
	return false
}

// MatchesWeather 檢查天氣標籤是否與任一同義詞相交
func (it Item) MatchesWeather(synonyms []string) bool {
	for _, tag := range it.WeatherTags {
		for _, s := range synonyms {
			if tag == s {
				return true
			}
		}
	}
	return false
}

// UserProfile 使用者資料
type UserProfile struct {
	ID              int64
	HealthCondition string
	AllergicFoods   string
}

// RequestContext 單次推薦請求的情境
type RequestContext struct {
	Time              MealTime
	City              string
	MaxCalories       int
	ConditionOverride string
}

// FilterMeta 篩選過程的中繼資訊
type FilterMeta struct {
	Weather             string   `json:"weather"`
	FallbackWeatherUsed bool     `json:"fallback_weather_used"`
	City                string   `json:"city"`
	Time                MealTime `json:"time"`
	MaxCalories         int      `json:"max_calories"`
	HealthCondition     string   `json:"health_condition"`
	ConditionNotes      []string `json:"condition_notes"`
}

// Query 食物庫查詢條件，WeatherTags 為空時不限制天氣
type Query struct {
	Time        MealTime
	WeatherTags []string
	MaxCalories int
}
