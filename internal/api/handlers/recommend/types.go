package recommend

import (
	"meal-recommender/internal/core/food"
	coreRecommend "meal-recommender/internal/core/recommend"
	"meal-recommender/internal/infrastructure/storage"
)

// RecommendResponse GET /recommend 回應
type RecommendResponse struct {
	Recommendations []storage.FoodRecord `json:"recommendations"`
	Message         string               `json:"message"`
}

// MealResponse GET /recommend/meal 回應
type MealResponse struct {
	Meal         *Meal                              `json:"meal"`
	Alternatives map[food.Role][]storage.FoodRecord `json:"alternatives"`
	Meta         food.FilterMeta                    `json:"meta"`
	Message      string                             `json:"message"`
}

// Meal 套餐內容
type Meal struct {
	Staple         *storage.FoodRecord     `json:"staple"`
	Protein        *storage.FoodRecord     `json:"protein"`
	Vegetable      *storage.FoodRecord     `json:"vegetable"`
	NutritionTotal coreRecommend.Nutrition `json:"nutrition_total"`
	Explanations   []string                `json:"explanations"`
	Warnings       []string                `json:"warnings"`
}

// SaveUserRequest POST /users 請求
type SaveUserRequest struct {
	UserID          int64  `json:"user_id" binding:"required,min=1"`
	HealthCondition string `json:"health_condition"`
	AllergicFoods   string `json:"allergic_foods"`
}

// HistoryResponse /history/:user_id 回應
type HistoryResponse struct {
	UserID  int64   `json:"user_id,omitempty"`
	FoodIDs []int64 `json:"food_ids,omitempty"`
	Cleared bool    `json:"cleared,omitempty"`
	Message string  `json:"message,omitempty"`
}

func toRecords(items []food.Item) []storage.FoodRecord {
	out := make([]storage.FoodRecord, len(items))
	for i, it := range items {
		out[i] = storage.NewFoodRecord(it)
	}
	return out
}

func toRecord(it *food.Item) *storage.FoodRecord {
	if it == nil {
		return nil
	}
	r := storage.NewFoodRecord(*it)
	return &r
}

func newMealResponse(res *coreRecommend.MealResult) MealResponse {
	meta := res.Meta
	if meta.ConditionNotes == nil {
		meta.ConditionNotes = []string{}
	}

	alternatives := make(map[food.Role][]storage.FoodRecord, len(food.MealRoles))
	for _, role := range food.MealRoles {
		alternatives[role] = toRecords(res.Alternatives[role])
	}

	resp := MealResponse{
		Alternatives: alternatives,
		Meta:         meta,
		Message:      res.Message,
	}
	if m := res.Meal; m != nil {
		resp.Meal = &Meal{
			Staple:         toRecord(m.Staple),
			Protein:        toRecord(m.Protein),
			Vegetable:      toRecord(m.Vegetable),
			NutritionTotal: m.Nutrition,
			Explanations:   m.Explanations,
			Warnings:       m.Warnings,
		}
	}
	return resp
}
