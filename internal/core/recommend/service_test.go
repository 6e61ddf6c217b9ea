package recommend

import (
	"context"
	"testing"

	"meal-recommender/internal/core/food"
)

func TestRecommendMealExcludesAllergensEverywhere(t *testing.T) {
	peanut := item(1, "花生酱吐司", food.CategoryStaple, 300, 4, "晴天")
	peanut.Allergens = []string{"花生"}
	items := []food.Item{
		peanut,
		item(2, "全麦面包", food.CategoryStaple, 200, 3, "晴天"),
		item(3, "米饭", food.CategoryStaple, 180, 0, "晴天"),
		item(4, "鸡蛋", food.CategoryProtein, 80, 0, "晴天"),
		item(5, "西兰花", food.CategoryVegetable, 40, 1, "晴天"),
	}
	users := memUsers{1: {ID: 1, AllergicFoods: "花生"}}
	svc, _, _ := newTestService(items, users, &fakeWeather{label: "Clear"})

	res, err := svc.RecommendMeal(context.Background(), 1, breakfast(500))
	if err != nil {
		t.Fatalf("RecommendMeal() error = %v", err)
	}
	if res.Meal == nil {
		t.Fatal("meal = nil, want a meal")
	}
	if res.Meal.Staple.ID != 2 {
		t.Errorf("staple = %d, want 2", res.Meal.Staple.ID)
	}
	for role, alts := range res.Alternatives {
		for _, it := range alts {
			if it.ID == 1 {
				t.Errorf("%s alternatives contain allergen item", role)
			}
		}
	}
}

func TestRecommendEmpty(t *testing.T) {
	items := []food.Item{item(1, "大份拌饭", food.CategoryStaple, 900, 1, "晴天")}
	svc, _, history := newTestService(items, plainUser(1), &fakeWeather{label: "Clear"})

	rec, err := svc.Recommend(context.Background(), 1, breakfast(500))
	if err != nil {
		t.Fatalf("Recommend() error = %v", err)
	}
	if rec.Message != MessageEmpty || rec.Items == nil || len(rec.Items) != 0 {
		t.Errorf("recommend = %+v, want empty list with message", rec)
	}

	meal, err := svc.RecommendMeal(context.Background(), 1, breakfast(500))
	if err != nil {
		t.Fatalf("RecommendMeal() error = %v", err)
	}
	if meal.Meal != nil || meal.Message != MessageEmpty {
		t.Errorf("meal = %+v, want empty", meal)
	}
	if recent, _ := history.Recent(context.Background(), 1); len(recent) != 0 {
		t.Errorf("history = %v, want untouched", recent)
	}
}

func TestResetHistory(t *testing.T) {
	items := []food.Item{item(1, "燕麦粥", food.CategoryStaple, 150, 3, "晴天")}
	svc, _, _ := newTestService(items, plainUser(1), &fakeWeather{label: "Clear"})

	if _, err := svc.RecommendMeal(context.Background(), 1, breakfast(500)); err != nil {
		t.Fatalf("RecommendMeal() error = %v", err)
	}
	if recent, _ := svc.RecentHistory(context.Background(), 1); len(recent) != 1 {
		t.Fatalf("history = %v, want one entry", recent)
	}

	if err := svc.ResetHistory(context.Background(), 1); err != nil {
		t.Fatalf("ResetHistory() error = %v", err)
	}
	if recent, _ := svc.RecentHistory(context.Background(), 1); len(recent) != 0 {
		t.Errorf("history = %v, want empty", recent)
	}
}
