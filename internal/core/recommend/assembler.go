package recommend

import (
	"context"
	"fmt"
	"sort"

	"meal-recommender/internal/core/food"
	"meal-recommender/internal/pkg/common"

	"go.uber.org/zap"
)

const (
	// repeatPenalty 近期推薦過的食物扣分，大於任何實際熱量
	repeatPenalty   = 10000
	maxAlternatives = 5

	warnFallbackWeather = "天气服务不可用，已使用默认天气策略"
)

// Nutrition 整餐營養合計
type Nutrition struct {
	Calories int     `json:"calories"`
	Sugar    float64 `json:"sugar_content"`
}

// Meal 一份套餐，未能填入的角色為 nil
type Meal struct {
	Staple       *food.Item
	Protein      *food.Item
	Vegetable    *food.Item
	Nutrition    Nutrition
	Explanations []string
	Warnings     []string
}

// Pick 取得角色對應的食物
func (m *Meal) Pick(role food.Role) *food.Item {
	switch role {
	case food.RoleStaple:
		return m.Staple
	case food.RoleProtein:
		return m.Protein
	case food.RoleVegetable:
		return m.Vegetable
	}
	return nil
}

func (m *Meal) set(role food.Role, it *food.Item) {
	switch role {
	case food.RoleStaple:
		m.Staple = it
	case food.RoleProtein:
		m.Protein = it
	case food.RoleVegetable:
		m.Vegetable = it
	}
}

// MealResult 組餐結果，Meal 為 nil 時 Message 說明原因
type MealResult struct {
	Meal         *Meal
	Alternatives map[food.Role][]food.Item
	Meta         food.FilterMeta
	Message      string
}

// buckets 依角色分組，保留篩選後的順序
type buckets map[food.Role][]food.Item

func bucketize(items []food.Item) buckets {
	b := make(buckets)
	for _, it := range items {
		role := food.RoleOf(it.Category)
		b[role] = append(b[role], it)
	}
	return b
}

// candidates 角色沒有食物時改用 other
func (b buckets) candidates(role food.Role) []food.Item {
	if len(b[role]) > 0 {
		return b[role]
	}
	return b[food.RoleOther]
}

type scorer func(food.Item) int

func antiRepeatScore(recent map[int64]struct{}) scorer {
	return func(it food.Item) int {
		if _, ok := recent[it.ID]; ok {
			return it.Calories - repeatPenalty
		}
		return it.Calories
	}
}

// Assemble 從篩選結果組出主食、蛋白、蔬菜各一，並記錄到推薦紀錄
func (s *Service) Assemble(ctx context.Context, userID int64, items []food.Item, meta food.FilterMeta) (*MealResult, error) {
	b := bucketize(items)

	var (
		meal  *Meal
		score scorer
	)
	err := s.history.Update(ctx, userID, func(recent map[int64]struct{}) []int64 {
		score = antiRepeatScore(recent)
		meal = &Meal{}

		used := make(map[int64]struct{})
		var ids []int64
		for _, role := range food.MealRoles {
			it := pickBest(b.candidates(role), used, score)
			if it == nil {
				continue
			}
			meal.set(role, it)
			used[it.ID] = struct{}{}
			ids = append(ids, it.ID)
		}
		if len(ids) == 0 {
			meal = nil
		}
		return ids
	})
	if err != nil {
		return nil, common.Wrap(common.ErrInternalError, err)
	}

	if meal == nil {
		return &MealResult{
			Alternatives: emptyAlternatives(),
			Meta:         meta,
			Message:      MessageEmpty,
		}, nil
	}

	picked := make(map[int64]struct{})
	for _, role := range food.MealRoles {
		if it := meal.Pick(role); it != nil {
			picked[it.ID] = struct{}{}
			meal.Nutrition.Calories += it.Calories
			meal.Nutrition.Sugar += it.Sugar
		}
	}

	alternatives := make(map[food.Role][]food.Item, len(food.MealRoles))
	for _, role := range food.MealRoles {
		alternatives[role] = rankAlternatives(b.candidates(role), picked, score)
	}

	meal.Explanations, meal.Warnings = describe(meta)

	common.LogDebug("組餐完成",
		zap.Int64("user_id", userID),
		zap.Int("calories", meal.Nutrition.Calories),
		zap.Int("picked", len(picked)),
	)

	return &MealResult{
		Meal:         meal,
		Alternatives: alternatives,
		Meta:         meta,
	}, nil
}

// pickBest 取分數最高且未使用的食物，同分時取較前者
func pickBest(candidates []food.Item, used map[int64]struct{}, score scorer) *food.Item {
	var best *food.Item
	bestScore := 0
	for i := range candidates {
		it := &candidates[i]
		if _, ok := used[it.ID]; ok {
			continue
		}
		if sc := score(*it); best == nil || sc > bestScore {
			best = it
			bestScore = sc
		}
	}
	if best == nil {
		return nil
	}
	picked := *best
	return &picked
}

func rankAlternatives(candidates []food.Item, picked map[int64]struct{}, score scorer) []food.Item {
	ranked := make([]food.Item, 0, len(candidates))
	for _, it := range candidates {
		if _, ok := picked[it.ID]; !ok {
			ranked = append(ranked, it)
		}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return score(ranked[i]) > score(ranked[j])
	})

	out := make([]food.Item, 0, maxAlternatives)
	seen := make(map[int64]struct{})
	for _, it := range ranked {
		if _, ok := seen[it.ID]; ok {
			continue
		}
		seen[it.ID] = struct{}{}
		out = append(out, it)
		if len(out) == maxAlternatives {
			break
		}
	}
	return out
}

func emptyAlternatives() map[food.Role][]food.Item {
	alternatives := make(map[food.Role][]food.Item, len(food.MealRoles))
	for _, role := range food.MealRoles {
		alternatives[role] = []food.Item{}
	}
	return alternatives
}

// describe 產生說明與提醒文字
func describe(meta food.FilterMeta) (explanations, warnings []string) {
	explanations = []string{
		fmt.Sprintf("推荐时段：%s", meta.Time),
		fmt.Sprintf("城市：%s", meta.City),
		fmt.Sprintf("最大热量：%d", meta.MaxCalories),
	}
	warnings = []string{}

	if meta.HealthCondition != "" {
		explanations = append(explanations, fmt.Sprintf("健康状况：%s", meta.HealthCondition))
		warnings = append(warnings, meta.ConditionNotes...)
	}

	if meta.FallbackWeatherUsed {
		warnings = append(warnings, warnFallbackWeather)
	} else if meta.Weather != "" {
		explanations = append(explanations, fmt.Sprintf("天气：%s", meta.Weather))
	}
	return explanations, warnings
}
