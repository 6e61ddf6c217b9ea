package recommend

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"meal-recommender/internal/core/condition"
	"meal-recommender/internal/core/food"
	"meal-recommender/internal/core/weather"
	"meal-recommender/internal/pkg/common"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// 健康狀況提示
const (
	noteDiabetes            = "已按糖尿病偏好：优先低糖"
	noteObesity             = "已按控能量偏好：优先低热量"
	noteHypertension        = "已按高血压偏好：优先低盐"
	noteHypertensionMissing = "当前食物库无盐分字段，高血压仅做保守排序：优先低热量/低糖"
	noteHyperlipidemia      = "已按高血脂偏好：优先低脂"
	noteHyperlipidemiaMiss  = "当前食物库无脂肪字段，高血脂仅做保守排序：优先低热量/低糖"

	diabetesMaxSugar      = 5
	obesityMaxCalories    = 350
	hypertensionMaxSalt   = 1.5
	hyperlipidemiaMaxFat  = 10
	defaultWeatherTimeout = 5 * time.Second
)

// FilterResult 篩選結果，Items 為空代表沒有符合條件的食物
type FilterResult struct {
	Items []food.Item
	Meta  food.FilterMeta
}

// narrowingRule 健康狀況的篩選規則。nutrient 不為 nil 時，
// 候選中至少一項帶有該營養素才會套用，否則只輸出 missingNote。
type narrowingRule struct {
	tag         string
	nutrient    func(food.Item) food.Nutrient
	keep        func(food.Item) bool
	note        string
	missingNote string
}

var narrowingRules = []narrowingRule{
	{
		tag:  condition.Diabetes,
		keep: func(it food.Item) bool { return it.Sugar <= diabetesMaxSugar },
		note: noteDiabetes,
	},
	{
		tag:  condition.Obesity,
		keep: func(it food.Item) bool { return it.Calories <= obesityMaxCalories },
		note: noteObesity,
	},
	{
		tag:      condition.Hypertension,
		nutrient: func(it food.Item) food.Nutrient { return it.Salt },
		keep: func(it food.Item) bool {
			return !it.Salt.Present || it.Salt.Value < hypertensionMaxSalt
		},
		note:        noteHypertension,
		missingNote: noteHypertensionMissing,
	},
	{
		tag:      condition.Hyperlipidemia,
		nutrient: func(it food.Item) food.Nutrient { return it.Fat },
		keep: func(it food.Item) bool {
			return !it.Fat.Present || it.Fat.Value < hyperlipidemiaMaxFat
		},
		note:        noteHyperlipidemia,
		missingNote: noteHyperlipidemiaMiss,
	},
}

// Filter 依使用者、天氣與請求情境篩選並排序食物
func (s *Service) Filter(ctx context.Context, userID int64, req food.RequestContext) (*FilterResult, error) {
	if userID <= 0 {
		return nil, common.Wrapf(common.ErrInvalidArgument, "缺少用户ID参数")
	}
	if req.Time == "" {
		return nil, common.Wrapf(common.ErrInvalidArgument, "缺少时间参数")
	}

	// 使用者與天氣互不相依，並行查詢
	var (
		user     *food.UserProfile
		resolved weather.Normalized
		fallback bool
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		u, err := s.users.GetUser(gctx, userID)
		if err != nil {
			return err
		}
		user = u
		return nil
	})
	g.Go(func() error {
		resolved, fallback = s.resolveWeather(gctx, req.City)
		return nil
	})
	if err := g.Wait(); err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, err
		}
		return nil, common.Wrap(common.ErrInternalError, err)
	}

	raw := user.HealthCondition
	if override := strings.TrimSpace(req.ConditionOverride); override != "" {
		raw = override
	}
	tags := condition.Parse(raw)

	allergens := make(map[string]struct{})
	for _, a := range common.SplitList(user.AllergicFoods) {
		allergens[a] = struct{}{}
	}

	items, err := s.catalog.QueryFoods(ctx, food.Query{
		Time:        req.Time,
		WeatherTags: resolved.Synonyms,
		MaxCalories: req.MaxCalories,
	})
	if err != nil {
		return nil, common.Wrap(common.ErrInternalError, err)
	}
	common.LogDebug("主要查詢完成",
		zap.Int64("user_id", userID),
		zap.String("weather", resolved.Label),
		zap.Strings("synonyms", resolved.Synonyms),
		zap.Int("count", len(items)),
	)

	// 天氣條件太嚴格時放寬，只保留時段與熱量
	if len(items) == 0 {
		items, err = s.catalog.QueryFoods(ctx, food.Query{
			Time:        req.Time,
			MaxCalories: req.MaxCalories,
		})
		if err != nil {
			return nil, common.Wrap(common.ErrInternalError, err)
		}
		common.LogDebug("放寬天氣條件重新查詢", zap.Int("count", len(items)))
	}

	var notes []string
	if len(tags) > 0 {
		items, notes = narrow(items, tags)
		sortByCondition(items, condition.Has(tags, condition.Diabetes))
	}

	items = excludeAllergens(items, allergens)

	if len(tags) == 0 {
		sort.SliceStable(items, func(i, j int) bool {
			return items[i].Calories > items[j].Calories
		})
	}

	return &FilterResult{
		Items: items,
		Meta: food.FilterMeta{
			Weather:             resolved.Label,
			FallbackWeatherUsed: fallback,
			City:                req.City,
			Time:                req.Time,
			MaxCalories:         req.MaxCalories,
			HealthCondition:     condition.Join(tags),
			ConditionNotes:      notes,
		},
	}, nil
}

// resolveWeather 查詢天氣，任何失敗都改用預設天氣並回報 fallback
func (s *Service) resolveWeather(ctx context.Context, city string) (weather.Normalized, bool) {
	if s.weather == nil {
		return weather.Default(s.defaultWeather), true
	}

	ctx, cancel := context.WithTimeout(ctx, s.weatherTimeout)
	defer cancel()

	label, err := s.weather.CurrentWeather(ctx, city)
	if err != nil {
		common.LogWarn("天氣查詢失敗，使用預設天氣",
			zap.String("city", city),
			zap.Error(err),
		)
		return weather.Default(s.defaultWeather), true
	}

	normalized, ok := weather.Normalize(label)
	if !ok {
		common.LogWarn("天氣供應商未回傳資料，使用預設天氣", zap.String("city", city))
		return weather.Default(s.defaultWeather), true
	}
	return normalized, false
}

// narrow 依序套用健康狀況規則，每條規則都不會把候選清空
func narrow(items []food.Item, tags []string) ([]food.Item, []string) {
	var notes []string
	for _, rule := range narrowingRules {
		if !condition.Has(tags, rule.tag) {
			continue
		}

		if rule.nutrient != nil && !anyPresent(items, rule.nutrient) {
			notes = append(notes, rule.missingNote)
			continue
		}

		kept := make([]food.Item, 0, len(items))
		for _, it := range items {
			if rule.keep(it) {
				kept = append(kept, it)
			}
		}
		if len(kept) > 0 {
			items = kept
		}
		common.LogDebug("套用健康狀況規則",
			zap.String("condition", rule.tag),
			zap.Int("kept", len(kept)),
			zap.Int("remaining", len(items)),
		)
		notes = append(notes, rule.note)
	}
	return items, notes
}

func anyPresent(items []food.Item, nutrient func(food.Item) food.Nutrient) bool {
	for _, it := range items {
		if nutrient(it).Present {
			return true
		}
	}
	return false
}

// sortByCondition 有糖尿病時依 (糖, 熱量)，否則依 (熱量, 糖) 遞增
func sortByCondition(items []food.Item, diabetes bool) {
	sort.SliceStable(items, func(i, j int) bool {
		a, b := items[i], items[j]
		if diabetes {
			if a.Sugar != b.Sugar {
				return a.Sugar < b.Sugar
			}
			return a.Calories < b.Calories
		}
		if a.Calories != b.Calories {
			return a.Calories < b.Calories
		}
		return a.Sugar < b.Sugar
	})
}

func excludeAllergens(items []food.Item, allergens map[string]struct{}) []food.Item {
	if len(allergens) == 0 {
		return items
	}
	kept := make([]food.Item, 0, len(items))
	for _, it := range items {
		if it.HasAllergen(allergens) {
			common.LogDebug("排除過敏食物", zap.String("food", it.Name))
			continue
		}
		kept = append(kept, it)
	}
	return kept
}
