package storage

import (
	"context"
	"fmt"
	"strings"

	"meal-recommender/internal/core/food"
	"meal-recommender/internal/core/image"
	"meal-recommender/internal/pkg/common"

	"go.uber.org/zap"
)

// DefaultUser 初始化時建立的示範使用者
var DefaultUser = food.UserProfile{ID: 1, HealthCondition: "糖尿病", AllergicFoods: "花生,牛奶"}

var allWeather = []string{"晴天", "阴天", "雨天", "寒冷"}

// SeedResult 初始化結果
type SeedResult struct {
	Inserted       int
	PresetImages   int
	Placeholders   int
	DefaultUserNew bool
}

// Seed 補充示範食物與使用者，已存在的名稱不會覆寫，可重複執行
func (s *SQLiteStore) Seed(ctx context.Context) (*SeedResult, error) {
	res := &SeedResult{}

	inserted, err := s.InsertFoods(ctx, SeedFoods())
	if err != nil {
		return nil, err
	}
	res.Inserted = inserted

	if res.PresetImages, err = s.ApplyImagePresets(ctx); err != nil {
		return nil, err
	}
	if res.Placeholders, err = s.BackfillImages(ctx); err != nil {
		return nil, err
	}

	users, err := s.CountUsers(ctx)
	if err != nil {
		return nil, err
	}
	if users == 0 {
		user := DefaultUser
		if err := s.SaveUser(ctx, &user); err != nil {
			return nil, err
		}
		res.DefaultUserNew = true
	}

	common.LogInfo("食物資料初始化完成",
		zap.Int("inserted", res.Inserted),
		zap.Int("preset_images", res.PresetImages),
		zap.Int("placeholders", res.Placeholders),
		zap.Bool("default_user_created", res.DefaultUserNew),
	)
	return res, nil
}

// ApplyImagePresets 熱門食物改用預設圖片
func (s *SQLiteStore) ApplyImagePresets(ctx context.Context) (int, error) {
	items, err := s.QueryFoodsByNames(ctx, image.PresetNames())
	if err != nil {
		return 0, err
	}

	changed := 0
	for _, it := range items {
		url := image.Presets[it.Name]
		if url == "" || it.ImageURL == url {
			continue
		}
		if err := s.SetImageURL(ctx, it.ID, url); err != nil {
			return changed, err
		}
		changed++
	}
	return changed, nil
}

// BackfillImages 沒有圖片或佔位圖版本過舊的食物改用目前版本的佔位圖
func (s *SQLiteStore) BackfillImages(ctx context.Context) (int, error) {
	items, err := s.AllFoods(ctx)
	if err != nil {
		return 0, err
	}

	changed := 0
	for _, it := range items {
		if !image.NeedsPlaceholder(it.ImageURL) {
			continue
		}
		url := image.PlaceholderURL(it.ID)
		if preset, ok := image.Presets[it.Name]; ok {
			url = preset
		}
		if err := s.SetImageURL(ctx, it.ID, url); err != nil {
			return changed, err
		}
		changed++
	}
	return changed, nil
}

// SeedFoods 示範食物：手寫清單加上依時段產生的主食、蛋白與蔬菜
func SeedFoods() []food.Item {
	items := append([]food.Item(nil), handpicked...)
	return append(items, generatedFoods()...)
}

func seed(name string, cal int, sugar float64, cat food.Category, t food.MealTime, weather, allergens string) food.Item {
	return food.Item{
		Name:        name,
		Calories:    cal,
		Sugar:       sugar,
		Category:    cat,
		Time:        t,
		WeatherTags: common.SplitList(weather),
		Allergens:   decodeAllergens(allergens),
	}
}

var handpicked = []food.Item{
	// 早餐
	seed("无糖燕麦粥", 180, 3, food.CategoryStaple, food.Breakfast, "晴天,阴天,雨天", "无"),
	seed("全麦吐司", 160, 4, food.CategoryStaple, food.Breakfast, "晴天,阴天", "麸质"),
	seed("水煮鸡蛋", 80, 0, food.CategoryProtein, food.Breakfast, "晴天,阴天,雨天,寒冷", "鸡蛋"),
	seed("豆腐脑（少糖）", 120, 4, food.CategoryProtein, food.Breakfast, "晴天,阴天", "大豆"),
	seed("清炒西兰花", 60, 2, food.CategoryVegetable, food.Breakfast, "晴天,阴天,雨天,寒冷", "无"),
	seed("凉拌海带丝", 50, 1, food.CategoryVegetable, food.Breakfast, "晴天,阴天,雨天,寒冷", "无"),
	seed("清炒生菜", 55, 1, food.CategoryVegetable, food.Breakfast, "晴天,阴天,雨天,寒冷", "无"),

	// 午餐
	seed("糙米饭", 220, 1, food.CategoryStaple, food.Lunch, "晴天,阴天,雨天,寒冷", "无"),
	seed("荞麦面", 240, 2, food.CategoryStaple, food.Lunch, "阴天,雨天,寒冷", "麸质"),
	seed("香煎鸡胸肉", 210, 0, food.CategoryProtein, food.Lunch, "晴天,阴天,雨天", "无"),
	seed("清蒸鱼", 190, 0, food.CategoryProtein, food.Lunch, "晴天,阴天,雨天,寒冷", "鱼类"),
	seed("凉拌黄瓜", 40, 1, food.CategoryVegetable, food.Lunch, "晴天,阴天", "无"),
	seed("番茄炒蛋（少油）", 180, 3, food.CategoryVegetable, food.Lunch, "晴天,阴天,雨天", "鸡蛋"),

	// 晚餐
	seed("玉米", 170, 4, food.CategoryStaple, food.Dinner, "晴天,阴天", "无"),
	seed("藜麦饭", 210, 2, food.CategoryStaple, food.Dinner, "晴天,阴天,雨天,寒冷", "无"),
	seed("杂粮饭", 200, 3, food.CategoryStaple, food.Dinner, "晴天,阴天,雨天,寒冷", "无"),
	seed("虾仁豆腐", 200, 1, food.CategoryProtein, food.Dinner, "晴天,阴天,雨天,寒冷", "虾,大豆"),
	seed("鸡丝菌菇汤", 120, 2, food.CategoryProtein, food.Dinner, "雨天,寒冷", "无"),
	seed("紫菜蛋花汤", 90, 1, food.CategoryVegetable, food.Dinner, "雨天,寒冷", "鸡蛋"),
	seed("清炒菠菜", 70, 2, food.CategoryVegetable, food.Dinner, "晴天,阴天,雨天,寒冷", "无"),

	// 反例：高糖且含花生，用來檢查過濾
	seed("花生糖", 300, 25, food.CategoryStaple, food.Dinner, "晴天", "花生"),
}

var (
	stapleBases = map[food.MealTime][]string{
		food.Breakfast: {"燕麦", "全麦吐司", "玉米", "红薯", "南瓜", "藜麦", "小米", "黑米", "山药", "紫薯", "荞麦面", "糙米"},
		food.Lunch:     {"糙米饭", "藜麦饭", "荞麦面", "全麦意面", "杂粮饭", "玉米", "红薯", "燕麦饭", "小米饭", "黑米饭", "南瓜饭", "莜麦面"},
		food.Dinner:    {"藜麦饭", "杂粮饭", "玉米", "红薯", "南瓜", "小米粥", "燕麦粥", "山药", "紫薯", "糙米饭", "荞麦面", "全麦馒头"},
	}
	proteinBases = map[food.MealTime][]string{
		food.Breakfast: {"鸡蛋", "鸡胸肉", "豆腐", "豆浆", "希腊酸奶", "金枪鱼", "虾仁", "低脂牛奶", "牛肉（瘦）", "三文鱼", "毛豆", "鸡腿肉（去皮）"},
		food.Lunch:     {"鸡胸肉", "牛肉（瘦）", "清蒸鱼", "虾仁", "豆腐", "豆干", "牛奶", "鸡蛋", "鸡腿肉（去皮）", "鸭胸肉", "鳕鱼", "毛豆"},
		food.Dinner:    {"清蒸鱼", "鸡胸肉", "虾仁", "豆腐", "菌菇鸡汤", "鸡蛋", "牛肉（瘦）", "鳕鱼", "三文鱼", "豆干", "毛豆", "鸡丝"},
	}
	vegetableBases = map[food.MealTime][]string{
		food.Breakfast: {"西兰花", "菠菜", "生菜", "黄瓜", "番茄", "海带", "紫甘蓝", "芦笋", "香菇", "金针菇", "菜花", "青椒"},
		food.Lunch:     {"西兰花", "黄瓜", "番茄", "菠菜", "芦笋", "香菇", "金针菇", "茄子", "青椒", "菜花", "木耳", "紫甘蓝"},
		food.Dinner:    {"菠菜", "芦笋", "西兰花", "香菇", "金针菇", "菜花", "青椒", "茄子", "木耳", "紫甘蓝", "海带", "番茄"},
	}

	stapleMethods    = []string{"蒸", "煮", "烤", "清炒", "凉拌"}
	proteinMethods   = []string{"水煮", "清蒸", "香煎", "炖", "凉拌"}
	vegetableMethods = []string{"清炒", "凉拌", "清蒸", "水煮", "炖"}
)

// generatedFoods 依固定公式產生，每次結果相同
func generatedFoods() []food.Item {
	var items []food.Item
	idx := 0
	add := func(methods, bases []string, cat food.Category, t food.MealTime, nutrition func(int) (int, float64)) {
		for _, base := range bases {
			for _, m := range methods {
				idx++
				name := fmt.Sprintf("%s%s（%s）", m, base, t)
				cal, sugar := nutrition(idx)
				items = append(items, food.Item{
					Name:        name,
					Calories:    cal,
					Sugar:       sugar,
					Category:    cat,
					Time:        t,
					WeatherTags: append([]string(nil), allWeather...),
					Allergens:   inferAllergens(name),
				})
			}
		}
	}

	for _, t := range food.MealTimes {
		add(stapleMethods, stapleBases[t], food.CategoryStaple, t, func(i int) (int, float64) {
			return bounded(150+(i*7)%130, 140, 280), float64((i * 3) % 7)
		})
		add(proteinMethods, proteinBases[t], food.CategoryProtein, t, func(i int) (int, float64) {
			return bounded(90+(i*11)%170, 70, 260), float64((i * 2) % 6)
		})
		add(vegetableMethods, vegetableBases[t], food.CategoryVegetable, t, func(i int) (int, float64) {
			return bounded(35+(i*5)%95, 25, 130), float64((i * 2) % 5)
		})
	}
	return items
}

func bounded(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// inferAllergens 由名稱推測常見過敏原
func inferAllergens(name string) []string {
	has := func(subs ...string) bool {
		for _, s := range subs {
			if strings.Contains(name, s) {
				return true
			}
		}
		return false
	}

	var allergens []string
	if has("鸡蛋", "蛋花") || strings.HasSuffix(name, "蛋") {
		allergens = append(allergens, "鸡蛋")
	}
	if has("豆腐", "豆浆", "毛豆", "大豆", "豆干") {
		allergens = append(allergens, "大豆")
	}
	if has("牛奶", "酸奶") {
		allergens = append(allergens, "牛奶")
	}
	if has("虾") {
		allergens = append(allergens, "虾")
	}
	if has("鱼") {
		allergens = append(allergens, "鱼类")
	}
	if has("全麦", "吐司", "意面") || (has("面") && !has("荞麦", "莜麦")) {
		allergens = append(allergens, "麸质")
	}
	if has("花生") {
		allergens = append(allergens, "花生")
	}
	return allergens
}
