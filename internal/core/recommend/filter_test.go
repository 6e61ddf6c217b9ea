package recommend

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"meal-recommender/internal/core/condition"
	"meal-recommender/internal/core/food"
	"meal-recommender/internal/pkg/common"
)

func TestFilterMatchesWeather(t *testing.T) {
	items := []food.Item{
		item(1, "燕麦粥", food.CategoryStaple, 150, 3, "晴天"),
		item(2, "热汤面", food.CategoryStaple, 280, 1, "雨天"),
	}
	svc, _, _ := newTestService(items, plainUser(1), &fakeWeather{label: "Clear"})

	res, err := svc.Filter(context.Background(), 1, breakfast(500))
	if err != nil {
		t.Fatalf("Filter() error = %v", err)
	}
	if got := ids(res.Items); !reflect.DeepEqual(got, []int64{1}) {
		t.Errorf("items = %v, want [1]", got)
	}
	if res.Meta.Weather != "Clear" || res.Meta.FallbackWeatherUsed {
		t.Errorf("meta = %+v, want Clear without fallback", res.Meta)
	}
}

func TestFilterDropsWeatherWhenNothingMatches(t *testing.T) {
	items := []food.Item{
		item(1, "燕麦粥", food.CategoryStaple, 150, 3, "晴天"),
		item(2, "热汤面", food.CategoryStaple, 280, 1, "晴天"),
		item(3, "大份拌饭", food.CategoryStaple, 600, 1, "雨天"),
	}
	svc, catalog, _ := newTestService(items, plainUser(1), &fakeWeather{label: "Snow"})

	res, err := svc.Filter(context.Background(), 1, breakfast(500))
	if err != nil {
		t.Fatalf("Filter() error = %v", err)
	}
	if got := ids(res.Items); !reflect.DeepEqual(got, []int64{2, 1}) {
		t.Errorf("items = %v, want [2 1]", got)
	}
	// 天氣查詢成功，只是沒有符合的食物
	if res.Meta.FallbackWeatherUsed {
		t.Error("FallbackWeatherUsed = true, want false")
	}
	if len(catalog.queries) != 2 || catalog.queries[1].WeatherTags != nil {
		t.Errorf("queries = %+v, want primary then unconstrained", catalog.queries)
	}
	if catalog.queries[1].MaxCalories != 500 || catalog.queries[1].Time != food.Breakfast {
		t.Errorf("fallback query = %+v, want time and calories kept", catalog.queries[1])
	}
}

func TestFilterWeatherFallback(t *testing.T) {
	items := []food.Item{
		item(1, "燕麦粥", food.CategoryStaple, 150, 3, "晴天"),
		item(2, "热汤面", food.CategoryStaple, 280, 1, "雨天"),
	}

	tests := []struct {
		name     string
		provider food.WeatherProvider
	}{
		{"provider error", &fakeWeather{err: errProvider}},
		{"empty label", &fakeWeather{label: ""}},
		{"timeout", blockingWeather{}},
		{"no provider", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _, _ := newTestService(items, plainUser(1), tt.provider)

			res, err := svc.Filter(context.Background(), 1, breakfast(500))
			if err != nil {
				t.Fatalf("Filter() error = %v", err)
			}
			if !res.Meta.FallbackWeatherUsed || res.Meta.Weather != "Clear" {
				t.Errorf("meta = %+v, want fallback Clear", res.Meta)
			}
			if got := ids(res.Items); !reflect.DeepEqual(got, []int64{1}) {
				t.Errorf("items = %v, want [1]", got)
			}
		})
	}
}

func TestFilterUnknownWeatherLabel(t *testing.T) {
	items := []food.Item{
		item(1, "沙尘粥", food.CategoryStaple, 150, 3, "Sand"),
		item(2, "燕麦粥", food.CategoryStaple, 200, 3, "晴天"),
	}
	svc, _, _ := newTestService(items, plainUser(1), &fakeWeather{label: "Sand"})

	res, err := svc.Filter(context.Background(), 1, breakfast(500))
	if err != nil {
		t.Fatalf("Filter() error = %v", err)
	}
	if got := ids(res.Items); !reflect.DeepEqual(got, []int64{1}) {
		t.Errorf("items = %v, want [1]", got)
	}
}

func TestFilterConditionNarrowing(t *testing.T) {
	items := []food.Item{
		item(1, "a", food.CategoryStaple, 300, 2, "晴天"),
		item(2, "b", food.CategoryStaple, 200, 6, "晴天"),
		item(3, "c", food.CategoryStaple, 400, 3, "晴天"),
	}

	tests := []struct {
		name      string
		condition string
		want      []int64
		notes     []string
	}{
		{
			name:      "diabetes then obesity",
			condition: "糖尿病,肥胖",
			want:      []int64{1},
			notes:     []string{noteDiabetes, noteObesity},
		},
		{
			name:      "diabetes sorts by sugar",
			condition: "diabetes",
			want:      []int64{1, 3},
			notes:     []string{noteDiabetes},
		},
		{
			name:      "obesity sorts by calories",
			condition: "肥胖",
			want:      []int64{2, 1},
			notes:     []string{noteObesity},
		},
		{
			name:      "hypertension without salt data",
			condition: "高血压",
			want:      []int64{2, 1, 3},
			notes:     []string{noteHypertensionMissing},
		},
		{
			name:      "hyperlipidemia without fat data",
			condition: "高血脂",
			want:      []int64{2, 1, 3},
			notes:     []string{noteHyperlipidemiaMiss},
		},
		{
			name:      "none",
			condition: "无",
			want:      []int64{3, 1, 2},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _, _ := newTestService(items, memUsers{1: {ID: 1, HealthCondition: tt.condition}}, &fakeWeather{label: "Clear"})

			res, err := svc.Filter(context.Background(), 1, breakfast(500))
			if err != nil {
				t.Fatalf("Filter() error = %v", err)
			}
			if got := ids(res.Items); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("items = %v, want %v", got, tt.want)
			}
			if !reflect.DeepEqual(res.Meta.ConditionNotes, tt.notes) {
				t.Errorf("notes = %v, want %v", res.Meta.ConditionNotes, tt.notes)
			}
		})
	}
}

func TestNarrowNeverEmpties(t *testing.T) {
	items := []food.Item{
		item(1, "a", food.CategoryStaple, 400, 8, "晴天"),
		item(2, "b", food.CategoryStaple, 500, 6, "晴天"),
	}

	got, notes := narrow(items, []string{condition.Diabetes, condition.Obesity})
	if !reflect.DeepEqual(ids(got), []int64{1, 2}) {
		t.Errorf("narrow() = %v, want unchanged", ids(got))
	}
	if !reflect.DeepEqual(notes, []string{noteDiabetes, noteObesity}) {
		t.Errorf("notes = %v", notes)
	}
}

func TestNarrowOptionalNutrients(t *testing.T) {
	salty := item(1, "咸菜", food.CategoryVegetable, 50, 1)
	salty.Salt = food.Some(3)
	light := item(2, "白灼菜心", food.CategoryVegetable, 60, 1)
	light.Salt = food.Some(0.5)
	unknown := item(3, "蒸南瓜", food.CategoryVegetable, 80, 4)

	got, notes := narrow([]food.Item{salty, light, unknown}, []string{condition.Hypertension})
	if !reflect.DeepEqual(ids(got), []int64{2, 3}) {
		t.Errorf("narrow() = %v, want [2 3]", ids(got))
	}
	if !reflect.DeepEqual(notes, []string{noteHypertension}) {
		t.Errorf("notes = %v", notes)
	}

	fatty := item(4, "红烧肉", food.CategoryProtein, 300, 2)
	fatty.Fat = food.Some(25)
	got, notes = narrow([]food.Item{fatty}, []string{condition.Hyperlipidemia})
	if !reflect.DeepEqual(ids(got), []int64{4}) {
		t.Errorf("narrow() = %v, want the only item kept", ids(got))
	}
	if !reflect.DeepEqual(notes, []string{noteHyperlipidemia}) {
		t.Errorf("notes = %v", notes)
	}
}

func TestFilterDefaultOrderDescending(t *testing.T) {
	items := []food.Item{
		item(1, "a", food.CategoryStaple, 100, 1, "晴天"),
		item(2, "b", food.CategoryProtein, 300, 1, "晴天"),
		item(3, "c", food.CategoryVegetable, 200, 1, "晴天"),
	}
	svc, _, _ := newTestService(items, plainUser(1), &fakeWeather{label: "Clear"})

	res, err := svc.Filter(context.Background(), 1, breakfast(500))
	if err != nil {
		t.Fatalf("Filter() error = %v", err)
	}
	if got := ids(res.Items); !reflect.DeepEqual(got, []int64{2, 3, 1}) {
		t.Errorf("items = %v, want [2 3 1]", got)
	}
	if res.Meta.HealthCondition != "" || res.Meta.ConditionNotes != nil {
		t.Errorf("meta = %+v, want no condition", res.Meta)
	}
}

func TestFilterExcludesAllergens(t *testing.T) {
	peanut := item(1, "花生糖", food.CategoryStaple, 200, 20, "晴天")
	peanut.Allergens = []string{"花生"}
	milk := item(2, "牛奶燕麦", food.CategoryStaple, 180, 4, "晴天")
	milk.Allergens = []string{"牛奶", "燕麦"}
	plain := item(3, "白粥", food.CategoryStaple, 120, 1, "晴天")

	users := memUsers{1: {ID: 1, AllergicFoods: " 花生 ,牛奶"}}
	svc, _, _ := newTestService([]food.Item{peanut, milk, plain}, users, &fakeWeather{label: "Clear"})

	res, err := svc.Filter(context.Background(), 1, breakfast(500))
	if err != nil {
		t.Fatalf("Filter() error = %v", err)
	}
	if got := ids(res.Items); !reflect.DeepEqual(got, []int64{3}) {
		t.Errorf("items = %v, want [3]", got)
	}
}

func TestFilterConditionOverride(t *testing.T) {
	items := []food.Item{
		item(1, "a", food.CategoryStaple, 300, 2, "晴天"),
		item(2, "b", food.CategoryStaple, 200, 6, "晴天"),
	}
	users := memUsers{1: {ID: 1, HealthCondition: "糖尿病"}}
	svc, _, _ := newTestService(items, users, &fakeWeather{label: "Clear"})

	req := breakfast(500)
	req.ConditionOverride = "肥胖"
	res, err := svc.Filter(context.Background(), 1, req)
	if err != nil {
		t.Fatalf("Filter() error = %v", err)
	}
	if res.Meta.HealthCondition != "肥胖" {
		t.Errorf("HealthCondition = %q, want 肥胖", res.Meta.HealthCondition)
	}
	if got := ids(res.Items); !reflect.DeepEqual(got, []int64{2, 1}) {
		t.Errorf("items = %v, want [2 1]", got)
	}
}

func TestFilterErrors(t *testing.T) {
	catalogErr := errors.New("disk gone")

	tests := []struct {
		name    string
		userID  int64
		req     food.RequestContext
		catalog error
		want    error
	}{
		{"missing user id", 0, breakfast(500), nil, common.ErrInvalidArgument},
		{"missing time", 1, food.RequestContext{City: "Beijing", MaxCalories: 500}, nil, common.ErrInvalidArgument},
		{"unknown user", 42, breakfast(500), nil, common.ErrNotFound},
		{"catalog failure", 1, breakfast(500), catalogErr, common.ErrInternalError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, catalog, _ := newTestService(nil, plainUser(1), &fakeWeather{label: "Clear"})
			catalog.err = tt.catalog

			_, err := svc.Filter(context.Background(), tt.userID, tt.req)
			if !errors.Is(err, tt.want) {
				t.Errorf("Filter() error = %v, want %v", err, tt.want)
			}
		})
	}
}
