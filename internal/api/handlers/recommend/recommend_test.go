package recommend

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"meal-recommender/internal/core/food"
	coreRecommend "meal-recommender/internal/core/recommend"
	"meal-recommender/internal/infrastructure/config"
	"meal-recommender/internal/infrastructure/storage"
	"meal-recommender/internal/pkg/common"

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type stubWeather struct {
	label string
}

func (w stubWeather) CurrentWeather(context.Context, string) (string, error) {
	return w.label, nil
}

func newTestRouter(t *testing.T) (*gin.Engine, *storage.SQLiteStore) {
	t.Helper()
	store, err := storage.NewSQLiteStore(filepath.Join(t.TempDir(), "foods.db"))
	if err != nil {
		t.Fatalf("NewSQLiteStore() error = %v", err)
	}
	t.Cleanup(func() { store.Close() })
	if _, err := store.Seed(context.Background()); err != nil {
		t.Fatalf("Seed() error = %v", err)
	}

	svc := coreRecommend.NewService(store, store, stubWeather{label: "Rain"}, nil, coreRecommend.Options{})
	h := NewHandler(svc, store, config.RecommendConfig{DefaultCity: "Beijing", DefaultMaxCalories: 500}, false)

	r := gin.New()
	r.Use(requestid.New())
	r.GET("/recommend", h.HandleRecommend)
	r.GET("/recommend/meal", h.HandleMeal)
	r.GET("/history/:user_id", h.HandleHistory)
	r.DELETE("/history/:user_id", h.HandleResetHistory)
	r.POST("/users", h.HandleSaveUser)
	return r, store
}

func do(r http.Handler, method, target, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestHandleRecommendValidation(t *testing.T) {
	r, _ := newTestRouter(t)

	tests := []struct {
		name       string
		target     string
		wantStatus int
		wantError  string
	}{
		{"缺少使用者", "/recommend?time=早餐", http.StatusBadRequest, "缺少用户ID参数"},
		{"使用者非數字", "/recommend?user_id=abc&time=早餐", http.StatusBadRequest, "缺少用户ID参数"},
		{"缺少時間", "/recommend?user_id=1", http.StatusBadRequest, "缺少时间参数"},
		{"未知時間", "/recommend?user_id=1&time=宵夜", http.StatusBadRequest, "无效的时间参数：宵夜"},
		{"使用者不存在", "/recommend?user_id=999&time=早餐", http.StatusNotFound, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(r, http.MethodGet, tt.target, "")
			if w.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d, body = %s", w.Code, tt.wantStatus, w.Body.String())
			}
			var resp common.ErrorResponse
			if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
				t.Fatalf("invalid json: %v", err)
			}
			if tt.wantError != "" && resp.Error != tt.wantError {
				t.Errorf("error = %q, want %q", resp.Error, tt.wantError)
			}
			if resp.Error == "" {
				t.Error("error message is empty")
			}
		})
	}
}

func TestHandleRecommend(t *testing.T) {
	r, _ := newTestRouter(t)

	w := do(r, http.MethodGet, "/recommend?user_id=1&time=breakfast&max_calories=abc", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}

	var resp RecommendResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if len(resp.Recommendations) == 0 {
		t.Fatalf("no recommendations, message = %q", resp.Message)
	}

	// 預設使用者對花生、牛奶過敏，且 max_calories 無效時使用 500
	for _, rec := range resp.Recommendations {
		if rec.Calories > 500 {
			t.Errorf("%s calories = %d, want <= 500", rec.Name, rec.Calories)
		}
		if rec.Time != "早餐" {
			t.Errorf("%s recommend_time = %q", rec.Name, rec.Time)
		}
		for _, a := range common.SplitList(rec.Allergens) {
			if a == "花生" || a == "牛奶" {
				t.Errorf("%s contains allergen %s", rec.Name, a)
			}
		}
	}
}

func TestHandleRecommendEmpty(t *testing.T) {
	r, _ := newTestRouter(t)

	w := do(r, http.MethodGet, "/recommend?user_id=1&time=早餐&max_calories=0", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(w.Body.Bytes(), &raw); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if string(raw["recommendations"]) != "[]" {
		t.Errorf("recommendations = %s, want []", raw["recommendations"])
	}
	var message string
	_ = json.Unmarshal(raw["message"], &message)
	if message != coreRecommend.MessageEmpty {
		t.Errorf("message = %q, want %q", message, coreRecommend.MessageEmpty)
	}
}

func TestHandleMeal(t *testing.T) {
	r, _ := newTestRouter(t)

	w := do(r, http.MethodGet, "/recommend/meal?user_id=1&time=午餐&city=Shanghai", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(w.Body.Bytes(), &raw); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	for _, key := range []string{"meal", "alternatives", "meta", "message"} {
		if _, ok := raw[key]; !ok {
			t.Errorf("missing key %q", key)
		}
	}

	var resp MealResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if resp.Meal == nil {
		t.Fatal("meal is null")
	}
	if resp.Meta.City != "Shanghai" || resp.Meta.Weather != "Rain" || resp.Meta.FallbackWeatherUsed {
		t.Errorf("meta = %+v", resp.Meta)
	}
	if resp.Meta.HealthCondition != "糖尿病" {
		t.Errorf("health_condition = %q, want 糖尿病", resp.Meta.HealthCondition)
	}
	for _, role := range []string{"staple", "protein", "vegetable"} {
		if _, ok := resp.Alternatives[food.Role(role)]; !ok {
			t.Errorf("alternatives missing %q", role)
		}
		if len(resp.Alternatives[food.Role(role)]) > 5 {
			t.Errorf("alternatives[%s] has %d items", role, len(resp.Alternatives[food.Role(role)]))
		}
	}
	if resp.Meal.Warnings == nil {
		t.Error("warnings should be an empty list, not null")
	}
}

func TestHandleHistory(t *testing.T) {
	r, _ := newTestRouter(t)

	history := func() []int64 {
		t.Helper()
		w := do(r, http.MethodGet, "/history/1", "")
		if w.Code != http.StatusOK {
			t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
		}
		var resp HistoryResponse
		if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
			t.Fatalf("invalid json: %v", err)
		}
		return resp.FoodIDs
	}

	if ids := history(); len(ids) != 0 {
		t.Fatalf("initial history = %v, want empty", ids)
	}

	if w := do(r, http.MethodGet, "/recommend/meal?user_id=1&time=晚餐", ""); w.Code != http.StatusOK {
		t.Fatalf("meal status = %d", w.Code)
	}
	if ids := history(); len(ids) == 0 || len(ids) > 3 {
		t.Fatalf("history after meal = %v, want 1..3 ids", ids)
	}

	w := do(r, http.MethodDelete, "/history/1", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	var resp HistoryResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if resp.UserID != 1 || !resp.Cleared {
		t.Errorf("resp = %+v", resp)
	}
	if ids := history(); len(ids) != 0 {
		t.Errorf("history after reset = %v, want empty", ids)
	}

	if w := do(r, http.MethodDelete, "/history/0", ""); w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestHandleSaveUser(t *testing.T) {
	r, store := newTestRouter(t)

	w := do(r, http.MethodPost, "/users", `{"user_id": 7, "health_condition": "高血压", "allergic_foods": "虾, 蛋"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}

	user, err := store.GetUser(context.Background(), 7)
	if err != nil {
		t.Fatalf("GetUser() error = %v", err)
	}
	if user.HealthCondition != "高血压" || user.AllergicFoods != "虾,蛋" {
		t.Errorf("user = %+v", user)
	}

	if w := do(r, http.MethodPost, "/users", `{"health_condition": "x"}`); w.Code != http.StatusBadRequest {
		t.Errorf("missing user_id status = %d, want 400", w.Code)
	}
	if w := do(r, http.MethodPost, "/users", `{`); w.Code != http.StatusBadRequest {
		t.Errorf("malformed body status = %d, want 400", w.Code)
	}
}
