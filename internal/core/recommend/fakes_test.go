package recommend

import (
	"context"
	"errors"
	"sync"
	"time"

	"meal-recommender/internal/core/food"
	"meal-recommender/internal/pkg/common"
)

// memCatalog 記憶體食物庫，查詢語意與 SQLite 實作相同
type memCatalog struct {
	items   []food.Item
	queries []food.Query
	err     error
}

func (c *memCatalog) QueryFoods(ctx context.Context, q food.Query) ([]food.Item, error) {
	c.queries = append(c.queries, q)
	if c.err != nil {
		return nil, c.err
	}
	var out []food.Item
	for _, it := range c.items {
		if it.Time != q.Time || it.Calories > q.MaxCalories {
			continue
		}
		if len(q.WeatherTags) > 0 && !it.MatchesWeather(q.WeatherTags) {
			continue
		}
		out = append(out, it)
	}
	return out, nil
}

func (c *memCatalog) QueryFoodsByNames(ctx context.Context, names []string) ([]food.Item, error) {
	want := make(map[string]struct{}, len(names))
	for _, n := range names {
		want[n] = struct{}{}
	}
	var out []food.Item
	for _, it := range c.items {
		if _, ok := want[it.Name]; ok {
			out = append(out, it)
		}
	}
	return out, nil
}

func (c *memCatalog) AllFoods(ctx context.Context) ([]food.Item, error) {
	return append([]food.Item(nil), c.items...), nil
}

func (c *memCatalog) GetFood(ctx context.Context, id int64) (*food.Item, error) {
	for _, it := range c.items {
		if it.ID == id {
			found := it
			return &found, nil
		}
	}
	return nil, common.ErrFoodNotFound
}

type memUsers map[int64]*food.UserProfile

func (u memUsers) GetUser(ctx context.Context, id int64) (*food.UserProfile, error) {
	if p, ok := u[id]; ok {
		return p, nil
	}
	return nil, common.ErrUserNotFound
}

func (u memUsers) SaveUser(ctx context.Context, p *food.UserProfile) error {
	u[p.ID] = p
	return nil
}

// fakeWeather 固定回傳 label；err 不為 nil 時模擬供應商失敗
type fakeWeather struct {
	mu    sync.Mutex
	label string
	err   error
	calls int
}

func (w *fakeWeather) CurrentWeather(ctx context.Context, city string) (string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.calls++
	if w.err != nil {
		return "", w.err
	}
	return w.label, nil
}

// blockingWeather 直到 context 結束才返回
type blockingWeather struct{}

func (blockingWeather) CurrentWeather(ctx context.Context, city string) (string, error) {
	<-ctx.Done()
	return "", ctx.Err()
}

var errProvider = errors.New("provider down")

func item(id int64, name string, cat food.Category, cal int, sugar float64, tags ...string) food.Item {
	return food.Item{
		ID:          id,
		Name:        name,
		Calories:    cal,
		Sugar:       sugar,
		Category:    cat,
		Time:        food.Breakfast,
		WeatherTags: tags,
	}
}

func newTestService(items []food.Item, users memUsers, w food.WeatherProvider) (*Service, *memCatalog, *MemoryHistory) {
	catalog := &memCatalog{items: items}
	history := NewMemoryHistory(DefaultHistoryCapacity)
	svc := NewService(catalog, users, w, history, Options{WeatherTimeout: 50 * time.Millisecond})
	return svc, catalog, history
}

func plainUser(id int64) memUsers {
	return memUsers{id: {ID: id}}
}

func breakfast(maxCal int) food.RequestContext {
	return food.RequestContext{Time: food.Breakfast, City: "Beijing", MaxCalories: maxCal}
}

func ids(items []food.Item) []int64 {
	out := make([]int64, len(items))
	for i, it := range items {
		out[i] = it.ID
	}
	return out
}
