// Package storage 以 SQLite 保存食物庫與使用者資料。
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"meal-recommender/internal/core/food"
	"meal-recommender/internal/pkg/common"

	_ "modernc.org/sqlite"
)

// noAllergens 資料庫中代表沒有過敏原的值
const noAllergens = "无"

// SQLiteStore 食物庫與使用者資料
type SQLiteStore struct {
	db *sql.DB
}

var (
	_ food.Catalog   = (*SQLiteStore)(nil)
	_ food.UserStore = (*SQLiteStore)(nil)
)

// NewSQLiteStore 開啟資料庫並建立資料表
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// SQLite 同時只允許一個寫入者
	db.SetMaxOpenConns(1)

	store := &SQLiteStore{db: db}
	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return store, nil
}

// Close 關閉資料庫
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Ping 檢查資料庫連線
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLiteStore) initSchema() error {
	schema := `
    CREATE TABLE IF NOT EXISTS foods (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        food_name TEXT NOT NULL UNIQUE,
        calories INTEGER NOT NULL,
        sugar_content REAL NOT NULL,
        food_type TEXT NOT NULL,
        recommend_time TEXT NOT NULL,
        weather_conditions TEXT NOT NULL,
        allergens TEXT,
        image_url TEXT,
        salt_content REAL,
        fat_content REAL
    );

    CREATE TABLE IF NOT EXISTS users (
        user_id INTEGER PRIMARY KEY,
        health_condition TEXT,
        allergic_foods TEXT
    );

    CREATE INDEX IF NOT EXISTS idx_foods_time_calories ON foods(recommend_time, calories);
    `

	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	return nil
}

const foodColumns = `id, food_name, calories, sugar_content, food_type, recommend_time,
        weather_conditions, allergens, image_url, salt_content, fat_content`

// QueryFoods 依時段、熱量上限與天氣標籤查詢，天氣標籤比對逗號分隔欄位中的完整標籤。
// 比對前去除欄位中的空白，與 decode 時的 SplitList 一致。
func (s *SQLiteStore) QueryFoods(ctx context.Context, q food.Query) ([]food.Item, error) {
	query := `SELECT ` + foodColumns + ` FROM foods WHERE recommend_time = ? AND calories <= ?`
	args := []interface{}{string(q.Time), q.MaxCalories}

	if len(q.WeatherTags) > 0 {
		clauses := make([]string, len(q.WeatherTags))
		for i, tag := range q.WeatherTags {
			clauses[i] = "instr(',' || replace(weather_conditions, ' ', '') || ',', ?) > 0"
			args = append(args, ","+strings.ReplaceAll(tag, " ", "")+",")
		}
		query += " AND (" + strings.Join(clauses, " OR ") + ")"
	}
	query += " ORDER BY id"

	return s.queryItems(ctx, query, args...)
}

// QueryFoodsByNames 依名稱查詢
func (s *SQLiteStore) QueryFoodsByNames(ctx context.Context, names []string) ([]food.Item, error) {
	if len(names) == 0 {
		return nil, nil
	}

	placeholders := make([]string, len(names))
	args := make([]interface{}, len(names))
	for i, name := range names {
		placeholders[i] = "?"
		args[i] = name
	}

	query := `SELECT ` + foodColumns + ` FROM foods WHERE food_name IN (` +
		strings.Join(placeholders, ",") + `) ORDER BY id`
	return s.queryItems(ctx, query, args...)
}

// AllFoods 全部食物
func (s *SQLiteStore) AllFoods(ctx context.Context) ([]food.Item, error) {
	return s.queryItems(ctx, `SELECT `+foodColumns+` FROM foods ORDER BY id`)
}

// GetFood 依 ID 取得食物，找不到時回傳 common.ErrFoodNotFound
func (s *SQLiteStore) GetFood(ctx context.Context, id int64) (*food.Item, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+foodColumns+` FROM foods WHERE id = ?`, id)
	it, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrFoodNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get food: %w", err)
	}
	return it, nil
}

// CountFoods 食物數量
func (s *SQLiteStore) CountFoods(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM foods`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count foods: %w", err)
	}
	return n, nil
}

// InsertFoods 新增名稱尚不存在的食物，回傳實際新增數量
func (s *SQLiteStore) InsertFoods(ctx context.Context, items []food.Item) (int, error) {
	return s.writeFoods(ctx, items, `
        INSERT INTO foods (food_name, calories, sugar_content, food_type, recommend_time,
            weather_conditions, allergens, image_url, salt_content, fat_content)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
        ON CONFLICT(food_name) DO NOTHING
    `)
}

// UpsertFoods 依名稱新增或更新食物，未提供圖片時保留原本的圖片
func (s *SQLiteStore) UpsertFoods(ctx context.Context, items []food.Item) (int, error) {
	return s.writeFoods(ctx, items, `
        INSERT INTO foods (food_name, calories, sugar_content, food_type, recommend_time,
            weather_conditions, allergens, image_url, salt_content, fat_content)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
        ON CONFLICT(food_name) DO UPDATE SET
            calories = excluded.calories,
            sugar_content = excluded.sugar_content,
            food_type = excluded.food_type,
            recommend_time = excluded.recommend_time,
            weather_conditions = excluded.weather_conditions,
            allergens = excluded.allergens,
            image_url = COALESCE(excluded.image_url, foods.image_url),
            salt_content = excluded.salt_content,
            fat_content = excluded.fat_content
    `)
}

func (s *SQLiteStore) writeFoods(ctx context.Context, items []food.Item, query string) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to start transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	written := 0
	for _, it := range items {
		res, err := stmt.ExecContext(ctx,
			it.Name, it.Calories, it.Sugar, string(it.Category), string(it.Time),
			common.JoinList(it.WeatherTags), encodeAllergens(it.Allergens),
			nullString(it.ImageURL), nullFloat(it.Salt), nullFloat(it.Fat))
		if err != nil {
			return 0, fmt.Errorf("failed to write food %s: %w", it.Name, err)
		}
		if n, err := res.RowsAffected(); err == nil {
			written += int(n)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit foods: %w", err)
	}
	return written, nil
}

// SetImageURL 更新食物圖片
func (s *SQLiteStore) SetImageURL(ctx context.Context, id int64, url string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE foods SET image_url = ? WHERE id = ?`, url, id)
	if err != nil {
		return fmt.Errorf("failed to update image url: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return common.ErrFoodNotFound
	}
	return nil
}

// GetUser 實作 food.UserStore
func (s *SQLiteStore) GetUser(ctx context.Context, id int64) (*food.UserProfile, error) {
	var (
		user      = food.UserProfile{ID: id}
		condition sql.NullString
		allergic  sql.NullString
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT health_condition, allergic_foods FROM users WHERE user_id = ?`, id,
	).Scan(&condition, &allergic)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	user.HealthCondition = condition.String
	user.AllergicFoods = allergic.String
	return &user, nil
}

// SaveUser 新增或更新使用者
func (s *SQLiteStore) SaveUser(ctx context.Context, user *food.UserProfile) error {
	_, err := s.db.ExecContext(ctx, `
        INSERT INTO users (user_id, health_condition, allergic_foods)
        VALUES (?, ?, ?)
        ON CONFLICT(user_id) DO UPDATE SET
            health_condition = excluded.health_condition,
            allergic_foods = excluded.allergic_foods
    `, user.ID, user.HealthCondition, user.AllergicFoods)
	if err != nil {
		return fmt.Errorf("failed to save user: %w", err)
	}
	return nil
}

// CountUsers 使用者數量
func (s *SQLiteStore) CountUsers(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count users: %w", err)
	}
	return n, nil
}

func (s *SQLiteStore) queryItems(ctx context.Context, query string, args ...interface{}) ([]food.Item, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query foods: %w", err)
	}
	defer rows.Close()

	var items []food.Item
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan food: %w", err)
		}
		items = append(items, *it)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating foods: %w", err)
	}

	return items, nil
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanItem(row scanner) (*food.Item, error) {
	var (
		it                  food.Item
		category, mealTime  string
		weather             string
		allergens, imageURL sql.NullString
		salt, fat           sql.NullFloat64
	)
	err := row.Scan(&it.ID, &it.Name, &it.Calories, &it.Sugar, &category, &mealTime,
		&weather, &allergens, &imageURL, &salt, &fat)
	if err != nil {
		return nil, err
	}

	it.Category = food.Category(category)
	it.Time = food.MealTime(mealTime)
	it.WeatherTags = common.SplitList(weather)
	it.Allergens = decodeAllergens(allergens.String)
	it.ImageURL = imageURL.String
	if salt.Valid {
		it.Salt = food.Some(salt.Float64)
	}
	if fat.Valid {
		it.Fat = food.Some(fat.Float64)
	}
	return &it, nil
}

func decodeAllergens(s string) []string {
	if strings.TrimSpace(s) == noAllergens {
		return nil
	}
	return common.SplitList(s)
}

func encodeAllergens(allergens []string) string {
	if len(allergens) == 0 {
		return noAllergens
	}
	return common.JoinList(allergens)
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullFloat(n food.Nutrient) sql.NullFloat64 {
	return sql.NullFloat64{Float64: n.Value, Valid: n.Present}
}
