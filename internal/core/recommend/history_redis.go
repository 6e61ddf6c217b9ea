package recommend

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"meal-recommender/internal/pkg/common"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

const (
	historyKeyPrefix = "meal:history:"
	maxTxRetries     = 5
)

// RedisHistory 以 Redis list 保存推薦紀錄，多個行程可共用
type RedisHistory struct {
	client   *redis.Client
	capacity int
	ttl      time.Duration
}

var _ History = (*RedisHistory)(nil)

// NewRedisHistory 創建 Redis 推薦紀錄
func NewRedisHistory(client *redis.Client, capacity int, ttl time.Duration) *RedisHistory {
	if capacity <= 0 {
		capacity = DefaultHistoryCapacity
	}
	return &RedisHistory{
		client:   client,
		capacity: capacity,
		ttl:      ttl,
	}
}

// NewRedisClient 建立連線並測試
func NewRedisClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	// 測試連接
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return client, nil
}

func historyKey(userID int64) string {
	return historyKeyPrefix + strconv.FormatInt(userID, 10)
}

// Update 以 WATCH/MULTI 樂觀交易完成讀取、挑選、寫入
func (h *RedisHistory) Update(ctx context.Context, userID int64, pick func(recent map[int64]struct{}) []int64) error {
	key := historyKey(userID)

	txf := func(tx *redis.Tx) error {
		ids, err := readIDs(ctx, tx, key)
		if err != nil {
			return err
		}

		recent := make(map[int64]struct{}, len(ids))
		for _, id := range ids {
			recent[id] = struct{}{}
		}

		picked := pick(recent)
		if len(picked) == 0 {
			return nil
		}

		values := make([]interface{}, len(picked))
		for i, id := range picked {
			values[i] = id
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.RPush(ctx, key, values...)
			pipe.LTrim(ctx, key, int64(-h.capacity), -1)
			if h.ttl > 0 {
				pipe.Expire(ctx, key, h.ttl)
			}
			return nil
		})
		return err
	}

	for i := 0; i < maxTxRetries; i++ {
		err := h.client.Watch(ctx, txf, key)
		if err == nil {
			return nil
		}
		if errors.Is(err, redis.TxFailedErr) {
			common.LogDebug("推薦紀錄交易衝突，重試",
				zap.Int64("user_id", userID),
				zap.Int("attempt", i+1),
			)
			continue
		}
		return fmt.Errorf("failed to update history: %w", err)
	}
	return fmt.Errorf("failed to update history after %d attempts: %w", maxTxRetries, redis.TxFailedErr)
}

// Recent 實作 History
func (h *RedisHistory) Recent(ctx context.Context, userID int64) ([]int64, error) {
	return readIDs(ctx, h.client, historyKey(userID))
}

// Reset 清除單一使用者的紀錄
func (h *RedisHistory) Reset(ctx context.Context, userID int64) error {
	return h.client.Del(ctx, historyKey(userID)).Err()
}

// ResetAll 清除全部紀錄
func (h *RedisHistory) ResetAll(ctx context.Context) error {
	iter := h.client.Scan(ctx, 0, historyKeyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		if err := h.client.Del(ctx, iter.Val()).Err(); err != nil {
			return fmt.Errorf("failed to delete %s: %w", iter.Val(), err)
		}
	}
	return iter.Err()
}

func readIDs(ctx context.Context, c redis.Cmdable, key string) ([]int64, error) {
	vals, err := c.LRange(ctx, key, 0, -1).Result()
	if err != nil && err != redis.Nil {
		return nil, fmt.Errorf("failed to read history: %w", err)
	}

	ids := make([]int64, 0, len(vals))
	for _, v := range vals {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	return ids, nil
}
