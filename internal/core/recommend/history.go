package recommend

import (
	"context"
	"sync"
)

// DefaultHistoryCapacity 每位使用者保留的推薦紀錄數
const DefaultHistoryCapacity = 30

// History 每位使用者最近推薦過的食物 ID。
// Update 對同一使用者是原子的：pick 看到的紀錄與寫入之間不會被其他請求插入。
type History interface {
	// Update 以目前紀錄呼叫 pick，並把 pick 回傳的 ID 依序附加；pick 可能被重試，需無副作用
	Update(ctx context.Context, userID int64, pick func(recent map[int64]struct{}) []int64) error
	// Recent 依寫入先後回傳紀錄
	Recent(ctx context.Context, userID int64) ([]int64, error)
	Reset(ctx context.Context, userID int64) error
	ResetAll(ctx context.Context) error
}

// MemoryHistory 行程內的推薦紀錄，每位使用者一把鎖
type MemoryHistory struct {
	capacity int
	mu       sync.Mutex
	users    map[int64]*userHistory
}

type userHistory struct {
	mu  sync.Mutex
	ids []int64
}

var _ History = (*MemoryHistory)(nil)

// NewMemoryHistory capacity <= 0 時使用 DefaultHistoryCapacity
func NewMemoryHistory(capacity int) *MemoryHistory {
	if capacity <= 0 {
		capacity = DefaultHistoryCapacity
	}
	return &MemoryHistory{
		capacity: capacity,
		users:    make(map[int64]*userHistory),
	}
}

func (h *MemoryHistory) entry(userID int64) *userHistory {
	h.mu.Lock()
	defer h.mu.Unlock()

	e, ok := h.users[userID]
	if !ok {
		e = &userHistory{}
		h.users[userID] = e
	}
	return e
}

// Update 實作 History
func (h *MemoryHistory) Update(ctx context.Context, userID int64, pick func(recent map[int64]struct{}) []int64) error {
	e := h.entry(userID)
	e.mu.Lock()
	defer e.mu.Unlock()

	recent := make(map[int64]struct{}, len(e.ids))
	for _, id := range e.ids {
		recent[id] = struct{}{}
	}

	picked := pick(recent)
	if len(picked) == 0 {
		return nil
	}

	ids := append(e.ids, picked...)
	if over := len(ids) - h.capacity; over > 0 {
		ids = append([]int64(nil), ids[over:]...)
	}
	e.ids = ids
	return nil
}

// Recent 實作 History
func (h *MemoryHistory) Recent(ctx context.Context, userID int64) ([]int64, error) {
	h.mu.Lock()
	e, ok := h.users[userID]
	h.mu.Unlock()
	if !ok {
		return nil, nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]int64(nil), e.ids...), nil
}

// Reset 清除單一使用者的紀錄
func (h *MemoryHistory) Reset(ctx context.Context, userID int64) error {
	h.mu.Lock()
	e, ok := h.users[userID]
	h.mu.Unlock()
	if !ok {
		return nil
	}

	e.mu.Lock()
	e.ids = nil
	e.mu.Unlock()
	return nil
}

// ResetAll 清除全部紀錄。保留各使用者的條目，逐一在其鎖內清空，
// 進行中的 Update 仍與之後的 Update 互斥。
func (h *MemoryHistory) ResetAll(ctx context.Context) error {
	h.mu.Lock()
	entries := make([]*userHistory, 0, len(h.users))
	for _, e := range h.users {
		entries = append(entries, e)
	}
	h.mu.Unlock()

	for _, e := range entries {
		e.mu.Lock()
		e.ids = nil
		e.mu.Unlock()
	}
	return nil
}
