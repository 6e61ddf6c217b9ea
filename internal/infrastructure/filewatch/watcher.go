// Package filewatch 監看食物匯入檔，檔案變更時重新載入。
package filewatch

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"meal-recommender/internal/pkg/common"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// DefaultDebounce 合併編輯器連續寫入的等待時間
const DefaultDebounce = 200 * time.Millisecond

// ReloadFunc 重新載入檔案
type ReloadFunc func(ctx context.Context, path string) error

// FileWatcher 監看單一檔案。監看的是所在目錄，
// 這樣編輯器以「寫入暫存檔再改名」方式存檔時也能收到事件。
type FileWatcher struct {
	path     string
	reload   ReloadFunc
	watcher  *fsnotify.Watcher
	debounce time.Duration
}

// NewFileWatcher 創建檔案監看器
func NewFileWatcher(path string, reload ReloadFunc) (*FileWatcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %s: %w", path, err)
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}

	if err := w.Add(filepath.Dir(abs)); err != nil {
		w.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", filepath.Dir(abs), err)
	}

	return &FileWatcher{
		path:     abs,
		reload:   reload,
		watcher:  w,
		debounce: DefaultDebounce,
	}, nil
}

// Watch 處理事件直到 ctx 結束或監看器關閉
func (fw *FileWatcher) Watch(ctx context.Context) {
	var fire <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-fw.watcher.Events:
			if !ok {
				return
			}
			if !fw.matches(event) {
				continue
			}
			common.LogDebug("食物檔已變更",
				zap.String("file", event.Name),
				zap.String("op", event.Op.String()),
			)
			fire = time.After(fw.debounce)
		case <-fire:
			fire = nil
			fw.handleChange(ctx)
		case err, ok := <-fw.watcher.Errors:
			if !ok {
				return
			}
			common.LogError("檔案監看錯誤", zap.Error(err))
		}
	}
}

func (fw *FileWatcher) matches(event fsnotify.Event) bool {
	if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
		return false
	}
	name, err := filepath.Abs(event.Name)
	if err != nil {
		return false
	}
	return name == fw.path
}

func (fw *FileWatcher) handleChange(ctx context.Context) {
	if err := fw.reload(ctx, fw.path); err != nil {
		common.LogError("重新載入食物檔失敗",
			zap.String("file", fw.path),
			zap.Error(err),
		)
		return
	}
	common.LogInfo("食物檔已重新載入", zap.String("file", fw.path))
}

// Close 停止監看
func (fw *FileWatcher) Close() error {
	return fw.watcher.Close()
}
