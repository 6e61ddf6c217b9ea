package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"meal-recommender/internal/api"
	"meal-recommender/internal/api/middleware"
	"meal-recommender/internal/core/recommend"
	"meal-recommender/internal/core/weather"
	"meal-recommender/internal/infrastructure/config"
	"meal-recommender/internal/infrastructure/filewatch"
	"meal-recommender/internal/infrastructure/storage"
	"meal-recommender/internal/pkg/common"

	"go.uber.org/zap"
)

// 指令：serve（預設）、init 初始化資料後結束、reset-history 清除 Redis 中的所有推薦紀錄
const (
	cmdServe        = "serve"
	cmdInit         = "init"
	cmdResetHistory = "reset-history"
)

func main() {
	// 載入設定（內含 .env）
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// 初始化 logger（需在載入 config 後）
	if err := common.InitLogger(cfg.LogLevel); err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer common.Sync()

	cmd := cmdServe
	if len(os.Args) > 1 {
		cmd = os.Args[1]
	}

	if err := run(cmd, cfg); err != nil {
		common.LogError("執行失敗", zap.String("command", cmd), zap.Error(err))
		common.Sync()
		os.Exit(1)
	}
}

func run(cmd string, cfg *config.Config) error {
	common.LogInfo("載入設定",
		zap.String("command", cmd),
		zap.String("database", cfg.Database.Path),
		zap.String("history_backend", cfg.History.Backend),
		zap.String("openweather_api_key", common.MaskSecret(cfg.Weather.APIKey)),
	)

	ctx := context.Background()

	store, err := storage.NewSQLiteStore(cfg.Database.Path)
	if err != nil {
		return err
	}
	defer store.Close()

	switch cmd {
	case cmdInit:
		_, err := store.Seed(ctx)
		return err
	case cmdResetHistory:
		// 記憶體紀錄只存在於服務行程中，需重啟或呼叫 DELETE /api/v1/history
		if cfg.History.Backend != config.HistoryBackendRedis {
			return fmt.Errorf("reset-history requires the redis history backend; in-memory history is cleared by restarting the server or DELETE /api/v1/history")
		}
		history, closeHistory, err := newHistory(ctx, cfg)
		if err != nil {
			return err
		}
		defer closeHistory()
		return history.ResetAll(ctx)
	case cmdServe:
		return serve(ctx, cfg, store)
	default:
		return fmt.Errorf("unknown command %q", cmd)
	}
}

// newHistory 依設定建立推薦紀錄後端
func newHistory(ctx context.Context, cfg *config.Config) (recommend.History, func(), error) {
	if cfg.History.Backend != config.HistoryBackendRedis {
		return recommend.NewMemoryHistory(cfg.History.Capacity), func() {}, nil
	}

	client, err := recommend.NewRedisClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		return nil, nil, err
	}
	return recommend.NewRedisHistory(client, cfg.History.Capacity, cfg.History.TTL), func() { client.Close() }, nil
}

func serve(ctx context.Context, cfg *config.Config, store *storage.SQLiteStore) error {
	if cfg.Catalog.Seed {
		if _, err := store.Seed(ctx); err != nil {
			return err
		}
	}

	if cfg.Catalog.ImportFile != "" {
		if _, err := store.ImportFile(ctx, cfg.Catalog.ImportFile); err != nil {
			return err
		}
	}

	watchCtx, stopWatch := context.WithCancel(ctx)
	defer stopWatch()
	if cfg.Catalog.ImportFile != "" && cfg.Catalog.Watch {
		watcher, err := filewatch.NewFileWatcher(cfg.Catalog.ImportFile, func(ctx context.Context, path string) error {
			_, err := store.ImportFile(ctx, path)
			return err
		})
		if err != nil {
			return err
		}
		defer watcher.Close()
		go watcher.Watch(watchCtx)
	}

	history, closeHistory, err := newHistory(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeHistory()

	// 初始化天氣服務與快取
	openWeather := weather.NewOpenWeatherService(&cfg.Weather)
	defer openWeather.Close()
	weatherCache := weather.NewManager(&cfg.Cache)
	defer weatherCache.Close()
	provider := weather.NewCachedProvider(openWeather, weatherCache)

	recommender := recommend.NewService(store, store, provider, history, recommend.Options{
		WeatherTimeout: cfg.Weather.Timeout,
		DefaultWeather: cfg.Weather.DefaultCondition,
	})

	dedup := middleware.NewDeduplicator(cfg.DedupWindow)
	defer dedup.Close()

	router := api.SetupRouter(cfg, api.Deps{
		Recommender:  recommender,
		Catalog:      store,
		Users:        store,
		DB:           store,
		Weather:      provider,
		Verifier:     openWeather,
		WeatherCache: weatherCache,
		Dedup:        dedup,
	})

	// 設置 HTTP 服務器
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		common.LogInfo("啟動應用",
			zap.String("version", cfg.App.Version),
			zap.String("env", cfg.App.Env),
			zap.Bool("debug", cfg.App.Debug),
			zap.Int("port", cfg.Server.Port),
		)

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	// 等待中斷信號
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return fmt.Errorf("failed to start server: %w", err)
	case <-quit:
	}

	common.LogInfo("Shutting down server...")

	// 設置關閉超時
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	common.LogInfo("Server exited")
	return nil
}
