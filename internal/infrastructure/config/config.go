package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config 應用配置
type Config struct {
	App         AppConfig       `mapstructure:"app"`
	Server      ServerConfig    `mapstructure:"server"`
	Weather     WeatherConfig   `mapstructure:"weather"`
	Cache       CacheConfig     `mapstructure:"cache"`
	Database    DatabaseConfig  `mapstructure:"database"`
	History     HistoryConfig   `mapstructure:"history"`
	Redis       RedisConfig     `mapstructure:"redis"`
	Catalog     CatalogConfig   `mapstructure:"catalog"`
	Recommend   RecommendConfig `mapstructure:"recommend"`
	RateLimit   RateLimitConfig `mapstructure:"rate_limit"`
	DedupWindow time.Duration   `mapstructure:"dedup_window"`
	LogLevel    string          `mapstructure:"log_level"`
}

// AppConfig 應用程式設定
type AppConfig struct {
	Env     string `mapstructure:"env"`
	Debug   bool   `mapstructure:"debug"`
	Version string `mapstructure:"version"`
	Name    string `mapstructure:"name"`
}

// ServerConfig 服務器配置
type ServerConfig struct {
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
}

// WeatherConfig 天氣服務配置
type WeatherConfig struct {
	APIKey           string        `mapstructure:"api_key"`
	BaseURL          string        `mapstructure:"base_url"`
	Lang             string        `mapstructure:"lang"`
	Timeout          time.Duration `mapstructure:"timeout"`
	DefaultCondition string        `mapstructure:"default_condition"`
}

// CacheConfig 天氣查詢快取配置
type CacheConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	MaxSize         int           `mapstructure:"max_size"`
	TTL             time.Duration `mapstructure:"ttl"`
	CleanupInterval time.Duration `mapstructure:"cleanup_interval"`
}

// DatabaseConfig 食物庫配置
type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

// HistoryConfig 推薦紀錄配置
type HistoryConfig struct {
	Backend  string        `mapstructure:"backend"` // memory | redis
	Capacity int           `mapstructure:"capacity"`
	TTL      time.Duration `mapstructure:"ttl"`
}

// RedisConfig Redis 連線配置
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// CatalogConfig 食物資料來源配置
type CatalogConfig struct {
	Seed       bool   `mapstructure:"seed"`
	ImportFile string `mapstructure:"import_file"`
	Watch      bool   `mapstructure:"watch"`
}

// RecommendConfig 推薦請求預設值
type RecommendConfig struct {
	DefaultCity        string `mapstructure:"default_city"`
	DefaultMaxCalories int    `mapstructure:"default_max_calories"`
}

// RateLimitConfig 速率限制配置
type RateLimitConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Requests int           `mapstructure:"requests"`
	Window   time.Duration `mapstructure:"window"`
}

const (
	HistoryBackendMemory = "memory"
	HistoryBackendRedis  = "redis"

	defaultDatabasePath = "foods.db"
)

// LoadConfig 載入設定
func LoadConfig() (*Config, error) {
	// .env 可不存在
	_ = godotenv.Load()

	v := viper.New()

	// 設定預設值
	setDefaults(v)

	// 設定環境變數前綴
	v.SetEnvPrefix("APP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// 綁定環境變量
	v.BindEnv("weather.api_key", "OPENWEATHER_API_KEY")
	v.BindEnv("weather.timeout", "WEATHER_TIMEOUT")
	v.BindEnv("database.path", "DATABASE_PATH")
	v.BindEnv("history.backend", "HISTORY_BACKEND")
	v.BindEnv("history.capacity", "HISTORY_CAPACITY")
	v.BindEnv("redis.addr", "REDIS_ADDR")
	v.BindEnv("redis.password", "REDIS_PASSWORD")
	v.BindEnv("catalog.import_file", "CATALOG_IMPORT_FILE")
	v.BindEnv("catalog.watch", "CATALOG_WATCH")
	v.BindEnv("cache.enabled", "CACHE_ENABLED")
	v.BindEnv("rate_limit.enabled", "RATE_LIMIT_ENABLED")
	v.BindEnv("rate_limit.requests", "RATE_LIMIT_REQUESTS")
	v.BindEnv("rate_limit.window", "RATE_LIMIT_WINDOW")
	v.BindEnv("dedup_window", "DEDUP_WINDOW")
	v.BindEnv("log_level", "LOG_LEVEL")
	v.BindEnv("server.port", "PORT")

	// 設定設定檔名稱和路徑
	v.SetConfigName(".env")
	v.SetConfigType("env")
	v.AddConfigPath(".")

	// 讀取設定檔
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// 解析設定
	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// serverless 環境只能寫入 /tmp
	if isServerless() && config.Database.Path == defaultDatabasePath {
		config.Database.Path = "/tmp/foods.db"
	}

	// 驗證必要設定
	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &config, nil
}

func isServerless() bool {
	return os.Getenv("VERCEL") != "" || os.Getenv("AWS_LAMBDA_FUNCTION_NAME") != ""
}

// setDefaults 設定預設值
func setDefaults(v *viper.Viper) {
	// 應用程式設定
	v.SetDefault("app.env", "development")
	v.SetDefault("app.debug", true)
	v.SetDefault("app.version", "1.0.0")
	v.SetDefault("app.name", "meal-recommender")

	// 伺服器設定
	v.SetDefault("server.port", 5000)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.idle_timeout", "120s")

	// 天氣設定
	v.SetDefault("weather.base_url", "https://api.openweathermap.org")
	v.SetDefault("weather.lang", "zh_cn")
	v.SetDefault("weather.timeout", "5s")
	v.SetDefault("weather.default_condition", "Clear")

	// 天氣快取設定
	v.SetDefault("cache.enabled", true)
	v.SetDefault("cache.max_size", 500)
	v.SetDefault("cache.ttl", "10m")
	v.SetDefault("cache.cleanup_interval", "5m")

	// 資料庫設定
	v.SetDefault("database.path", defaultDatabasePath)

	// 推薦紀錄設定
	v.SetDefault("history.backend", HistoryBackendMemory)
	v.SetDefault("history.capacity", 30)
	v.SetDefault("history.ttl", "168h")

	// Redis 設定
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.db", 0)

	// 食物資料設定
	v.SetDefault("catalog.seed", true)
	v.SetDefault("catalog.import_file", "")
	v.SetDefault("catalog.watch", false)

	// 推薦預設值
	v.SetDefault("recommend.default_city", "Beijing")
	v.SetDefault("recommend.default_max_calories", 500)

	// 限流設定
	v.SetDefault("rate_limit.enabled", true)
	v.SetDefault("rate_limit.requests", 100)
	v.SetDefault("rate_limit.window", "1m")

	v.SetDefault("dedup_window", "1s")
	v.SetDefault("log_level", "info")
}

// validateConfig 驗證設定
func validateConfig(config *Config) error {
	// 驗證伺服器設定
	if config.Server.Port == 0 {
		return fmt.Errorf("server port is required")
	}

	if config.Database.Path == "" {
		return fmt.Errorf("database path is required")
	}

	if config.Weather.Timeout <= 0 {
		return fmt.Errorf("invalid weather timeout")
	}

	// 驗證快取設定
	if config.Cache.Enabled {
		if config.Cache.MaxSize <= 0 {
			return fmt.Errorf("invalid cache max size")
		}
		if config.Cache.TTL <= 0 {
			return fmt.Errorf("invalid cache ttl")
		}
		if config.Cache.CleanupInterval <= 0 {
			return fmt.Errorf("invalid cache cleanup interval")
		}
	}

	// 驗證推薦紀錄設定
	switch config.History.Backend {
	case HistoryBackendMemory, HistoryBackendRedis:
	default:
		return fmt.Errorf("unknown history backend %q", config.History.Backend)
	}
	if config.History.Capacity <= 0 {
		return fmt.Errorf("invalid history capacity")
	}

	if config.RateLimit.Enabled && (config.RateLimit.Requests <= 0 || config.RateLimit.Window <= 0) {
		return fmt.Errorf("invalid rate limit")
	}

	if config.Recommend.DefaultMaxCalories <= 0 {
		return fmt.Errorf("invalid default max calories")
	}

	return nil
}
