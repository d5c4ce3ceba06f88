package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// DefaultAPIURL 是未配置 TEAMBOARD_API_URL 时使用的接口地址。
const DefaultAPIURL = "http://localhost:3000/api/v1"

// Config 聚合 CLI 与本地模拟服务的配置项。
type Config struct {
	Server   ServerConfig
	Client   ClientConfig
	Mock     MockConfig
	LogLevel slog.Level
}

// Load 从环境变量加载配置。
func Load() (*Config, error) {
	server, err := loadServerConfig()
	if err != nil {
		return nil, err
	}

	client, err := loadClientConfig()
	if err != nil {
		return nil, err
	}

	mock, err := loadMockConfig()
	if err != nil {
		return nil, err
	}

	level, err := ParseLogLevel(getEnvOrDefault("LOG_LEVEL", "info"))
	if err != nil {
		return nil, err
	}

	return &Config{Server: server, Client: client, Mock: mock, LogLevel: level}, nil
}

// ServerConfig 描述 HTTP 服务配置。
type ServerConfig struct {
	Addr string
}

// loadServerConfig 解析服务器监听地址。
func loadServerConfig() (ServerConfig, error) {
	port := strings.TrimSpace(os.Getenv("PORT"))
	if port == "" {
		port = "3000"
	}

	if strings.Contains(port, ":") {
		// 允许用户直接传入 ":3000" 或 "127.0.0.1:3000"。
		return ServerConfig{Addr: port}, nil
	}

	if strings.Contains(port, " ") {
		return ServerConfig{}, fmt.Errorf("invalid PORT value: %q", port)
	}

	return ServerConfig{Addr: ":" + port}, nil
}

// ClientConfig 描述访问协作 API 的客户端配置。
type ClientConfig struct {
	APIURL      string
	AssetURL    string
	SessionFile string
	Timeout     time.Duration
	// RateLimit 为每秒请求数，0 表示不限流。
	RateLimit float64
	RateBurst int
}

func loadClientConfig() (ClientConfig, error) {
	timeout, err := parseOptionalIntEnv("TEAMBOARD_TIMEOUT")
	if err != nil {
		return ClientConfig{}, err
	}
	timeoutSeconds := 30 // 默认30秒
	if timeout != nil {
		if *timeout < 1 {
			return ClientConfig{}, fmt.Errorf("invalid TEAMBOARD_TIMEOUT value %d: must be positive", *timeout)
		}
		timeoutSeconds = *timeout
	}

	rateLimit, err := parseOptionalFloatEnv("TEAMBOARD_RATE_LIMIT")
	if err != nil {
		return ClientConfig{}, err
	}
	rps := 0.0
	if rateLimit != nil {
		if *rateLimit < 0 {
			return ClientConfig{}, fmt.Errorf("invalid TEAMBOARD_RATE_LIMIT value %v: must not be negative", *rateLimit)
		}
		rps = *rateLimit
	}

	burst := 1
	if override, err := parseOptionalIntEnv("TEAMBOARD_RATE_BURST"); err != nil {
		return ClientConfig{}, err
	} else if override != nil && *override > 1 {
		burst = *override
	}

	apiURL := strings.TrimRight(getEnvOrDefault("TEAMBOARD_API_URL", DefaultAPIURL), "/")

	return ClientConfig{
		APIURL:      apiURL,
		AssetURL:    getEnvOrDefault("TEAMBOARD_ASSET_URL", assetHost(apiURL)),
		SessionFile: getEnvOrDefault("TEAMBOARD_SESSION_FILE", ""),
		Timeout:     time.Duration(timeoutSeconds) * time.Second,
		RateLimit:   rps,
		RateBurst:   burst,
	}, nil
}

// MockConfig 描述本地模拟服务的配置。
type MockConfig struct {
	TokenTTL time.Duration
}

func loadMockConfig() (MockConfig, error) {
	ttl, err := parseOptionalIntEnv("MOCKAPI_TOKEN_TTL")
	if err != nil {
		return MockConfig{}, err
	}
	seconds := 900 // 默认15分钟
	if ttl != nil {
		if *ttl < 1 {
			seconds = 1
		} else {
			seconds = *ttl
		}
	}
	return MockConfig{TokenTTL: time.Duration(seconds) * time.Second}, nil
}

// ParseLogLevel 解析 debug/info/warn/error。
func ParseLogLevel(raw string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(raw))); err != nil {
		return slog.LevelInfo, fmt.Errorf("invalid LOG_LEVEL value %q: %w", raw, err)
	}
	return level, nil
}

// assetHost 去掉接口地址中的路径，得到上传文件所在的主机。
func assetHost(apiURL string) string {
	if i := strings.Index(apiURL, "://"); i >= 0 {
		if j := strings.Index(apiURL[i+3:], "/"); j >= 0 {
			return apiURL[:i+3+j]
		}
	}
	return apiURL
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func parseOptionalFloatEnv(key string) (*float64, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}

func parseOptionalIntEnv(key string) (*int, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.Atoi(value)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}
