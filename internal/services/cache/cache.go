package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
)

// CacheService — кэш расчетных данных дашборда поверх Redis
type CacheService struct {
	redisClient *redis.Client
	ttl         time.Duration
	enabled     bool
}

// NewCacheService создает сервис кэширования. При отключенном кэше
// все операции становятся no-op, обработчики идут напрямую в БД.
func NewCacheService(client *redis.Client) *CacheService {
	if client == nil || os.Getenv("CACHE_ENABLED") != "true" {
		return &CacheService{enabled: false}
	}

	ttl := 60 // 1 минута по умолчанию: счетчики дашборда быстро устаревают
	if val, err := strconv.Atoi(os.Getenv("STATS_CACHE_DURATION")); err == nil && val > 0 {
		ttl = val
	}

	return &CacheService{
		redisClient: client,
		ttl:         time.Duration(ttl) * time.Second,
		enabled:     true,
	}
}

// Get получает данные из кэша
func (c *CacheService) Get(ctx context.Context, key string, result interface{}) (bool, error) {
	if !c.enabled {
		return false, nil
	}

	val, err := c.redisClient.Get(ctx, key).Result()
	if err == redis.Nil {
		return false, nil
	} else if err != nil {
		return false, fmt.Errorf("ошибка при получении данных из кэша: %w", err)
	}

	if err := json.Unmarshal([]byte(val), result); err != nil {
		return false, fmt.Errorf("ошибка при десериализации данных из кэша: %w", err)
	}

	return true, nil
}

// Set сохраняет данные в кэш
func (c *CacheService) Set(ctx context.Context, key string, value interface{}) error {
	if !c.enabled {
		return nil
	}

	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("ошибка при сериализации данных для кэша: %w", err)
	}

	if err := c.redisClient.Set(ctx, key, data, c.ttl).Err(); err != nil {
		return fmt.Errorf("ошибка при сохранении данных в кэш: %w", err)
	}

	return nil
}

// StatsKey — ключ счетчиков дашборда
func (c *CacheService) StatsKey() string {
	return "dashboard:stats"
}
