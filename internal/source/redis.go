package source

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/redis/go-redis/v9"

	"predictive-maintenance/internal/models"
)

// RedisSource читает последнее показание из Redis stream.
// Продюсеры добавляют записи через XADD <stream> * temperature .. rpm ..
type RedisSource struct {
	client *redis.Client
	stream string
}

// NewRedisSource создает клиент и проверяет подключение
func NewRedisSource(ctx context.Context, addr, password string, db int, stream string) (*RedisSource, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		PoolSize:     100,
		MinIdleConns: 10,
		MaxRetries:   3,
	})

	// Проверяем подключение
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return NewRedisSourceFromClient(client, stream), nil
}

// NewRedisSourceFromClient использует готовый клиент
func NewRedisSourceFromClient(client *redis.Client, stream string) *RedisSource {
	return &RedisSource{
		client: client,
		stream: stream,
	}
}

func (r *RedisSource) Name() string { return KindRedis }

// Latest возвращает последнюю запись stream
func (r *RedisSource) Latest(ctx context.Context) (models.SensorReading, error) {
	pipe := r.client.TxPipeline()
	exists := pipe.Exists(ctx, r.stream)
	entries := pipe.XRevRangeN(ctx, r.stream, "+", "-", 1)

	if _, err := pipe.Exec(ctx); err != nil {
		return models.SensorReading{}, fmt.Errorf("failed to read stream %s: %w", r.stream, err)
	}

	if exists.Val() == 0 {
		return models.SensorReading{}, newError(ErrNotFound, fmt.Sprintf("stream %s not found", r.stream))
	}
	if len(entries.Val()) == 0 {
		return models.SensorReading{}, newError(ErrEmpty, fmt.Sprintf("stream %s is empty", r.stream))
	}

	return readingFromMessage(entries.Val()[0])
}

func readingFromMessage(msg redis.XMessage) (models.SensorReading, error) {
	values := make(map[string]float64, 4)
	for _, name := range models.FeatureNames() {
		raw, ok := msg.Values[name]
		if !ok {
			return models.SensorReading{}, newError(ErrMalformed, fmt.Sprintf("entry %s has no %q field", msg.ID, name))
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(fmt.Sprint(raw)), 64)
		if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
			return models.SensorReading{}, newError(ErrMalformed, fmt.Sprintf("entry %s has invalid %s value %v", msg.ID, name, raw))
		}
		values[name] = v
	}

	return models.ReadingFromValues(values), nil
}

// Ping проверяет доступность Redis
func (r *RedisSource) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// Close закрывает соединение с Redis
func (r *RedisSource) Close() error {
	return r.client.Close()
}

// GetStats возвращает статистику пула соединений
func (r *RedisSource) GetStats() map[string]interface{} {
	stats := r.client.PoolStats()

	return map[string]interface{}{
		"stream":      r.stream,
		"hits":        stats.Hits,
		"misses":      stats.Misses,
		"timeouts":    stats.Timeouts,
		"total_conns": stats.TotalConns,
		"idle_conns":  stats.IdleConns,
		"stale_conns": stats.StaleConns,
	}
}
