package source

import (
	"context"
	"errors"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"predictive-maintenance/internal/models"
)

const testStream = "sensor:readings"

func setUpRedis(t *testing.T) (*RedisSource, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)

	src, err := NewRedisSource(context.Background(), mr.Addr(), "", 0, testStream)
	require.NoError(t, err)
	t.Cleanup(func() { src.Close() })

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return src, client
}

func addReading(t *testing.T, client *redis.Client, values map[string]interface{}) {
	t.Helper()
	err := client.XAdd(context.Background(), &redis.XAddArgs{
		Stream: testStream,
		Values: values,
	}).Err()
	require.NoError(t, err)
}

func TestRedisSourceLatest(t *testing.T) {
	ctx := context.Background()
	src, client := setUpRedis(t)

	addReading(t, client, map[string]interface{}{"temperature": 70, "vibration": 0.1, "pressure": 100, "rpm": 1100})
	addReading(t, client, map[string]interface{}{"temperature": "72.5", "vibration": "0.2", "pressure": "101.1", "rpm": "1200", "machine": "m-1"})

	reading, err := src.Latest(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.SensorReading{Temperature: 72.5, Vibration: 0.2, Pressure: 101.1, RPM: 1200}, reading)
	assert.Equal(t, KindRedis, src.Name())
	assert.Equal(t, testStream, src.GetStats()["stream"])
	assert.NoError(t, src.Ping(ctx))
}

func TestRedisSourceErrors(t *testing.T) {
	ctx := context.Background()

	t.Run("MissingStream", func(t *testing.T) {
		src, _ := setUpRedis(t)
		_, err := src.Latest(ctx)
		assert.True(t, errors.Is(err, ErrNotFound))
	})

	t.Run("EmptyStream", func(t *testing.T) {
		src, client := setUpRedis(t)
		require.NoError(t, client.XGroupCreateMkStream(ctx, testStream, "readers", "$").Err())

		_, err := src.Latest(ctx)
		assert.True(t, errors.Is(err, ErrEmpty))
	})

	t.Run("MissingField", func(t *testing.T) {
		src, client := setUpRedis(t)
		addReading(t, client, map[string]interface{}{"temperature": 70, "vibration": 0.1, "pressure": 100})

		_, err := src.Latest(ctx)
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrMalformed))
		assert.Contains(t, err.Error(), `"rpm"`)
	})

	t.Run("WrongType", func(t *testing.T) {
		src, client := setUpRedis(t)
		require.NoError(t, client.Set(ctx, testStream, "not a stream", 0).Err())

		_, err := src.Latest(ctx)
		require.Error(t, err)
		assert.False(t, errors.Is(err, ErrNotFound))
		assert.False(t, errors.Is(err, ErrEmpty))
	})

	t.Run("Unreachable", func(t *testing.T) {
		_, err := NewRedisSource(ctx, "127.0.0.1:1", "", 0, testStream)
		assert.Error(t, err)
	})
}
