package database

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/portalback/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type widget struct {
	ID   int64  `gorm:"primaryKey"`
	Code string `gorm:"size:32;uniqueIndex"`
}

func TestOpenSQLiteAndDuplicateKey(t *testing.T) {
	db, err := Open(config.DatabaseConfig{Driver: "sqlite", LogLevel: "silent"}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = Close(db) })

	require.NoError(t, db.AutoMigrate(&widget{}))
	require.NoError(t, db.Create(&widget{Code: "a"}).Error)

	err = db.Create(&widget{Code: "a"}).Error
	require.Error(t, err)
	assert.True(t, IsDuplicateKey(err))
}

func TestOpenUnsupportedDriver(t *testing.T) {
	_, err := Open(config.DatabaseConfig{Driver: "oracle"}, nil)
	assert.Error(t, err)
}

func TestIsDuplicateKey(t *testing.T) {
	assert.False(t, IsDuplicateKey(nil))
	assert.False(t, IsDuplicateKey(errors.New("connection reset")))
	assert.True(t, IsDuplicateKey(fmt.Errorf("create: %w", gorm.ErrDuplicatedKey)))
	assert.True(t, IsDuplicateKey(errors.New("Error 1062 (23000): Duplicate entry '1-2-3' for key 'uniq_role_module_perm'")))
	assert.True(t, IsDuplicateKey(errors.New(`ERROR: duplicate key value violates unique constraint "uniq_role_module_perm"`)))
}

func TestMemoryRedisCache(t *testing.T) {
	ctx := context.Background()
	rdb, err := OpenRedis(ctx, config.RedisConfig{Mode: "memory"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = rdb.Close() })

	cache := NewCache(rdb, "price")
	_, hit, err := cache.Get(ctx, "p1")
	require.NoError(t, err)
	assert.False(t, hit)

	require.NoError(t, cache.Set(ctx, "p1", "12.50", time.Minute))
	v, hit, err := cache.Get(ctx, "p1")
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, "12.50", v)

	keys, err := rdb.Keys(ctx, "price:*").Result()
	require.NoError(t, err)
	assert.Equal(t, []string{"price:p1"}, keys)

	require.NoError(t, cache.Del(ctx, "p1"))
	_, hit, _ = cache.Get(ctx, "p1")
	assert.False(t, hit)
}
