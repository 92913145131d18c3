package cache

import (
	"context"
	"testing"
	"time"

	"github.com/freelanceops/billing/internal/config"
	"github.com/freelanceops/billing/internal/logger"
	"github.com/stretchr/testify/assert"
)

func TestInMemoryCache(t *testing.T) {
	ctx := context.Background()
	cfg := config.GetDefaultConfig()
	c := NewInMemoryCache(cfg, logger.NewNopLogger())

	key := TriggersKey("invoice.paid")
	assert.Equal(t, "workflow_trigger:v1:invoice.paid", key)

	c.Set(ctx, key, []string{"trg_1"}, time.Minute)
	c.Set(ctx, TriggersKey("invoice.created"), []string{"trg_2"}, time.Minute)
	c.Set(ctx, "other", 1, time.Minute)

	value, ok := c.Get(ctx, key)
	assert.True(t, ok)
	assert.Equal(t, []string{"trg_1"}, value)

	InvalidateTriggers(ctx, c)
	_, ok = c.Get(ctx, key)
	assert.False(t, ok)
	_, ok = c.Get(ctx, "other")
	assert.True(t, ok)
}

func TestInMemoryCacheDisabled(t *testing.T) {
	ctx := context.Background()
	cfg := config.GetDefaultConfig()
	cfg.Cache.Enabled = false
	c := NewInMemoryCache(cfg, logger.NewNopLogger())

	c.Set(ctx, "key", "value", time.Minute)
	_, ok := c.Get(ctx, "key")
	assert.False(t, ok)
}

func TestInvalidateTriggersWithoutCache(t *testing.T) {
	assert.NotPanics(t, func() { InvalidateTriggers(context.Background(), nil) })
}
