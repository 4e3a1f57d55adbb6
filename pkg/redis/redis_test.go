package redis

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wonny/tailrisk/pkg/config"
)

func disabledClient(t *testing.T) *Client {
	t.Helper()
	client, err := New(context.Background(), &config.Config{
		Redis: config.RedisConfig{Enabled: false},
	})
	require.NoError(t, err)
	return client
}

func TestNewClient_Disabled(t *testing.T) {
	client := disabledClient(t)
	assert.False(t, client.Enabled())
	assert.Nil(t, client.Redis())
	assert.NoError(t, client.Close())
}

func TestNewFromRedis_Nil(t *testing.T) {
	assert.False(t, NewFromRedis(nil).Enabled())
}

func TestCache_DisabledIsNoop(t *testing.T) {
	ctx := context.Background()
	cache := NewCache(disabledClient(t), "tailrisk")

	require.NoError(t, cache.Set(ctx, "key", map[string]float64{"var": 1.5}, TTLShort))

	var result map[string]float64
	found, err := cache.Get(ctx, "key", &result)
	require.NoError(t, err)
	assert.False(t, found)
	assert.Nil(t, result)

	assert.NoError(t, cache.Delete(ctx, "key"))
}

func TestCacheKeys(t *testing.T) {
	tests := []struct {
		name     string
		got      string
		expected string
	}{
		{"ReportKey", ReportKey("ab12"), "report:scenario:ab12"},
		{"ReportRunKey", ReportRunKey("run-1"), "report:run:run-1"},
		{"fullKey", NewCache(&Client{}, "tailrisk").fullKey("x"), "tailrisk:cache:x"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.got)
		})
	}
}
