package idgen

import (
	"strings"
	"testing"
	"time"

	"github.com/sony/sonyflake"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateServerID(t *testing.T) {
	t.Parallel()

	gen := New()

	id, err := gen.GenerateServerID("user-1")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(id, "srv-user-1-"))

	// ID 全局唯一
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id, err := gen.GenerateServerID("user-1")
		require.NoError(t, err)
		assert.False(t, seen[id], "duplicate id %s", id)
		seen[id] = true
	}
}

func TestGenerateID(t *testing.T) {
	t.Parallel()

	gen := New()

	first, err := gen.GenerateID()
	require.NoError(t, err)
	second, err := gen.GenerateID()
	require.NoError(t, err)

	// 递增
	assert.Greater(t, second, first)
}

func TestFallbackMachineID(t *testing.T) {
	t.Parallel()

	// 没有私有 IPv4 的主机走进程号兜底，生成器依然可用
	sf := sonyflake.NewSonyflake(sonyflake.Settings{
		StartTime: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		MachineID: fallbackMachineID,
	})
	require.NotNil(t, sf)

	gen := &Generator{sf: sf}
	id, err := gen.GenerateServerID("user-1")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(id, "srv-user-1-"))
}

func TestDefaultGenerator(t *testing.T) {
	t.Parallel()

	assert.Same(t, DefaultGenerator(), DefaultGenerator())

	id, err := GenerateServerID("user-2")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(id, "srv-user-2-"))
}
