package service

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPortAllocationService_AllocatePorts(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("allocates adjacent pair from range start", func(t *testing.T) {
		ts := setupTestServices(t, 10000, 10100)
		ts.registerTestNode(t, "node-1", "10.0.0.1", 10, 10000)

		node, err := ts.NodeRepo.GetByNodeID(ctx, "node-1")
		require.NoError(t, err)

		result, err := ts.Allocator.AllocatePorts(ctx, node, "srv-a")
		require.NoError(t, err)
		assert.True(t, result.Success)
		assert.Equal(t, 10000, result.GamePort)
		assert.Equal(t, 10001, result.BeaconPort)

		// 游标推进到端口对之后
		assert.Equal(t, 10002, node.NextAvailablePort)
	})

	t.Run("cursor advances across allocations", func(t *testing.T) {
		ts := setupTestServices(t, 10000, 10100)
		ts.registerTestNode(t, "node-1", "10.0.0.1", 10, 10000)

		node, err := ts.NodeRepo.GetByNodeID(ctx, "node-1")
		require.NoError(t, err)

		first, err := ts.Allocator.AllocatePorts(ctx, node, "srv-a")
		require.NoError(t, err)
		second, err := ts.Allocator.AllocatePorts(ctx, node, "srv-b")
		require.NoError(t, err)

		assert.Equal(t, 10000, first.GamePort)
		assert.Equal(t, 10002, second.GamePort)
		assert.Equal(t, 10003, second.BeaconPort)
	})

	t.Run("wraps around to released ports before exhaustion", func(t *testing.T) {
		// 区间只放得下两对端口
		ts := setupTestServices(t, 10000, 10003)
		ts.registerTestNode(t, "node-1", "10.0.0.1", 10, 10000)

		node, err := ts.NodeRepo.GetByNodeID(ctx, "node-1")
		require.NoError(t, err)

		_, err = ts.Allocator.AllocatePorts(ctx, node, "srv-a")
		require.NoError(t, err)
		_, err = ts.Allocator.AllocatePorts(ctx, node, "srv-b")
		require.NoError(t, err)

		// 区间已满
		full, err := ts.Allocator.AllocatePorts(ctx, node, "srv-c")
		require.NoError(t, err)
		assert.False(t, full.Success)

		// 释放第一对之后，回绕扫描能复用它
		require.NoError(t, ts.Allocator.ReleasePorts(ctx, "srv-a"))

		reused, err := ts.Allocator.AllocatePorts(ctx, node, "srv-c")
		require.NoError(t, err)
		assert.True(t, reused.Success)
		assert.Equal(t, 10000, reused.GamePort)
		assert.Equal(t, 10001, reused.BeaconPort)
	})

	t.Run("exhaustion does not mutate anything", func(t *testing.T) {
		ts := setupTestServices(t, 10000, 10001)
		ts.registerTestNode(t, "node-1", "10.0.0.1", 10, 10000)

		node, err := ts.NodeRepo.GetByNodeID(ctx, "node-1")
		require.NoError(t, err)

		_, err = ts.Allocator.AllocatePorts(ctx, node, "srv-a")
		require.NoError(t, err)
		cursorBefore := node.NextAvailablePort

		result, err := ts.Allocator.AllocatePorts(ctx, node, "srv-b")
		require.NoError(t, err)
		assert.False(t, result.Success)
		assert.Equal(t, cursorBefore, node.NextAvailablePort)

		active, err := ts.AllocRepo.ListActiveByNodeID(ctx, "node-1")
		require.NoError(t, err)
		assert.Len(t, active, 1)
	})

	t.Run("concurrent allocations never overlap", func(t *testing.T) {
		ts := setupTestServices(t, 10000, 10100)
		ts.registerTestNode(t, "node-1", "10.0.0.1", 10, 10000)

		node, err := ts.NodeRepo.GetByNodeID(ctx, "node-1")
		require.NoError(t, err)

		const n = 8
		results := make([]*PortAllocationResult, n)
		var wg sync.WaitGroup
		for i := 0; i < n; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				r, err := ts.Allocator.AllocatePorts(ctx, node, serverIDForIndex(i))
				if err == nil {
					results[i] = r
				}
			}(i)
		}
		wg.Wait()

		seen := make(map[int]bool)
		for i, r := range results {
			require.NotNil(t, r, "allocation %d failed", i)
			require.True(t, r.Success)
			assert.False(t, seen[r.GamePort], "game port %d allocated twice", r.GamePort)
			assert.False(t, seen[r.BeaconPort], "beacon port %d allocated twice", r.BeaconPort)
			seen[r.GamePort] = true
			seen[r.BeaconPort] = true
		}
	})

	t.Run("release is idempotent", func(t *testing.T) {
		ts := setupTestServices(t, 10000, 10100)
		ts.registerTestNode(t, "node-1", "10.0.0.1", 10, 10000)

		node, err := ts.NodeRepo.GetByNodeID(ctx, "node-1")
		require.NoError(t, err)

		_, err = ts.Allocator.AllocatePorts(ctx, node, "srv-a")
		require.NoError(t, err)

		assert.NoError(t, ts.Allocator.ReleasePorts(ctx, "srv-a"))
		assert.NoError(t, ts.Allocator.ReleasePorts(ctx, "srv-a"))
		assert.NoError(t, ts.Allocator.ReleasePorts(ctx, "srv-never-allocated"))
	})
}

func serverIDForIndex(i int) string {
	return string(rune('a'+i)) + "-srv"
}
