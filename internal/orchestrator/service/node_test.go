package service

import (
	"context"
	"testing"
	"time"

	"github.com/forgehost/orchestrator/internal/orchestrator/entity"
	"github.com/forgehost/orchestrator/internal/orchestrator/repository/model"
	"github.com/forgehost/orchestrator/pkg/apierror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNodeService_RegisterNode(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("new node starts online with allocation cursor", func(t *testing.T) {
		ts := setupTestServices(t, 10000, 10100)

		node, err := ts.NodeService.RegisterNode(ctx, "node-1", "worker-1", "10.0.0.1", 10, 10000)
		require.NoError(t, err)
		assert.Equal(t, entity.NodeStatusOnline, node.Status)
		assert.Equal(t, 10000, node.NextAvailablePort)
		assert.Equal(t, 0, node.CurrentServers)
	})

	t.Run("re-register updates capacity without resetting heartbeat", func(t *testing.T) {
		ts := setupTestServices(t, 10000, 10100)

		_, err := ts.NodeService.RegisterNode(ctx, "node-1", "worker-1", "10.0.0.1", 10, 10000)
		require.NoError(t, err)

		// 人为做旧心跳并标记离线
		stale, err := ts.NodeRepo.GetByNodeID(ctx, "node-1")
		require.NoError(t, err)
		stale.Status = string(entity.NodeStatusOffline)
		stale.LastHeartbeat = time.Now().Add(-time.Hour)
		require.NoError(t, ts.NodeRepo.Update(ctx, stale))

		node, err := ts.NodeService.RegisterNode(ctx, "node-1", "worker-1b", "10.0.0.9", 20, 10000)
		require.NoError(t, err)

		assert.Equal(t, "worker-1b", node.Hostname)
		assert.Equal(t, "10.0.0.9", node.IPAddress)
		assert.Equal(t, 20, node.MaxServers)
		// 重注册不拉回在线状态，也不刷新心跳
		assert.Equal(t, entity.NodeStatusOffline, node.Status)
		assert.WithinDuration(t, stale.LastHeartbeat, node.LastHeartbeat, time.Second)
	})
}

func TestNodeService_Heartbeat(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("heartbeat brings node back online", func(t *testing.T) {
		ts := setupTestServices(t, 10000, 10100)
		ts.registerTestNode(t, "node-1", "10.0.0.1", 10, 10000)
		require.NoError(t, ts.NodeService.MarkOffline(ctx, "node-1"))

		require.NoError(t, ts.NodeService.RecordHeartbeat(ctx, "node-1"))

		node, err := ts.NodeRepo.GetByNodeID(ctx, "node-1")
		require.NoError(t, err)
		assert.Equal(t, string(entity.NodeStatusOnline), node.Status)
	})

	t.Run("heartbeat for unknown node fails", func(t *testing.T) {
		ts := setupTestServices(t, 10000, 10100)
		err := ts.NodeService.RecordHeartbeat(ctx, "node-missing")
		assert.ErrorIs(t, err, apierror.ErrNodeNotFound)
	})

	t.Run("stats report counts as heartbeat", func(t *testing.T) {
		ts := setupTestServices(t, 10000, 10100)
		ts.registerTestNode(t, "node-1", "10.0.0.1", 10, 10000)
		require.NoError(t, ts.NodeService.MarkOffline(ctx, "node-1"))

		require.NoError(t, ts.NodeService.UpdateNodeStats(ctx, "node-1", 33, 44, 55))

		node, err := ts.NodeRepo.GetByNodeID(ctx, "node-1")
		require.NoError(t, err)
		assert.Equal(t, string(entity.NodeStatusOnline), node.Status)
		assert.Equal(t, 33.0, node.CPUUsage)
		assert.Equal(t, 44.0, node.MemoryUsage)
		assert.Equal(t, 55.0, node.DiskUsage)
	})
}

func TestNodeService_CheckNodeHealth(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("evicts nodes past heartbeat timeout", func(t *testing.T) {
		ts := setupTestServices(t, 10000, 10100)
		ts.registerTestNode(t, "fresh", "10.0.0.1", 10, 10000)
		ts.registerTestNode(t, "stale", "10.0.0.2", 10, 10000)

		node, err := ts.NodeRepo.GetByNodeID(ctx, "stale")
		require.NoError(t, err)
		node.LastHeartbeat = time.Now().Add(-10 * time.Minute)
		require.NoError(t, ts.NodeRepo.Update(ctx, node))

		evicted, err := ts.NodeService.CheckNodeHealth(ctx, 3*time.Minute)
		require.NoError(t, err)
		assert.Equal(t, []string{"stale"}, evicted)

		stale, err := ts.NodeRepo.GetByNodeID(ctx, "stale")
		require.NoError(t, err)
		assert.Equal(t, string(entity.NodeStatusOffline), stale.Status)

		fresh, err := ts.NodeRepo.GetByNodeID(ctx, "fresh")
		require.NoError(t, err)
		assert.Equal(t, string(entity.NodeStatusOnline), fresh.Status)
	})

	t.Run("eviction is idempotent across rounds", func(t *testing.T) {
		ts := setupTestServices(t, 10000, 10100)
		ts.registerTestNode(t, "stale", "10.0.0.1", 10, 10000)

		node, err := ts.NodeRepo.GetByNodeID(ctx, "stale")
		require.NoError(t, err)
		node.LastHeartbeat = time.Now().Add(-10 * time.Minute)
		require.NoError(t, ts.NodeRepo.Update(ctx, node))

		evicted, err := ts.NodeService.CheckNodeHealth(ctx, 3*time.Minute)
		require.NoError(t, err)
		assert.Len(t, evicted, 1)

		// 第二轮不再上报同一个节点
		evicted, err = ts.NodeService.CheckNodeHealth(ctx, 3*time.Minute)
		require.NoError(t, err)
		assert.Empty(t, evicted)
	})
}

func TestNodeService_DeleteNode(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("rejects delete while servers assigned", func(t *testing.T) {
		ts := setupTestServices(t, 10000, 10100)
		ts.registerTestNode(t, "node-1", "10.0.0.1", 10, 10000)

		require.NoError(t, ts.ServerRepo.Create(ctx, &model.GameServer{
			ServerID:  "srv-1",
			UserID:    testUserID,
			NodeID:    "node-1",
			Status:    "running",
			CreatedAt: time.Now(),
		}))

		err := ts.NodeService.DeleteNode(ctx, "node-1")
		assert.ErrorIs(t, err, apierror.ErrConflict)
	})

	t.Run("deletes empty node", func(t *testing.T) {
		ts := setupTestServices(t, 10000, 10100)
		ts.registerTestNode(t, "node-1", "10.0.0.1", 10, 10000)

		require.NoError(t, ts.NodeService.DeleteNode(ctx, "node-1"))

		err := ts.NodeService.DeleteNode(ctx, "node-1")
		assert.ErrorIs(t, err, apierror.ErrNodeNotFound)
	})
}
