package service

import (
	"context"
	"testing"
	"time"

	"github.com/forgehost/orchestrator/internal/orchestrator/repository/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSchedulerService_ChooseBestNode(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	addServer := func(t *testing.T, ts *TestServices, serverID, nodeID string) {
		t.Helper()
		require.NoError(t, ts.ServerRepo.Create(ctx, &model.GameServer{
			ServerID:  serverID,
			UserID:    testUserID,
			NodeID:    nodeID,
			Status:    "running",
			CreatedAt: time.Now(),
		}))
	}

	t.Run("picks node with lowest slot fraction", func(t *testing.T) {
		ts := setupTestServices(t, 10000, 10100)
		ts.registerTestNode(t, "node-1", "10.0.0.1", 10, 10000)
		ts.registerTestNode(t, "node-2", "10.0.0.2", 10, 10000)

		// node-1 占 2/10，node-2 占 1/10
		addServer(t, ts, "srv-1", "node-1")
		addServer(t, ts, "srv-2", "node-1")
		addServer(t, ts, "srv-3", "node-2")

		node, err := ts.Scheduler.ChooseBestNode(ctx)
		require.NoError(t, err)
		require.NotNil(t, node)
		assert.Equal(t, "node-2", node.NodeID)
	})

	t.Run("slot fraction beats absolute count", func(t *testing.T) {
		ts := setupTestServices(t, 10000, 10100)
		ts.registerTestNode(t, "big", "10.0.0.1", 20, 10000)
		ts.registerTestNode(t, "small", "10.0.0.2", 2, 10000)

		// big 占 4/20 = 0.2，small 占 1/2 = 0.5
		for _, id := range []string{"srv-1", "srv-2", "srv-3", "srv-4"} {
			addServer(t, ts, id, "big")
		}
		addServer(t, ts, "srv-5", "small")

		node, err := ts.Scheduler.ChooseBestNode(ctx)
		require.NoError(t, err)
		require.NotNil(t, node)
		assert.Equal(t, "big", node.NodeID)
	})

	t.Run("cpu usage breaks ties", func(t *testing.T) {
		ts := setupTestServices(t, 10000, 10100)
		ts.registerTestNode(t, "node-1", "10.0.0.1", 10, 10000)
		ts.registerTestNode(t, "node-2", "10.0.0.2", 10, 10000)

		require.NoError(t, ts.NodeService.UpdateNodeStats(ctx, "node-1", 80, 50, 50))
		require.NoError(t, ts.NodeService.UpdateNodeStats(ctx, "node-2", 20, 50, 50))

		node, err := ts.Scheduler.ChooseBestNode(ctx)
		require.NoError(t, err)
		require.NotNil(t, node)
		assert.Equal(t, "node-2", node.NodeID)
	})

	t.Run("skips offline and full nodes", func(t *testing.T) {
		ts := setupTestServices(t, 10000, 10100)
		ts.registerTestNode(t, "offline", "10.0.0.1", 10, 10000)
		ts.registerTestNode(t, "full", "10.0.0.2", 1, 10000)
		require.NoError(t, ts.NodeService.MarkOffline(ctx, "offline"))
		addServer(t, ts, "srv-1", "full")

		node, err := ts.Scheduler.ChooseBestNode(ctx)
		require.NoError(t, err)
		assert.Nil(t, node)
	})
}

func TestSchedulerService_ChooseSpecificNode(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("returns requested node when available", func(t *testing.T) {
		ts := setupTestServices(t, 10000, 10100)
		ts.registerTestNode(t, "node-1", "10.0.0.1", 10, 10000)

		node, err := ts.Scheduler.ChooseSpecificNode(ctx, "node-1")
		require.NoError(t, err)
		require.NotNil(t, node)
		assert.Equal(t, "node-1", node.NodeID)
	})

	t.Run("unknown node yields nil", func(t *testing.T) {
		ts := setupTestServices(t, 10000, 10100)

		node, err := ts.Scheduler.ChooseSpecificNode(ctx, "node-missing")
		require.NoError(t, err)
		assert.Nil(t, node)
	})

	t.Run("offline node yields nil", func(t *testing.T) {
		ts := setupTestServices(t, 10000, 10100)
		ts.registerTestNode(t, "node-1", "10.0.0.1", 10, 10000)
		require.NoError(t, ts.NodeService.MarkOffline(ctx, "node-1"))

		node, err := ts.Scheduler.ChooseSpecificNode(ctx, "node-1")
		require.NoError(t, err)
		assert.Nil(t, node)
	})
}
