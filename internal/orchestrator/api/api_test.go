package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/forgehost/orchestrator/internal/orchestrator/entity"
	"github.com/forgehost/orchestrator/pkg/apierror"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockNodeService 是 NodeServiceInterface 的 mock 实现
type MockNodeService struct {
	mock.Mock
}

func (m *MockNodeService) RegisterNode(ctx context.Context, nodeID, hostname, ipAddress string, maxServers, portRangeStart int) (*entity.Node, error) {
	args := m.Called(ctx, nodeID, hostname, ipAddress, maxServers, portRangeStart)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Node), args.Error(1)
}

func (m *MockNodeService) RecordHeartbeat(ctx context.Context, nodeID string) error {
	args := m.Called(ctx, nodeID)
	return args.Error(0)
}

func (m *MockNodeService) UpdateNodeStats(ctx context.Context, nodeID string, cpuUsage, memoryUsage, diskUsage float64) error {
	args := m.Called(ctx, nodeID, cpuUsage, memoryUsage, diskUsage)
	return args.Error(0)
}

func (m *MockNodeService) MarkOffline(ctx context.Context, nodeID string) error {
	args := m.Called(ctx, nodeID)
	return args.Error(0)
}

func (m *MockNodeService) ListNodes(ctx context.Context) ([]*entity.Node, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entity.Node), args.Error(1)
}

func (m *MockNodeService) ListOnlineNodes(ctx context.Context) ([]*entity.Node, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entity.Node), args.Error(1)
}

func (m *MockNodeService) DeleteNode(ctx context.Context, nodeID string) error {
	args := m.Called(ctx, nodeID)
	return args.Error(0)
}

// MockProvisioningService 是 ProvisioningServiceInterface 的 mock 实现
type MockProvisioningService struct {
	mock.Mock
}

func (m *MockProvisioningService) Provision(ctx context.Context, token string, req *entity.ProvisionRequest) (*entity.GameServer, error) {
	args := m.Called(ctx, token, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.GameServer), args.Error(1)
}

func (m *MockProvisioningService) Start(ctx context.Context, token, serverID string) error {
	args := m.Called(ctx, token, serverID)
	return args.Error(0)
}

func (m *MockProvisioningService) Stop(ctx context.Context, token, serverID string) error {
	args := m.Called(ctx, token, serverID)
	return args.Error(0)
}

func (m *MockProvisioningService) Restart(ctx context.Context, token, serverID string) error {
	args := m.Called(ctx, token, serverID)
	return args.Error(0)
}

func (m *MockProvisioningService) Delete(ctx context.Context, token, serverID string) error {
	args := m.Called(ctx, token, serverID)
	return args.Error(0)
}

func (m *MockProvisioningService) GetStatus(ctx context.Context, token, serverID string) (*entity.ServerStatusView, error) {
	args := m.Called(ctx, token, serverID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.ServerStatusView), args.Error(1)
}

func (m *MockProvisioningService) DescribeServer(ctx context.Context, token, serverID string) (*entity.GameServer, error) {
	args := m.Called(ctx, token, serverID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.GameServer), args.Error(1)
}

func (m *MockProvisioningService) ListUserServers(ctx context.Context, token, userID string) ([]*entity.GameServer, error) {
	args := m.Called(ctx, token, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entity.GameServer), args.Error(1)
}

func (m *MockProvisioningService) UpdateServerConfig(ctx context.Context, token, serverID string, req *entity.UpdateServerConfigRequest) error {
	args := m.Called(ctx, token, serverID, req)
	return args.Error(0)
}

// setupTestRouter 用 mock 服务搭建路由
func setupTestRouter(nodeSvc *MockNodeService, provSvc *MockProvisioningService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	engine := gin.New()

	group := engine.Group("/api")
	nodeAPI := &NodeAPI{nodeService: nodeSvc, portRangeStart: 10000}
	nodeAPI.RegisterRoutes(group)
	serverAPI := &ServerAPI{provisioning: provSvc}
	serverAPI.RegisterRoutes(group)

	return engine
}

func doJSON(t *testing.T, engine *gin.Engine, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", token)
	}

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	return w
}

func TestNodeAPI(t *testing.T) {
	t.Parallel()

	t.Run("register node returns node view", func(t *testing.T) {
		nodeSvc := &MockNodeService{}
		engine := setupTestRouter(nodeSvc, &MockProvisioningService{})

		nodeSvc.On("RegisterNode", mock.Anything, "node-1", "worker-1", "10.0.0.1", 10, 10000).
			Return(&entity.Node{
				NodeID:            "node-1",
				Hostname:          "worker-1",
				IPAddress:         "10.0.0.1",
				MaxServers:        10,
				NextAvailablePort: 10000,
				Status:            entity.NodeStatusOnline,
				CreatedAt:         time.Now(),
				LastHeartbeat:     time.Now(),
			}, nil)

		w := doJSON(t, engine, "/api/register-node", "", map[string]any{
			"node_id":     "node-1",
			"hostname":    "worker-1",
			"ip_address":  "10.0.0.1",
			"max_servers": 10,
		})

		assert.Equal(t, http.StatusOK, w.Code)
		var node entity.Node
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &node))
		assert.Equal(t, "node-1", node.NodeID)
		assert.Equal(t, entity.NodeStatusOnline, node.Status)
	})

	t.Run("register node validates max_servers", func(t *testing.T) {
		engine := setupTestRouter(&MockNodeService{}, &MockProvisioningService{})

		w := doJSON(t, engine, "/api/register-node", "", map[string]any{
			"node_id":     "node-1",
			"hostname":    "worker-1",
			"ip_address":  "10.0.0.1",
			"max_servers": 0,
		})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("heartbeat acks with no content", func(t *testing.T) {
		nodeSvc := &MockNodeService{}
		engine := setupTestRouter(nodeSvc, &MockProvisioningService{})

		nodeSvc.On("RecordHeartbeat", mock.Anything, "node-1").Return(nil)

		w := doJSON(t, engine, "/api/node-heartbeat", "", map[string]any{"node_id": "node-1"})
		assert.Equal(t, http.StatusNoContent, w.Code)
	})

	t.Run("heartbeat for unknown node maps to 404", func(t *testing.T) {
		nodeSvc := &MockNodeService{}
		engine := setupTestRouter(nodeSvc, &MockProvisioningService{})

		nodeSvc.On("RecordHeartbeat", mock.Anything, "node-missing").Return(apierror.ErrNodeNotFound)

		w := doJSON(t, engine, "/api/node-heartbeat", "", map[string]any{"node_id": "node-missing"})
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("delete busy node maps to 409", func(t *testing.T) {
		nodeSvc := &MockNodeService{}
		engine := setupTestRouter(nodeSvc, &MockProvisioningService{})

		nodeSvc.On("DeleteNode", mock.Anything, "node-1").Return(apierror.ErrConflict)

		w := doJSON(t, engine, "/api/delete-node", "", map[string]any{"node_id": "node-1"})
		assert.Equal(t, http.StatusConflict, w.Code)
	})
}

func TestServerAPI(t *testing.T) {
	t.Parallel()

	t.Run("provision passes token and request through", func(t *testing.T) {
		provSvc := &MockProvisioningService{}
		engine := setupTestRouter(&MockNodeService{}, provSvc)

		provSvc.On("Provision", mock.Anything, "Bearer tok",
			mock.MatchedBy(func(req *entity.ProvisionRequest) bool {
				return req.UserID == "user-1" && req.ServerName == "my-server" && req.MaxPlayers == 8
			})).
			Return(&entity.GameServer{
				ServerID:   "srv-user-1-1",
				UserID:     "user-1",
				NodeID:     "node-1",
				GamePort:   10000,
				BeaconPort: 10001,
				Status:     entity.StatusProvisioning,
			}, nil)

		w := doJSON(t, engine, "/api/provision-server", "Bearer tok", map[string]any{
			"user_id":     "user-1",
			"server_name": "my-server",
			"max_players": 8,
		})

		assert.Equal(t, http.StatusOK, w.Code)
		var server entity.GameServer
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &server))
		assert.Equal(t, entity.StatusProvisioning, server.Status)
		assert.Equal(t, 10000, server.GamePort)
	})

	t.Run("provision without capacity maps to 503", func(t *testing.T) {
		provSvc := &MockProvisioningService{}
		engine := setupTestRouter(&MockNodeService{}, provSvc)

		provSvc.On("Provision", mock.Anything, "Bearer tok", mock.Anything).
			Return(nil, apierror.ErrNoCapacity)

		w := doJSON(t, engine, "/api/provision-server", "Bearer tok", map[string]any{
			"user_id":     "user-1",
			"server_name": "my-server",
		})
		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	})

	t.Run("stop conflict maps to 409", func(t *testing.T) {
		provSvc := &MockProvisioningService{}
		engine := setupTestRouter(&MockNodeService{}, provSvc)

		provSvc.On("Stop", mock.Anything, "Bearer tok", "srv-1").Return(apierror.ErrConflict)

		w := doJSON(t, engine, "/api/stop-server", "Bearer tok", map[string]any{"server_id": "srv-1"})
		assert.Equal(t, http.StatusConflict, w.Code)
	})

	t.Run("missing token maps to 401", func(t *testing.T) {
		provSvc := &MockProvisioningService{}
		engine := setupTestRouter(&MockNodeService{}, provSvc)

		provSvc.On("Start", mock.Anything, "", "srv-1").Return(apierror.ErrUnauthorized)

		w := doJSON(t, engine, "/api/start-server", "", map[string]any{"server_id": "srv-1"})
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("delete acks with no content", func(t *testing.T) {
		provSvc := &MockProvisioningService{}
		engine := setupTestRouter(&MockNodeService{}, provSvc)

		provSvc.On("Delete", mock.Anything, "Bearer tok", "srv-1").Return(nil)

		w := doJSON(t, engine, "/api/delete-server", "Bearer tok", map[string]any{"server_id": "srv-1"})
		assert.Equal(t, http.StatusNoContent, w.Code)
	})
}
