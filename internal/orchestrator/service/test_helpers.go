package service

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/forgehost/orchestrator/internal/orchestrator/repository"
	"github.com/forgehost/orchestrator/pkg/authclient"
	"github.com/forgehost/orchestrator/pkg/hostagent"
	"github.com/forgehost/orchestrator/pkg/tunnel"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// 测试用的服务账号和普通用户 token
const (
	testServiceToken = "svc-token"
	testUserToken    = "user-token"
	testUserID       = "user-1"
)

// TestServices 包含测试所需的所有服务和依赖
type TestServices struct {
	Repo        *repository.Repository
	NodeRepo    repository.NodeRepository
	ServerRepo  repository.GameServerRepository
	AllocRepo   repository.PortAllocationRepository
	MockAgent   *hostagent.MockClient
	MockTunnels *tunnel.MockManager
	MockAuth    *authclient.MockClient

	NodeService  *NodeService
	Scheduler    *SchedulerService
	Allocator    *PortAllocationService
	Provisioning *ProvisioningService
}

// setupTestServices 为每个测试用例创建独立的测试环境
// 每个测试用例都有独立的数据库文件和 mock clients
func setupTestServices(t *testing.T, rangeStart, rangeEnd int) *TestServices {
	t.Helper()

	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "test.db")
	repo, err := repository.New(dbPath)
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = repo.Close()
		_ = os.RemoveAll(tmpDir)
	})

	nodeRepo := repository.NewNodeRepository(repo.DB())
	serverRepo := repository.NewGameServerRepository(repo.DB())
	allocRepo := repository.NewPortAllocationRepository(repo.DB())

	mockAgent := hostagent.NewMockClient()
	mockTunnels := tunnel.NewMockManager()
	mockAuth := authclient.NewMockClient()

	// 默认身份：服务账号和普通用户
	mockAuth.On("Validate", mock.Anything, testServiceToken).Return(&authclient.Identity{
		UserID: "provisioning-svc",
		Roles:  []authclient.Role{authclient.RoleServiceAccount},
	}, nil).Maybe()
	mockAuth.On("Validate", mock.Anything, testUserToken).Return(&authclient.Identity{
		UserID: testUserID,
		Roles:  []authclient.Role{authclient.RoleUser},
	}, nil).Maybe()

	nodeService := NewNodeService(nodeRepo, serverRepo)
	scheduler := NewSchedulerService(nodeRepo, serverRepo)
	allocator := NewPortAllocationService(allocRepo, nodeRepo, rangeStart, rangeEnd)
	provisioning := NewProvisioningService(
		scheduler,
		allocator,
		nodeRepo,
		serverRepo,
		mockAgent,
		mockTunnels,
		mockAuth,
		"203.0.113.10",
		5*time.Second,
		zerolog.Nop(),
	)

	return &TestServices{
		Repo:         repo,
		NodeRepo:     nodeRepo,
		ServerRepo:   serverRepo,
		AllocRepo:    allocRepo,
		MockAgent:    mockAgent,
		MockTunnels:  mockTunnels,
		MockAuth:     mockAuth,
		NodeService:  nodeService,
		Scheduler:    scheduler,
		Allocator:    allocator,
		Provisioning: provisioning,
	}
}

// registerTestNode 注册一个在线节点
func (ts *TestServices) registerTestNode(t *testing.T, nodeID, ip string, maxServers, portRangeStart int) {
	t.Helper()
	_, err := ts.NodeService.RegisterNode(context.Background(), nodeID, nodeID+"-host", ip, maxServers, portRangeStart)
	require.NoError(t, err)
}

// waitAsync 等待所有后台流程结束
func (ts *TestServices) waitAsync(t *testing.T) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	require.NoError(t, ts.Provisioning.Shutdown(ctx))
}

// expectSpawnSuccess 配置一次成功的容器拉起和隧道链路
func (ts *TestServices) expectSpawnSuccess(nodeIP string) {
	ts.MockAgent.On("Spawn", mock.Anything, nodeIP, mock.AnythingOfType("*hostagent.SpawnRequest")).
		Return(&hostagent.SpawnResponse{ContainerID: "ctr-1"}, nil)
	ts.MockTunnels.On("CreateInstance", mock.Anything, mock.AnythingOfType("string"), mock.AnythingOfType("int"), mock.AnythingOfType("int")).
		Return(tunnel.InstanceInfo{"status": "created"}, nil)
	ts.MockTunnels.On("GetClientConfig", mock.Anything, mock.AnythingOfType("string"), "203.0.113.10").
		Return("[client]\nremote_addr = \"203.0.113.10:7000\"", nil)
	ts.MockAgent.On("ConfigureTunnelClient", mock.Anything, nodeIP, mock.AnythingOfType("string"), mock.AnythingOfType("string")).
		Return(nil)
}
