package hostagent

import (
	"context"

	"github.com/stretchr/testify/mock"
)

// MockClient 是 Client 的 mock 实现
// 用于测试，不需要真实的 host agent
type MockClient struct {
	mock.Mock
}

// NewMockClient 创建新的 MockClient
func NewMockClient() *MockClient {
	return &MockClient{}
}

// Spawn 实现 Client 接口
func (m *MockClient) Spawn(ctx context.Context, nodeIP string, req *SpawnRequest) (*SpawnResponse, error) {
	args := m.Called(ctx, nodeIP, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*SpawnResponse), args.Error(1)
}

// Start 实现 Client 接口
func (m *MockClient) Start(ctx context.Context, nodeIP, serverID string) error {
	args := m.Called(ctx, nodeIP, serverID)
	return args.Error(0)
}

// Stop 实现 Client 接口
func (m *MockClient) Stop(ctx context.Context, nodeIP, serverID string) error {
	args := m.Called(ctx, nodeIP, serverID)
	return args.Error(0)
}

// Restart 实现 Client 接口
func (m *MockClient) Restart(ctx context.Context, nodeIP, serverID string) error {
	args := m.Called(ctx, nodeIP, serverID)
	return args.Error(0)
}

// Remove 实现 Client 接口
func (m *MockClient) Remove(ctx context.Context, nodeIP, serverID string) error {
	args := m.Called(ctx, nodeIP, serverID)
	return args.Error(0)
}

// Status 实现 Client 接口
func (m *MockClient) Status(ctx context.Context, nodeIP, serverID string) (WorkloadStatus, error) {
	args := m.Called(ctx, nodeIP, serverID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(WorkloadStatus), args.Error(1)
}

// UpdateConfig 实现 Client 接口
func (m *MockClient) UpdateConfig(ctx context.Context, nodeIP, serverID string, config map[string]any) error {
	args := m.Called(ctx, nodeIP, serverID, config)
	return args.Error(0)
}

// ConfigureTunnelClient 实现 Client 接口
func (m *MockClient) ConfigureTunnelClient(ctx context.Context, nodeIP, serverID, clientConfig string) error {
	args := m.Called(ctx, nodeIP, serverID, clientConfig)
	return args.Error(0)
}

// StopTunnelClient 实现 Client 接口
func (m *MockClient) StopTunnelClient(ctx context.Context, nodeIP, serverID string) error {
	args := m.Called(ctx, nodeIP, serverID)
	return args.Error(0)
}
