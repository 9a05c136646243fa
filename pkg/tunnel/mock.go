package tunnel

import (
	"context"

	"github.com/stretchr/testify/mock"
)

// MockManager 是 Manager 的 mock 实现
// 用于测试，不需要真实的隧道管理器
type MockManager struct {
	mock.Mock
}

// NewMockManager 创建新的 MockManager
func NewMockManager() *MockManager {
	return &MockManager{}
}

// CreateInstance 实现 Manager 接口
func (m *MockManager) CreateInstance(ctx context.Context, serverID string, gamePort, beaconPort int) (InstanceInfo, error) {
	args := m.Called(ctx, serverID, gamePort, beaconPort)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(InstanceInfo), args.Error(1)
}

// RemoveInstance 实现 Manager 接口
func (m *MockManager) RemoveInstance(ctx context.Context, serverID string) error {
	args := m.Called(ctx, serverID)
	return args.Error(0)
}

// GetClientConfig 实现 Manager 接口
func (m *MockManager) GetClientConfig(ctx context.Context, serverID, hostIP string) (string, error) {
	args := m.Called(ctx, serverID, hostIP)
	return args.String(0), args.Error(1)
}

// ListInstances 实现 Manager 接口
func (m *MockManager) ListInstances(ctx context.Context) ([]InstanceInfo, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]InstanceInfo), args.Error(1)
}
