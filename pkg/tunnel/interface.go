package tunnel

import "context"

// InstanceInfo 隧道实例信息
// 具体字段由隧道管理器决定，编排器原样透传
type InstanceInfo map[string]any

// Manager 隧道实例管理器客户端接口
// 每台运行中的服务器恰好对应一个隧道实例
// 管理器侧操作幂等：对已存在/已删除的实例重复调用是安全的
type Manager interface {
	// CreateInstance 为服务器创建隧道实例
	CreateInstance(ctx context.Context, serverID string, gamePort, beaconPort int) (InstanceInfo, error)
	// RemoveInstance 删除服务器的隧道实例
	RemoveInstance(ctx context.Context, serverID string) error
	// GetClientConfig 获取需要下发到节点侧的隧道客户端配置
	GetClientConfig(ctx context.Context, serverID, hostIP string) (string, error)
	// ListInstances 列举所有隧道实例
	ListInstances(ctx context.Context) ([]InstanceInfo, error)
}
