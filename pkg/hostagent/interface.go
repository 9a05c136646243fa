package hostagent

import "context"

// SpawnRequest 在节点上拉起新工作负载的请求
type SpawnRequest struct {
	ServerID       string            `json:"serverId"`
	ServerName     string            `json:"serverName"`
	GamePort       int               `json:"gamePort"`
	BeaconPort     int               `json:"beaconPort"`
	RAMAllocation  int               `json:"ramAllocation"`
	CPUAllocation  float64           `json:"cpuAllocation"`
	MaxPlayers     int               `json:"maxPlayers"`
	ServerPassword string            `json:"serverPassword,omitempty"`
	EnvVars        map[string]string `json:"environmentVariables,omitempty"`
}

// SpawnResponse 拉起工作负载的响应
type SpawnResponse struct {
	ContainerID string `json:"containerId"`
}

// WorkloadStatus agent 返回的工作负载实时状态
// 字段由 agent 决定，编排器原样透传给调用方
type WorkloadStatus map[string]any

// Client host agent 客户端接口
// 所有操作都可能独立失败，调用方必须逐个处理错误
// agent 侧的操作尽量幂等：对已达目标状态的工作负载重复调用是安全的
type Client interface {
	// Spawn 在节点上创建并启动工作负载
	Spawn(ctx context.Context, nodeIP string, req *SpawnRequest) (*SpawnResponse, error)
	// Start 启动已存在的工作负载
	Start(ctx context.Context, nodeIP, serverID string) error
	// Stop 停止工作负载
	Stop(ctx context.Context, nodeIP, serverID string) error
	// Restart 重启工作负载（agent 侧单次调用，不是 stop+start）
	Restart(ctx context.Context, nodeIP, serverID string) error
	// Remove 删除工作负载及其本地数据
	Remove(ctx context.Context, nodeIP, serverID string) error
	// Status 获取工作负载实时状态
	Status(ctx context.Context, nodeIP, serverID string) (WorkloadStatus, error)
	// UpdateConfig 向运行中的工作负载推送配置变更
	UpdateConfig(ctx context.Context, nodeIP, serverID string, config map[string]any) error
	// ConfigureTunnelClient 下发隧道客户端配置并启动隧道客户端
	ConfigureTunnelClient(ctx context.Context, nodeIP, serverID, clientConfig string) error
	// StopTunnelClient 停止该服务器的隧道客户端
	StopTunnelClient(ctx context.Context, nodeIP, serverID string) error
}
