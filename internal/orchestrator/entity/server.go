package entity

import (
	"time"

	"github.com/forgehost/orchestrator/pkg/hostagent"
)

// ServerStatus 游戏服务器生命周期状态
// 状态只能由 Provisioning 状态机驱动，其他组件不得直接写入
type ServerStatus string

const (
	StatusProvisioning ServerStatus = "provisioning" // 已接受开通请求，端口未必分配完成
	StatusStarting     ServerStatus = "starting"     // 工作负载正在拉起
	StatusRunning      ServerStatus = "running"      // 运行中
	StatusStopping     ServerStatus = "stopping"     // 停止中
	StatusStopped      ServerStatus = "stopped"      // 已停止
	StatusRestarting   ServerStatus = "restarting"   // 重启中，不经过 stopped
	StatusDeleting     ServerStatus = "deleting"     // 删除进行中，清理完成后记录被移除
	StatusError        ServerStatus = "error"        // 远程调用失败，等待运维重试或删除
)

// GameServer 游戏服务器记录
type GameServer struct {
	ServerID      string       `json:"server_id"`
	UserID        string       `json:"user_id"`
	ServerName    string       `json:"server_name"`
	NodeID        string       `json:"node_id"` // 开通时指定，之后不可变更
	GamePort      int          `json:"game_port"`
	BeaconPort    int          `json:"beacon_port"`
	RAMAllocation int          `json:"ram_allocation"`
	CPUAllocation float64      `json:"cpu_allocation"`
	MaxPlayers    int          `json:"max_players"`
	ContainerID   string       `json:"container_id,omitempty"`
	Status        ServerStatus `json:"status"`
	CreatedAt     time.Time    `json:"created_at"`
	StartedAt     *time.Time   `json:"started_at,omitempty"`
	LastSeen      *time.Time   `json:"last_seen,omitempty"`
}

// ProvisionRequest 开通新服务器的请求
type ProvisionRequest struct {
	UserID          string  `json:"user_id"`
	ServerName      string  `json:"server_name"`
	RAMAllocation   int     `json:"ram_allocation"`
	CPUAllocation   float64 `json:"cpu_allocation"`
	MaxPlayers      int     `json:"max_players"`
	ServerPassword  string  `json:"server_password,omitempty"`
	PreferredNodeID string  `json:"preferred_node_id,omitempty"`
}

// UpdateServerConfigRequest 更新服务器配置的请求
// nil 字段表示不修改
type UpdateServerConfigRequest struct {
	ServerName     *string `json:"server_name,omitempty"`
	MaxPlayers     *int    `json:"max_players,omitempty"`
	ServerPassword *string `json:"server_password,omitempty"`
}

// ServerStatusView getStatus 返回的状态视图
// Live 是 host agent 返回的实时状态，获取失败时 StatsError 说明原因
type ServerStatusView struct {
	ServerID      string                   `json:"server_id"`
	Status        ServerStatus             `json:"status"`
	GamePort      int                      `json:"game_port"`
	BeaconPort    int                      `json:"beacon_port"`
	NodeID        string                   `json:"node_id"`
	RAMAllocation int                      `json:"ram_allocation"`
	CPUAllocation float64                  `json:"cpu_allocation"`
	MaxPlayers    int                      `json:"max_players"`
	StartedAt     *time.Time               `json:"started_at,omitempty"`
	Live          hostagent.WorkloadStatus `json:"live,omitempty"`
	StatsError    string                   `json:"stats_error,omitempty"`
}
