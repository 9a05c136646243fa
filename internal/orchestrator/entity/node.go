package entity

import "time"

// NodeStatus 节点状态
type NodeStatus string

const (
	NodeStatusOnline  NodeStatus = "online"  // 在线
	NodeStatusOffline NodeStatus = "offline" // 离线
)

// Node 工作节点信息
// 一个节点只在 status = online 且 currentServers < maxServers 时接受新的服务器
type Node struct {
	NodeID            string     `json:"node_id"`
	Hostname          string     `json:"hostname"`
	IPAddress         string     `json:"ip_address"`
	MaxServers        int        `json:"max_servers"`
	CurrentServers    int        `json:"current_servers"`
	CPUUsage          float64    `json:"cpu_usage"`
	MemoryUsage       float64    `json:"memory_usage"`
	DiskUsage         float64    `json:"disk_usage"`
	NextAvailablePort int        `json:"next_available_port"`
	Status            NodeStatus `json:"status"`
	CreatedAt         time.Time  `json:"created_at"`
	LastHeartbeat     time.Time  `json:"last_heartbeat"`
}

// HasCapacity 判断节点是否还能接受新的服务器
func (n *Node) HasCapacity() bool {
	return n.Status == NodeStatusOnline && n.CurrentServers < n.MaxServers
}
