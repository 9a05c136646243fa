package model

import "time"

// Node 节点表
// current_servers 不落库，读取时从 game_servers 表统计
type Node struct {
	NodeID            string    `gorm:"column:node_id;primaryKey"`
	Hostname          string    `gorm:"column:hostname"`
	IPAddress         string    `gorm:"column:ip_address"`
	MaxServers        int       `gorm:"column:max_servers"`
	CPUUsage          float64   `gorm:"column:cpu_usage"`
	MemoryUsage       float64   `gorm:"column:memory_usage"`
	DiskUsage         float64   `gorm:"column:disk_usage"`
	NextAvailablePort int       `gorm:"column:next_available_port"`
	Status            string    `gorm:"column:status;index"`
	CreatedAt         time.Time `gorm:"column:created_at"`
	UpdatedAt         time.Time `gorm:"column:updated_at"`
	LastHeartbeat     time.Time `gorm:"column:last_heartbeat"`
}

// TableName 表名
func (Node) TableName() string {
	return "nodes"
}
