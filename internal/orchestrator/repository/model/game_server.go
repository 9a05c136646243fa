package model

import "time"

// GameServer 游戏服务器表
// 删除是硬删除：清理流程完成后整行移除
type GameServer struct {
	ServerID       string     `gorm:"column:server_id;primaryKey"`
	UserID         string     `gorm:"column:user_id;index"`
	ServerName     string     `gorm:"column:server_name"`
	NodeID         string     `gorm:"column:node_id;index"`
	GamePort       int        `gorm:"column:game_port"`
	BeaconPort     int        `gorm:"column:beacon_port"`
	RAMAllocation  int        `gorm:"column:ram_allocation"`
	CPUAllocation  float64    `gorm:"column:cpu_allocation"`
	MaxPlayers     int        `gorm:"column:max_players"`
	ServerPassword string     `gorm:"column:server_password"`
	ContainerID    string     `gorm:"column:container_id"`
	Status         string     `gorm:"column:status;index"`
	CreatedAt      time.Time  `gorm:"column:created_at"`
	UpdatedAt      time.Time  `gorm:"column:updated_at"`
	StartedAt      *time.Time `gorm:"column:started_at"`
	LastSeen       *time.Time `gorm:"column:last_seen"`
}

// TableName 表名
func (GameServer) TableName() string {
	return "game_servers"
}
