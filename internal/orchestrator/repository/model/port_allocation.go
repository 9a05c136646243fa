package model

import "time"

// PortAllocation 端口分配表
// 一个服务器一行，同时记录 game 端口和 beacon 端口
// released_at 为 NULL 时表示分配仍然有效
type PortAllocation struct {
	ID          uint       `gorm:"column:id;primaryKey;autoIncrement"`
	NodeID      string     `gorm:"column:node_id;index"`
	ServerID    string     `gorm:"column:server_id;index"`
	GamePort    int        `gorm:"column:game_port"`
	BeaconPort  int        `gorm:"column:beacon_port"`
	AllocatedAt time.Time  `gorm:"column:allocated_at"`
	ReleasedAt  *time.Time `gorm:"column:released_at"`
}

// TableName 表名
func (PortAllocation) TableName() string {
	return "port_allocations"
}
