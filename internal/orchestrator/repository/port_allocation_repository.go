package repository

import (
	"context"
	"time"

	"github.com/forgehost/orchestrator/internal/orchestrator/repository/model"
	"gorm.io/gorm"
)

// PortAllocationRepository 端口分配仓库接口
type PortAllocationRepository interface {
	Create(ctx context.Context, alloc *model.PortAllocation) error
	GetActiveByServerID(ctx context.Context, serverID string) (*model.PortAllocation, error)
	ListActiveByNodeID(ctx context.Context, nodeID string) ([]*model.PortAllocation, error)
	Release(ctx context.Context, serverID string) error
}

type portAllocationRepository struct {
	db *gorm.DB
}

// NewPortAllocationRepository 创建端口分配仓库
func NewPortAllocationRepository(db *gorm.DB) PortAllocationRepository {
	return &portAllocationRepository{db: db}
}

// Create 创建分配记录
func (r *portAllocationRepository) Create(ctx context.Context, alloc *model.PortAllocation) error {
	return r.db.WithContext(ctx).Create(alloc).Error
}

// GetActiveByServerID 获取某个服务器的有效分配
func (r *portAllocationRepository) GetActiveByServerID(ctx context.Context, serverID string) (*model.PortAllocation, error) {
	var alloc model.PortAllocation
	if err := r.db.WithContext(ctx).
		Where("server_id = ? AND released_at IS NULL", serverID).
		First(&alloc).Error; err != nil {
		return nil, err
	}
	return &alloc, nil
}

// ListActiveByNodeID 列出某个节点上所有有效的分配
func (r *portAllocationRepository) ListActiveByNodeID(ctx context.Context, nodeID string) ([]*model.PortAllocation, error) {
	var allocs []*model.PortAllocation
	if err := r.db.WithContext(ctx).
		Where("node_id = ? AND released_at IS NULL", nodeID).
		Find(&allocs).Error; err != nil {
		return nil, err
	}
	return allocs, nil
}

// Release 释放某个服务器的分配
// 幂等：没有有效分配时也不报错
func (r *portAllocationRepository) Release(ctx context.Context, serverID string) error {
	now := time.Now()
	return r.db.WithContext(ctx).
		Model(&model.PortAllocation{}).
		Where("server_id = ? AND released_at IS NULL", serverID).
		Update("released_at", &now).Error
}
