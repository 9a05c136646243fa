package repository

import (
	"context"

	"github.com/forgehost/orchestrator/internal/orchestrator/repository/model"
	"gorm.io/gorm"
)

// GameServerRepository 游戏服务器仓库接口
type GameServerRepository interface {
	Create(ctx context.Context, server *model.GameServer) error
	GetByServerID(ctx context.Context, serverID string) (*model.GameServer, error)
	ListByUserID(ctx context.Context, userID string) ([]*model.GameServer, error)
	ListByNodeID(ctx context.Context, nodeID string) ([]*model.GameServer, error)
	CountByNodeID(ctx context.Context, nodeID string) (int64, error)
	Update(ctx context.Context, server *model.GameServer) error
	Delete(ctx context.Context, serverID string) error
}

type gameServerRepository struct {
	db *gorm.DB
}

// NewGameServerRepository 创建游戏服务器仓库
func NewGameServerRepository(db *gorm.DB) GameServerRepository {
	return &gameServerRepository{db: db}
}

// Create 创建服务器记录
func (r *gameServerRepository) Create(ctx context.Context, server *model.GameServer) error {
	return r.db.WithContext(ctx).Create(server).Error
}

// GetByServerID 根据服务器 ID 获取记录
func (r *gameServerRepository) GetByServerID(ctx context.Context, serverID string) (*model.GameServer, error) {
	var server model.GameServer
	if err := r.db.WithContext(ctx).Where("server_id = ?", serverID).First(&server).Error; err != nil {
		return nil, err
	}
	return &server, nil
}

// ListByUserID 列出某个用户的所有服务器
func (r *gameServerRepository) ListByUserID(ctx context.Context, userID string) ([]*model.GameServer, error) {
	var servers []*model.GameServer
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).Order("created_at").Find(&servers).Error; err != nil {
		return nil, err
	}
	return servers, nil
}

// ListByNodeID 列出某个节点上的所有服务器
func (r *gameServerRepository) ListByNodeID(ctx context.Context, nodeID string) ([]*model.GameServer, error) {
	var servers []*model.GameServer
	if err := r.db.WithContext(ctx).Where("node_id = ?", nodeID).Order("created_at").Find(&servers).Error; err != nil {
		return nil, err
	}
	return servers, nil
}

// CountByNodeID 统计某个节点上的服务器数量
// 调度决策每次都现算，不使用缓存的计数
func (r *gameServerRepository) CountByNodeID(ctx context.Context, nodeID string) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&model.GameServer{}).Where("node_id = ?", nodeID).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// Delete 删除服务器记录（硬删除）
func (r *gameServerRepository) Delete(ctx context.Context, serverID string) error {
	return r.db.WithContext(ctx).Delete(&model.GameServer{}, "server_id = ?", serverID).Error
}

// Update 更新服务器记录
func (r *gameServerRepository) Update(ctx context.Context, server *model.GameServer) error {
	return r.db.WithContext(ctx).Save(server).Error
}
