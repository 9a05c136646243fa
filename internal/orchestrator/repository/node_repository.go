package repository

import (
	"context"

	"github.com/forgehost/orchestrator/internal/orchestrator/repository/model"
	"gorm.io/gorm"
)

// NodeRepository 节点仓库接口
type NodeRepository interface {
	Create(ctx context.Context, node *model.Node) error
	GetByNodeID(ctx context.Context, nodeID string) (*model.Node, error)
	List(ctx context.Context) ([]*model.Node, error)
	ListByStatus(ctx context.Context, status string) ([]*model.Node, error)
	Update(ctx context.Context, node *model.Node) error
	Delete(ctx context.Context, nodeID string) error
}

type nodeRepository struct {
	db *gorm.DB
}

// NewNodeRepository 创建节点仓库
func NewNodeRepository(db *gorm.DB) NodeRepository {
	return &nodeRepository{db: db}
}

// Create 创建节点
func (r *nodeRepository) Create(ctx context.Context, node *model.Node) error {
	return r.db.WithContext(ctx).Create(node).Error
}

// GetByNodeID 根据节点 ID 获取节点
func (r *nodeRepository) GetByNodeID(ctx context.Context, nodeID string) (*model.Node, error) {
	var node model.Node
	if err := r.db.WithContext(ctx).Where("node_id = ?", nodeID).First(&node).Error; err != nil {
		return nil, err
	}
	return &node, nil
}

// List 列出所有节点
func (r *nodeRepository) List(ctx context.Context) ([]*model.Node, error) {
	var nodes []*model.Node
	if err := r.db.WithContext(ctx).Order("node_id").Find(&nodes).Error; err != nil {
		return nil, err
	}
	return nodes, nil
}

// ListByStatus 按状态列出节点
func (r *nodeRepository) ListByStatus(ctx context.Context, status string) ([]*model.Node, error) {
	var nodes []*model.Node
	if err := r.db.WithContext(ctx).Where("status = ?", status).Order("node_id").Find(&nodes).Error; err != nil {
		return nil, err
	}
	return nodes, nil
}

// Update 更新节点
func (r *nodeRepository) Update(ctx context.Context, node *model.Node) error {
	return r.db.WithContext(ctx).Save(node).Error
}

// Delete 删除节点
func (r *nodeRepository) Delete(ctx context.Context, nodeID string) error {
	return r.db.WithContext(ctx).Delete(&model.Node{}, "node_id = ?", nodeID).Error
}
