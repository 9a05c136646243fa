package service

import (
	"context"
	"errors"
	"time"

	"github.com/forgehost/orchestrator/internal/orchestrator/entity"
	"github.com/forgehost/orchestrator/internal/orchestrator/repository"
	"github.com/forgehost/orchestrator/internal/orchestrator/repository/model"
	"github.com/forgehost/orchestrator/pkg/apierror"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

// NodeService 节点注册与健康管理服务
type NodeService struct {
	nodeRepo   repository.NodeRepository
	serverRepo repository.GameServerRepository
}

// NewNodeService 创建节点服务
func NewNodeService(nodeRepo repository.NodeRepository, serverRepo repository.GameServerRepository) *NodeService {
	return &NodeService{
		nodeRepo:   nodeRepo,
		serverRepo: serverRepo,
	}
}

// RegisterNode 注册节点（幂等 upsert）
// 已存在的节点只更新 hostname / IP / 容量，不重置 status 和 lastHeartbeat
func (s *NodeService) RegisterNode(ctx context.Context, nodeID, hostname, ipAddress string, maxServers int, portRangeStart int) (*entity.Node, error) {
	logger := zerolog.Ctx(ctx)

	node, err := s.nodeRepo.GetByNodeID(ctx, nodeID)
	switch {
	case err == nil:
		node.Hostname = hostname
		node.IPAddress = ipAddress
		node.MaxServers = maxServers
		if err := s.nodeRepo.Update(ctx, node); err != nil {
			return nil, apierror.WrapError(apierror.ErrInternalError, err)
		}
		logger.Info().Str("node_id", nodeID).Msg("node re-registered")
	case errors.Is(err, gorm.ErrRecordNotFound):
		now := time.Now()
		node = &model.Node{
			NodeID:            nodeID,
			Hostname:          hostname,
			IPAddress:         ipAddress,
			MaxServers:        maxServers,
			NextAvailablePort: portRangeStart,
			Status:            string(entity.NodeStatusOnline),
			CreatedAt:         now,
			LastHeartbeat:     now,
		}
		if err := s.nodeRepo.Create(ctx, node); err != nil {
			return nil, apierror.WrapError(apierror.ErrInternalError, err)
		}
		logger.Info().Str("node_id", nodeID).Str("ip", ipAddress).Int("max_servers", maxServers).Msg("node registered")
	default:
		return nil, apierror.WrapError(apierror.ErrInternalError, err)
	}

	return s.toEntity(ctx, node)
}

// RecordHeartbeat 记录节点心跳
// 心跳把节点拉回 online 状态
func (s *NodeService) RecordHeartbeat(ctx context.Context, nodeID string) error {
	node, err := s.getNode(ctx, nodeID)
	if err != nil {
		return err
	}

	node.Status = string(entity.NodeStatusOnline)
	node.LastHeartbeat = time.Now()
	if err := s.nodeRepo.Update(ctx, node); err != nil {
		return apierror.WrapError(apierror.ErrInternalError, err)
	}
	return nil
}

// UpdateNodeStats 更新节点资源用量
// 上报本身视为一次心跳
func (s *NodeService) UpdateNodeStats(ctx context.Context, nodeID string, cpuUsage, memoryUsage, diskUsage float64) error {
	node, err := s.getNode(ctx, nodeID)
	if err != nil {
		return err
	}

	node.CPUUsage = cpuUsage
	node.MemoryUsage = memoryUsage
	node.DiskUsage = diskUsage
	node.Status = string(entity.NodeStatusOnline)
	node.LastHeartbeat = time.Now()
	if err := s.nodeRepo.Update(ctx, node); err != nil {
		return apierror.WrapError(apierror.ErrInternalError, err)
	}
	return nil
}

// MarkOffline 标记节点离线
func (s *NodeService) MarkOffline(ctx context.Context, nodeID string) error {
	node, err := s.getNode(ctx, nodeID)
	if err != nil {
		return err
	}

	node.Status = string(entity.NodeStatusOffline)
	if err := s.nodeRepo.Update(ctx, node); err != nil {
		return apierror.WrapError(apierror.ErrInternalError, err)
	}

	zerolog.Ctx(ctx).Warn().Str("node_id", nodeID).Msg("node marked offline")
	return nil
}

// ListNodes 列出所有节点
func (s *NodeService) ListNodes(ctx context.Context) ([]*entity.Node, error) {
	nodes, err := s.nodeRepo.List(ctx)
	if err != nil {
		return nil, apierror.WrapError(apierror.ErrInternalError, err)
	}
	return s.toEntities(ctx, nodes)
}

// ListOnlineNodes 列出所有在线节点
func (s *NodeService) ListOnlineNodes(ctx context.Context) ([]*entity.Node, error) {
	nodes, err := s.nodeRepo.ListByStatus(ctx, string(entity.NodeStatusOnline))
	if err != nil {
		return nil, apierror.WrapError(apierror.ErrInternalError, err)
	}
	return s.toEntities(ctx, nodes)
}

// DeleteNode 删除节点
// 节点上还有服务器时拒绝删除
func (s *NodeService) DeleteNode(ctx context.Context, nodeID string) error {
	if _, err := s.getNode(ctx, nodeID); err != nil {
		return err
	}

	count, err := s.serverRepo.CountByNodeID(ctx, nodeID)
	if err != nil {
		return apierror.WrapError(apierror.ErrInternalError, err)
	}
	if count > 0 {
		return apierror.WrapError(apierror.ErrConflict,
			errors.New("node still has game servers assigned"))
	}

	if err := s.nodeRepo.Delete(ctx, nodeID); err != nil {
		return apierror.WrapError(apierror.ErrInternalError, err)
	}

	zerolog.Ctx(ctx).Info().Str("node_id", nodeID).Msg("node deleted")
	return nil
}

// CheckNodeHealth 把心跳超时的在线节点标记为离线
// 返回本轮被标记离线的节点 ID
func (s *NodeService) CheckNodeHealth(ctx context.Context, timeout time.Duration) ([]string, error) {
	nodes, err := s.nodeRepo.ListByStatus(ctx, string(entity.NodeStatusOnline))
	if err != nil {
		return nil, apierror.WrapError(apierror.ErrInternalError, err)
	}

	cutoff := time.Now().Add(-timeout)
	var evicted []string
	for _, node := range nodes {
		if node.LastHeartbeat.Before(cutoff) {
			if err := s.MarkOffline(ctx, node.NodeID); err != nil {
				zerolog.Ctx(ctx).Error().Err(err).Str("node_id", node.NodeID).Msg("mark node offline failed")
				continue
			}
			evicted = append(evicted, node.NodeID)
		}
	}
	return evicted, nil
}

func (s *NodeService) getNode(ctx context.Context, nodeID string) (*model.Node, error) {
	node, err := s.nodeRepo.GetByNodeID(ctx, nodeID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apierror.ErrNodeNotFound
		}
		return nil, apierror.WrapError(apierror.ErrInternalError, err)
	}
	return node, nil
}

func (s *NodeService) toEntity(ctx context.Context, node *model.Node) (*entity.Node, error) {
	count, err := s.serverRepo.CountByNodeID(ctx, node.NodeID)
	if err != nil {
		return nil, apierror.WrapError(apierror.ErrInternalError, err)
	}
	e, err := nodeModelToEntity(node, int(count))
	if err != nil {
		return nil, apierror.WrapError(apierror.ErrInternalError, err)
	}
	return e, nil
}

func (s *NodeService) toEntities(ctx context.Context, nodes []*model.Node) ([]*entity.Node, error) {
	result := make([]*entity.Node, 0, len(nodes))
	for _, node := range nodes {
		e, err := s.toEntity(ctx, node)
		if err != nil {
			return nil, err
		}
		result = append(result, e)
	}
	return result, nil
}
