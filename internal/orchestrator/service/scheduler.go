package service

import (
	"context"
	"errors"

	"github.com/forgehost/orchestrator/internal/orchestrator/entity"
	"github.com/forgehost/orchestrator/internal/orchestrator/repository"
	"github.com/forgehost/orchestrator/internal/orchestrator/repository/model"
	"github.com/forgehost/orchestrator/pkg/apierror"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

// SchedulerService 节点调度服务
// 负载以槽位占用率为主，CPU 用量只做同分时的次级排序
type SchedulerService struct {
	nodeRepo   repository.NodeRepository
	serverRepo repository.GameServerRepository
}

// NewSchedulerService 创建调度服务
func NewSchedulerService(nodeRepo repository.NodeRepository, serverRepo repository.GameServerRepository) *SchedulerService {
	return &SchedulerService{
		nodeRepo:   nodeRepo,
		serverRepo: serverRepo,
	}
}

// candidate 调度候选
type candidate struct {
	node         *model.Node
	slotFraction float64
}

// ChooseBestNode 选出负载最低的可用节点
// 没有任何节点可用时返回 (nil, nil)，由调用方决定错误语义
func (s *SchedulerService) ChooseBestNode(ctx context.Context) (*model.Node, error) {
	nodes, err := s.nodeRepo.ListByStatus(ctx, string(entity.NodeStatusOnline))
	if err != nil {
		return nil, apierror.WrapError(apierror.ErrInternalError, err)
	}

	var best *candidate
	for _, node := range nodes {
		if node.MaxServers <= 0 {
			continue
		}

		// 占用数每次现算，不使用缓存的计数
		count, err := s.serverRepo.CountByNodeID(ctx, node.NodeID)
		if err != nil {
			return nil, apierror.WrapError(apierror.ErrInternalError, err)
		}
		if int(count) >= node.MaxServers {
			continue
		}

		c := &candidate{
			node:         node,
			slotFraction: float64(count) / float64(node.MaxServers),
		}
		if best == nil || c.less(best) {
			best = c
		}
	}

	if best == nil {
		return nil, nil
	}

	zerolog.Ctx(ctx).Debug().
		Str("node_id", best.node.NodeID).
		Float64("slot_fraction", best.slotFraction).
		Msg("scheduler picked node")
	return best.node, nil
}

// ChooseSpecificNode 校验指定节点是否可用
// 节点不存在、离线或已满时返回 (nil, nil)
func (s *SchedulerService) ChooseSpecificNode(ctx context.Context, nodeID string) (*model.Node, error) {
	node, err := s.nodeRepo.GetByNodeID(ctx, nodeID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, apierror.WrapError(apierror.ErrInternalError, err)
	}

	if node.Status != string(entity.NodeStatusOnline) {
		return nil, nil
	}

	count, err := s.serverRepo.CountByNodeID(ctx, nodeID)
	if err != nil {
		return nil, apierror.WrapError(apierror.ErrInternalError, err)
	}
	if int(count) >= node.MaxServers {
		return nil, nil
	}

	return node, nil
}

// less 判断 c 是否优于 other
func (c *candidate) less(other *candidate) bool {
	if c.slotFraction != other.slotFraction {
		return c.slotFraction < other.slotFraction
	}
	if c.node.CPUUsage != other.node.CPUUsage {
		return c.node.CPUUsage < other.node.CPUUsage
	}
	// 最终用 node_id 保证排序稳定
	return c.node.NodeID < other.node.NodeID
}
