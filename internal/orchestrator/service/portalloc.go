package service

import (
	"context"
	"sync"
	"time"

	"github.com/forgehost/orchestrator/internal/orchestrator/repository"
	"github.com/forgehost/orchestrator/internal/orchestrator/repository/model"
	"github.com/forgehost/orchestrator/pkg/apierror"
	"github.com/rs/zerolog"
)

// PortAllocationService 端口分配服务
// 每个服务器占用一对相邻端口：game 端口 p 和 beacon 端口 p+1
// 分配游标由本服务独占推进，节点注册之后其他组件不得写 next_available_port
type PortAllocationService struct {
	allocRepo  repository.PortAllocationRepository
	nodeRepo   repository.NodeRepository
	rangeStart int
	rangeEnd   int

	// 每个节点一把锁，锁内完成扫描、落库和游标推进
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// PortAllocationResult 一次分配的结果
// Success 为 false 表示端口耗尽，此时不产生任何写入
type PortAllocationResult struct {
	GamePort   int
	BeaconPort int
	Success    bool
}

// NewPortAllocationService 创建端口分配服务
func NewPortAllocationService(allocRepo repository.PortAllocationRepository, nodeRepo repository.NodeRepository, rangeStart, rangeEnd int) *PortAllocationService {
	return &PortAllocationService{
		allocRepo:  allocRepo,
		nodeRepo:   nodeRepo,
		rangeStart: rangeStart,
		rangeEnd:   rangeEnd,
		locks:      make(map[string]*sync.Mutex),
	}
}

// AllocatePorts 在指定节点上为服务器分配一对相邻端口
// 从游标位置开始扫描，到区间末尾后从区间起点回绕一次
func (s *PortAllocationService) AllocatePorts(ctx context.Context, node *model.Node, serverID string) (*PortAllocationResult, error) {
	lock := s.nodeLock(node.NodeID)
	lock.Lock()
	defer lock.Unlock()

	active, err := s.allocRepo.ListActiveByNodeID(ctx, node.NodeID)
	if err != nil {
		return nil, apierror.WrapError(apierror.ErrInternalError, err)
	}

	used := make(map[int]bool, len(active)*2)
	for _, a := range active {
		used[a.GamePort] = true
		used[a.BeaconPort] = true
	}

	cursor := node.NextAvailablePort
	if cursor < s.rangeStart {
		cursor = s.rangeStart
	}

	gamePort := scanPair(used, cursor, s.rangeEnd)
	if gamePort == 0 && cursor > s.rangeStart {
		// 回绕一次，从区间起点重新扫
		gamePort = scanPair(used, s.rangeStart, s.rangeEnd)
	}
	if gamePort == 0 {
		zerolog.Ctx(ctx).Warn().
			Str("node_id", node.NodeID).
			Int("range_start", s.rangeStart).
			Int("range_end", s.rangeEnd).
			Msg("port range exhausted")
		return &PortAllocationResult{Success: false}, nil
	}

	alloc := &model.PortAllocation{
		NodeID:      node.NodeID,
		ServerID:    serverID,
		GamePort:    gamePort,
		BeaconPort:  gamePort + 1,
		AllocatedAt: time.Now(),
	}
	if err := s.allocRepo.Create(ctx, alloc); err != nil {
		// 唯一索引兜底：并发分配撞到同一端口时在这里失败
		return nil, apierror.WrapError(apierror.ErrInternalError, err)
	}

	// 游标推进到已分配端口对之后
	node.NextAvailablePort = gamePort + 2
	if err := s.nodeRepo.Update(ctx, node); err != nil {
		return nil, apierror.WrapError(apierror.ErrInternalError, err)
	}

	zerolog.Ctx(ctx).Info().
		Str("node_id", node.NodeID).
		Str("server_id", serverID).
		Int("game_port", gamePort).
		Int("beacon_port", gamePort+1).
		Msg("ports allocated")

	return &PortAllocationResult{
		GamePort:   gamePort,
		BeaconPort: gamePort + 1,
		Success:    true,
	}, nil
}

// ReleasePorts 释放某个服务器的端口分配
// 幂等：没有有效分配时也返回成功
func (s *PortAllocationService) ReleasePorts(ctx context.Context, serverID string) error {
	if err := s.allocRepo.Release(ctx, serverID); err != nil {
		return apierror.WrapError(apierror.ErrInternalError, err)
	}
	zerolog.Ctx(ctx).Info().Str("server_id", serverID).Msg("ports released")
	return nil
}

// GetAllocation 查询某个服务器的有效分配
func (s *PortAllocationService) GetAllocation(ctx context.Context, serverID string) (*model.PortAllocation, error) {
	alloc, err := s.allocRepo.GetActiveByServerID(ctx, serverID)
	if err != nil {
		return nil, apierror.WrapError(apierror.ErrInternalError, err)
	}
	return alloc, nil
}

// scanPair 从 from 开始找第一个 p，使 p 和 p+1 都未被占用
// 找不到返回 0
func scanPair(used map[int]bool, from, rangeEnd int) int {
	for p := from; p+1 <= rangeEnd; p++ {
		if !used[p] && !used[p+1] {
			return p
		}
	}
	return 0
}

func (s *PortAllocationService) nodeLock(nodeID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	lock, ok := s.locks[nodeID]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[nodeID] = lock
	}
	return lock
}
