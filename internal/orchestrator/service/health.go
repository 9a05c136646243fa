package service

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// NodeHealthMonitor 节点心跳检查循环
// 作为独立服务随进程启停
type NodeHealthMonitor struct {
	nodes    *NodeService
	interval time.Duration
	timeout  time.Duration
}

// NewNodeHealthMonitor 创建心跳检查循环
func NewNodeHealthMonitor(nodes *NodeService, interval, timeout time.Duration) *NodeHealthMonitor {
	return &NodeHealthMonitor{
		nodes:    nodes,
		interval: interval,
		timeout:  timeout,
	}
}

// Run 周期性检查心跳，直到 ctx 被取消
func (m *NodeHealthMonitor) Run(ctx context.Context) error {
	logger := zerolog.Ctx(ctx)
	logger.Info().
		Dur("interval", m.interval).
		Dur("timeout", m.timeout).
		Msg("node health monitor started")

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info().Msg("node health monitor stopped")
			return nil
		case <-ticker.C:
			evicted, err := m.nodes.CheckNodeHealth(ctx, m.timeout)
			if err != nil {
				logger.Error().Err(err).Msg("node health check failed")
				continue
			}
			if len(evicted) > 0 {
				logger.Warn().Strs("node_ids", evicted).Msg("nodes evicted for missed heartbeats")
			}
		}
	}
}

// Shutdown 实现优雅停机接口
// Run 随 ctx 取消自行退出，这里没有额外工作
func (m *NodeHealthMonitor) Shutdown(ctx context.Context) error {
	return nil
}

// Name 服务名
func (m *NodeHealthMonitor) Name() string {
	return "Node Health Monitor"
}
