package service

import (
	"fmt"

	"github.com/forgehost/orchestrator/internal/orchestrator/entity"
	"github.com/forgehost/orchestrator/pkg/apierror"
)

// Event 生命周期事件
// 所有状态变更都必须通过 Transition 应用，非法的 (状态, 事件) 组合被拒绝
type Event string

const (
	EventSpawnSucceeded   Event = "spawn_succeeded"   // 工作负载创建成功
	EventReady            Event = "ready"             // 启动流程收尾完成
	EventStartRequested   Event = "start_requested"   // 用户请求启动
	EventStartSucceeded   Event = "start_succeeded"   // 远程启动成功
	EventStopRequested    Event = "stop_requested"    // 用户请求停止
	EventStopSucceeded    Event = "stop_succeeded"    // 远程停止成功
	EventRestartRequested Event = "restart_requested" // 用户请求重启
	EventRemoteFailed     Event = "remote_failed"     // 远程调用失败
	EventDeleteRequested  Event = "delete_requested"  // 用户请求删除
)

// transitions 合法的状态迁移表
var transitions = map[entity.ServerStatus]map[Event]entity.ServerStatus{
	entity.StatusProvisioning: {
		EventSpawnSucceeded:  entity.StatusStarting,
		EventRemoteFailed:    entity.StatusError,
		EventDeleteRequested: entity.StatusDeleting,
	},
	entity.StatusStarting: {
		EventReady:           entity.StatusRunning,
		EventStartSucceeded:  entity.StatusRunning,
		EventStopRequested:   entity.StatusStopping,
		EventRemoteFailed:    entity.StatusError,
		EventDeleteRequested: entity.StatusDeleting,
	},
	entity.StatusRunning: {
		EventStopRequested:    entity.StatusStopping,
		EventRestartRequested: entity.StatusRestarting,
		EventRemoteFailed:     entity.StatusError,
		EventDeleteRequested:  entity.StatusDeleting,
	},
	entity.StatusStopping: {
		EventStopSucceeded:   entity.StatusStopped,
		EventRemoteFailed:    entity.StatusError,
		EventDeleteRequested: entity.StatusDeleting,
	},
	entity.StatusStopped: {
		EventStartRequested:  entity.StatusStarting,
		EventDeleteRequested: entity.StatusDeleting,
	},
	entity.StatusRestarting: {
		EventStartSucceeded:  entity.StatusRunning,
		EventRemoteFailed:    entity.StatusError,
		EventDeleteRequested: entity.StatusDeleting,
	},
	entity.StatusError: {
		EventStartRequested:  entity.StatusStarting,
		EventStopRequested:   entity.StatusStopping,
		EventDeleteRequested: entity.StatusDeleting,
	},
	// 清理流程可能中途失败，deleting 允许重入删除
	// 其他事件一律拒绝，清理完成后记录被移除
	entity.StatusDeleting: {
		EventDeleteRequested: entity.StatusDeleting,
	},
}

// Transition 应用生命周期事件，返回下一个状态
// 迁移表之外的组合返回 Conflict 错误
func Transition(current entity.ServerStatus, event Event) (entity.ServerStatus, error) {
	next, ok := transitions[current][event]
	if !ok {
		return current, apierror.WrapError(apierror.ErrConflict,
			fmt.Errorf("event %s not allowed in status %s", event, current))
	}
	return next, nil
}
