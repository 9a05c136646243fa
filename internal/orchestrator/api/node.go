package api

import (
	"context"
	"errors"
	"time"

	"github.com/forgehost/orchestrator/internal/orchestrator/entity"
	"github.com/forgehost/orchestrator/internal/orchestrator/service"
	"github.com/forgehost/orchestrator/pkg/ginx"
	"github.com/gin-gonic/gin"
)

// NodeServiceInterface 定义节点服务的接口
type NodeServiceInterface interface {
	RegisterNode(ctx context.Context, nodeID, hostname, ipAddress string, maxServers, portRangeStart int) (*entity.Node, error)
	RecordHeartbeat(ctx context.Context, nodeID string) error
	UpdateNodeStats(ctx context.Context, nodeID string, cpuUsage, memoryUsage, diskUsage float64) error
	MarkOffline(ctx context.Context, nodeID string) error
	ListNodes(ctx context.Context) ([]*entity.Node, error)
	ListOnlineNodes(ctx context.Context) ([]*entity.Node, error)
	DeleteNode(ctx context.Context, nodeID string) error
}

// NodeAPI 节点 API
// 节点侧（agent）调用的端点不走用户认证
type NodeAPI struct {
	nodeService    NodeServiceInterface
	portRangeStart int
}

// NewNodeAPI 创建节点 API
func NewNodeAPI(nodeService *service.NodeService) *NodeAPI {
	return &NodeAPI{
		nodeService: nodeService,
	}
}

// WithPortRangeStart 设置新节点的初始分配游标
func (a *NodeAPI) WithPortRangeStart(start int) *NodeAPI {
	a.portRangeStart = start
	return a
}

// RegisterRoutes 注册路由
func (a *NodeAPI) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/register-node", ginx.AdaptJSON(a.RegisterNode))
	r.POST("/node-heartbeat", ginx.AdaptAck(a.NodeHeartbeat))
	r.POST("/update-node-stats", ginx.AdaptAck(a.UpdateNodeStats))
	r.POST("/mark-node-offline", ginx.AdaptAck(a.MarkNodeOffline))
	r.POST("/list-nodes", ginx.AdaptJSON(a.ListNodes))
	r.POST("/delete-node", ginx.AdaptAck(a.DeleteNode))
}

// RegisterNodeRequest 注册节点请求
type RegisterNodeRequest struct {
	NodeID     string `json:"node_id" binding:"required"`
	Hostname   string `json:"hostname" binding:"required"`
	IPAddress  string `json:"ip_address" binding:"required"`
	MaxServers int    `json:"max_servers"`
}

// IsValid 校验请求
func (r *RegisterNodeRequest) IsValid() error {
	if r.MaxServers <= 0 {
		return errors.New("max_servers must be positive")
	}
	return nil
}

// RegisterNode 注册节点（幂等）
func (a *NodeAPI) RegisterNode(ctx *gin.Context, req *RegisterNodeRequest) (*entity.Node, error) {
	return a.nodeService.RegisterNode(ctx.Request.Context(),
		req.NodeID, req.Hostname, req.IPAddress, req.MaxServers, a.portRangeStart)
}

// NodeHeartbeatRequest 节点心跳请求
type NodeHeartbeatRequest struct {
	NodeID string `json:"node_id" binding:"required"`
}

// NodeHeartbeat 记录节点心跳
func (a *NodeAPI) NodeHeartbeat(ctx *gin.Context, req *NodeHeartbeatRequest) error {
	return a.nodeService.RecordHeartbeat(ctx.Request.Context(), req.NodeID)
}

// UpdateNodeStatsRequest 更新节点资源用量请求
type UpdateNodeStatsRequest struct {
	NodeID      string  `json:"node_id" binding:"required"`
	CPUUsage    float64 `json:"cpu_usage"`
	MemoryUsage float64 `json:"memory_usage"`
	DiskUsage   float64 `json:"disk_usage"`
}

// UpdateNodeStats 更新节点资源用量
func (a *NodeAPI) UpdateNodeStats(ctx *gin.Context, req *UpdateNodeStatsRequest) error {
	return a.nodeService.UpdateNodeStats(ctx.Request.Context(),
		req.NodeID, req.CPUUsage, req.MemoryUsage, req.DiskUsage)
}

// MarkNodeOfflineRequest 标记节点离线请求
type MarkNodeOfflineRequest struct {
	NodeID string `json:"node_id" binding:"required"`
}

// MarkNodeOffline 标记节点离线
func (a *NodeAPI) MarkNodeOffline(ctx *gin.Context, req *MarkNodeOfflineRequest) error {
	return a.nodeService.MarkOffline(ctx.Request.Context(), req.NodeID)
}

// ListNodesRequest 列举节点请求
type ListNodesRequest struct {
	OnlineOnly bool `json:"online_only"` // 只返回在线节点
}

// ListNodesResponse 列举节点响应
type ListNodesResponse struct {
	Nodes     []*entity.Node `json:"nodes"`
	Timestamp time.Time      `json:"timestamp"`
}

// ListNodes 列举节点
func (a *NodeAPI) ListNodes(ctx *gin.Context, req *ListNodesRequest) (*ListNodesResponse, error) {
	var (
		nodes []*entity.Node
		err   error
	)
	if req.OnlineOnly {
		nodes, err = a.nodeService.ListOnlineNodes(ctx.Request.Context())
	} else {
		nodes, err = a.nodeService.ListNodes(ctx.Request.Context())
	}
	if err != nil {
		return nil, err
	}
	return &ListNodesResponse{Nodes: nodes, Timestamp: time.Now()}, nil
}

// DeleteNodeRequest 删除节点请求
type DeleteNodeRequest struct {
	NodeID string `json:"node_id" binding:"required"`
}

// DeleteNode 删除节点
func (a *NodeAPI) DeleteNode(ctx *gin.Context, req *DeleteNodeRequest) error {
	return a.nodeService.DeleteNode(ctx.Request.Context(), req.NodeID)
}
