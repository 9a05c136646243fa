package api

import (
	"context"

	"github.com/forgehost/orchestrator/internal/orchestrator/entity"
	"github.com/forgehost/orchestrator/internal/orchestrator/service"
	"github.com/forgehost/orchestrator/pkg/ginx"
	"github.com/gin-gonic/gin"
)

// ProvisioningServiceInterface 定义生命周期服务的接口
type ProvisioningServiceInterface interface {
	Provision(ctx context.Context, token string, req *entity.ProvisionRequest) (*entity.GameServer, error)
	Start(ctx context.Context, token, serverID string) error
	Stop(ctx context.Context, token, serverID string) error
	Restart(ctx context.Context, token, serverID string) error
	Delete(ctx context.Context, token, serverID string) error
	GetStatus(ctx context.Context, token, serverID string) (*entity.ServerStatusView, error)
	DescribeServer(ctx context.Context, token, serverID string) (*entity.GameServer, error)
	ListUserServers(ctx context.Context, token, userID string) ([]*entity.GameServer, error)
	UpdateServerConfig(ctx context.Context, token, serverID string, req *entity.UpdateServerConfigRequest) error
}

// ServerAPI 游戏服务器 API
// 认证 token 从 Authorization 头透传给服务层
type ServerAPI struct {
	provisioning ProvisioningServiceInterface
}

// NewServerAPI 创建游戏服务器 API
func NewServerAPI(provisioning *service.ProvisioningService) *ServerAPI {
	return &ServerAPI{
		provisioning: provisioning,
	}
}

// RegisterRoutes 注册路由
func (a *ServerAPI) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/provision-server", ginx.AdaptJSON(a.ProvisionServer))
	r.POST("/start-server", ginx.AdaptAck(a.StartServer))
	r.POST("/stop-server", ginx.AdaptAck(a.StopServer))
	r.POST("/restart-server", ginx.AdaptAck(a.RestartServer))
	r.POST("/delete-server", ginx.AdaptAck(a.DeleteServer))
	r.POST("/describe-server", ginx.AdaptJSON(a.DescribeServer))
	r.POST("/describe-server-status", ginx.AdaptJSON(a.DescribeServerStatus))
	r.POST("/list-user-servers", ginx.AdaptJSON(a.ListUserServers))
	r.POST("/update-server-config", ginx.AdaptAck(a.UpdateServerConfig))
}

// ProvisionServerRequest 开通服务器请求
type ProvisionServerRequest struct {
	UserID          string  `json:"user_id" binding:"required"`
	ServerName      string  `json:"server_name" binding:"required"`
	RAMAllocation   int     `json:"ram_allocation"`
	CPUAllocation   float64 `json:"cpu_allocation"`
	MaxPlayers      int     `json:"max_players"`
	ServerPassword  string  `json:"server_password"`
	PreferredNodeID string  `json:"preferred_node_id"`
}

// ProvisionServer 开通服务器
func (a *ServerAPI) ProvisionServer(ctx *gin.Context, req *ProvisionServerRequest) (*entity.GameServer, error) {
	return a.provisioning.Provision(ctx.Request.Context(), token(ctx), &entity.ProvisionRequest{
		UserID:          req.UserID,
		ServerName:      req.ServerName,
		RAMAllocation:   req.RAMAllocation,
		CPUAllocation:   req.CPUAllocation,
		MaxPlayers:      req.MaxPlayers,
		ServerPassword:  req.ServerPassword,
		PreferredNodeID: req.PreferredNodeID,
	})
}

// ServerIDRequest 只带服务器 ID 的请求
type ServerIDRequest struct {
	ServerID string `json:"server_id" binding:"required"`
}

// StartServer 启动服务器
func (a *ServerAPI) StartServer(ctx *gin.Context, req *ServerIDRequest) error {
	return a.provisioning.Start(ctx.Request.Context(), token(ctx), req.ServerID)
}

// StopServer 停止服务器
func (a *ServerAPI) StopServer(ctx *gin.Context, req *ServerIDRequest) error {
	return a.provisioning.Stop(ctx.Request.Context(), token(ctx), req.ServerID)
}

// RestartServer 重启服务器
func (a *ServerAPI) RestartServer(ctx *gin.Context, req *ServerIDRequest) error {
	return a.provisioning.Restart(ctx.Request.Context(), token(ctx), req.ServerID)
}

// DeleteServer 删除服务器
func (a *ServerAPI) DeleteServer(ctx *gin.Context, req *ServerIDRequest) error {
	return a.provisioning.Delete(ctx.Request.Context(), token(ctx), req.ServerID)
}

// DescribeServer 查询服务器记录
func (a *ServerAPI) DescribeServer(ctx *gin.Context, req *ServerIDRequest) (*entity.GameServer, error) {
	return a.provisioning.DescribeServer(ctx.Request.Context(), token(ctx), req.ServerID)
}

// DescribeServerStatus 查询服务器状态视图
func (a *ServerAPI) DescribeServerStatus(ctx *gin.Context, req *ServerIDRequest) (*entity.ServerStatusView, error) {
	return a.provisioning.GetStatus(ctx.Request.Context(), token(ctx), req.ServerID)
}

// ListUserServersRequest 列举用户服务器请求
type ListUserServersRequest struct {
	UserID string `json:"user_id" binding:"required"`
}

// ListUserServersResponse 列举用户服务器响应
type ListUserServersResponse struct {
	Servers []*entity.GameServer `json:"servers"`
}

// ListUserServers 列举某个用户的服务器
func (a *ServerAPI) ListUserServers(ctx *gin.Context, req *ListUserServersRequest) (*ListUserServersResponse, error) {
	servers, err := a.provisioning.ListUserServers(ctx.Request.Context(), token(ctx), req.UserID)
	if err != nil {
		return nil, err
	}
	return &ListUserServersResponse{Servers: servers}, nil
}

// UpdateServerConfigRequest 更新服务器配置请求
type UpdateServerConfigRequest struct {
	ServerID       string  `json:"server_id" binding:"required"`
	ServerName     *string `json:"server_name"`
	MaxPlayers     *int    `json:"max_players"`
	ServerPassword *string `json:"server_password"`
}

// UpdateServerConfig 更新服务器配置
func (a *ServerAPI) UpdateServerConfig(ctx *gin.Context, req *UpdateServerConfigRequest) error {
	return a.provisioning.UpdateServerConfig(ctx.Request.Context(), token(ctx), req.ServerID,
		&entity.UpdateServerConfigRequest{
			ServerName:     req.ServerName,
			MaxPlayers:     req.MaxPlayers,
			ServerPassword: req.ServerPassword,
		})
}

// token 从 Authorization 头取出认证 token
func token(ctx *gin.Context) string {
	return ctx.GetHeader("Authorization")
}
