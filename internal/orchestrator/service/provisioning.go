package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/forgehost/orchestrator/internal/orchestrator/entity"
	"github.com/forgehost/orchestrator/internal/orchestrator/repository"
	"github.com/forgehost/orchestrator/internal/orchestrator/repository/model"
	"github.com/forgehost/orchestrator/pkg/apierror"
	"github.com/forgehost/orchestrator/pkg/authclient"
	"github.com/forgehost/orchestrator/pkg/hostagent"
	"github.com/forgehost/orchestrator/pkg/idgen"
	"github.com/forgehost/orchestrator/pkg/tunnel"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

// ProvisioningService 游戏服务器生命周期服务
// 所有状态写入都经过 Transition，远程调用在独立的 goroutine 中完成
type ProvisioningService struct {
	scheduler  *SchedulerService
	allocator  *PortAllocationService
	nodeRepo   repository.NodeRepository
	serverRepo repository.GameServerRepository
	agent      hostagent.Client
	tunnels    tunnel.Manager
	auth       authclient.Client

	publicIP     string
	asyncTimeout time.Duration

	// placementMu 保护「选节点 + 建记录」的临界区
	// 记录在临界区内落库，后续的占用统计才能看到它
	placementMu sync.Mutex

	// bg 跟踪所有后台 goroutine，Shutdown 时排空
	bg     sync.WaitGroup
	logger zerolog.Logger
}

// NewProvisioningService 创建生命周期服务
func NewProvisioningService(
	scheduler *SchedulerService,
	allocator *PortAllocationService,
	nodeRepo repository.NodeRepository,
	serverRepo repository.GameServerRepository,
	agent hostagent.Client,
	tunnels tunnel.Manager,
	auth authclient.Client,
	publicIP string,
	asyncTimeout time.Duration,
	logger zerolog.Logger,
) *ProvisioningService {
	if asyncTimeout <= 0 {
		asyncTimeout = 2 * time.Minute
	}
	return &ProvisioningService{
		scheduler:    scheduler,
		allocator:    allocator,
		nodeRepo:     nodeRepo,
		serverRepo:   serverRepo,
		agent:        agent,
		tunnels:      tunnels,
		auth:         auth,
		publicIP:     publicIP,
		asyncTimeout: asyncTimeout,
		logger:       logger,
	}
}

// Shutdown 等待所有后台流程结束
func (s *ProvisioningService) Shutdown(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.bg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Provision 开通一个新的游戏服务器
// 同步阶段完成节点选择、端口分配和记录创建，容器拉起在后台进行
func (s *ProvisioningService) Provision(ctx context.Context, token string, req *entity.ProvisionRequest) (*entity.GameServer, error) {
	identity, err := s.auth.Validate(ctx, token)
	if err != nil {
		return nil, err
	}
	if !identity.CanProvision() {
		return nil, apierror.ErrForbidden
	}

	logger := zerolog.Ctx(ctx)

	// 选节点和建记录必须在同一个临界区内
	// 否则并发开通会同时看到同一个空槽位
	s.placementMu.Lock()
	node, err := s.pickNode(ctx, req.PreferredNodeID)
	if err != nil {
		s.placementMu.Unlock()
		return nil, err
	}
	if node == nil {
		s.placementMu.Unlock()
		return nil, apierror.ErrNoCapacity
	}

	serverID, err := idgen.GenerateServerID(req.UserID)
	if err != nil {
		s.placementMu.Unlock()
		return nil, apierror.WrapError(apierror.ErrInternalError, err)
	}
	server := &model.GameServer{
		ServerID:       serverID,
		UserID:         req.UserID,
		ServerName:     req.ServerName,
		NodeID:         node.NodeID,
		RAMAllocation:  req.RAMAllocation,
		CPUAllocation:  req.CPUAllocation,
		MaxPlayers:     req.MaxPlayers,
		ServerPassword: req.ServerPassword,
		Status:         string(entity.StatusProvisioning),
		CreatedAt:      time.Now(),
	}
	if err := s.serverRepo.Create(ctx, server); err != nil {
		s.placementMu.Unlock()
		return nil, apierror.WrapError(apierror.ErrInternalError, err)
	}
	s.placementMu.Unlock()

	logger.Info().
		Str("server_id", serverID).
		Str("node_id", node.NodeID).
		Str("user_id", req.UserID).
		Msg("server placed")

	// 端口分配失败时记录保持 error 状态，等待运维删除
	alloc, err := s.allocator.AllocatePorts(ctx, node, serverID)
	if err != nil {
		s.failServer(ctx, server, err)
		return nil, err
	}
	if !alloc.Success {
		s.failServer(ctx, server, errors.New("port range exhausted"))
		return nil, apierror.ErrPortExhaustion
	}

	server.GamePort = alloc.GamePort
	server.BeaconPort = alloc.BeaconPort
	if err := s.serverRepo.Update(ctx, server); err != nil {
		s.failServer(ctx, server, err)
		return nil, apierror.WrapError(apierror.ErrInternalError, err)
	}

	// 返回值先转换，后台 goroutine 拿记录的副本
	// 两边不共享可写状态
	result, err := serverModelToEntity(server)
	if err != nil {
		s.failServer(ctx, server, err)
		return nil, apierror.WrapError(apierror.ErrInternalError, err)
	}

	// 容器拉起和隧道配置在后台完成
	spawnServer := *server
	s.goAsync(func(ctx context.Context) {
		s.spawnWorkload(ctx, &spawnServer, node)
	})

	return result, nil
}

// Start 启动一个已停止的服务器
func (s *ProvisioningService) Start(ctx context.Context, token, serverID string) error {
	server, node, err := s.authorizeAndLoad(ctx, token, serverID)
	if err != nil {
		return err
	}

	if err := s.applyEvent(ctx, server, EventStartRequested); err != nil {
		return err
	}

	s.goAsync(func(ctx context.Context) {
		logger := zerolog.Ctx(ctx)
		if err := s.agent.Start(ctx, node.IPAddress, server.ServerID); err != nil {
			logger.Error().Err(err).Str("server_id", server.ServerID).Msg("start workload failed")
			s.failServer(ctx, server, err)
			return
		}

		now := time.Now()
		server.StartedAt = &now
		if err := s.applyEvent(ctx, server, EventStartSucceeded); err != nil {
			logger.Error().Err(err).Str("server_id", server.ServerID).Msg("record start failed")
			return
		}
		logger.Info().Str("server_id", server.ServerID).Msg("server started")
	})

	return nil
}

// Stop 停止一个运行中的服务器
func (s *ProvisioningService) Stop(ctx context.Context, token, serverID string) error {
	server, node, err := s.authorizeAndLoad(ctx, token, serverID)
	if err != nil {
		return err
	}

	if err := s.applyEvent(ctx, server, EventStopRequested); err != nil {
		return err
	}

	s.goAsync(func(ctx context.Context) {
		logger := zerolog.Ctx(ctx)
		if err := s.agent.Stop(ctx, node.IPAddress, server.ServerID); err != nil {
			logger.Error().Err(err).Str("server_id", server.ServerID).Msg("stop workload failed")
			s.failServer(ctx, server, err)
			return
		}

		if err := s.applyEvent(ctx, server, EventStopSucceeded); err != nil {
			logger.Error().Err(err).Str("server_id", server.ServerID).Msg("record stop failed")
			return
		}
		logger.Info().Str("server_id", server.ServerID).Msg("server stopped")
	})

	return nil
}

// Restart 重启一个运行中的服务器
// 不经过 stopped 状态
func (s *ProvisioningService) Restart(ctx context.Context, token, serverID string) error {
	server, node, err := s.authorizeAndLoad(ctx, token, serverID)
	if err != nil {
		return err
	}

	if err := s.applyEvent(ctx, server, EventRestartRequested); err != nil {
		return err
	}

	s.goAsync(func(ctx context.Context) {
		logger := zerolog.Ctx(ctx)
		if err := s.agent.Restart(ctx, node.IPAddress, server.ServerID); err != nil {
			logger.Error().Err(err).Str("server_id", server.ServerID).Msg("restart workload failed")
			s.failServer(ctx, server, err)
			return
		}

		now := time.Now()
		server.StartedAt = &now
		if err := s.applyEvent(ctx, server, EventStartSucceeded); err != nil {
			logger.Error().Err(err).Str("server_id", server.ServerID).Msg("record restart failed")
			return
		}
		logger.Info().Str("server_id", server.ServerID).Msg("server restarted")
	})

	return nil
}

// Delete 删除一个服务器
// 每个清理步骤都尽力执行，前面的失败不阻止后面的步骤
// 端口释放和记录删除是本地操作，必须成功
func (s *ProvisioningService) Delete(ctx context.Context, token, serverID string) error {
	server, node, err := s.authorizeAndLoad(ctx, token, serverID)
	if err != nil {
		return err
	}

	wasActive := server.Status == string(entity.StatusRunning) ||
		server.Status == string(entity.StatusStarting) ||
		server.Status == string(entity.StatusRestarting)

	if err := s.applyEvent(ctx, server, EventDeleteRequested); err != nil {
		return err
	}

	logger := zerolog.Ctx(ctx)

	// 先尽力停掉还在运行的工作负载
	if wasActive {
		if err := s.remoteCall(ctx, func(rctx context.Context) error {
			return s.agent.Stop(rctx, node.IPAddress, server.ServerID)
		}); err != nil {
			logger.Warn().Err(err).Str("server_id", serverID).Msg("stop workload during delete failed")
		}
	}

	if err := s.allocator.ReleasePorts(ctx, serverID); err != nil {
		return err
	}

	if err := s.remoteCall(ctx, func(rctx context.Context) error {
		return s.tunnels.RemoveInstance(rctx, serverID)
	}); err != nil {
		logger.Warn().Err(err).Str("server_id", serverID).Msg("remove tunnel instance failed")
	}

	if err := s.remoteCall(ctx, func(rctx context.Context) error {
		return s.agent.StopTunnelClient(rctx, node.IPAddress, serverID)
	}); err != nil {
		logger.Warn().Err(err).Str("server_id", serverID).Msg("stop tunnel client failed")
	}

	if err := s.remoteCall(ctx, func(rctx context.Context) error {
		return s.agent.Remove(rctx, node.IPAddress, server.ServerID)
	}); err != nil {
		logger.Warn().Err(err).Str("server_id", serverID).Msg("remove workload failed")
	}

	if err := s.serverRepo.Delete(ctx, serverID); err != nil {
		return apierror.WrapError(apierror.ErrInternalError, err)
	}

	logger.Info().Str("server_id", serverID).Msg("server deleted")
	return nil
}

// GetStatus 获取服务器状态视图
// host agent 的实时状态获取失败时只在视图里记录原因，不影响请求
func (s *ProvisioningService) GetStatus(ctx context.Context, token, serverID string) (*entity.ServerStatusView, error) {
	server, node, err := s.authorizeAndLoad(ctx, token, serverID)
	if err != nil {
		return nil, err
	}

	view := &entity.ServerStatusView{
		ServerID:      server.ServerID,
		Status:        entity.ServerStatus(server.Status),
		GamePort:      server.GamePort,
		BeaconPort:    server.BeaconPort,
		NodeID:        server.NodeID,
		RAMAllocation: server.RAMAllocation,
		CPUAllocation: server.CPUAllocation,
		MaxPlayers:    server.MaxPlayers,
		StartedAt:     server.StartedAt,
	}

	var live hostagent.WorkloadStatus
	err = s.remoteCall(ctx, func(rctx context.Context) error {
		var err error
		live, err = s.agent.Status(rctx, node.IPAddress, server.ServerID)
		return err
	})
	if err != nil {
		view.StatsError = err.Error()
	} else {
		view.Live = live
	}

	return view, nil
}

// DescribeServer 获取单个服务器记录
func (s *ProvisioningService) DescribeServer(ctx context.Context, token, serverID string) (*entity.GameServer, error) {
	server, _, err := s.authorizeAndLoad(ctx, token, serverID)
	if err != nil {
		return nil, err
	}
	return serverModelToEntity(server)
}

// ListUserServers 列出某个用户的所有服务器
// 普通用户只能看自己的
func (s *ProvisioningService) ListUserServers(ctx context.Context, token, userID string) ([]*entity.GameServer, error) {
	identity, err := s.auth.Validate(ctx, token)
	if err != nil {
		return nil, err
	}
	if !identity.CanAccess(userID) {
		return nil, apierror.ErrForbidden
	}

	servers, err := s.serverRepo.ListByUserID(ctx, userID)
	if err != nil {
		return nil, apierror.WrapError(apierror.ErrInternalError, err)
	}

	result := make([]*entity.GameServer, 0, len(servers))
	for _, server := range servers {
		e, err := serverModelToEntity(server)
		if err != nil {
			return nil, apierror.WrapError(apierror.ErrInternalError, err)
		}
		result = append(result, e)
	}
	return result, nil
}

// UpdateServerConfig 更新服务器配置
// 本地记录先落库，运行中的服务器再把变更下发给 host agent
// 下发失败只记日志，工作负载下次启动时会带上新配置
func (s *ProvisioningService) UpdateServerConfig(ctx context.Context, token, serverID string, req *entity.UpdateServerConfigRequest) error {
	server, node, err := s.authorizeAndLoad(ctx, token, serverID)
	if err != nil {
		return err
	}

	config := make(map[string]any)
	if req.ServerName != nil {
		server.ServerName = *req.ServerName
		config["serverName"] = *req.ServerName
	}
	if req.MaxPlayers != nil {
		server.MaxPlayers = *req.MaxPlayers
		config["maxPlayers"] = *req.MaxPlayers
	}
	if req.ServerPassword != nil {
		server.ServerPassword = *req.ServerPassword
		config["serverPassword"] = *req.ServerPassword
	}
	if len(config) == 0 {
		return nil
	}

	if err := s.serverRepo.Update(ctx, server); err != nil {
		return apierror.WrapError(apierror.ErrInternalError, err)
	}

	// 只有运行中的工作负载需要热更新
	if server.Status == string(entity.StatusRunning) {
		if err := s.remoteCall(ctx, func(rctx context.Context) error {
			return s.agent.UpdateConfig(rctx, node.IPAddress, server.ServerID, config)
		}); err != nil {
			zerolog.Ctx(ctx).Warn().Err(err).Str("server_id", serverID).Msg("push config to agent failed")
		}
	}
	return nil
}

// spawnWorkload 后台拉起容器并配置隧道
func (s *ProvisioningService) spawnWorkload(ctx context.Context, server *model.GameServer, node *model.Node) {
	logger := zerolog.Ctx(ctx)

	spawnReq := &hostagent.SpawnRequest{
		ServerID:       server.ServerID,
		ServerName:     server.ServerName,
		GamePort:       server.GamePort,
		BeaconPort:     server.BeaconPort,
		RAMAllocation:  server.RAMAllocation,
		CPUAllocation:  server.CPUAllocation,
		MaxPlayers:     server.MaxPlayers,
		ServerPassword: server.ServerPassword,
		EnvVars: map[string]string{
			"SERVERGAMEPORT":      strconv.Itoa(server.GamePort),
			"SERVERMESSAGINGPORT": strconv.Itoa(server.BeaconPort),
			"MAXPLAYERS":          strconv.Itoa(server.MaxPlayers),
			"PGID":                "1000",
			"PUID":                "1000",
			"STEAMBETA":           "false",
		},
	}

	resp, err := s.agent.Spawn(ctx, node.IPAddress, spawnReq)
	if err != nil {
		logger.Error().Err(err).Str("server_id", server.ServerID).Msg("spawn workload failed")
		s.failServer(ctx, server, err)
		return
	}

	now := time.Now()
	server.ContainerID = resp.ContainerID
	server.StartedAt = &now
	if err := s.applyEvent(ctx, server, EventSpawnSucceeded); err != nil {
		logger.Error().Err(err).Str("server_id", server.ServerID).Msg("record spawn failed")
		return
	}

	// 隧道配置失败不阻止服务器进入 running
	// 失败只记日志，运维可以事后重新下发
	s.configureTunnels(ctx, server, node)

	if err := s.applyEvent(ctx, server, EventReady); err != nil {
		logger.Error().Err(err).Str("server_id", server.ServerID).Msg("record ready failed")
		return
	}

	logger.Info().
		Str("server_id", server.ServerID).
		Str("container_id", resp.ContainerID).
		Msg("server running")
}

// configureTunnels 创建隧道实例并把客户端配置下发给 host agent
func (s *ProvisioningService) configureTunnels(ctx context.Context, server *model.GameServer, node *model.Node) {
	logger := zerolog.Ctx(ctx)

	if _, err := s.tunnels.CreateInstance(ctx, server.ServerID, server.GamePort, server.BeaconPort); err != nil {
		logger.Warn().Err(err).Str("server_id", server.ServerID).Msg("create tunnel instance failed")
		return
	}

	config, err := s.tunnels.GetClientConfig(ctx, server.ServerID, s.publicIP)
	if err != nil {
		logger.Warn().Err(err).Str("server_id", server.ServerID).Msg("get tunnel client config failed")
		return
	}

	if err := s.agent.ConfigureTunnelClient(ctx, node.IPAddress, server.ServerID, config); err != nil {
		logger.Warn().Err(err).Str("server_id", server.ServerID).Msg("configure tunnel client failed")
		return
	}

	logger.Info().Str("server_id", server.ServerID).Msg("tunnels configured")
}

// pickNode 按请求选节点：指定了 preferred 时只校验该节点，否则全局选最优
func (s *ProvisioningService) pickNode(ctx context.Context, preferredNodeID string) (*model.Node, error) {
	if preferredNodeID != "" {
		return s.scheduler.ChooseSpecificNode(ctx, preferredNodeID)
	}
	return s.scheduler.ChooseBestNode(ctx)
}

// authorizeAndLoad 校验 token、加载服务器和它所在的节点
// 普通用户只能操作自己的服务器
func (s *ProvisioningService) authorizeAndLoad(ctx context.Context, token, serverID string) (*model.GameServer, *model.Node, error) {
	identity, err := s.auth.Validate(ctx, token)
	if err != nil {
		return nil, nil, err
	}

	server, err := s.serverRepo.GetByServerID(ctx, serverID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, apierror.ErrServerNotFound
		}
		return nil, nil, apierror.WrapError(apierror.ErrInternalError, err)
	}

	if !identity.CanAccess(server.UserID) {
		return nil, nil, apierror.ErrForbidden
	}

	node, err := s.nodeRepo.GetByNodeID(ctx, server.NodeID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, apierror.WrapError(apierror.ErrInternalError,
				fmt.Errorf("node %s of server %s not found", server.NodeID, serverID))
		}
		return nil, nil, apierror.WrapError(apierror.ErrInternalError, err)
	}

	return server, node, nil
}

// applyEvent 应用生命周期事件并落库
func (s *ProvisioningService) applyEvent(ctx context.Context, server *model.GameServer, event Event) error {
	next, err := Transition(entity.ServerStatus(server.Status), event)
	if err != nil {
		return err
	}
	server.Status = string(next)
	if err := s.serverRepo.Update(ctx, server); err != nil {
		return apierror.WrapError(apierror.ErrInternalError, err)
	}
	return nil
}

// failServer 把服务器置为 error 状态
func (s *ProvisioningService) failServer(ctx context.Context, server *model.GameServer, cause error) {
	zerolog.Ctx(ctx).Error().Err(cause).Str("server_id", server.ServerID).Msg("server entered error state")
	if err := s.applyEvent(ctx, server, EventRemoteFailed); err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Str("server_id", server.ServerID).Msg("record error state failed")
	}
}

// goAsync 在后台执行 fn，带独立的超时上下文
// Shutdown 会等待所有 goAsync 启动的流程
func (s *ProvisioningService) goAsync(fn func(ctx context.Context)) {
	s.bg.Add(1)
	go func() {
		defer s.bg.Done()
		ctx, cancel := context.WithTimeout(s.logger.WithContext(context.Background()), s.asyncTimeout)
		defer cancel()
		fn(ctx)
	}()
}

// remoteCall 用独立超时执行一次远程调用
func (s *ProvisioningService) remoteCall(ctx context.Context, fn func(ctx context.Context) error) error {
	rctx, cancel := context.WithTimeout(ctx, s.asyncTimeout)
	defer cancel()
	return fn(rctx)
}
