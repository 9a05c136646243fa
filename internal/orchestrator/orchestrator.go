// Package orchestrator 提供服务的主入口和初始化逻辑
package orchestrator

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/forgehost/orchestrator/internal/orchestrator/api"
	"github.com/forgehost/orchestrator/internal/orchestrator/config"
	"github.com/forgehost/orchestrator/internal/orchestrator/repository"
	"github.com/forgehost/orchestrator/internal/orchestrator/service"
	"github.com/forgehost/orchestrator/pkg/authclient"
	"github.com/forgehost/orchestrator/pkg/hostagent"
	"github.com/forgehost/orchestrator/pkg/tunnel"
	"github.com/jimmicro/grace"
	"github.com/rs/zerolog"
)

type Server struct {
	cfg          *config.Config
	repo         *repository.Repository
	api          *api.API
	monitor      *service.NodeHealthMonitor
	provisioning *service.ProvisioningService
}

func New(cfg *config.Config) (*Server, error) {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	zerolog.DefaultContextLogger = &logger

	// 1. 数据库
	repo, err := repository.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open repository: %w", err)
	}
	nodeRepo := repository.NewNodeRepository(repo.DB())
	serverRepo := repository.NewGameServerRepository(repo.DB())
	allocRepo := repository.NewPortAllocationRepository(repo.DB())

	// 2. 外部服务客户端
	agentClient := hostagent.NewHTTPClient(cfg.AgentPort, cfg.AgentTimeout)
	tunnelManager := tunnel.NewHTTPManager(cfg.TunnelHost, cfg.TunnelPort, cfg.TunnelToken, cfg.TunnelTimeout)
	authClient := authclient.NewHTTPClient(cfg.AuthServiceURL, cfg.AuthTimeout)

	// 3. 业务服务
	nodeService := service.NewNodeService(nodeRepo, serverRepo)
	schedulerService := service.NewSchedulerService(nodeRepo, serverRepo)
	allocService := service.NewPortAllocationService(allocRepo, nodeRepo, cfg.PortRangeStart, cfg.PortRangeEnd)
	provisioningService := service.NewProvisioningService(
		schedulerService,
		allocService,
		nodeRepo,
		serverRepo,
		agentClient,
		tunnelManager,
		authClient,
		cfg.PublicIP,
		cfg.AgentTimeout,
		logger,
	)
	monitor := service.NewNodeHealthMonitor(nodeService, cfg.HealthCheckInterval, cfg.HeartbeatTimeout)

	// 4. API
	apiInstance, err := api.New(cfg.Address, cfg.PortRangeStart, nodeService, provisioningService)
	if err != nil {
		return nil, err
	}

	server := &Server{
		cfg:          cfg,
		repo:         repo,
		api:          apiInstance,
		monitor:      monitor,
		provisioning: provisioningService,
	}
	return server, nil
}

func (s *Server) Run(ctx context.Context) error {
	// 使用 grace.Shepherd 管理服务生命周期
	services := []grace.Grace{
		s.api,
		s.monitor,
	}

	shepherd := grace.NewShepherd(
		services,
		grace.WithTimeout(30*time.Second),
		grace.WithLogger(&zerologLogger{}),
	)

	shepherd.Start(ctx)
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	if err := s.api.Shutdown(ctx); err != nil {
		return err
	}
	// 排空后台的开通 / 启停流程
	if err := s.provisioning.Shutdown(ctx); err != nil {
		return err
	}
	return s.repo.Close()
}

// Name 实现 grace.Grace 接口
func (s *Server) Name() string {
	return "Orchestrator Server"
}

// zerologLogger 实现 grace.Logger 接口
type zerologLogger struct{}

func (l *zerologLogger) Info(msg string, args ...interface{}) {
	logger := zerolog.DefaultContextLogger.Info()
	if len(args) > 0 {
		logger.Msgf(msg, args...)
	} else {
		logger.Msg(msg)
	}
}

func (l *zerologLogger) Error(msg string, args ...interface{}) {
	logger := zerolog.DefaultContextLogger.Error()
	if len(args) > 0 {
		logger.Msgf(msg, args...)
	} else {
		logger.Msg(msg)
	}
}
