// Package api 提供 HTTP API 层
package api

import (
	"context"
	"net/http"

	"github.com/forgehost/orchestrator/internal/orchestrator/service"
	"github.com/gin-gonic/gin"
)

type API struct {
	engine *gin.Engine
	server *http.Server

	node    *NodeAPI
	gameSrv *ServerAPI
}

func New(addr string, portRangeStart int, nodeService *service.NodeService, provisioning *service.ProvisioningService) (*API, error) {
	engine := gin.Default()
	api := &API{
		engine:  engine,
		node:    NewNodeAPI(nodeService).WithPortRangeStart(portRangeStart),
		gameSrv: NewServerAPI(provisioning),
	}

	group := engine.Group("/api")
	api.node.RegisterRoutes(group)
	api.gameSrv.RegisterRoutes(group)

	api.server = &http.Server{
		Addr:    addr,
		Handler: engine,
	}
	return api, nil
}

func (a *API) Run(ctx context.Context) error {
	if err := a.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (a *API) Shutdown(ctx context.Context) error {
	return a.server.Shutdown(ctx)
}

// Name 服务名
func (a *API) Name() string {
	return "Orchestrator API"
}
