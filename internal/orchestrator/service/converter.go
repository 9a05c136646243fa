// Package service 提供业务逻辑层的服务实现
package service

import (
	"github.com/forgehost/orchestrator/internal/orchestrator/entity"
	"github.com/forgehost/orchestrator/internal/orchestrator/repository/model"
	"github.com/jinzhu/copier"
)

// serverModelToEntity 将 model.GameServer 转换为 entity.GameServer
func serverModelToEntity(m *model.GameServer) (*entity.GameServer, error) {
	e := &entity.GameServer{}
	if err := copier.Copy(e, m); err != nil {
		return nil, err
	}

	// 状态字段是自定义类型，copier 不做转换
	e.Status = entity.ServerStatus(m.Status)

	return e, nil
}

// nodeModelToEntity 将 model.Node 转换为 entity.Node
// currentServers 不落库，由调用方统计后填入
func nodeModelToEntity(m *model.Node, currentServers int) (*entity.Node, error) {
	e := &entity.Node{}
	if err := copier.Copy(e, m); err != nil {
		return nil, err
	}

	e.Status = entity.NodeStatus(m.Status)
	e.CurrentServers = currentServers

	return e, nil
}
