// Package hostagent 提供工作节点上 host agent 的客户端
// 每个节点运行一个 agent，负责在本机拉起、管理游戏服务器工作负载
package hostagent
