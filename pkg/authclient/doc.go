// Package authclient 提供认证服务的客户端
// 编排器不解析凭证本身，只消费认证服务返回的用户身份和角色
package authclient
