// Package tunnel 提供隧道实例管理器的客户端
// 隧道管理器是全局共享的单实例服务，为每台运行中的服务器维护一个公网隧道
package tunnel
