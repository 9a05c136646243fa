// Package ginx 提供 gin handler 的泛型适配器
// 业务 handler 只需要返回 (resp, error)，适配器负责参数绑定和响应渲染
package ginx
