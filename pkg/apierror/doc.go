// Package apierror 提供编排器统一的错误类型
// 所有服务层错误都使用预定义的 *Error，API 层据此渲染 HTTP 响应
package apierror
