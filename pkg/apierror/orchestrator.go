package apierror

import "net/http"

// 编排器预定义错误
// 服务层只返回这里定义的错误（或其 WrapError 包装），API 层据此选择 HTTP 状态码
var (
	// ErrUnauthorized 认证服务拒绝了凭证
	ErrUnauthorized = &Error{
		Code:       "Unauthorized",
		Message:    "The provided credential is missing, invalid, or expired.",
		HTTPStatus: http.StatusUnauthorized,
	}

	// ErrForbidden 调用者没有执行该操作所需的角色或所有权
	ErrForbidden = &Error{
		Code:       "Forbidden",
		Message:    "You do not have permission to perform this operation on this resource.",
		HTTPStatus: http.StatusForbidden,
	}

	// ErrServerNotFound 指定的 serverId 不存在
	ErrServerNotFound = &Error{
		Code:       "ServerNotFound",
		Message:    "The specified game server does not exist.",
		HTTPStatus: http.StatusNotFound,
	}

	// ErrNodeNotFound 指定的 nodeId 不存在
	ErrNodeNotFound = &Error{
		Code:       "NodeNotFound",
		Message:    "The specified node does not exist.",
		HTTPStatus: http.StatusNotFound,
	}

	// ErrNoCapacity 没有在线且有空余槽位的节点
	// 调用方可以稍后重试
	ErrNoCapacity = &Error{
		Code:       "NoCapacity",
		Message:    "No online node has free capacity to host a new server. Retry later or register additional nodes.",
		HTTPStatus: http.StatusServiceUnavailable,
	}

	// ErrPortExhaustion 节点端口区间内找不到空闲端口对
	// 需要运维介入：扩大区间或回收废弃的服务器
	ErrPortExhaustion = &Error{
		Code:       "PortExhaustion",
		Message:    "The node's port range has no free port pair left. Expand the range or reclaim unused servers.",
		HTTPStatus: http.StatusServiceUnavailable,
	}

	// ErrRemoteCall 节点代理或隧道管理器调用失败（网络错误、超时或非 2xx）
	ErrRemoteCall = &Error{
		Code:       "RemoteCall",
		Message:    "A remote collaborator call failed. The server has been transitioned to the error status.",
		HTTPStatus: http.StatusBadGateway,
	}

	// ErrConflict 请求的操作在服务器当前状态下不合法
	ErrConflict = &Error{
		Code:       "Conflict",
		Message:    "The requested operation is not valid in the resource's current state.",
		HTTPStatus: http.StatusConflict,
	}

	// ErrInternalError 发生了内部错误
	ErrInternalError = &Error{
		Code:       "InternalError",
		Message:    "An internal error has occurred. Retry your request, and contact the operator if the problem persists.",
		HTTPStatus: http.StatusInternalServerError,
	}
)
