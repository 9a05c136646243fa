package authclient

// Role 调用者角色，封闭枚举
// 不要在调用方用字符串比较角色，能力判断统一走 Identity 上的方法
type Role string

const (
	RoleUser           Role = "USER"            // 普通用户
	RoleAdmin          Role = "ADMIN"           // 管理员
	RoleServiceAccount Role = "SERVICE_ACCOUNT" // 服务账号
)

// Identity 认证服务返回的调用者身份
type Identity struct {
	UserID string `json:"id"`
	Roles  []Role `json:"roles"`
}

// hasRole 判断是否持有指定角色
func (id *Identity) hasRole(role Role) bool {
	for _, r := range id.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// CanProvision 只有服务账号可以开通新服务器
func (id *Identity) CanProvision() bool {
	return id.hasRole(RoleServiceAccount)
}

// IsElevated 管理员和服务账号可以操作任意服务器
func (id *Identity) IsElevated() bool {
	return id.hasRole(RoleAdmin) || id.hasRole(RoleServiceAccount)
}

// CanAccess 判断能否操作指定所有者的服务器
func (id *Identity) CanAccess(ownerID string) bool {
	if id.IsElevated() {
		return true
	}
	return id.UserID == ownerID
}
