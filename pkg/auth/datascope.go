package auth

import "github.com/portalback/pkg/predicate"

// DataScopeType 数据权限类型
type DataScopeType int

// 数据权限类型常量
const (
	DataScopeAll DataScopeType = 1 // 租户内全部数据
	DataScopeOwn DataScopeType = 2 // 仅归属本人的数据
)

// OwnPermission 仅本人数据的权限键
const OwnPermission = "own"

// DataScopeInfo 数据权限信息
type DataScopeInfo struct {
	Type    DataScopeType
	OwnerID int64
	Field   string
}

// ResolveDataScope 根据权限集合确定数据范围
// 持有 own 时限定为 ownerID 所属数据
func ResolveDataScope(permissions map[string]bool, field string, ownerID int64) DataScopeInfo {
	if permissions[OwnPermission] {
		return DataScopeInfo{Type: DataScopeOwn, OwnerID: ownerID, Field: field}
	}
	return DataScopeInfo{Type: DataScopeAll}
}

// Expression 转换为谓词
func (d DataScopeInfo) Expression() predicate.Expression {
	if d.Type != DataScopeOwn {
		return predicate.True()
	}
	return predicate.Eq(d.Field, d.OwnerID)
}
