package access

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/portalback/pkg/database"
	apperrors "github.com/portalback/pkg/errors"
	"github.com/portalback/services/portal/internal/model"

	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

// matrixConcurrency 权限矩阵并发查询上限
const matrixConcurrency = 4

// ModulePermissions 角色在单个模块下的权限
type ModulePermissions struct {
	RoleID      int64           `json:"role_id"`
	RoleKey     string          `json:"role_key"`
	RoleName    string          `json:"role_name"`
	ModuleID    int64           `json:"module_id"`
	ModuleKey   string          `json:"module_key"`
	ModuleName  string          `json:"module_name"`
	Permissions map[string]bool `json:"permissions"`
}

// Resolver 权限解析器，每次调用都读取当前存储状态
type Resolver struct {
	db *gorm.DB
}

// NewResolver 创建权限解析器
func NewResolver(db *gorm.DB) *Resolver {
	return &Resolver{db: db}
}

// PrincipalRoles 用户的角色ID
func (r *Resolver) PrincipalRoles(ctx context.Context, userID int64) ([]int64, error) {
	var ids []int64
	err := r.db.WithContext(ctx).Model(&model.UserRole{}).
		Where("user_id = ?", userID).
		Order("role_id").
		Pluck("role_id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("access: load roles of user %d: %w", userID, err)
	}
	return ids, nil
}

// activeModule 按键精确查找启用的模块，不存在时返回 nil
func (r *Resolver) activeModule(ctx context.Context, key string) (*model.Module, error) {
	var mod model.Module
	err := r.db.WithContext(ctx).Where(map[string]any{"key": key, "active": true}).Take(&mod).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("access: load module %q: %w", key, err)
	}
	// 大小写不敏感的排序规则下仍要求逐字节相等
	if mod.Key != key {
		return nil, nil
	}
	return &mod, nil
}

// grantedKeys 角色集合在模块下被授予的启用权限键
func (r *Resolver) grantedKeys(ctx context.Context, roleIDs []int64, moduleID int64) ([]string, error) {
	granted := r.db.Model(&model.RoleGrant{}).
		Select("permission_id").
		Where("role_id IN ? AND module_id = ?", roleIDs, moduleID)

	var perms []model.Permission
	err := r.db.WithContext(ctx).
		Where("active = ? AND id IN (?)", true, granted).
		Order("id").
		Find(&perms).Error
	if err != nil {
		return nil, fmt.Errorf("access: load grants of module %d: %w", moduleID, err)
	}
	keys := make([]string, len(perms))
	for i, p := range perms {
		keys[i] = p.Key
	}
	return keys, nil
}

// ResolveModulePermissions 计算角色集合在模块下的有效权限
// 模块不存在、已停用或键不完全匹配时返回 nil，无角色时返回空集合
func (r *Resolver) ResolveModulePermissions(ctx context.Context, roleIDs []int64, moduleKey string) (map[string]bool, error) {
	mod, err := r.activeModule(ctx, moduleKey)
	if err != nil || mod == nil {
		return nil, err
	}

	perms := make(map[string]bool)
	if len(roleIDs) == 0 {
		return perms, nil
	}

	keys, err := r.grantedKeys(ctx, roleIDs, mod.ID)
	if err != nil {
		return nil, err
	}
	for _, k := range keys {
		perms[k] = true
	}
	return perms, nil
}

// PrincipalPermissionMap 角色集合在所有启用模块下的权限，按模块键分组
// 停用的模块或权限不计入，无角色时返回空映射
func (r *Resolver) PrincipalPermissionMap(ctx context.Context, roleIDs []int64) (map[string]map[string]bool, error) {
	out := make(map[string]map[string]bool)
	if len(roleIDs) == 0 {
		return out, nil
	}

	var grants []model.RoleGrant
	err := r.db.WithContext(ctx).
		Preload("Module").
		Preload("Permission").
		Where("role_id IN ?", roleIDs).
		Order("id").
		Find(&grants).Error
	if err != nil {
		return nil, fmt.Errorf("access: load grants of roles %v: %w", roleIDs, err)
	}
	for _, g := range grants {
		if g.Module == nil || !g.Module.Active || g.Permission == nil || !g.Permission.Active {
			continue
		}
		perms, ok := out[g.Module.Key]
		if !ok {
			perms = make(map[string]bool)
			out[g.Module.Key] = perms
		}
		perms[g.Permission.Key] = true
	}
	return out, nil
}

// HasPermission 三元组授权是否存在
func (r *Resolver) HasPermission(ctx context.Context, roleID, moduleID, permissionID int64) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.RoleGrant{}).
		Where("role_id = ? AND module_id = ? AND permission_id = ?", roleID, moduleID, permissionID).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("access: check grant: %w", err)
	}
	return count > 0, nil
}

// findByID 按主键查找，不存在时返回 NotFound
func findByID[T any](ctx context.Context, db *gorm.DB, id int64, resource string) (*T, error) {
	var entity T
	err := db.WithContext(ctx).Where("id = ?", id).Take(&entity).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.NotFound(resource)
	}
	if err != nil {
		return nil, fmt.Errorf("access: load %s %d: %w", resource, id, err)
	}
	return &entity, nil
}

// checkTriple 校验角色、模块、权限均存在
func (r *Resolver) checkTriple(ctx context.Context, roleID, moduleID, permissionID int64) error {
	if _, err := findByID[model.Role](ctx, r.db, roleID, "role"); err != nil {
		return err
	}
	if _, err := findByID[model.Module](ctx, r.db, moduleID, "module"); err != nil {
		return err
	}
	if _, err := findByID[model.Permission](ctx, r.db, permissionID, "permission"); err != nil {
		return err
	}
	return nil
}

// RegisterGrant 授予权限
// 预检查只是快速路径，唯一索引冲突同样返回 Conflict
func (r *Resolver) RegisterGrant(ctx context.Context, roleID, moduleID, permissionID int64) (*model.RoleGrant, error) {
	if err := r.checkTriple(ctx, roleID, moduleID, permissionID); err != nil {
		return nil, err
	}
	exists, err := r.HasPermission(ctx, roleID, moduleID, permissionID)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, apperrors.Conflict("permission already granted")
	}

	grant := &model.RoleGrant{RoleID: roleID, ModuleID: moduleID, PermissionID: permissionID}
	if err := r.db.WithContext(ctx).Create(grant).Error; err != nil {
		if database.IsDuplicateKey(err) {
			return nil, apperrors.Conflict("permission already granted")
		}
		return nil, fmt.Errorf("access: create grant: %w", err)
	}
	return grant, nil
}

// RevokeGrant 撤销权限，只删除对应的一条授权
func (r *Resolver) RevokeGrant(ctx context.Context, roleID, moduleID, permissionID int64) error {
	if err := r.checkTriple(ctx, roleID, moduleID, permissionID); err != nil {
		return err
	}
	res := r.db.WithContext(ctx).
		Where("role_id = ? AND module_id = ? AND permission_id = ?", roleID, moduleID, permissionID).
		Delete(&model.RoleGrant{})
	if res.Error != nil {
		return fmt.Errorf("access: delete grant: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return apperrors.NotFound("grant")
	}
	return nil
}

// RolePermissionMatrix 角色在各模块下的权限，按模块ID排序
func (r *Resolver) RolePermissionMatrix(ctx context.Context, roleID int64) ([]ModulePermissions, error) {
	role, err := findByID[model.Role](ctx, r.db, roleID, "role")
	if err != nil {
		return nil, err
	}

	var moduleIDs []int64
	err = r.db.WithContext(ctx).Model(&model.RoleGrant{}).
		Where("role_id = ?", roleID).
		Distinct().
		Pluck("module_id", &moduleIDs).Error
	if err != nil {
		return nil, fmt.Errorf("access: load modules of role %d: %w", roleID, err)
	}
	if len(moduleIDs) == 0 {
		return nil, apperrors.NotFound("role permissions")
	}
	sort.Slice(moduleIDs, func(i, j int) bool { return moduleIDs[i] < moduleIDs[j] })

	out := make([]ModulePermissions, len(moduleIDs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(matrixConcurrency)
	for i, moduleID := range moduleIDs {
		g.Go(func() error {
			mod, err := findByID[model.Module](gctx, r.db, moduleID, "module")
			if err != nil {
				return err
			}
			keys, err := r.grantedKeys(gctx, []int64{roleID}, moduleID)
			if err != nil {
				return err
			}
			perms := make(map[string]bool, len(keys))
			for _, k := range keys {
				perms[k] = true
			}
			out[i] = ModulePermissions{
				RoleID:      role.ID,
				RoleKey:     role.Key,
				RoleName:    role.Name,
				ModuleID:    mod.ID,
				ModuleKey:   mod.Key,
				ModuleName:  mod.Name,
				Permissions: perms,
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// HasPermissionKey 角色在模块下是否持有权限键
func (r *Resolver) HasPermissionKey(ctx context.Context, roleID, moduleID int64, permissionKey string) (bool, error) {
	if _, err := findByID[model.Role](ctx, r.db, roleID, "role"); err != nil {
		return false, err
	}
	if _, err := findByID[model.Module](ctx, r.db, moduleID, "module"); err != nil {
		return false, err
	}
	var perm model.Permission
	err := r.db.WithContext(ctx).Where(map[string]any{"key": permissionKey}).Take(&perm).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, apperrors.NotFound("permission")
	}
	if err != nil {
		return false, fmt.Errorf("access: load permission %q: %w", permissionKey, err)
	}
	return r.HasPermission(ctx, roleID, moduleID, perm.ID)
}
