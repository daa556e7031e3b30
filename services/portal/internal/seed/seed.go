// Package seed 初始化内置数据
package seed

import (
	"context"
	"fmt"

	"github.com/portalback/pkg/auth"
	"github.com/portalback/pkg/config"
	"github.com/portalback/services/portal/internal/model"

	"go.uber.org/zap"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// 内置角色键
const (
	RoleAdmin    = "admin"
	RoleCustomer = "customer"
)

// customerGrants 默认角色在各模块下的权限
var customerGrants = map[string][]string{
	model.ModuleCategories: {model.PermList, model.PermRead},
	model.ModuleProducts:   {model.PermList, model.PermRead},
	model.ModuleOrders:     {model.PermList, model.PermRead, model.PermCreate, model.PermOwn},
}

// Result 初始化结果
type Result struct {
	Company *model.Company
	Admin   *model.Role
	User    *model.User
}

// Run 幂等地写入默认租户、模块、权限、内置角色及授权
// 配置了管理员邮箱时同时创建管理员账号
func Run(ctx context.Context, db *gorm.DB, tenant config.TenantConfig, cfg config.SeedConfig, log *zap.Logger) (*Result, error) {
	if log == nil {
		log = zap.NewNop()
	}
	log = log.Named("seed")

	res := &Result{}
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		if res.Company, err = ensureCompany(tx, tenant.DefaultKey); err != nil {
			return err
		}
		modules, err := ensureModules(tx)
		if err != nil {
			return err
		}
		perms, err := ensurePermissions(tx)
		if err != nil {
			return err
		}
		if res.Admin, err = ensureRole(tx, RoleAdmin, "Administrator", false); err != nil {
			return err
		}
		customer, err := ensureRole(tx, RoleCustomer, "Customer", true)
		if err != nil {
			return err
		}

		// own 是范围限制而非能力，管理员不持有
		var grants []model.RoleGrant
		for _, m := range modules {
			for key, p := range perms {
				if key == model.PermOwn {
					continue
				}
				grants = append(grants, model.RoleGrant{RoleID: res.Admin.ID, ModuleID: m.ID, PermissionID: p.ID})
			}
		}
		for moduleKey, keys := range customerGrants {
			for _, key := range keys {
				grants = append(grants, model.RoleGrant{RoleID: customer.ID, ModuleID: modules[moduleKey].ID, PermissionID: perms[key].ID})
			}
		}
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&grants).Error; err != nil {
			return fmt.Errorf("seed grants: %w", err)
		}

		if cfg.AdminEmail == "" {
			return nil
		}
		res.User, err = ensureAdminUser(tx, cfg, res.Company, res.Admin)
		return err
	})
	if err != nil {
		return nil, err
	}

	log.Info("seed completed",
		zap.String("company", res.Company.Key),
		zap.Int("modules", len(model.ModuleKeys)),
		zap.Int("permissions", len(model.PermissionKeys)),
		zap.Bool("admin_user", res.User != nil),
	)
	return res, nil
}

func ensureCompany(tx *gorm.DB, key string) (*model.Company, error) {
	c := &model.Company{}
	err := tx.Where(map[string]any{"key": key}).
		Attrs(model.Company{Name: key, ScopePolicy: model.ScopeShared}).
		FirstOrCreate(c).Error
	if err != nil {
		return nil, fmt.Errorf("seed company: %w", err)
	}
	return c, nil
}

func displayName(key string) string {
	return cases.Title(language.English).String(key)
}

func ensureModules(tx *gorm.DB) (map[string]*model.Module, error) {
	out := make(map[string]*model.Module, len(model.ModuleKeys))
	for _, key := range model.ModuleKeys {
		m := &model.Module{}
		err := tx.Where(map[string]any{"key": key}).
			Attrs(model.Module{Name: displayName(key), Active: true}).
			FirstOrCreate(m).Error
		if err != nil {
			return nil, fmt.Errorf("seed module %s: %w", key, err)
		}
		out[key] = m
	}
	return out, nil
}

func ensurePermissions(tx *gorm.DB) (map[string]*model.Permission, error) {
	out := make(map[string]*model.Permission, len(model.PermissionKeys))
	for _, key := range model.PermissionKeys {
		p := &model.Permission{}
		err := tx.Where(map[string]any{"key": key}).
			Attrs(model.Permission{Name: displayName(key), Active: true}).
			FirstOrCreate(p).Error
		if err != nil {
			return nil, fmt.Errorf("seed permission %s: %w", key, err)
		}
		out[key] = p
	}
	return out, nil
}

func ensureRole(tx *gorm.DB, key, name string, isDefault bool) (*model.Role, error) {
	r := &model.Role{}
	err := tx.Where(map[string]any{"key": key}).
		Attrs(model.Role{Name: name, IsDefault: isDefault}).
		FirstOrCreate(r).Error
	if err != nil {
		return nil, fmt.Errorf("seed role %s: %w", key, err)
	}
	return r, nil
}

// ensureAdminUser 已存在的账号不会被改写密码
func ensureAdminUser(tx *gorm.DB, cfg config.SeedConfig, company *model.Company, admin *model.Role) (*model.User, error) {
	u := &model.User{}
	err := tx.Where(map[string]any{"email": cfg.AdminEmail}).Limit(1).Find(u).Error
	if err != nil {
		return nil, fmt.Errorf("seed admin user: %w", err)
	}
	if u.ID == 0 {
		if cfg.AdminPassword == "" {
			return nil, fmt.Errorf("seed admin user: password is required")
		}
		hash, err := auth.HashPassword(cfg.AdminPassword)
		if err != nil {
			return nil, fmt.Errorf("seed admin user: %w", err)
		}
		u = &model.User{
			Name:      "Administrator",
			Email:     cfg.AdminEmail,
			Password:  hash,
			Active:    true,
			CompanyID: &company.ID,
		}
		if err := tx.Create(u).Error; err != nil {
			return nil, fmt.Errorf("seed admin user: %w", err)
		}
	}
	link := &model.UserRole{UserID: u.ID, RoleID: admin.ID}
	if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(link).Error; err != nil {
		return nil, fmt.Errorf("seed admin role: %w", err)
	}
	return u, nil
}
