package model

import (
	"github.com/portalback/pkg/dal"
	"github.com/portalback/pkg/filter"
)

// 租户范围策略
const (
	ScopeExclusive = "exclusive"
	ScopeShared    = "shared"
)

// Company 租户
type Company struct {
	dal.Model
	Key         string `gorm:"size:64;uniqueIndex;not null" json:"key"`
	Name        string `gorm:"size:128;not null" json:"name"`
	Origin      string `gorm:"size:255;index" json:"origin"`
	ScopePolicy string `gorm:"size:16;not null;default:exclusive" json:"scope_policy"`
	ErpID       *int64 `json:"erp_id"`
}

// Scope 租户数据范围
func (c *Company) Scope() filter.TenantScope {
	return filter.TenantScope{
		CompanyID:     c.ID,
		IncludeShared: c.ScopePolicy == ScopeShared,
	}
}
