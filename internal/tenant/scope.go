package tenant

import "gorm.io/gorm"

// Scope restricts a query to one organisation.
func Scope(orgID string) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("org_id = ?", orgID)
	}
}

// ScopeTable is Scope for joined queries where org_id is ambiguous.
func ScopeTable(table, orgID string) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where(table+".org_id = ?", orgID)
	}
}
