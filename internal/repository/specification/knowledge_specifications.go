package specification

import "gorm.io/gorm"

// AccessScope is the tenant/role pre-filter for knowledge documents. It is
// applied at the SQL level before the vector ordering so top-k is never
// starved by inaccessible rows. A role sees a document only when the tenant
// matches, the role appears in access_roles, and the visibility admits it.
type AccessScope struct {
	TenantID string
	Role     string
}

func (s AccessScope) Apply(db *gorm.DB) *gorm.DB {
	return db.
		Where("tenant_id = ?", s.TenantID).
		Where("access_roles @> ?", `["`+s.Role+`"]`).
		Where("visibility IN ?", visibleTo(s.Role))
}

// visibleTo maps a role to the visibility levels it may read. Restricted
// documents are reserved for leadership and hr.
func visibleTo(role string) []string {
	switch role {
	case "leadership", "hr":
		return []string{"public", "private", "restricted"}
	case "associate":
		return []string{"public", "private"}
	default:
		return []string{"public"}
	}
}

// BySource filters by the ingested source name.
type BySource struct {
	Source string
}

func (s BySource) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("source = ?", s.Source)
}
