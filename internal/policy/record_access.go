package policy

import (
	"github.com/ecoroute/crm-api/internal/domain"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// RecordLevel is the visibility a principal has over pipeline records
type RecordLevel int

const (
	RecordFull RecordLevel = iota
	RecordScoped
	RecordDenied
)

func (l RecordLevel) String() string {
	switch l {
	case RecordFull:
		return "full"
	case RecordScoped:
		return "scoped"
	default:
		return "denied"
	}
}

// recordRules must carry an entry for every domain.Role
var recordRules = map[domain.Role]RecordLevel{
	domain.RoleSuperAdmin:  RecordFull,
	domain.RoleAdmin:       RecordFull,
	domain.RoleSales:       RecordScoped,
	domain.RoleSocialMedia: RecordDenied,
}

// RecordAccess is a resolved visibility predicate over leads, proposals, contracts and clients
type RecordAccess struct {
	level   RecordLevel
	ownerID uuid.UUID
}

// ResolveRecordAccess returns the pipeline visibility for a principal.
// Unknown roles are denied.
func ResolveRecordAccess(p domain.Principal) RecordAccess {
	if p.Role == domain.RoleSales && p.IsMasterSales {
		return RecordAccess{level: RecordFull}
	}

	level, ok := recordRules[p.Role]
	if !ok {
		return RecordAccess{level: RecordDenied}
	}
	return RecordAccess{level: level, ownerID: p.ID}
}

// Level returns the resolved visibility level
func (a RecordAccess) Level() RecordLevel {
	return a.level
}

// Allows reports whether a record owned by ownerID is visible
func (a RecordAccess) Allows(ownerID uuid.UUID) bool {
	switch a.level {
	case RecordFull:
		return true
	case RecordScoped:
		return ownerID == a.ownerID
	default:
		return false
	}
}

// Authorize returns ErrAccessDenied when a record owned by ownerID is not visible
func (a RecordAccess) Authorize(ownerID uuid.UUID) error {
	if !a.Allows(ownerID) {
		return ErrAccessDenied
	}
	return nil
}

// Apply adds the predicate to a query, filtering on ownerColumn
func (a RecordAccess) Apply(query *gorm.DB, ownerColumn string) *gorm.DB {
	switch a.level {
	case RecordFull:
		return query
	case RecordScoped:
		return query.Where(ownerColumn+" = ?", a.ownerID)
	default:
		return query.Where("1 = 0")
	}
}
