// Package policy resolves what a principal may see.
//
// File visibility has three tiers evaluated in order: unrestricted, admin scope
// (contract-document categories plus own uploads) and owner-only. Pipeline
// record visibility is full, scoped to the owner column, or denied.
package policy

import (
	"errors"

	"github.com/ecoroute/crm-api/internal/domain"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ErrAccessDenied is returned when a record exists but falls outside the principal's visibility
var ErrAccessDenied = errors.New("Access denied")

// FileScope is the tier a principal resolves to for file visibility
type FileScope int

const (
	FileScopeFull FileScope = iota
	FileScopeAdmin
	FileScopeOwner
)

func (s FileScope) String() string {
	switch s {
	case FileScopeFull:
		return "full"
	case FileScopeAdmin:
		return "admin"
	default:
		return "owner"
	}
}

// fileRules must carry an entry for every domain.Role
var fileRules = map[domain.Role]FileScope{
	domain.RoleSuperAdmin:  FileScopeFull,
	domain.RoleAdmin:       FileScopeAdmin,
	domain.RoleSales:       FileScopeOwner,
	domain.RoleSocialMedia: FileScopeOwner,
}

// AdminFileCategories are the categories an admin sees regardless of uploader
func AdminFileCategories() []domain.FileEntityType {
	return []domain.FileEntityType{
		domain.FileEntityProposal,
		domain.FileEntityContract,
		domain.FileEntitySignedContract,
		domain.FileEntityHardboundContract,
		domain.FileEntityCustomTemplate,
	}
}

// FileAccess is a resolved file visibility predicate
type FileAccess struct {
	scope   FileScope
	ownerID uuid.UUID
}

// ResolveFileAccess returns the file visibility predicate for a principal.
// Unknown roles fall through to owner-only.
func ResolveFileAccess(p domain.Principal) FileAccess {
	if p.Role == domain.RoleSales && p.IsMasterSales {
		return FileAccess{scope: FileScopeFull}
	}

	scope, ok := fileRules[p.Role]
	if !ok {
		scope = FileScopeOwner
	}
	if scope == FileScopeFull {
		return FileAccess{scope: FileScopeFull}
	}
	return FileAccess{scope: scope, ownerID: p.ID}
}

// Scope returns the resolved tier
func (a FileAccess) Scope() FileScope {
	return a.scope
}

// Unrestricted reports whether the predicate admits every file
func (a FileAccess) Unrestricted() bool {
	return a.scope == FileScopeFull
}

// Matches evaluates the predicate against a single record
func (a FileAccess) Matches(f *domain.File) bool {
	switch a.scope {
	case FileScopeFull:
		return true
	case FileScopeAdmin:
		if f.UploadedBy == a.ownerID {
			return true
		}
		for _, t := range AdminFileCategories() {
			if f.EntityType == t {
				return true
			}
		}
		return false
	default:
		return f.UploadedBy == a.ownerID
	}
}

// Apply adds the predicate to a query over the files table
func (a FileAccess) Apply(query *gorm.DB) *gorm.DB {
	switch a.scope {
	case FileScopeFull:
		return query
	case FileScopeAdmin:
		return query.Where("(entity_type IN ? OR uploaded_by = ?)", AdminFileCategories(), a.ownerID)
	default:
		return query.Where("uploaded_by = ?", a.ownerID)
	}
}

// AuthorizeFile returns ErrAccessDenied when the principal may not see the file
func AuthorizeFile(p domain.Principal, f *domain.File) error {
	if !ResolveFileAccess(p).Matches(f) {
		return ErrAccessDenied
	}
	return nil
}
