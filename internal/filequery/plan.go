package filequery

import (
	"strings"

	"github.com/ecoroute/crm-api/internal/domain"
	"github.com/ecoroute/crm-api/internal/policy"
	"gorm.io/gorm"
)

// Plan holds the predicates for one file-list request.
//
//	base  = visibility AND date range AND search
//	count = base AND entity type filter
//	list  = count ordered by created_at DESC with offset and limit
//	facet = base grouped by entity_type
type Plan struct {
	access policy.FileAccess
	params Params
}

// NewPlan combines a resolved visibility predicate with request params
func NewPlan(access policy.FileAccess, params Params) Plan {
	return Plan{access: access, params: params}
}

// Params returns the request params the plan was built from
func (p Plan) Params() Params {
	return p.params
}

// Base applies visibility, date range and search
func (p Plan) Base(db *gorm.DB) *gorm.DB {
	db = p.access.Apply(db)

	if p.params.DateFrom != nil {
		db = db.Where("created_at >= ?", *p.params.DateFrom)
	}
	if p.params.DateTo != nil {
		db = db.Where("created_at <= ?", *p.params.DateTo)
	}
	if p.params.Search != "" {
		pattern := "%" + escapeLike(strings.ToLower(p.params.Search)) + "%"
		db = db.Where(
			`(LOWER(file_name) LIKE ? ESCAPE '\' OR LOWER(related_entity_number) LIKE ? ESCAPE '\' OR LOWER(client_name) LIKE ? ESCAPE '\')`,
			pattern, pattern, pattern,
		)
	}
	return db
}

// Count applies the base predicate plus the entity type filter
func (p Plan) Count(db *gorm.DB) *gorm.DB {
	db = p.Base(db)

	switch len(p.params.EntityTypes) {
	case 0:
		return db
	case 1:
		return db.Where("entity_type = ?", p.params.EntityTypes[0])
	default:
		return db.Where("entity_type IN ?", p.params.EntityTypes)
	}
}

// List applies the count predicate, newest first, paged
func (p Plan) List(db *gorm.DB) *gorm.DB {
	return p.Count(db).
		Order("created_at DESC").
		Order("id DESC").
		Offset(p.params.Offset()).
		Limit(p.params.Limit)
}

// Facet groups the base predicate by entity type, ignoring the entity type filter
func (p Plan) Facet(db *gorm.DB) *gorm.DB {
	return p.Base(db).
		Select("entity_type, COUNT(*) AS count").
		Group("entity_type")
}

// MatchesBase evaluates the base predicate in memory
func (p Plan) MatchesBase(f *domain.File) bool {
	if !p.access.Matches(f) {
		return false
	}
	if p.params.DateFrom != nil && f.CreatedAt.Before(*p.params.DateFrom) {
		return false
	}
	if p.params.DateTo != nil && f.CreatedAt.After(*p.params.DateTo) {
		return false
	}
	if p.params.Search != "" {
		needle := strings.ToLower(p.params.Search)
		if !strings.Contains(strings.ToLower(f.FileName), needle) &&
			!strings.Contains(strings.ToLower(f.RelatedEntityNumber), needle) &&
			!strings.Contains(strings.ToLower(f.ClientName), needle) {
			return false
		}
	}
	return true
}

// Matches evaluates the count predicate in memory
func (p Plan) Matches(f *domain.File) bool {
	if !p.MatchesBase(f) {
		return false
	}
	if len(p.params.EntityTypes) == 0 {
		return true
	}
	for _, et := range p.params.EntityTypes {
		if f.EntityType == et {
			return true
		}
	}
	return false
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
