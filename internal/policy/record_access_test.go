package policy_test

import (
	"testing"

	"github.com/ecoroute/crm-api/internal/domain"
	"github.com/ecoroute/crm-api/internal/policy"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func TestResolveRecordAccess(t *testing.T) {
	tests := []struct {
		name  string
		p     domain.Principal
		level policy.RecordLevel
	}{
		{"super admin", principal(domain.RoleSuperAdmin), policy.RecordFull},
		{"admin", principal(domain.RoleAdmin), policy.RecordFull},
		{"master sales", domain.Principal{ID: uuid.New(), Role: domain.RoleSales, IsMasterSales: true}, policy.RecordFull},
		{"sales", principal(domain.RoleSales), policy.RecordScoped},
		{"social media", principal(domain.RoleSocialMedia), policy.RecordDenied},
		{"unknown role", principal(domain.Role("")), policy.RecordDenied},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.level, policy.ResolveRecordAccess(tt.p).Level())
		})
	}
}

func TestRecordAccess_Authorize(t *testing.T) {
	sales := principal(domain.RoleSales)
	access := policy.ResolveRecordAccess(sales)

	assert.NoError(t, access.Authorize(sales.ID))
	assert.ErrorIs(t, access.Authorize(uuid.New()), policy.ErrAccessDenied)

	denied := policy.ResolveRecordAccess(principal(domain.RoleSocialMedia))
	assert.ErrorIs(t, denied.Authorize(uuid.New()), policy.ErrAccessDenied)
}

func TestRecordAccess_ApplyRendersOwnerColumn(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	scoped := policy.ResolveRecordAccess(principal(domain.RoleSales))
	sql := db.ToSQL(func(tx *gorm.DB) *gorm.DB {
		return scoped.Apply(tx.Model(&domain.Proposal{}), "requested_by").Find(&[]domain.Proposal{})
	})
	assert.Contains(t, sql, "requested_by =")

	denied := policy.ResolveRecordAccess(principal(domain.RoleSocialMedia))
	sql = db.ToSQL(func(tx *gorm.DB) *gorm.DB {
		return denied.Apply(tx.Model(&domain.Proposal{}), "requested_by").Find(&[]domain.Proposal{})
	})
	assert.Contains(t, sql, "1 = 0")

	full := policy.ResolveRecordAccess(principal(domain.RoleAdmin))
	sql = db.ToSQL(func(tx *gorm.DB) *gorm.DB {
		return full.Apply(tx.Model(&domain.Proposal{}), "requested_by").Find(&[]domain.Proposal{})
	})
	assert.NotContains(t, sql, "requested_by =")
}
