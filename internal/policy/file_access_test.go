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
	"gorm.io/gorm/logger"
)

func principal(role domain.Role) domain.Principal {
	return domain.Principal{ID: uuid.New(), Role: role}
}

func file(et domain.FileEntityType, uploader uuid.UUID) *domain.File {
	return &domain.File{
		BaseModel:  domain.BaseModel{ID: uuid.New()},
		EntityType: et,
		UploadedBy: uploader,
		FileName:   string(et) + ".pdf",
	}
}

func TestResolveFileAccess_IsTotal(t *testing.T) {
	for _, role := range domain.AllRoles() {
		for _, master := range []bool{false, true} {
			p := domain.Principal{ID: uuid.New(), Role: role, IsMasterSales: master}
			access := policy.ResolveFileAccess(p)
			assert.Contains(t,
				[]policy.FileScope{policy.FileScopeFull, policy.FileScopeAdmin, policy.FileScopeOwner},
				access.Scope(), "role %s master=%v", role, master)
		}
	}
}

func TestResolveFileAccess_Tiers(t *testing.T) {
	tests := []struct {
		name  string
		p     domain.Principal
		scope policy.FileScope
	}{
		{"super admin", principal(domain.RoleSuperAdmin), policy.FileScopeFull},
		{"master sales", domain.Principal{ID: uuid.New(), Role: domain.RoleSales, IsMasterSales: true}, policy.FileScopeFull},
		{"admin", principal(domain.RoleAdmin), policy.FileScopeAdmin},
		{"sales", principal(domain.RoleSales), policy.FileScopeOwner},
		{"social media", principal(domain.RoleSocialMedia), policy.FileScopeOwner},
		{"unknown role", principal(domain.Role("auditor")), policy.FileScopeOwner},
		{"master flag ignored outside sales", domain.Principal{ID: uuid.New(), Role: domain.RoleSocialMedia, IsMasterSales: true}, policy.FileScopeOwner},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.scope, policy.ResolveFileAccess(tt.p).Scope())
		})
	}
}

func TestAuthorizeFile_AdminSeesContractDocuments(t *testing.T) {
	admin := principal(domain.RoleAdmin)
	stranger := uuid.New()

	for _, et := range policy.AdminFileCategories() {
		assert.NoError(t, policy.AuthorizeFile(admin, file(et, stranger)), "entity type %s", et)
	}

	assert.ErrorIs(t, policy.AuthorizeFile(admin, file(domain.FileEntityMarketingAsset, stranger)), policy.ErrAccessDenied)
	assert.ErrorIs(t, policy.AuthorizeFile(admin, file(domain.FileEntityClientDocument, stranger)), policy.ErrAccessDenied)
	assert.NoError(t, policy.AuthorizeFile(admin, file(domain.FileEntityMarketingAsset, admin.ID)))
}

func TestAuthorizeFile_SalesSeesOnlyOwnUploads(t *testing.T) {
	sales := principal(domain.RoleSales)

	for _, et := range domain.AllFileEntityTypes() {
		assert.NoError(t, policy.AuthorizeFile(sales, file(et, sales.ID)))
		err := policy.AuthorizeFile(sales, file(et, uuid.New()))
		require.Error(t, err)
		assert.Equal(t, "Access denied", err.Error())
	}
}

func TestAuthorizeFile_SuperAdminSeesEverything(t *testing.T) {
	super := principal(domain.RoleSuperAdmin)
	for _, et := range domain.AllFileEntityTypes() {
		assert.NoError(t, policy.AuthorizeFile(super, file(et, uuid.New())))
	}
}

// The SQL predicate and the in-memory predicate must agree on every row.
func TestFileAccess_ApplyMatchesInMemoryPredicate(t *testing.T) {
	db, err := gorm.Open(sqlite.Open("file:policy_apply?mode=memory&cache=shared"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&domain.File{}))

	admin := principal(domain.RoleAdmin)
	sales := principal(domain.RoleSales)
	uploaders := []uuid.UUID{admin.ID, sales.ID, uuid.New()}

	var all []*domain.File
	for _, et := range domain.AllFileEntityTypes() {
		for _, u := range uploaders {
			f := file(et, u)
			f.StoragePath = f.ID.String()
			require.NoError(t, db.Create(f).Error)
			all = append(all, f)
		}
	}

	principals := []domain.Principal{
		admin,
		sales,
		principal(domain.RoleSuperAdmin),
		principal(domain.RoleSocialMedia),
		{ID: sales.ID, Role: domain.RoleSales, IsMasterSales: true},
	}

	for _, p := range principals {
		access := policy.ResolveFileAccess(p)

		var rows []domain.File
		require.NoError(t, access.Apply(db.Model(&domain.File{})).Find(&rows).Error)

		got := map[uuid.UUID]bool{}
		for _, r := range rows {
			got[r.ID] = true
		}
		for _, f := range all {
			assert.Equal(t, access.Matches(f), got[f.ID], "role %s file %s/%s", p.Role, f.EntityType, f.UploadedBy)
		}
	}
}
