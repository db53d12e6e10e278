package filequery_test

import (
	"net/url"
	"testing"
	"time"

	"github.com/ecoroute/crm-api/internal/domain"
	"github.com/ecoroute/crm-api/internal/filequery"
	"github.com/ecoroute/crm-api/internal/policy"
	"github.com/ecoroute/crm-api/internal/testutil"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type facetRow struct {
	EntityType domain.FileEntityType
	Count      int64
}

func seedFiles(t *testing.T, db *gorm.DB, owner uuid.UUID) []*domain.File {
	base := time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)
	other := uuid.New()

	var files []*domain.File
	files = append(files,
		testutil.CreateTestFile(t, db, domain.FileEntityProposal, owner, "Harbor proposal.pdf", base),
		testutil.CreateTestFile(t, db, domain.FileEntityProposal, other, "Mill proposal.pdf", base.Add(2*time.Hour)),
		testutil.CreateTestFile(t, db, domain.FileEntityContract, owner, "harbor contract.pdf", base.Add(26*time.Hour)),
		testutil.CreateTestFile(t, db, domain.FileEntitySignedContract, other, "signed.pdf", base.Add(27*24*time.Hour+23*time.Hour+59*time.Minute)),
		testutil.CreateTestFile(t, db, domain.FileEntityMarketingAsset, other, "flyer_100%.png", base.Add(-time.Second)),
		testutil.CreateTestFile(t, db, domain.FileEntityClientDocument, owner, "lease.pdf", base.Add(28*24*time.Hour)),
	)
	return files
}

func plan(t *testing.T, p domain.Principal, q url.Values) filequery.Plan {
	params, err := filequery.ParseParams(q)
	require.NoError(t, err)
	return filequery.NewPlan(policy.ResolveFileAccess(p), params)
}

func listIDs(t *testing.T, db *gorm.DB, pl filequery.Plan) []uuid.UUID {
	var rows []domain.File
	require.NoError(t, pl.List(db.Model(&domain.File{})).Find(&rows).Error)
	ids := make([]uuid.UUID, len(rows))
	for i, r := range rows {
		ids[i] = r.ID
	}
	return ids
}

func count(t *testing.T, db *gorm.DB, pl filequery.Plan) int64 {
	var n int64
	require.NoError(t, pl.Count(db.Model(&domain.File{})).Count(&n).Error)
	return n
}

func facets(t *testing.T, db *gorm.DB, pl filequery.Plan) map[domain.FileEntityType]int64 {
	var rows []facetRow
	require.NoError(t, pl.Facet(db.Model(&domain.File{})).Scan(&rows).Error)
	out := map[domain.FileEntityType]int64{}
	for _, r := range rows {
		out[r.EntityType] = r.Count
	}
	return out
}

func TestPlan_SQLAgreesWithInMemoryPredicate(t *testing.T) {
	db := testutil.SetupTestDB(t)
	admin := domain.Principal{ID: uuid.New(), Role: domain.RoleAdmin}
	files := seedFiles(t, db, admin.ID)

	queries := []url.Values{
		{},
		{"search": {"HARBOR"}},
		{"entityType": {"proposal,contract"}},
		{"entityType": {"client_document"}},
		{"dateFrom": {"2025-02-01"}, "dateTo": {"2025-02-28"}},
		{"search": {"100%"}},
	}

	for _, q := range queries {
		pl := plan(t, admin, q)
		var want int64
		for _, f := range files {
			if pl.Matches(f) {
				want++
			}
		}
		assert.Equal(t, want, count(t, db, pl), "query %v", q)
	}
}

func TestPlan_ListIsNewestFirstAndPaged(t *testing.T) {
	db := testutil.SetupTestDB(t)
	super := domain.Principal{ID: uuid.New(), Role: domain.RoleSuperAdmin}
	seedFiles(t, db, super.ID)

	all := listIDs(t, db, plan(t, super, url.Values{"limit": {"100"}}))
	require.Len(t, all, 6)

	var rows []domain.File
	require.NoError(t, db.Order("created_at DESC").Find(&rows).Error)
	for i := range rows {
		assert.Equal(t, rows[i].ID, all[i])
	}

	page1 := listIDs(t, db, plan(t, super, url.Values{"page": {"1"}, "limit": {"4"}}))
	page2 := listIDs(t, db, plan(t, super, url.Values{"page": {"2"}, "limit": {"4"}}))
	page3 := listIDs(t, db, plan(t, super, url.Values{"page": {"3"}, "limit": {"4"}}))
	assert.Equal(t, all[:4], page1)
	assert.Equal(t, all[4:], page2)
	assert.Empty(t, page3)
}

func TestPlan_SingletonListEqualsSingleValue(t *testing.T) {
	db := testutil.SetupTestDB(t)
	admin := domain.Principal{ID: uuid.New(), Role: domain.RoleAdmin}
	seedFiles(t, db, admin.ID)

	single := plan(t, admin, url.Values{"entityType": {"proposal"}})
	list := plan(t, admin, url.Values{"entityType": {"proposal,proposal"}})

	assert.Equal(t, count(t, db, single), count(t, db, list))
	assert.Equal(t, listIDs(t, db, single), listIDs(t, db, list))
}

func TestPlan_FacetsIgnoreEntityTypeFilter(t *testing.T) {
	db := testutil.SetupTestDB(t)
	admin := domain.Principal{ID: uuid.New(), Role: domain.RoleAdmin}
	seedFiles(t, db, admin.ID)

	unfiltered := facets(t, db, plan(t, admin, url.Values{}))
	filtered := facets(t, db, plan(t, admin, url.Values{"entityType": {"contract"}}))

	assert.Equal(t, unfiltered, filtered)
	assert.Equal(t, int64(2), unfiltered[domain.FileEntityProposal])
	assert.Equal(t, int64(1), unfiltered[domain.FileEntityContract])
	assert.Equal(t, int64(1), unfiltered[domain.FileEntityClientDocument])
	_, hasMarketing := unfiltered[domain.FileEntityMarketingAsset]
	assert.False(t, hasMarketing, "admin must not see another user's marketing assets")
}

func TestPlan_DateRangeIncludesBothEnds(t *testing.T) {
	db := testutil.SetupTestDB(t)
	super := domain.Principal{ID: uuid.New(), Role: domain.RoleSuperAdmin}
	seedFiles(t, db, super.ID)

	// 2025-02-01T00:00:00 and 2025-02-28T23:59 are in, 2025-01-31T23:59:59 and 2025-03-01T00:00 are out
	pl := plan(t, super, url.Values{"dateFrom": {"2025-02-01"}, "dateTo": {"2025-02-28"}})
	assert.Equal(t, int64(4), count(t, db, pl))

	sameDay := plan(t, super, url.Values{"dateFrom": {"2025-02-01"}, "dateTo": {"2025-02-01"}})
	assert.Equal(t, int64(2), count(t, db, sameDay))
}

func TestPlan_SearchIsCaseInsensitiveAndLiteral(t *testing.T) {
	db := testutil.SetupTestDB(t)
	super := domain.Principal{ID: uuid.New(), Role: domain.RoleSuperAdmin}
	seedFiles(t, db, super.ID)

	assert.Equal(t, int64(2), count(t, db, plan(t, super, url.Values{"search": {"hArBoR"}})))
	assert.Equal(t, int64(1), count(t, db, plan(t, super, url.Values{"search": {"_100%"}})))
	assert.Equal(t, int64(0), count(t, db, plan(t, super, url.Values{"search": {"%%"}})))
}
