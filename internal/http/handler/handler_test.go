package handler_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ecoroute/crm-api/internal/auth"
	"github.com/ecoroute/crm-api/internal/config"
	"github.com/ecoroute/crm-api/internal/domain"
	"github.com/ecoroute/crm-api/internal/http/handler"
	"github.com/ecoroute/crm-api/internal/repository"
	"github.com/ecoroute/crm-api/internal/service"
	"github.com/ecoroute/crm-api/internal/storage"
	"github.com/ecoroute/crm-api/internal/testutil"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type nopRecorder struct{}

func (nopRecorder) Record(domain.ActivityLog) {}

type stubStorage struct{}

func (stubStorage) Open(context.Context, string) (io.ReadCloser, error) {
	return nil, storage.ErrObjectNotFound
}

func (stubStorage) PresignURL(_ context.Context, p string, _ time.Duration) (string, error) {
	return "https://files.example.com/" + p, nil
}

type failingLeads struct{}

func (failingLeads) CountClaimedBy(context.Context, uuid.UUID) (int64, error) {
	return 0, errors.New("relation \"leads\" does not exist")
}

// withUser injects a fixed principal in place of token authentication
func withUser(user *auth.UserContext) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if user != nil {
				r = r.WithContext(auth.WithUserContext(r.Context(), user))
			}
			next.ServeHTTP(w, r)
		})
	}
}

func newRouter(db *gorm.DB, dashboard *service.DashboardService, user *auth.UserContext) http.Handler {
	logger := zap.NewNop()
	files := service.NewFileService(repository.NewFileRepository(db), stubStorage{}, nopRecorder{}, 0, logger)
	pipeline := service.NewPipelineService(repository.NewProposalRepository(db), repository.NewContractRepository(db), nopRecorder{}, logger)

	fileHandler := handler.NewFileHandler(files, logger)
	dashboardHandler := handler.NewDashboardHandler(dashboard, logger)
	pipelineHandler := handler.NewPipelineHandler(pipeline, logger)

	r := chi.NewRouter()
	r.Use(withUser(user))
	r.Get("/files", fileHandler.List)
	r.Get("/files/{id}", fileHandler.GetByID)
	r.Get("/files/{id}/download", fileHandler.Download)
	r.Get("/dashboard", dashboardHandler.Get)
	r.Get("/proposals", pipelineHandler.ListProposals)
	r.Get("/proposals/{id}", pipelineHandler.GetProposal)
	r.Get("/contracts/{id}", pipelineHandler.GetContract)
	return r
}

func newDashboard(db *gorm.DB, leads service.LeadCounter) *service.DashboardService {
	if leads == nil {
		leads = repository.NewLeadRepository(db)
	}
	return service.NewDashboardService(
		leads,
		repository.NewProposalRepository(db),
		repository.NewContractRepository(db),
		repository.NewClientRepository(db),
		repository.NewCalendarEventRepository(db),
		repository.NewActivityLogRepository(db),
		nil,
		config.DashboardConfig{},
		zap.NewNop(),
	)
}

func userContext(u *domain.User) *auth.UserContext {
	return &auth.UserContext{UserID: u.ID, Role: u.Role, IsMasterSales: u.IsMasterSales, Email: u.Email}
}

func get(t *testing.T, h http.Handler, target string) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))

	var body map[string]interface{}
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())
	}
	return rec, body
}

func TestFileHandler_List(t *testing.T) {
	db := testutil.SetupTestDB(t)
	user := testutil.CreateTestUser(t, db, domain.RoleSuperAdmin, false)
	for i := 0; i < 3; i++ {
		testutil.CreateTestFile(t, db, domain.FileEntityContract, uuid.New(), "c.pdf", time.Now().Add(-time.Duration(i)*time.Hour))
	}
	testutil.CreateTestFile(t, db, domain.FileEntityProposal, uuid.New(), "p.pdf", time.Now())
	h := newRouter(db, newDashboard(db, nil), userContext(user))

	rec, body := get(t, h, "/files?entityType=contract&limit=2")
	require.Equal(t, http.StatusOK, rec.Code)

	assert.Equal(t, true, body["success"])
	assert.Len(t, body["data"], 2)
	assert.Equal(t, map[string]interface{}{
		"total": float64(3), "page": float64(1), "limit": float64(2), "totalPages": float64(2),
	}, body["pagination"])
	assert.Equal(t, map[string]interface{}{
		"entityType": map[string]interface{}{"contract": float64(3), "proposal": float64(1)},
	}, body["facets"])
}

func TestFileHandler_ListValidation(t *testing.T) {
	db := testutil.SetupTestDB(t)
	user := testutil.CreateTestUser(t, db, domain.RoleSales, false)
	h := newRouter(db, newDashboard(db, nil), userContext(user))

	rec, body := get(t, h, "/files?entityType=invoice")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, domain.ErrorTypeValidation, body["type"])
	assert.Contains(t, body["errors"], "entityType")

	rec, body = get(t, h, "/files?dateFrom=01-01-2024")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, body["errors"], "dateFrom")
}

func TestFileHandler_AccessErrors(t *testing.T) {
	db := testutil.SetupTestDB(t)
	sales := testutil.CreateTestUser(t, db, domain.RoleSales, false)
	file := testutil.CreateTestFile(t, db, domain.FileEntityContract, uuid.New(), "c.pdf", time.Now())
	h := newRouter(db, newDashboard(db, nil), userContext(sales))

	rec, body := get(t, h, "/files/"+file.ID.String()+"/download")
	require.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "Access denied", body["detail"])
	assert.Equal(t, domain.ErrorTypeForbidden, body["type"])

	rec, _ = get(t, h, "/files/"+uuid.New().String())
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, _ = get(t, h, "/files/not-a-uuid")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestFileHandler_Download(t *testing.T) {
	db := testutil.SetupTestDB(t)
	sales := testutil.CreateTestUser(t, db, domain.RoleSales, false)
	file := testutil.CreateTestFile(t, db, domain.FileEntityContract, sales.ID, "c.pdf", time.Now())
	h := newRouter(db, newDashboard(db, nil), userContext(sales))

	rec, body := get(t, h, "/files/"+file.ID.String()+"/download")
	require.Equal(t, http.StatusOK, rec.Code)

	data := body["data"].(map[string]interface{})
	assert.Equal(t, float64(900), data["expiresIn"])
	assert.Equal(t, "c.pdf", data["fileName"])
	assert.Equal(t, "https://files.example.com/"+file.StoragePath, data["url"])
}

func TestHandlers_RequireUser(t *testing.T) {
	db := testutil.SetupTestDB(t)
	h := newRouter(db, newDashboard(db, nil), nil)

	for _, target := range []string{"/files", "/dashboard", "/proposals"} {
		rec, _ := get(t, h, target)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, target)
	}
}

func TestDashboardHandler_Get(t *testing.T) {
	db := testutil.SetupTestDB(t)
	sales := testutil.CreateTestUser(t, db, domain.RoleSales, false)
	testutil.CreateTestProposal(t, db, sales.ID, domain.ProposalStatusPending)
	h := newRouter(db, newDashboard(db, nil), userContext(sales))

	rec, body := get(t, h, "/dashboard")
	require.Equal(t, http.StatusOK, rec.Code)

	data := body["data"].(map[string]interface{})
	stats := data["stats"].(map[string]interface{})
	assert.Equal(t, float64(1), stats["activeProposals"])

	pipeline := data["pipeline"].(map[string]interface{})
	assert.Equal(t, []interface{}{}, pipeline["leads"])
	assert.Len(t, pipeline["proposals"], 4)
	assert.Equal(t, []interface{}{}, data["upcomingEvents"])
}

func TestDashboardHandler_FailureIsGeneric(t *testing.T) {
	db := testutil.SetupTestDB(t)
	sales := testutil.CreateTestUser(t, db, domain.RoleSales, false)
	h := newRouter(db, newDashboard(db, failingLeads{}), userContext(sales))

	rec, body := get(t, h, "/dashboard")
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Failed to load dashboard", body["detail"])
	assert.NotContains(t, rec.Body.String(), "leads")
}

func TestPipelineHandler_Proposal(t *testing.T) {
	db := testutil.SetupTestDB(t)
	sales := testutil.CreateTestUser(t, db, domain.RoleSales, false)
	proposal := testutil.CreateTestProposal(t, db, sales.ID, domain.ProposalStatusApproved)
	require.NoError(t, db.Model(proposal).Update("proposal_data", `{"version":1,"serviceType":`).Error)
	h := newRouter(db, newDashboard(db, nil), userContext(sales))

	rec, body := get(t, h, "/proposals/"+proposal.ID.String())
	require.Equal(t, http.StatusOK, rec.Code)
	data := body["data"].(map[string]interface{})
	assert.Equal(t, map[string]interface{}{
		"status": "malformed",
		"raw":    `{"version":1,"serviceType":`,
	}, data["proposalData"])

	other := testutil.CreateTestProposal(t, db, uuid.New(), domain.ProposalStatusApproved)
	rec, _ = get(t, h, "/proposals/"+other.ID.String())
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec, _ = get(t, h, "/contracts/"+uuid.New().String())
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestLocalStorageHandler_Serve(t *testing.T) {
	dir := t.TempDir()
	store, err := storage.NewLocalStorage(dir, "http://crm.test", "signing-key")
	require.NoError(t, err)
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "contracts"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "contracts", "signed.pdf"), []byte("%PDF-1.7"), 0644))

	h := handler.NewLocalStorageHandler(store, zap.NewNop())
	r := chi.NewRouter()
	r.Get(storage.LocalRoutePrefix+"*", h.Serve)

	link, err := store.PresignURL(context.Background(), "contracts/signed.pdf", time.Minute)
	require.NoError(t, err)
	u, err := url.Parse(link)
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, u.RequestURI(), nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "%PDF-1.7", rec.Body.String())
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, storage.LocalRoutePrefix+"contracts/signed.pdf?token=forged", nil))
	assert.Equal(t, http.StatusForbidden, rec.Code)
}
