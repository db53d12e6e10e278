package router_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/ecoroute/crm-api/internal/auth"
	"github.com/ecoroute/crm-api/internal/config"
	"github.com/ecoroute/crm-api/internal/domain"
	"github.com/ecoroute/crm-api/internal/eventlog"
	"github.com/ecoroute/crm-api/internal/http/handler"
	"github.com/ecoroute/crm-api/internal/http/middleware"
	"github.com/ecoroute/crm-api/internal/http/router"
	"github.com/ecoroute/crm-api/internal/repository"
	"github.com/ecoroute/crm-api/internal/service"
	"github.com/ecoroute/crm-api/internal/storage"
	"github.com/ecoroute/crm-api/internal/testutil"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	testSecret = "router-test-secret"
	testIssuer = "ecoroute-identity"
	testAPIKey = "router-api-key"
)

func testConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{Environment: "development"},
		Auth: config.AuthConfig{
			JWTSecret:     testSecret,
			JWTIssuer:     testIssuer,
			APIKey:        testAPIKey,
			RefreshFromDB: true,
		},
		Security:  config.SecurityConfig{ContentTypeNosniff: true, FrameOptions: "DENY"},
		Dashboard: config.DashboardConfig{UpcomingEventsLimit: 5, RecentActivityLimit: 5, QueryTimeout: 5},
		Server:    config.ServerConfig{RequestTimeout: 30},
	}
}

func setup(t *testing.T, db *gorm.DB, redisClient *redis.Client, local *storage.LocalStorage) http.Handler {
	t.Helper()
	cfg := testConfig()
	logger := zap.NewNop()

	sink := eventlog.NewSink(repository.NewActivityLogRepository(db), config.ActivitySinkConfig{BufferSize: 16}, logger)
	sink.Start()
	t.Cleanup(func() { _ = sink.Close(context.Background()) })

	var store storage.Storage = local
	if local == nil {
		var err error
		store, err = storage.NewLocalStorage(t.TempDir(), "http://crm.test", "signing-key")
		require.NoError(t, err)
	}

	files := service.NewFileService(repository.NewFileRepository(db), store, sink, 0, logger)
	pipeline := service.NewPipelineService(repository.NewProposalRepository(db), repository.NewContractRepository(db), sink, logger)
	dashboard := service.NewDashboardService(
		repository.NewLeadRepository(db),
		repository.NewProposalRepository(db),
		repository.NewContractRepository(db),
		repository.NewClientRepository(db),
		repository.NewCalendarEventRepository(db),
		repository.NewActivityLogRepository(db),
		nil,
		cfg.Dashboard,
		logger,
	)

	var localHandler *handler.LocalStorageHandler
	if local != nil {
		localHandler = handler.NewLocalStorageHandler(local, logger)
	}

	return router.NewRouter(
		cfg,
		logger,
		db,
		redisClient,
		auth.NewMiddleware(cfg, repository.NewUserRepository(db), logger),
		middleware.NewRateLimiter(&cfg.RateLimit, logger),
		handler.NewFileHandler(files, logger),
		handler.NewDashboardHandler(dashboard, logger),
		handler.NewPipelineHandler(pipeline, logger),
		localHandler,
	).Setup()
}

func bearer(t *testing.T, user *domain.User) string {
	t.Helper()
	claims := auth.Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID.String(),
			Issuer:    testIssuer,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
		Role: string(user.Role),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return "Bearer " + token
}

func do(h http.Handler, target string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestRouter_Health(t *testing.T) {
	db := testutil.SetupTestDB(t)
	h := setup(t, db, nil, nil)

	rec := do(h, "/health", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", rec.Body.String())
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.NotEmpty(t, rec.Header().Get(middleware.RequestIDHeader))

	rec = do(h, "/health/db", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"service":"database"`)

	rec = do(h, "/metrics", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = do(h, "/metrics", map[string]string{"x-api-key": testAPIKey})
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRouter_ReadinessWithCache(t *testing.T) {
	db := testutil.SetupTestDB(t)
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	h := setup(t, db, client, nil)

	var body struct {
		Status string                       `json:"status"`
		Checks map[string]map[string]string `json:"checks"`
	}

	rec := do(h, "/health/ready", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body.Checks["cache"]["status"])

	mr.Close()
	rec = do(h, "/health/ready", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body.Status)
	assert.Equal(t, "degraded", body.Checks["cache"]["status"])
}

func TestRouter_APIRequiresAuthentication(t *testing.T) {
	db := testutil.SetupTestDB(t)
	h := setup(t, db, nil, nil)

	for _, target := range []string{"/api/v1/files", "/api/v1/dashboard", "/api/v1/proposals", "/api/v1/contracts"} {
		assert.Equal(t, http.StatusUnauthorized, do(h, target, nil).Code, target)
	}
	assert.Equal(t, http.StatusUnauthorized, do(h, "/api/v1/files", map[string]string{"x-api-key": "wrong"}).Code)
}

func TestRouter_BearerToken(t *testing.T) {
	db := testutil.SetupTestDB(t)
	sales := testutil.CreateTestUser(t, db, domain.RoleSales, false)
	testutil.CreateTestProposal(t, db, sales.ID, domain.ProposalStatusSent)
	h := setup(t, db, nil, nil)
	headers := map[string]string{"Authorization": bearer(t, sales)}

	rec := do(h, "/api/v1/dashboard", headers)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp struct {
		Data domain.DashboardReport `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.EqualValues(t, 1, resp.Data.Stats.ActiveProposals)

	rec = do(h, "/api/v1/proposals", headers)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(h, "/api/v1/contracts/"+uuid.New().String(), headers)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(h, "/metrics", headers)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestRouter_UnknownUserRejected(t *testing.T) {
	db := testutil.SetupTestDB(t)
	h := setup(t, db, nil, nil)

	ghost := &domain.User{BaseModel: domain.BaseModel{ID: uuid.New()}, Role: domain.RoleAdmin}
	rec := do(h, "/api/v1/files", map[string]string{"Authorization": bearer(t, ghost)})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRouter_APIKeySeesAllFiles(t *testing.T) {
	db := testutil.SetupTestDB(t)
	testutil.CreateTestFile(t, db, domain.FileEntityContract, uuid.New(), "a.pdf", time.Now())
	testutil.CreateTestFile(t, db, domain.FileEntityProposal, uuid.New(), "b.pdf", time.Now())
	h := setup(t, db, nil, nil)

	rec := do(h, "/api/v1/files", map[string]string{"x-api-key": testAPIKey})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp domain.FileListResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.EqualValues(t, 2, resp.Pagination.Total)
}

func TestRouter_LocalStorageRoute(t *testing.T) {
	db := testutil.SetupTestDB(t)

	h := setup(t, db, nil, nil)
	assert.Equal(t, http.StatusNotFound, do(h, storage.LocalRoutePrefix+"a.pdf?token=x", nil).Code)

	local, err := storage.NewLocalStorage(t.TempDir(), "http://crm.test", "signing-key")
	require.NoError(t, err)
	h = setup(t, db, nil, local)
	assert.Equal(t, http.StatusForbidden, do(h, storage.LocalRoutePrefix+"a.pdf?token=x", nil).Code)
}
