package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/lms-admin-api/internal/models"
	appErrors "github.com/noah-isme/lms-admin-api/pkg/errors"
)

type stubValidator struct{}

func (stubValidator) ValidateToken(token string) (*models.JWTClaims, error) {
	switch token {
	case "admin-token":
		return &models.JWTClaims{UserID: "user-1", Role: models.RoleAdmin}, nil
	case "super-token":
		return &models.JWTClaims{UserID: "user-2", Role: models.RoleSuperAdmin}, nil
	}
	return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token")
}

type auditRecorderStub struct {
	entries []*models.AuditLog
}

func (s *auditRecorderStub) CreateAuditLog(_ context.Context, log *models.AuditLog) error {
	s.entries = append(s.entries, log)
	return nil
}

type observerStub struct {
	paths []string
}

func (o *observerStub) ObserveHTTPRequest(_ string, path string, _ int, _ time.Duration) {
	o.paths = append(o.paths, path)
}

func serve(router *gin.Engine, method, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestJWTAndRoles(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(JWT(stubValidator{}))
	router.GET("/any", RequireRoles(models.RoleAdmin, models.RoleSuperAdmin), func(c *gin.Context) {
		claims := ClaimsFromContext(c)
		c.String(http.StatusOK, claims.UserID)
	})
	router.POST("/fix", RequireSuperAdmin(), func(c *gin.Context) { c.Status(http.StatusOK) })

	assert.Equal(t, http.StatusUnauthorized, serve(router, http.MethodGet, "/any", "").Code)
	assert.Equal(t, http.StatusUnauthorized, serve(router, http.MethodGet, "/any", "forged").Code)

	rec := serve(router, http.MethodGet, "/any", "admin-token")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "user-1", rec.Body.String())

	assert.Equal(t, http.StatusForbidden, serve(router, http.MethodPost, "/fix", "admin-token").Code)
	assert.Equal(t, http.StatusOK, serve(router, http.MethodPost, "/fix", "super-token").Code)
}

func TestJWTRejectsMalformedHeader(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(JWT(stubValidator{}))
	router.GET("/any", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodGet, "/any", nil)
	req.Header.Set("Authorization", "Token admin-token")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid authorization header")
}

func TestAuditRecordsSuccessfulRequestsOnly(t *testing.T) {
	gin.SetMode(gin.TestMode)
	recorder := &auditRecorderStub{}
	router := gin.New()
	router.Use(JWT(stubValidator{}))
	router.POST("/transactions/:id/receipt/link", Audit(recorder, models.AuditActionReceiptShare, "transaction"), func(c *gin.Context) {
		if c.Param("id") == "missing" {
			c.Status(http.StatusNotFound)
			return
		}
		c.Status(http.StatusCreated)
	})

	serve(router, http.MethodPost, "/transactions/txn-1/receipt/link", "admin-token")
	serve(router, http.MethodPost, "/transactions/missing/receipt/link", "admin-token")

	require.Len(t, recorder.entries, 1)
	entry := recorder.entries[0]
	assert.Equal(t, models.AuditActionReceiptShare, entry.Action)
	require.NotNil(t, entry.ResourceID)
	assert.Equal(t, "txn-1", *entry.ResourceID)
	require.NotNil(t, entry.UserID)
	assert.Equal(t, "user-1", *entry.UserID)
	assert.Contains(t, string(entry.NewValues), `"status":201`)
}

func TestMetricsLabelsByRoutePattern(t *testing.T) {
	gin.SetMode(gin.TestMode)
	observer := &observerStub{}
	router := gin.New()
	router.Use(Metrics(observer))
	router.GET("/students/:id", func(c *gin.Context) { c.Status(http.StatusOK) })

	serve(router, http.MethodGet, "/students/STU001", "")
	serve(router, http.MethodGet, "/nowhere", "")

	assert.Equal(t, []string{"/students/:id", "unmatched"}, observer.paths)
}

func TestResponseMetaCarriesCacheHit(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(WithResponseMeta())
	router.GET("/analytics", func(c *gin.Context) {
		SetCacheHit(c, true)
		c.JSON(http.StatusOK, ResponseMeta(c))
	})

	rec := serve(router, http.MethodGet, "/analytics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"cache_hit":true`)
}

func TestResponseMetaWithoutMiddleware(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	meta := ResponseMeta(c)
	meta["x"] = 1
	assert.Equal(t, 1, ResponseMeta(c)["x"])
}
