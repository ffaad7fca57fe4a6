package app

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/you/accountsvc/internal/config"
	"github.com/you/accountsvc/internal/ratelimit"
)

func testConfig() *config.Config {
	return &config.Config{
		JWTSecret:        "0123456789abcdef0123456789abcdef",
		JWTIssuer:        "accountsvc-test",
		AccessTTL:        15 * time.Minute,
		RefreshTTL:       7 * 24 * time.Hour,
		OTPTTL:           5 * time.Minute,
		OTPSessionTTL:    15 * time.Minute,
		OTPMaxAttempts:   5,
		PasswordResetTTL: 10 * time.Minute,
		BcryptCost:       bcrypt.MinCost,
		RateLimitBackend: "redis",
		RateLimit: ratelimit.Config{
			Templates: map[string]ratelimit.BucketConfig{
				ratelimit.DefaultTemplate: {Capacity: 50, RefillTokens: 50, RefillPeriod: time.Minute},
			},
		},
		CleanupPendingMaxAge:  24 * time.Hour,
		CleanupDisabledMaxAge: 30 * 24 * time.Hour,
		CasbinModelPath:       "../../config/rbac_model.conf",
	}
}

func newTestContainer(t *testing.T, cfg *config.Config) (*Container, *miniredis.Miniredis, error) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	c, err := NewContainer(context.Background(), cfg, zap.NewNop(), WithDB(db), WithRedis(client))
	if err == nil {
		t.Cleanup(func() { _ = c.Close() })
	}
	return c, mr, err
}

func send(t *testing.T, r http.Handler, method, path string, body any, header http.Header) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range header {
		req.Header[k] = v
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeData(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var resp struct {
		Data map[string]any `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp.Data
}

func refreshCookie(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	for _, c := range w.Result().Cookies() {
		if c.Name == "refresh_token" {
			return c.Value
		}
	}
	t.Fatal("expected refresh_token cookie")
	return ""
}

func TestContainer_SignupVerifyAndUseAccount(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, mr, err := newTestContainer(t, testConfig())
	require.NoError(t, err)

	r, err := c.Router()
	require.NoError(t, err)

	w := send(t, r, http.MethodPost, "/auth/signup", map[string]string{
		"username":  "alice_01",
		"full_name": "Alice",
		"phone":     "+15551234567",
		"password":  "correct horse",
	}, nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	signup := decodeData(t, w)
	userID, _ := signup["user_id"].(string)
	sessionID, _ := signup["session_id"].(string)
	require.NotEmpty(t, userID)
	require.NotEmpty(t, sessionID)

	code, err := mr.Get("otp:" + userID)
	require.NoError(t, err, "expected a live verification code")

	w = send(t, r, http.MethodPost, "/auth/verify", map[string]string{"session_id": sessionID, "code": code}, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	session := decodeData(t, w)
	access, _ := session["access_token"].(string)
	require.NotEmpty(t, access)
	refresh := refreshCookie(t, w)

	bearer := http.Header{"Authorization": {"Bearer " + access}}

	w = send(t, r, http.MethodGet, "/account/me", nil, bearer)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	me := decodeData(t, w)
	assert.Equal(t, "alice_01", me["username"])
	assert.Equal(t, "ACTIVE", me["status"])

	w = send(t, r, http.MethodPost, "/auth/refresh", nil, http.Header{"Cookie": {"refresh_token=" + refresh}})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.NotEqual(t, refresh, refreshCookie(t, w))

	// the rotated-out token is gone
	w = send(t, r, http.MethodPost, "/auth/refresh", nil, http.Header{"Cookie": {"refresh_token=" + refresh}})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = send(t, r, http.MethodGet, "/admin/policies", nil, bearer)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = send(t, r, http.MethodGet, "/metrics", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "accountsvc_flow_outcomes_total")
}

func TestContainer_SeedsPoliciesOnce(t *testing.T) {
	c, _, err := newTestContainer(t, testConfig())
	require.NoError(t, err)

	first := len(c.PolicySvc.GetPolicies())
	require.NotZero(t, first)

	again, err := NewContainer(context.Background(), c.Config, zap.NewNop(), WithDB(c.DB), WithRedis(c.RedisClient))
	require.NoError(t, err)
	assert.Len(t, again.PolicySvc.GetPolicies(), first)
}

func TestNewContainer_RejectsBadRateLimitConfig(t *testing.T) {
	cfg := testConfig()
	cfg.RateLimit = ratelimit.Config{
		Templates: map[string]ratelimit.BucketConfig{
			ratelimit.DefaultTemplate: {Capacity: 5, RefillTokens: 5, RefillPeriod: time.Minute},
		},
		Operations: map[string]string{"login": "missing"},
	}

	_, _, err := newTestContainer(t, cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rate limit")
}
