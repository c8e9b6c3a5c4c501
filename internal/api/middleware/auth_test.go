package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testSecret   = "unit-test-secret-0123456789-unit-test"
	testIssuer   = "wallet-api-test"
	testAudience = "wallet-clients-test"
)

func signTestToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	s, err := token.SignedString([]byte(testSecret))
	require.NoError(t, err)
	return s
}

func defaultClaims(userID string) jwt.MapClaims {
	now := time.Now()
	return jwt.MapClaims{
		"user_id": userID,
		"role":    "user",
		"sub":     userID,
		"iss":     testIssuer,
		"aud":     testAudience,
		"iat":     now.Unix(),
		"nbf":     now.Add(-30 * time.Second).Unix(),
		"exp":     now.Add(time.Hour).Unix(),
	}
}

func authProbe() (http.Handler, *string, *string) {
	var gotUser, gotRole string
	h := AuthMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUser = UserIDFromContext(r.Context())
		gotRole = UserRoleFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))
	return h, &gotUser, &gotRole
}

func TestAuthMiddleware_ValidToken(t *testing.T) {
	SetJWTSecret(testSecret)
	SetJWTValidation(testIssuer, testAudience)

	userID := uuid.New().String()
	h, gotUser, gotRole := authProbe()

	req := httptest.NewRequest("GET", "/balance", nil)
	req.Header.Set("Authorization", "Bearer "+signTestToken(t, defaultClaims(userID)))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, userID, *gotUser)
	assert.Equal(t, "user", *gotRole)
}

func TestAuthMiddleware_MissingHeader(t *testing.T) {
	SetJWTSecret(testSecret)
	SetJWTValidation(testIssuer, testAudience)

	h, _, _ := authProbe()
	req := httptest.NewRequest("GET", "/balance", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthMiddleware_WrongSignature(t *testing.T) {
	SetJWTSecret(testSecret)
	SetJWTValidation(testIssuer, testAudience)

	userID := uuid.New().String()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, defaultClaims(userID))
	s, err := token.SignedString([]byte("some-other-secret-that-is-long-enough"))
	require.NoError(t, err)

	h, _, _ := authProbe()
	req := httptest.NewRequest("GET", "/balance", nil)
	req.Header.Set("Authorization", "Bearer "+s)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthMiddleware_WrongAudience(t *testing.T) {
	SetJWTSecret(testSecret)
	SetJWTValidation(testIssuer, testAudience)

	claims := defaultClaims(uuid.New().String())
	claims["aud"] = "someone-else"

	h, _, _ := authProbe()
	req := httptest.NewRequest("GET", "/balance", nil)
	req.Header.Set("Authorization", "Bearer "+signTestToken(t, claims))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthMiddleware_ExpiredToken(t *testing.T) {
	SetJWTSecret(testSecret)
	SetJWTValidation(testIssuer, testAudience)

	claims := defaultClaims(uuid.New().String())
	claims["exp"] = time.Now().Add(-time.Minute).Unix()

	h, _, _ := authProbe()
	req := httptest.NewRequest("GET", "/balance", nil)
	req.Header.Set("Authorization", "Bearer "+signTestToken(t, claims))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthMiddleware_SubjectMismatch(t *testing.T) {
	SetJWTSecret(testSecret)
	SetJWTValidation(testIssuer, testAudience)

	claims := defaultClaims(uuid.New().String())
	claims["sub"] = uuid.New().String()

	h, _, _ := authProbe()
	req := httptest.NewRequest("GET", "/balance", nil)
	req.Header.Set("Authorization", "Bearer "+signTestToken(t, claims))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRequireRole(t *testing.T) {
	SetJWTSecret(testSecret)
	SetJWTValidation(testIssuer, testAudience)

	claims := defaultClaims(uuid.New().String())
	claims["role"] = "user"

	h := AuthMiddleware(RequireRole("admin")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})))

	req := httptest.NewRequest("GET", "/admin", nil)
	req.Header.Set("Authorization", "Bearer "+signTestToken(t, claims))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)
}
