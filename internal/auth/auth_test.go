package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const testSecret = "test-secret"

func newTestRouter(audience string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/me", JWTMiddleware(testSecret, audience), func(c *gin.Context) {
		userID, _ := GetUserID(c.Request.Context())
		c.JSON(http.StatusOK, gin.H{"user": userID, "role": GetRole(c.Request.Context())})
	})
	return router
}

func doRequest(router *gin.Engine, header string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	return resp
}

func TestIssuedTokenPassesMiddleware(t *testing.T) {
	issuer, err := NewIssuer(testSecret, "face-auth", time.Hour)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	token, err := issuer.Issue("64b7f0c2a1b2c3d4e5f60718", "user")
	if err != nil {
		t.Fatalf("issue failed: %v", err)
	}

	resp := doRequest(newTestRouter("face-auth"), "Bearer "+token)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
	}
	if body := resp.Body.String(); body != `{"role":"user","user":"64b7f0c2a1b2c3d4e5f60718"}` {
		t.Fatalf("unexpected body %s", body)
	}
}

func TestIssuedTokenExpiry(t *testing.T) {
	issuer, _ := NewIssuer(testSecret, "", 30*24*time.Hour)
	fixed := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	issuer.now = func() time.Time { return fixed }
	token, err := issuer.Issue("u", "user")
	if err != nil {
		t.Fatalf("issue failed: %v", err)
	}

	claims := &Claims{}
	_, _, err = jwt.NewParser().ParseUnverified(token, claims)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if !claims.ExpiresAt.Time.Equal(fixed.Add(30 * 24 * time.Hour)) {
		t.Fatalf("unexpected expiry %v", claims.ExpiresAt)
	}
	if len(claims.Audience) != 0 {
		t.Fatalf("expected no audience, got %v", claims.Audience)
	}
}

func TestMiddlewareRejects(t *testing.T) {
	expired := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "u",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
	})
	expiredToken, _ := expired.SignedString([]byte(testSecret))

	foreign := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{Subject: "u"})
	foreignToken, _ := foreign.SignedString([]byte("other-secret"))

	noSubject := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{})
	noSubjectToken, _ := noSubject.SignedString([]byte(testSecret))

	wrongAudience := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{Subject: "u", Audience: jwt.ClaimStrings{"other"}})
	wrongAudienceToken, _ := wrongAudience.SignedString([]byte(testSecret))

	tests := map[string]string{
		"missing header": "",
		"basic scheme":   "Basic abc",
		"empty token":    "Bearer ",
		"expired":        "Bearer " + expiredToken,
		"foreign secret": "Bearer " + foreignToken,
		"no subject":     "Bearer " + noSubjectToken,
		"wrong audience": "Bearer " + wrongAudienceToken,
	}
	router := newTestRouter("face-auth")
	for name, header := range tests {
		if resp := doRequest(router, header); resp.Code != http.StatusUnauthorized {
			t.Errorf("%s: expected 401, got %d", name, resp.Code)
		}
	}
}

func TestNewIssuerValidates(t *testing.T) {
	if _, err := NewIssuer("", "", time.Hour); err == nil {
		t.Fatal("expected error for empty secret")
	}
	if _, err := NewIssuer("s", "", 0); err == nil {
		t.Fatal("expected error for zero ttl")
	}
}
