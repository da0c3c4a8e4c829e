package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"chat_fanout_server/internal/config"
	"chat_fanout_server/pkg/constants"
	"chat_fanout_server/pkg/util/jwt"

	"github.com/gin-gonic/gin"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func authEngine(signer *jwt.Signer) *gin.Engine {
	r := gin.New()
	r.GET("/me", JWTAuth(signer), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"uid": c.GetInt64(constants.CTX_USER_ID)})
	})
	return r
}

func TestJWTAuth(t *testing.T) {
	signer := jwt.NewSigner("mw-test", 5)
	token, err := signer.GenerateAccessToken(42)
	if err != nil {
		t.Fatal(err)
	}
	other, err := jwt.NewSigner("other-secret", 5).GenerateAccessToken(42)
	if err != nil {
		t.Fatal(err)
	}

	cases := []struct {
		name   string
		header string
		query  string
		want   int
	}{
		{"bearer header", "Bearer " + token, "", http.StatusOK},
		{"query token", "", "?token=" + token, http.StatusOK},
		{"missing", "", "", http.StatusUnauthorized},
		{"not bearer", "Token " + token, "", http.StatusUnauthorized},
		{"wrong secret", "Bearer " + other, "", http.StatusUnauthorized},
		// header 优先，格式错误时不回退到 query
		{"bad header with query", "Basic abc", "?token=" + token, http.StatusUnauthorized},
	}
	r := authEngine(signer)
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me"+tc.query, nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			if w.Code != tc.want {
				t.Fatalf("status = %d, want %d (%s)", w.Code, tc.want, w.Body.String())
			}
		})
	}
}

func TestRateLimiterPerUser(t *testing.T) {
	l := NewRateLimiter(config.RateLimitConfig{RPS: 0.001, Burst: 2})
	if !l.Allow(1) || !l.Allow(1) {
		t.Fatal("burst should allow two requests")
	}
	if l.Allow(1) {
		t.Fatal("third request should be limited")
	}
	if !l.Allow(2) {
		t.Fatal("users must not share a bucket")
	}
}

func TestRateLimiterDisabled(t *testing.T) {
	l := NewRateLimiter(config.RateLimitConfig{})
	for i := 0; i < 100; i++ {
		if !l.Allow(1) {
			t.Fatal("rps <= 0 should disable limiting")
		}
	}
}

func TestRateLimiterSweepsIdleUsers(t *testing.T) {
	l := NewRateLimiter(config.RateLimitConfig{RPS: 1, Burst: 1})
	l.Allow(1)
	l.mu.Lock()
	l.limiters[1].lastSeen = time.Now().Add(-2 * limiterIdleTTL)
	l.lastSweep = time.Now().Add(-2 * limiterIdleTTL)
	l.mu.Unlock()

	l.Allow(2)
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.limiters[1]; ok {
		t.Fatal("idle limiter should be swept")
	}
	if _, ok := l.limiters[2]; !ok {
		t.Fatal("active limiter missing")
	}
}
