package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"

	"github.com/oksasatya/go-adoptme/internal/domain/entity"
	"github.com/oksasatya/go-adoptme/pkg/helpers"
)

func init() { gin.SetMode(gin.TestMode) }

type revoked map[string]bool

func (r revoked) IsRevoked(_ context.Context, jti string) (bool, error) {
	return r[jti], nil
}

type brokenRevocations struct{}

func (brokenRevocations) IsRevoked(context.Context, string) (bool, error) {
	return false, errors.New("redis down")
}

func identityEngine(jwt *helpers.JWTManager, rv RevocationChecker) *gin.Engine {
	r := gin.New()
	r.GET("/me", Identity(jwt, "coderCookie", rv, nil), func(c *gin.Context) {
		c.String(http.StatusOK, Subject(c).ID)
	})
	return r
}

func TestIdentity(t *testing.T) {
	jwt := helpers.NewJWTManager("secret", time.Hour)
	subj := entity.Subject{ID: "665f1c2e9b1d4a3f8c7e6d5a", Role: entity.RoleUser}
	token, _, err := jwt.Generate(subj)
	if err != nil {
		t.Fatal(err)
	}
	claims, _ := jwt.Parse(token)
	expired, _, _ := helpers.NewJWTManager("secret", time.Hour).
		WithClock(func() time.Time { return time.Now().Add(-2 * time.Hour) }).Generate(subj)

	tests := []struct {
		name    string
		prepare func(*http.Request)
		revoked revoked
		want    int
	}{
		{"missing", func(*http.Request) {}, nil, http.StatusUnauthorized},
		{"cookie", func(r *http.Request) { r.AddCookie(&http.Cookie{Name: "coderCookie", Value: token}) }, nil, http.StatusOK},
		{"bearer", func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+token) }, nil, http.StatusOK},
		{"garbage", func(r *http.Request) { r.Header.Set("Authorization", "Bearer nope") }, nil, http.StatusUnauthorized},
		{"expired", func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+expired) }, nil, http.StatusUnauthorized},
		{"revoked", func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+token) }, revoked{claims.RegisteredClaims.ID: true}, http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var rv RevocationChecker
			if tt.revoked != nil {
				rv = tt.revoked
			}
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			tt.prepare(req)
			w := httptest.NewRecorder()
			identityEngine(jwt, rv).ServeHTTP(w, req)
			if w.Code != tt.want {
				t.Fatalf("status = %d, want %d (%s)", w.Code, tt.want, w.Body.String())
			}
			if tt.want == http.StatusOK && w.Body.String() != subj.ID {
				t.Fatalf("subject = %q", w.Body.String())
			}
		})
	}
}

func TestIdentityRevocationOutage(t *testing.T) {
	jwt := helpers.NewJWTManager("secret", time.Hour)
	subj := entity.Subject{ID: "665f1c2e9b1d4a3f8c7e6d5a", Role: entity.RoleUser}
	token, _, err := jwt.Generate(subj)
	if err != nil {
		t.Fatal(err)
	}
	logger, hook := logtest.NewNullLogger()
	r := gin.New()
	r.GET("/me", Identity(jwt, "coderCookie", brokenRevocations{}, logger), func(c *gin.Context) {
		c.String(http.StatusOK, Subject(c).ID)
	})

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK || w.Body.String() != subj.ID {
		t.Fatalf("outage should not lock users out: %d %s", w.Code, w.Body.String())
	}
	entry := hook.LastEntry()
	if entry == nil || entry.Level != logrus.WarnLevel || entry.Data[logrus.ErrorKey] == nil || entry.Data["user_id"] != subj.ID {
		t.Fatalf("outage not logged: %+v", entry)
	}
}

func TestRateLimitLocal(t *testing.T) {
	r := gin.New()
	r.Use(RealIP(), RateLimit(NewLocalLimiter(time.Minute), 2, KeyByIP(), AllowPaths("/health")))
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusNoContent) })
	r.GET("/health", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	hit := func(path, ip string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		req.Header.Set("X-Forwarded-For", ip)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w
	}
	for i := 0; i < 2; i++ {
		if w := hit("/x", "10.0.0.1"); w.Code != http.StatusNoContent {
			t.Fatalf("hit %d = %d", i, w.Code)
		}
	}
	w := hit("/x", "10.0.0.1")
	if w.Code != http.StatusTooManyRequests || w.Header().Get("Retry-After") == "" {
		t.Fatalf("third hit = %d %v", w.Code, w.Header())
	}
	if w := hit("/x", "10.0.0.2"); w.Code != http.StatusNoContent {
		t.Fatal("other client limited")
	}
	if w := hit("/health", "10.0.0.1"); w.Code != http.StatusNoContent {
		t.Fatal("allowlisted path limited")
	}
}

func TestRequestIDAndPrivateOnly(t *testing.T) {
	r := gin.New()
	r.Use(RequestID(), RealIP())
	r.GET("/debug", Only(AllowPrivateIP()), func(c *gin.Context) { c.String(http.StatusOK, c.GetString(CtxRequestID)) })

	req := httptest.NewRequest(http.MethodGet, "/debug", nil)
	req.Header.Set(HeaderRequestID, "abc")
	req.Header.Set("X-Forwarded-For", "192.168.1.4, 8.8.8.8")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK || w.Body.String() != "abc" || w.Header().Get(HeaderRequestID) != "abc" {
		t.Fatalf("%d %q", w.Code, w.Body.String())
	}

	req = httptest.NewRequest(http.MethodGet, "/debug", nil)
	req.Header.Set("CF-Connecting-IP", "8.8.8.8")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusForbidden || w.Header().Get(HeaderRequestID) == "" {
		t.Fatalf("public ip: %d", w.Code)
	}
}

func TestValidRequestID(t *testing.T) {
	for id, want := range map[string]bool{
		"abc":                   true,
		"req-1.2_x":             true,
		"":                      false,
		"has space":             false,
		"line\nbreak":           false,
		strings.Repeat("a", 65): false,
	} {
		if got := validRequestID(id); got != want {
			t.Errorf("validRequestID(%q) = %v", id, got)
		}
	}
}
