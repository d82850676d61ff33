package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/enrollment-backend/internal/domain/enrollment"
	"github.com/yungbote/enrollment-backend/internal/platform/ctxutil"
)

type fakeVerifier map[string]*ctxutil.RequestData

func (f fakeVerifier) SetContextFromToken(ctx context.Context, token string) (context.Context, error) {
	rd, ok := f[token]
	if !ok {
		return nil, errors.New("invalid token")
	}
	return ctxutil.WithRequestData(ctx, rd), nil
}

func TestRequireAuth(t *testing.T) {
	gin.SetMode(gin.TestMode)
	studentID := uuid.New()
	verifier := fakeVerifier{
		"student": {StudentID: studentID, Role: enrollment.RoleStudent},
		"admin":   {StudentID: uuid.New(), Role: enrollment.RoleAdmin},
	}
	am := NewAuthMiddleware(testLogger(t), verifier)

	r := gin.New()
	r.GET("/me", am.RequireAuth(), func(c *gin.Context) {
		rd := ctxutil.GetRequestData(c.Request.Context())
		c.String(http.StatusOK, rd.StudentID.String())
	})
	r.GET("/admin", am.RequireAuth(enrollment.RoleAdmin), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})

	cases := []struct {
		name   string
		path   string
		header string
		status int
	}{
		{"no header", "/me", "", http.StatusUnauthorized},
		{"wrong scheme", "/me", "Basic student", http.StatusUnauthorized},
		{"unknown token", "/me", "Bearer nope", http.StatusUnauthorized},
		{"student", "/me", "Bearer student", http.StatusOK},
		{"lowercase scheme", "/me", "bearer student", http.StatusOK},
		{"student on admin route", "/admin", "Bearer student", http.StatusForbidden},
		{"admin on admin route", "/admin", "Bearer admin", http.StatusNoContent},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodGet, tc.path, nil)
		if tc.header != "" {
			req.Header.Set("Authorization", tc.header)
		}
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		if rec.Code != tc.status {
			t.Fatalf("%s: want=%d got=%d", tc.name, tc.status, rec.Code)
		}
		if tc.status == http.StatusOK && rec.Body.String() != studentID.String() {
			t.Fatalf("%s: principal not attached, body=%s", tc.name, rec.Body.String())
		}
	}
}

func TestOptionalAuth(t *testing.T) {
	gin.SetMode(gin.TestMode)
	studentID := uuid.New()
	am := NewAuthMiddleware(testLogger(t), fakeVerifier{
		"student": {StudentID: studentID, Role: enrollment.RoleStudent},
	})
	r := gin.New()
	r.GET("/register", am.OptionalAuth(), func(c *gin.Context) {
		if rd := ctxutil.GetRequestData(c.Request.Context()); rd != nil {
			c.String(http.StatusOK, rd.StudentID.String())
			return
		}
		c.String(http.StatusOK, "anonymous")
	})

	do := func(header string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/register", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		return rec
	}
	if rec := do(""); rec.Code != http.StatusOK || rec.Body.String() != "anonymous" {
		t.Fatalf("anonymous: status=%d body=%s", rec.Code, rec.Body.String())
	}
	if rec := do("Bearer student"); rec.Body.String() != studentID.String() {
		t.Fatalf("authenticated: body=%s", rec.Body.String())
	}
	if rec := do("Bearer forged"); rec.Code != http.StatusUnauthorized {
		t.Fatalf("invalid token: want=401 got=%d", rec.Code)
	}
}
