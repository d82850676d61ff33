package services

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	repotest "github.com/yungbote/enrollment-backend/internal/data/repos/testutil"
	"github.com/yungbote/enrollment-backend/internal/domain/enrollment"
	"github.com/yungbote/enrollment-backend/internal/platform/ctxutil"
	"github.com/yungbote/enrollment-backend/internal/platform/dbctx"
)

const testSecret = "test-secret"

func newTestAuth(t *testing.T, env *testEnv) *authService {
	t.Helper()
	svc := NewAuthService(env.db, repotest.Logger(t), env.students, nil, testSecret, time.Hour).(*authService)
	svc.hashCost = bcrypt.MinCost
	return svc
}

func registerReq(email string) RegisterRequest {
	return RegisterRequest{FirstName: "María", LastName: "López", Email: email, Password: "secret123"}
}

func TestAuthRegisterLoginRoundTrip(t *testing.T) {
	env := newTestEnv(t)
	auth := newTestAuth(t, env)
	ctx := context.Background()
	email := uuid.NewString() + "@Example.com"

	student, err := auth.Register(ctx, registerReq("  "+email+" "))
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if student.Role != enrollment.RoleStudent {
		t.Fatalf("role: want=%s got=%s", enrollment.RoleStudent, student.Role)
	}
	if student.PasswordHash == "secret123" || student.PasswordHash == "" {
		t.Fatalf("password not hashed")
	}

	token, err := auth.Login(ctx, email, "secret123")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	authed, err := auth.SetContextFromToken(ctx, token)
	if err != nil {
		t.Fatalf("SetContextFromToken: %v", err)
	}
	rd := ctxutil.GetRequestData(authed)
	if rd == nil || rd.StudentID != student.ID || rd.Role != enrollment.RoleStudent {
		t.Fatalf("request data: %+v", rd)
	}
}

func TestAuthRegisterRejectsDuplicateEmail(t *testing.T) {
	env := newTestEnv(t)
	auth := newTestAuth(t, env)
	email := uuid.NewString() + "@example.com"

	if _, err := auth.Register(context.Background(), registerReq(email)); err != nil {
		t.Fatalf("Register: %v", err)
	}
	_, err := auth.Register(context.Background(), registerReq(email))
	wantAPIStatus(t, err, http.StatusConflict)
}

func TestAuthRegisterValidation(t *testing.T) {
	env := newTestEnv(t)
	auth := newTestAuth(t, env)

	req := registerReq("not-an-email")
	if _, err := auth.Register(context.Background(), req); !enrollment.IsInvalidInput(err) {
		t.Fatalf("want invalid input for email, got=%v", err)
	}
	req = registerReq(uuid.NewString() + "@example.com")
	req.Password = "123"
	if _, err := auth.Register(context.Background(), req); !enrollment.IsInvalidInput(err) {
		t.Fatalf("want invalid input for password, got=%v", err)
	}
	req = registerReq(uuid.NewString() + "@example.com")
	req.FirstName = "R2-D2"
	if _, err := auth.Register(context.Background(), req); !enrollment.IsInvalidInput(err) {
		t.Fatalf("want invalid input for name, got=%v", err)
	}
}

func TestAuthRegisterAdminRequiresAdmin(t *testing.T) {
	env := newTestEnv(t)
	auth := newTestAuth(t, env)
	req := registerReq(uuid.NewString() + "@example.com")
	req.Role = "admin"

	_, err := auth.Register(context.Background(), req)
	wantAPIStatus(t, err, http.StatusForbidden)

	admin := repotest.SeedStudent(t, context.Background(), env.db, enrollment.RoleAdmin)
	created, err := auth.Register(asPrincipal(admin), req)
	if err != nil {
		t.Fatalf("admin Register: %v", err)
	}
	if created.Role != enrollment.RoleAdmin {
		t.Fatalf("role: want=admin got=%s", created.Role)
	}
}

func TestAuthLoginFailures(t *testing.T) {
	env := newTestEnv(t)
	auth := newTestAuth(t, env)
	email := uuid.NewString() + "@example.com"
	if _, err := auth.Register(context.Background(), registerReq(email)); err != nil {
		t.Fatalf("Register: %v", err)
	}

	_, err := auth.Login(context.Background(), email, "wrong-password")
	wantAPIStatus(t, err, http.StatusUnauthorized)
	_, err = auth.Login(context.Background(), uuid.NewString()+"@example.com", "secret123")
	wantAPIStatus(t, err, http.StatusUnauthorized)
	_, err = auth.Login(context.Background(), "", "")
	wantAPIStatus(t, err, http.StatusUnauthorized)
}

func TestAuthRejectsBadTokens(t *testing.T) {
	env := newTestEnv(t)
	auth := newTestAuth(t, env)
	student := repotest.SeedStudent(t, context.Background(), env.db, enrollment.RoleStudent)

	auth.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	expired, err := auth.generateAccessToken(student)
	if err != nil {
		t.Fatalf("generateAccessToken: %v", err)
	}
	auth.now = time.Now
	_, err = auth.SetContextFromToken(context.Background(), expired)
	wantAPIStatus(t, err, http.StatusUnauthorized)

	forged, err := jwt.NewWithClaims(jwt.SigningMethodHS256, JWTClaims{
		Role:             "admin",
		RegisteredClaims: jwt.RegisteredClaims{Subject: student.ID.String(), ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))},
	}).SignedString([]byte("other-secret"))
	if err != nil {
		t.Fatalf("sign forged token: %v", err)
	}
	_, err = auth.SetContextFromToken(context.Background(), forged)
	wantAPIStatus(t, err, http.StatusUnauthorized)

	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, JWTClaims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: student.ID.String()},
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("sign none token: %v", err)
	}
	_, err = auth.SetContextFromToken(context.Background(), unsigned)
	wantAPIStatus(t, err, http.StatusUnauthorized)

	ghost := &enrollment.Student{ID: uuid.New(), Role: enrollment.RoleAdmin}
	token, err := auth.generateAccessToken(ghost)
	if err != nil {
		t.Fatalf("generateAccessToken: %v", err)
	}
	_, err = auth.SetContextFromToken(context.Background(), token)
	wantAPIStatus(t, err, http.StatusUnauthorized)
}

func TestAuthTokenRoleFollowsStoredStudent(t *testing.T) {
	env := newTestEnv(t)
	auth := newTestAuth(t, env)
	student := repotest.SeedStudent(t, context.Background(), env.db, enrollment.RoleStudent)

	claimsAdmin := *student
	claimsAdmin.Role = enrollment.RoleAdmin
	token, err := auth.generateAccessToken(&claimsAdmin)
	if err != nil {
		t.Fatalf("generateAccessToken: %v", err)
	}
	ctx, err := auth.SetContextFromToken(context.Background(), token)
	if err != nil {
		t.Fatalf("SetContextFromToken: %v", err)
	}
	if ctxutil.GetRequestData(ctx).IsAdmin() {
		t.Fatalf("token role claim must not override the stored role")
	}
}

func TestAuthEnsureAdminIsIdempotent(t *testing.T) {
	env := newTestEnv(t)
	auth := newTestAuth(t, env)
	email := uuid.NewString() + "@example.com"

	for i := 0; i < 2; i++ {
		if err := auth.EnsureAdmin(context.Background(), email, "bootstrap-pass"); err != nil {
			t.Fatalf("EnsureAdmin #%d: %v", i+1, err)
		}
	}
	admin, err := env.students.GetByEmail(dbctx.Context{Ctx: context.Background()}, email)
	if err != nil || admin == nil {
		t.Fatalf("GetByEmail: admin=%v err=%v", admin, err)
	}
	if admin.Role != enrollment.RoleAdmin {
		t.Fatalf("role: want=admin got=%s", admin.Role)
	}
	if _, err := auth.Login(context.Background(), email, "bootstrap-pass"); err != nil {
		t.Fatalf("admin Login: %v", err)
	}
}
