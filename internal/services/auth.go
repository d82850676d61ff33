package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/yungbote/enrollment-backend/internal/data/repos"
	"github.com/yungbote/enrollment-backend/internal/domain/enrollment"
	"github.com/yungbote/enrollment-backend/internal/observability"
	"github.com/yungbote/enrollment-backend/internal/platform/apierr"
	"github.com/yungbote/enrollment-backend/internal/platform/ctxutil"
	"github.com/yungbote/enrollment-backend/internal/platform/dbctx"
	"github.com/yungbote/enrollment-backend/internal/platform/logger"
)

var errEmailTaken = apierr.New(http.StatusConflict, "email_taken", errors.New("email already registered"))

type RegisterRequest struct {
	FirstName string
	LastName  string
	Email     string
	Password  string
	// Role is honoured only when the caller is an admin; public sign-ups are students.
	Role string
}

type AuthService interface {
	Register(ctx context.Context, req RegisterRequest) (*enrollment.Student, error)
	Login(ctx context.Context, email, password string) (string, error)
	SetContextFromToken(ctx context.Context, tokenString string) (context.Context, error)
	// EnsureAdmin creates the bootstrap admin account unless the email is already registered.
	EnsureAdmin(ctx context.Context, email, password string) error
	GetAccessTTL() time.Duration
}

type JWTClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

type authService struct {
	db           *gorm.DB
	log          *logger.Logger
	studentRepo  repos.StudentRepo
	metrics      *observability.Metrics
	jwtSecretKey string
	accessTTL    time.Duration
	hashCost     int
	now          func() time.Time
}

func NewAuthService(
	db *gorm.DB,
	log *logger.Logger,
	studentRepo repos.StudentRepo,
	metrics *observability.Metrics,
	jwtSecretKey string,
	accessTTL time.Duration,
) AuthService {
	serviceLog := log.With("service", "AuthService")
	return &authService{
		db:           db,
		log:          serviceLog,
		studentRepo:  studentRepo,
		metrics:      metrics,
		jwtSecretKey: jwtSecretKey,
		accessTTL:    accessTTL,
		hashCost:     bcrypt.DefaultCost,
		now:          time.Now,
	}
}

func (as *authService) Register(ctx context.Context, req RegisterRequest) (*enrollment.Student, error) {
	role, err := enrollment.ParseRole(req.Role)
	if err != nil {
		return nil, err
	}
	if role == enrollment.RoleAdmin && !ctxutil.GetRequestData(ctx).IsAdmin() {
		as.metrics.IncSecurityEvent("register_admin_denied")
		return nil, apierr.Forbidden("only admins can register admins")
	}
	return as.createStudent(ctx, req, role)
}

func (as *authService) EnsureAdmin(ctx context.Context, email, password string) error {
	normalized, err := enrollment.NormalizeEmail(email)
	if err != nil {
		return err
	}
	taken, err := as.studentRepo.EmailTaken(dbctx.Context{Ctx: ctx}, normalized, uuid.Nil)
	if err != nil {
		return fmt.Errorf("check admin email: %w", err)
	}
	if taken {
		return nil
	}
	_, err = as.createStudent(ctx, RegisterRequest{
		FirstName: "System",
		LastName:  "Admin",
		Email:     normalized,
		Password:  password,
	}, enrollment.RoleAdmin)
	if err != nil {
		return err
	}
	as.log.Info("bootstrap admin created", "email", normalized)
	return nil
}

func (as *authService) createStudent(ctx context.Context, req RegisterRequest, role enrollment.Role) (*enrollment.Student, error) {
	first, err := enrollment.NormalizePersonName(req.FirstName)
	if err != nil {
		return nil, err
	}
	last, err := enrollment.NormalizePersonName(req.LastName)
	if err != nil {
		return nil, err
	}
	email, err := enrollment.NormalizeEmail(req.Email)
	if err != nil {
		return nil, err
	}
	if err := enrollment.CheckPassword(req.Password); err != nil {
		return nil, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), as.hashCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	student := &enrollment.Student{
		ID:           uuid.New(),
		FirstName:    first,
		LastName:     last,
		Email:        email,
		PasswordHash: string(hash),
		Role:         role,
	}
	err = as.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		dbc := dbctx.Context{Ctx: ctx, Tx: tx}
		taken, err := as.studentRepo.EmailTaken(dbc, email, uuid.Nil)
		if err != nil {
			return fmt.Errorf("check email: %w", err)
		}
		if taken {
			return errEmailTaken
		}
		if _, err := as.studentRepo.Create(dbc, []*enrollment.Student{student}); err != nil {
			return fmt.Errorf("create student: %w", err)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, errEmailTaken) {
			return nil, err
		}
		// A concurrent sign-up with the same address loses on the unique index.
		if taken, checkErr := as.studentRepo.EmailTaken(dbctx.Context{Ctx: ctx}, email, uuid.Nil); checkErr == nil && taken {
			return nil, errEmailTaken
		}
		as.log.Warn("Failed to register student", "error", err)
		return nil, err
	}
	return student, nil
}

func (as *authService) Login(ctx context.Context, email, password string) (string, error) {
	invalid := apierr.Unauthorized("invalid email or password")
	normalized, err := enrollment.NormalizeEmail(email)
	if err != nil || password == "" {
		as.metrics.IncSecurityEvent("login_invalid_input")
		return "", invalid
	}
	student, err := as.studentRepo.GetByEmail(dbctx.Context{Ctx: ctx}, normalized)
	if err != nil {
		return "", fmt.Errorf("lookup student by email: %w", err)
	}
	if student == nil {
		as.metrics.IncSecurityEvent("login_unknown_email")
		return "", invalid
	}
	if err := bcrypt.CompareHashAndPassword([]byte(student.PasswordHash), []byte(password)); err != nil {
		as.metrics.IncSecurityEvent("login_bad_password")
		return "", invalid
	}
	token, err := as.generateAccessToken(student)
	if err != nil {
		return "", fmt.Errorf("generate access token: %w", err)
	}
	return token, nil
}

func (as *authService) generateAccessToken(student *enrollment.Student) (string, error) {
	now := as.now()
	claims := JWTClaims{
		Role: student.Role.String(),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   student.ID.String(),
			ExpiresAt: jwt.NewNumericDate(now.Add(as.accessTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
			ID:        uuid.NewString(),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(as.jwtSecretKey))
}

// SetContextFromToken verifies an access token and attaches the principal it names. The role
// comes from the stored student, so a demotion applies to tokens issued before it.
func (as *authService) SetContextFromToken(ctx context.Context, tokenString string) (context.Context, error) {
	tokenString = strings.TrimSpace(tokenString)
	if tokenString == "" {
		return ctx, apierr.Unauthorized("missing token")
	}
	parsed, err := jwt.ParseWithClaims(tokenString, &JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		return []byte(as.jwtSecretKey), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(as.now))
	if err != nil {
		as.metrics.IncSecurityEvent("token_invalid")
		return ctx, apierr.New(http.StatusUnauthorized, "unauthorized", fmt.Errorf("parse token: %w", err))
	}
	claims, ok := parsed.Claims.(*JWTClaims)
	if !ok || !parsed.Valid {
		as.metrics.IncSecurityEvent("token_invalid")
		return ctx, apierr.Unauthorized("invalid or expired token")
	}
	studentID, err := uuid.Parse(claims.Subject)
	if err != nil {
		as.metrics.IncSecurityEvent("token_invalid")
		return ctx, apierr.Unauthorized("invalid subject in token")
	}
	student, err := as.studentRepo.GetByID(dbctx.Context{Ctx: ctx}, studentID)
	if err != nil {
		return ctx, fmt.Errorf("load token subject: %w", err)
	}
	if student == nil {
		as.metrics.IncSecurityEvent("token_unknown_subject")
		return ctx, apierr.Unauthorized("student no longer exists")
	}
	return ctxutil.WithRequestData(ctx, &ctxutil.RequestData{
		StudentID: student.ID,
		Role:      student.Role,
	}), nil
}

func (as *authService) GetAccessTTL() time.Duration {
	return as.accessTTL
}
