package http

import (
	"net/netip"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/yungbote/enrollment-backend/internal/domain/enrollment"
	httpH "github.com/yungbote/enrollment-backend/internal/http/handlers"
	httpMW "github.com/yungbote/enrollment-backend/internal/http/middleware"
	"github.com/yungbote/enrollment-backend/internal/observability"
	"github.com/yungbote/enrollment-backend/internal/platform/logger"
)

const serviceName = "enrollment-backend"

type RouterConfig struct {
	Log     *logger.Logger
	Metrics *observability.Metrics

	AuthHandler       *httpH.AuthHandler
	AuthMiddleware    *httpMW.AuthMiddleware
	StudentHandler    *httpH.StudentHandler
	EnrollmentHandler *httpH.EnrollmentHandler
	HealthHandler     *httpH.HealthHandler

	Idempotency *httpMW.Idempotency
	AllowedIPs  []netip.Prefix
	CORSOrigins []string
}

// probePaths are served to infrastructure, not API clients.
var probePaths = []string{"/healthcheck", "/metrics"}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(otelgin.Middleware(serviceName))
	r.Use(httpMW.AttachTraceContext())
	r.Use(httpMW.RequestLogger(cfg.Log, probePaths...))
	r.Use(httpMW.CORS(cfg.CORSOrigins))
	r.Use(httpMW.Metrics(cfg.Metrics, probePaths...))

	// Health
	if cfg.HealthHandler != nil {
		r.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
	}
	if cfg.Metrics != nil {
		r.GET("/metrics", gin.WrapF(cfg.Metrics.WriteHTTP))
	}

	api := r.Group("/api")
	{
		// Auth (public). A bearer token on register lets admins create admins.
		if cfg.AuthHandler != nil {
			register := []gin.HandlerFunc{}
			if cfg.AuthMiddleware != nil {
				register = append(register, cfg.AuthMiddleware.OptionalAuth())
			}
			register = append(register, cfg.AuthHandler.Register)
			api.POST("/students/register", register...)
			api.POST("/auth/login", cfg.AuthHandler.Login)
		}
	}

	protected := api.Group("/")
	{
		// Middleware
		protected.Use(httpMW.IPAllowList(cfg.Log, cfg.Metrics, cfg.AllowedIPs))
		if cfg.AuthMiddleware != nil {
			protected.Use(cfg.AuthMiddleware.RequireAuth())
		}
		protected.Use(cfg.Idempotency.Handler())

		// Enrollments
		if cfg.EnrollmentHandler != nil {
			protected.POST("/enrollments/start", cfg.EnrollmentHandler.StartEnrollment)
			protected.GET("/enrollments", cfg.EnrollmentHandler.ListEnrollments)
			protected.GET("/enrollments/:id", cfg.EnrollmentHandler.GetEnrollment)
			protected.DELETE("/enrollments/:id", cfg.EnrollmentHandler.DeleteEnrollment)
			protected.POST("/enrollments/:id/courses", cfg.EnrollmentHandler.EnrollCourse)
			protected.DELETE("/enrollments/:id/courses/:courseId", cfg.EnrollmentHandler.RemoveCourse)
		}

		// Students
		if cfg.StudentHandler != nil {
			if cfg.AuthMiddleware != nil {
				protected.GET("/students", cfg.AuthMiddleware.RequireAuth(enrollment.RoleAdmin), cfg.StudentHandler.ListStudents)
			} else {
				protected.GET("/students", cfg.StudentHandler.ListStudents)
			}
			protected.GET("/students/:id", cfg.StudentHandler.GetStudent)
			protected.PUT("/students/:id", cfg.StudentHandler.UpdateStudent)
			protected.DELETE("/students/:id", cfg.StudentHandler.DeleteStudent)
		}
	}

	return r
}
