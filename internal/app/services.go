package app

import (
	"gorm.io/gorm"

	"github.com/yungbote/enrollment-backend/internal/data/aggregates"
	domainagg "github.com/yungbote/enrollment-backend/internal/domain/aggregates"
	"github.com/yungbote/enrollment-backend/internal/observability"
	"github.com/yungbote/enrollment-backend/internal/platform/logger"
	"github.com/yungbote/enrollment-backend/internal/services"
)

type Services struct {
	EnrollmentAggregate domainagg.EnrollmentAggregate

	Auth       services.AuthService
	Student    services.StudentService
	Enrollment services.EnrollmentService
}

func wireServices(db *gorm.DB, log *logger.Logger, cfg Config, reposet Repos, metrics *observability.Metrics) Services {
	log.Info("Wiring services...")

	retries := aggregates.RetryPolicy{MaxRetries: cfg.ConflictRetries, Backoff: cfg.ConflictBackoff}
	if cfg.ConflictRetries == 0 {
		// zero in the policy means "use defaults"; the env value 0 means no retries
		retries.MaxRetries = -1
	}
	agg := aggregates.NewEnrollmentAggregate(aggregates.EnrollmentAggregateDeps{
		Base: aggregates.BaseDeps{
			DB:    db,
			Log:   log,
			Hooks: aggregates.NewObservabilityHooks(metrics),
			Retry: retries,
		},
		Students:    reposet.Student,
		Enrollments: reposet.SemesterEnrollment,
		Courses:     reposet.EnrolledCourse,
		Limits:      cfg.Limits(),
	})

	return Services{
		EnrollmentAggregate: agg,
		Auth:                services.NewAuthService(db, log, reposet.Student, metrics, cfg.JWTSecretKey, cfg.AccessTokenTTL),
		Student:             services.NewStudentService(db, log, reposet.Student, reposet.SemesterEnrollment, reposet.EnrolledCourse),
		Enrollment:          services.NewEnrollmentService(log, agg, reposet.SemesterEnrollment, cfg.WriteTimeout),
	}
}
