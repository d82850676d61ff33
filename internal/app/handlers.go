package app

import (
	"context"

	"github.com/yungbote/enrollment-backend/internal/http/handlers"
	"github.com/yungbote/enrollment-backend/internal/platform/logger"
)

type Handlers struct {
	Auth       *handlers.AuthHandler
	Student    *handlers.StudentHandler
	Enrollment *handlers.EnrollmentHandler
	Health     *handlers.HealthHandler
}

func wireHandlers(log *logger.Logger, services Services, health map[string]func(context.Context) error) Handlers {
	log.Info("Wiring handlers...")
	return Handlers{
		Auth:       handlers.NewAuthHandler(services.Auth),
		Student:    handlers.NewStudentHandler(services.Student),
		Enrollment: handlers.NewEnrollmentHandler(services.Enrollment),
		Health:     handlers.NewHealthHandler(health),
	}
}
