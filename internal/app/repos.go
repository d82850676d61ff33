package app

import (
	"gorm.io/gorm"

	"github.com/yungbote/enrollment-backend/internal/data/repos"
	"github.com/yungbote/enrollment-backend/internal/platform/logger"
)

type Repos struct {
	Student            repos.StudentRepo
	SemesterEnrollment repos.SemesterEnrollmentRepo
	EnrolledCourse     repos.EnrolledCourseRepo
}

func wireRepos(db *gorm.DB, log *logger.Logger) Repos {
	log.Info("Wiring repos...")
	return Repos{
		Student:            repos.NewStudentRepo(db, log),
		SemesterEnrollment: repos.NewSemesterEnrollmentRepo(db, log),
		EnrolledCourse:     repos.NewEnrolledCourseRepo(db, log),
	}
}
