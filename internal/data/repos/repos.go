package repos

import (
	"gorm.io/gorm"

	"github.com/yungbote/enrollment-backend/internal/data/repos/enrollment"
	"github.com/yungbote/enrollment-backend/internal/platform/logger"
)

type Page = enrollment.Page

type StudentRepo = enrollment.StudentRepo
type SemesterEnrollmentRepo = enrollment.SemesterEnrollmentRepo
type EnrolledCourseRepo = enrollment.EnrolledCourseRepo

func NewStudentRepo(db *gorm.DB, baseLog *logger.Logger) StudentRepo {
	return enrollment.NewStudentRepo(db, baseLog)
}
func NewSemesterEnrollmentRepo(db *gorm.DB, baseLog *logger.Logger) SemesterEnrollmentRepo {
	return enrollment.NewSemesterEnrollmentRepo(db, baseLog)
}
func NewEnrolledCourseRepo(db *gorm.DB, baseLog *logger.Logger) EnrolledCourseRepo {
	return enrollment.NewEnrolledCourseRepo(db, baseLog)
}
