package db

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/yungbote/enrollment-backend/internal/domain/enrollment"
)

func AutoMigrateAll(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&enrollment.Student{},
		&enrollment.SemesterEnrollment{},
		&enrollment.EnrolledCourse{},
	); err != nil {
		return fmt.Errorf("automigrate: %w", err)
	}
	return nil
}
