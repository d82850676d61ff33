package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/yungbote/enrollment-backend/internal/domain/enrollment"
)

func SeedStudent(tb testing.TB, ctx context.Context, tx *gorm.DB, role enrollment.Role) *enrollment.Student {
	tb.Helper()
	id := uuid.New()
	s := &enrollment.Student{
		ID:           id,
		FirstName:    "Ana",
		LastName:     "Perez",
		Email:        id.String() + "@example.com",
		PasswordHash: "$2a$10$notarealhashnotarealhashnotarealhashnotarealhashnot",
		Role:         role,
	}
	if err := tx.WithContext(ctx).Create(s).Error; err != nil {
		tb.Fatalf("seed student: %v", err)
	}
	return s
}

// SeedEnrollment inserts an active enrollment with the given courses, keeping the stored
// total equal to their sum.
func SeedEnrollment(tb testing.TB, ctx context.Context, tx *gorm.DB, studentID uuid.UUID, ceiling int, credits ...int) *enrollment.SemesterEnrollment {
	tb.Helper()
	owner := studentID
	row := &enrollment.SemesterEnrollment{
		ID:             uuid.New(),
		StudentID:      studentID,
		ActiveOwnerID:  &owner,
		SemesterName:   "Fall 2026",
		EnrolledAt:     time.Now().UTC(),
		MaxCreditHours: ceiling,
	}
	for i, c := range credits {
		row.CurrentCreditHours += c
		row.Courses = append(row.Courses, enrollment.EnrolledCourse{
			ID:          uuid.New(),
			CourseName:  "Course " + string(rune('A'+i)),
			CreditHours: c,
			CreatedAt:   time.Now().UTC().Add(time.Duration(i) * time.Millisecond),
		})
	}
	courses := row.Courses
	row.Courses = nil
	if err := tx.WithContext(ctx).Omit(clause.Associations).Create(row).Error; err != nil {
		tb.Fatalf("seed enrollment: %v", err)
	}
	for i := range courses {
		courses[i].SemesterEnrollmentID = row.ID
		if err := tx.WithContext(ctx).Create(&courses[i]).Error; err != nil {
			tb.Fatalf("seed enrolled course: %v", err)
		}
	}
	row.Courses = courses
	return row
}
