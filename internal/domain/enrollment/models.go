package enrollment

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Identifiers are stored as 36-char strings so the same schema migrates on Postgres, MySQL and SQLite.

type Student struct {
	ID           uuid.UUID `gorm:"type:varchar(36);primaryKey" json:"id"`
	FirstName    string    `gorm:"column:first_name;size:100;not null" json:"first_name"`
	LastName     string    `gorm:"column:last_name;size:100;not null" json:"last_name"`
	Email        string    `gorm:"column:email;size:150;not null;uniqueIndex:idx_student_email" json:"email"`
	PasswordHash string    `gorm:"column:password_hash;size:255;not null" json:"-"`
	Role         Role      `gorm:"column:role;size:20;not null" json:"role"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (Student) TableName() string { return "student" }

func (s *Student) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	if s.Role == "" {
		s.Role = RoleStudent
	}
	return nil
}

func (s *Student) FullName() string {
	return s.FirstName + " " + s.LastName
}

// SemesterEnrollment is the persisted header row of a student's enrollment.
//
// CurrentCreditHours and Version are written only by the enrollment aggregate through a
// version-guarded update; everything else reads them. ActiveOwnerID mirrors StudentID while
// the enrollment is active and carries the unique index that allows one active enrollment
// per student. NULLs do not collide in that index.
type SemesterEnrollment struct {
	ID            uuid.UUID  `gorm:"type:varchar(36);primaryKey" json:"id"`
	StudentID     uuid.UUID  `gorm:"type:varchar(36);not null;index" json:"student_id"`
	ActiveOwnerID *uuid.UUID `gorm:"column:active_owner_id;type:varchar(36);uniqueIndex:idx_semester_enrollment_active_owner" json:"-"`

	SemesterName       string    `gorm:"column:semester_name;size:100;not null" json:"semester_name"`
	EnrolledAt         time.Time `gorm:"column:enrolled_at;not null" json:"enrolled_at"`
	MaxCreditHours     int       `gorm:"column:max_credit_hours;not null" json:"max_credit_hours"`
	CurrentCreditHours int       `gorm:"column:current_credit_hours;not null;default:0" json:"current_credit_hours"`
	Version            int       `gorm:"column:version;not null;default:0" json:"version"`

	Courses []EnrolledCourse `gorm:"foreignKey:SemesterEnrollmentID" json:"courses"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (SemesterEnrollment) TableName() string { return "semester_enrollment" }

func (e *SemesterEnrollment) BeforeCreate(tx *gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}

// IsActive reports whether the row currently holds its student's active slot.
func (e *SemesterEnrollment) IsActive() bool {
	return e.ActiveOwnerID != nil && *e.ActiveOwnerID == e.StudentID
}

type EnrolledCourse struct {
	ID                   uuid.UUID `gorm:"type:varchar(36);primaryKey" json:"id"`
	SemesterEnrollmentID uuid.UUID `gorm:"column:semester_enrollment_id;type:varchar(36);not null;index" json:"semester_enrollment_id"`
	CourseName           string    `gorm:"column:course_name;size:150;not null" json:"course_name"`
	CreditHours          int       `gorm:"column:credit_hours;not null" json:"credit_hours"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
}

func (EnrolledCourse) TableName() string { return "enrolled_course" }

func (c *EnrolledCourse) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}
