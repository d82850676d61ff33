package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/enrollment-backend/internal/http/response"
	"github.com/yungbote/enrollment-backend/internal/services"
)

type EnrollmentHandler struct {
	enrollments services.EnrollmentService
}

func NewEnrollmentHandler(enrollments services.EnrollmentService) *EnrollmentHandler {
	return &EnrollmentHandler{enrollments: enrollments}
}

// POST /api/enrollments/start
func (h *EnrollmentHandler) StartEnrollment(c *gin.Context) {
	var req struct {
		StudentID      string     `json:"student_id"`
		SemesterName   string     `json:"semester_name"`
		MaxCreditHours int        `json:"max_credit_hours"`
		EnrolledAt     *time.Time `json:"enrolled_at"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	in := services.StartEnrollmentRequest{
		SemesterName:   req.SemesterName,
		MaxCreditHours: req.MaxCreditHours,
	}
	if raw := strings.TrimSpace(req.StudentID); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			response.RespondError(c, http.StatusBadRequest, "invalid_student_id", err)
			return
		}
		in.StudentID = id
	}
	if req.EnrolledAt != nil {
		in.EnrolledAt = *req.EnrolledAt
	}
	out, err := h.enrollments.StartEnrollment(c.Request.Context(), in)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.RespondCreated(c, gin.H{"enrollment": out})
}

// GET /api/enrollments
func (h *EnrollmentHandler) ListEnrollments(c *gin.Context) {
	page, ok := pageQuery(c)
	if !ok {
		return
	}
	out, err := h.enrollments.ListEnrollments(c.Request.Context(), page)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.RespondOK(c, out)
}

// GET /api/enrollments/:id
func (h *EnrollmentHandler) GetEnrollment(c *gin.Context) {
	id, ok := uuidParam(c, "id", "invalid_enrollment_id")
	if !ok {
		return
	}
	out, err := h.enrollments.GetEnrollment(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"enrollment": out})
}

// DELETE /api/enrollments/:id
func (h *EnrollmentHandler) DeleteEnrollment(c *gin.Context) {
	id, ok := uuidParam(c, "id", "invalid_enrollment_id")
	if !ok {
		return
	}
	if err := h.enrollments.DeleteEnrollment(c.Request.Context(), id); err != nil {
		respondServiceError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// POST /api/enrollments/:id/courses
func (h *EnrollmentHandler) EnrollCourse(c *gin.Context) {
	id, ok := uuidParam(c, "id", "invalid_enrollment_id")
	if !ok {
		return
	}
	var req struct {
		CourseName  string `json:"course_name"`
		CreditHours int    `json:"credit_hours"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	out, err := h.enrollments.EnrollCourse(c.Request.Context(), id, req.CourseName, req.CreditHours)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.RespondCreated(c, out)
}

// DELETE /api/enrollments/:id/courses/:courseId
func (h *EnrollmentHandler) RemoveCourse(c *gin.Context) {
	id, ok := uuidParam(c, "id", "invalid_enrollment_id")
	if !ok {
		return
	}
	courseID, ok := uuidParam(c, "courseId", "invalid_course_id")
	if !ok {
		return
	}
	out, err := h.enrollments.RemoveCourse(c.Request.Context(), id, courseID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.RespondOK(c, out)
}
