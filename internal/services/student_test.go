package services

import (
	"context"
	"net/http"
	"testing"

	"github.com/google/uuid"

	"github.com/yungbote/enrollment-backend/internal/data/repos"
	repotest "github.com/yungbote/enrollment-backend/internal/data/repos/testutil"
	domainagg "github.com/yungbote/enrollment-backend/internal/domain/aggregates"
	"github.com/yungbote/enrollment-backend/internal/domain/enrollment"
	"github.com/yungbote/enrollment-backend/internal/platform/dbctx"
)

func strPtr(s string) *string { return &s }

func TestStudentDeleteCascadesEnrollments(t *testing.T) {
	env := newTestEnv(t)
	bg := context.Background()
	student := repotest.SeedStudent(t, bg, env.db, enrollment.RoleStudent)
	admin := repotest.SeedStudent(t, bg, env.db, enrollment.RoleAdmin)
	row := repotest.SeedEnrollment(t, bg, env.db, student.ID, 18, 3, 4)

	err := env.student.Delete(asPrincipal(student), student.ID)
	wantAPIStatus(t, err, http.StatusForbidden)

	if err := env.student.Delete(asPrincipal(admin), student.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	dbc := dbctx.Context{Ctx: bg}
	if got, err := env.students.GetByID(dbc, student.ID); err != nil || got != nil {
		t.Fatalf("student still present: %v err=%v", got, err)
	}
	if got, err := env.enrollments.GetByID(dbc, row.ID); err != nil || got != nil {
		t.Fatalf("enrollment still present: %v err=%v", got, err)
	}
	if list, err := env.courses.ListByEnrollment(dbc, row.ID); err != nil || len(list) != 0 {
		t.Fatalf("courses left behind: n=%d err=%v", len(list), err)
	}

	_, err = env.enrollment.EnrollCourse(asPrincipal(admin), row.ID, "Physics", 3)
	if !domainagg.IsCode(err, domainagg.CodeNotFound) {
		t.Fatalf("write after cascade: want not_found got=%v", err)
	}
	err = env.student.Delete(asPrincipal(admin), student.ID)
	if !domainagg.IsCode(err, domainagg.CodeNotFound) {
		t.Fatalf("second delete: want not_found got=%v", err)
	}
}

func TestStudentGetAndList(t *testing.T) {
	env := newTestEnv(t)
	bg := context.Background()
	a := repotest.SeedStudent(t, bg, env.db, enrollment.RoleStudent)
	b := repotest.SeedStudent(t, bg, env.db, enrollment.RoleStudent)
	admin := repotest.SeedStudent(t, bg, env.db, enrollment.RoleAdmin)

	got, err := env.student.Get(asPrincipal(a), a.ID)
	if err != nil || got.ID != a.ID {
		t.Fatalf("self Get: %v err=%v", got, err)
	}
	_, err = env.student.Get(asPrincipal(a), b.ID)
	wantAPIStatus(t, err, http.StatusForbidden)
	_, err = env.student.Get(asPrincipal(admin), uuid.New())
	if !domainagg.IsCode(err, domainagg.CodeNotFound) {
		t.Fatalf("want not_found got=%v", err)
	}

	_, err = env.student.List(asPrincipal(a), repos.Page{})
	wantAPIStatus(t, err, http.StatusForbidden)
	page, err := env.student.List(asPrincipal(admin), repos.Page{Number: 1, Size: 2})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if page.Total < 3 || len(page.Items) != 2 {
		t.Fatalf("page: total=%d items=%d", page.Total, len(page.Items))
	}
}

func TestStudentUpdate(t *testing.T) {
	env := newTestEnv(t)
	bg := context.Background()
	a := repotest.SeedStudent(t, bg, env.db, enrollment.RoleStudent)
	b := repotest.SeedStudent(t, bg, env.db, enrollment.RoleStudent)
	admin := repotest.SeedStudent(t, bg, env.db, enrollment.RoleAdmin)

	updated, err := env.student.Update(asPrincipal(a), a.ID, UpdateStudentRequest{FirstName: strPtr("  Lucía "), Email: strPtr("NEW-" + a.Email)})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.FirstName != "Lucía" || updated.LastName != a.LastName {
		t.Fatalf("names: first=%q last=%q", updated.FirstName, updated.LastName)
	}
	if updated.Email != "new-"+a.Email {
		t.Fatalf("email: want=%q got=%q", "new-"+a.Email, updated.Email)
	}

	_, err = env.student.Update(asPrincipal(a), a.ID, UpdateStudentRequest{Email: strPtr(b.Email)})
	wantAPIStatus(t, err, http.StatusConflict)

	_, err = env.student.Update(asPrincipal(a), a.ID, UpdateStudentRequest{Role: strPtr("admin")})
	wantAPIStatus(t, err, http.StatusForbidden)

	_, err = env.student.Update(asPrincipal(a), b.ID, UpdateStudentRequest{FirstName: strPtr("Eve")})
	wantAPIStatus(t, err, http.StatusForbidden)

	_, err = env.student.Update(asPrincipal(a), a.ID, UpdateStudentRequest{LastName: strPtr("")})
	if !enrollment.IsInvalidInput(err) {
		t.Fatalf("want invalid input got=%v", err)
	}

	promoted, err := env.student.Update(asPrincipal(admin), b.ID, UpdateStudentRequest{Role: strPtr("ADMIN")})
	if err != nil {
		t.Fatalf("admin Update: %v", err)
	}
	if promoted.Role != enrollment.RoleAdmin {
		t.Fatalf("role: want=admin got=%s", promoted.Role)
	}
}
