package services

import (
	"go/ast"
	"go/parser"
	"go/token"
	"os"
	"sort"
	"strings"
	"testing"
)

// Repos whose rows carry the credit ledger. Writes to them belong to the enrollment aggregate.
var ledgerRepoTypes = map[string]bool{
	"SemesterEnrollmentRepo": true,
	"EnrolledCourseRepo":     true,
}

var repoWriteMethods = map[string]bool{
	"Create":             true,
	"UpdateFields":       true,
	"DeleteByID":         true,
	"DeleteByEnrollment": true,
}

var aggregateWriteMethods = map[string]bool{
	"Start":        true,
	"AddCourse":    true,
	"RemoveCourse": true,
	"Delete":       true,
}

// The student cascade deletes headers first so concurrent aggregate writes lose their CAS.
var ledgerWriteAllowlist = map[string]bool{
	"studentService.Delete": true,
}

type fieldKinds struct {
	ledgerRepos map[string]bool
	aggregates  map[string]bool
}

type methodWrites struct {
	ledgerRepoWrites int
	aggregateWrites  int
}

func parseServices(t *testing.T) map[string]*ast.File {
	t.Helper()
	fset := token.NewFileSet()
	pkgs, err := parser.ParseDir(fset, ".", func(fi os.FileInfo) bool {
		return !strings.HasSuffix(fi.Name(), "_test.go")
	}, 0)
	if err != nil {
		t.Fatalf("parse services: %v", err)
	}
	pkg, ok := pkgs["services"]
	if !ok {
		t.Fatalf("services package not found")
	}
	return pkg.Files
}

func collectFieldKinds(files map[string]*ast.File) map[string]fieldKinds {
	out := map[string]fieldKinds{}
	for _, f := range files {
		ast.Inspect(f, func(n ast.Node) bool {
			ts, ok := n.(*ast.TypeSpec)
			if !ok {
				return true
			}
			st, ok := ts.Type.(*ast.StructType)
			if !ok {
				return false
			}
			fk := fieldKinds{ledgerRepos: map[string]bool{}, aggregates: map[string]bool{}}
			for _, field := range st.Fields.List {
				sel, ok := field.Type.(*ast.SelectorExpr)
				if !ok || len(field.Names) == 0 {
					continue
				}
				pkgIdent, ok := sel.X.(*ast.Ident)
				if !ok {
					continue
				}
				for _, name := range field.Names {
					switch {
					case pkgIdent.Name == "repos" && ledgerRepoTypes[sel.Sel.Name]:
						fk.ledgerRepos[name.Name] = true
					case pkgIdent.Name == "domainagg" && strings.HasSuffix(sel.Sel.Name, "Aggregate"):
						fk.aggregates[name.Name] = true
					}
				}
			}
			out[ts.Name.Name] = fk
			return false
		})
	}
	return out
}

func collectMethodWrites(files map[string]*ast.File, kinds map[string]fieldKinds) map[string]methodWrites {
	out := map[string]methodWrites{}
	for _, f := range files {
		for _, decl := range f.Decls {
			fd, ok := decl.(*ast.FuncDecl)
			if !ok || fd.Recv == nil || fd.Body == nil || len(fd.Recv.List[0].Names) == 0 {
				continue
			}
			recvName := fd.Recv.List[0].Names[0].Name
			recvType := ""
			switch rt := fd.Recv.List[0].Type.(type) {
			case *ast.StarExpr:
				if id, ok := rt.X.(*ast.Ident); ok {
					recvType = id.Name
				}
			case *ast.Ident:
				recvType = rt.Name
			}
			fk, ok := kinds[recvType]
			if !ok {
				continue
			}
			var mw methodWrites
			ast.Inspect(fd.Body, func(n ast.Node) bool {
				call, ok := n.(*ast.CallExpr)
				if !ok {
					return true
				}
				fn, ok := call.Fun.(*ast.SelectorExpr)
				if !ok {
					return true
				}
				field, ok := fn.X.(*ast.SelectorExpr)
				if !ok {
					return true
				}
				if base, ok := field.X.(*ast.Ident); !ok || base.Name != recvName {
					return true
				}
				switch {
				case fk.ledgerRepos[field.Sel.Name] && repoWriteMethods[fn.Sel.Name]:
					mw.ledgerRepoWrites++
				case fk.aggregates[field.Sel.Name] && aggregateWriteMethods[fn.Sel.Name]:
					mw.aggregateWrites++
				}
				return true
			})
			out[recvType+"."+fd.Name.Name] = mw
		}
	}
	return out
}

func TestLedgerWritesGoThroughAggregate(t *testing.T) {
	files := parseServices(t)
	writes := collectMethodWrites(files, collectFieldKinds(files))

	var offenders []string
	for method, mw := range writes {
		if mw.ledgerRepoWrites > 0 && !ledgerWriteAllowlist[method] {
			offenders = append(offenders, method)
		}
	}
	sort.Strings(offenders)
	if len(offenders) > 0 {
		t.Fatalf("service methods writing ledger repos directly: %v", offenders)
	}

	for _, method := range []string{
		"enrollmentService.StartEnrollment",
		"enrollmentService.EnrollCourse",
		"enrollmentService.RemoveCourse",
		"enrollmentService.DeleteEnrollment",
	} {
		if writes[method].aggregateWrites == 0 {
			t.Fatalf("%s: want an aggregate write, found none", method)
		}
	}
	for method := range ledgerWriteAllowlist {
		if writes[method].ledgerRepoWrites == 0 {
			t.Fatalf("%s: allowlisted but no longer writes ledger repos", method)
		}
	}
}
