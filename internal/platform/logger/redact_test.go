package logger

import (
	"strings"
	"testing"

	"github.com/google/uuid"
)

func TestRedactorFields(t *testing.T) {
	r := &redactor{enabled: true}
	id := uuid.MustParse("0b8f0e8e-8d8b-4bd4-9f57-5d7a1d1fb0a1")
	out := r.fields([]interface{}{
		"password", "hunter22",
		"Email", "ana@example.com",
		"student_id", id,
		"course_name", "Algebra",
	})
	if out[1] != redacted || out[3] != redacted {
		t.Fatalf("secrets: password=%v email=%v", out[1], out[3])
	}
	hashed, _ := out[5].(string)
	if !strings.HasPrefix(hashed, "hash:") || len(hashed) != len("hash:")+12 {
		t.Fatalf("student_id: unexpected pseudonym %q", hashed)
	}
	if hashed != r.pseudonym(id.String()) {
		t.Fatalf("pseudonym must not depend on the value's type")
	}
	if out[7] != "Algebra" {
		t.Fatalf("course_name: want=Algebra got=%v", out[7])
	}
}

func TestRedactorLeavesInputUntouched(t *testing.T) {
	r := &redactor{enabled: true}
	in := []interface{}{"token", "abc", "orphan"}
	out := r.fields(in)
	if in[1] != "abc" {
		t.Fatalf("input mutated: %v", in)
	}
	if len(out) != 3 || out[1] != redacted || out[2] != "orphan" {
		t.Fatalf("out: %v", out)
	}
}

func TestRedactorSaltChangesPseudonym(t *testing.T) {
	a := (&redactor{enabled: true}).pseudonym("s-1")
	b := (&redactor{enabled: true, salt: "pepper"}).pseudonym("s-1")
	if a == b {
		t.Fatalf("salted and unsalted pseudonyms should differ")
	}
}

func TestRedactorNestedAndJWT(t *testing.T) {
	r := &redactor{enabled: true}
	jwtLike := "eyJhbGciOiJIUzI1NiJ9.eyJzdWIiOiIxMjM0NTY3ODkwIn0.signature"
	got := r.value("body", map[string]interface{}{"Password": "x", "note": jwtLike, "credits": 3})
	m := got.(map[string]interface{})
	if m["Password"] != redacted || m["note"] != redacted || m["credits"] != 3 {
		t.Fatalf("nested: %v", m)
	}
	if looksLikeJWT("a.b.c.d") || looksLikeJWT("version.1.2") {
		t.Fatalf("short or four-part strings are not tokens")
	}
}

func TestRedactionDisabled(t *testing.T) {
	log, err := New("test", WithRedaction(false, ""))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	out := log.redact.fields([]interface{}{"password", "hunter22"})
	if out[1] != "hunter22" {
		t.Fatalf("disabled redaction changed value: %v", out[1])
	}
	log.With("service", "x").Info("not printed", "k", "v")
}
