package enrollment

import (
	"fmt"
	"net/mail"
	"regexp"
	"strings"
	"unicode/utf8"
)

const (
	MaxSemesterNameLen = 100
	MaxCourseNameLen   = 150
	MaxPersonNameLen   = 100
	MaxEmailLen        = 150
	MinPasswordLen     = 6
)

var (
	semesterNamePattern = regexp.MustCompile(`^[a-zA-Z0-9\s-]+$`)
	courseNamePattern   = regexp.MustCompile(`^[a-zA-Z0-9\s.\-&]+$`)
	personNamePattern   = regexp.MustCompile(`^[\p{L}\s]+$`)
)

func NormalizeSemesterName(raw string) (string, error) {
	return normalizeName(raw, MaxSemesterNameLen, semesterNamePattern, ErrInvalidSemesterName)
}

func NormalizeCourseName(raw string) (string, error) {
	return normalizeName(raw, MaxCourseNameLen, courseNamePattern, ErrInvalidCourseName)
}

func NormalizePersonName(raw string) (string, error) {
	return normalizeName(raw, MaxPersonNameLen, personNamePattern, ErrInvalidStudentName)
}

// NormalizeEmail trims and lower-cases an address after checking it parses as a bare addr-spec.
func NormalizeEmail(raw string) (string, error) {
	email := strings.ToLower(strings.TrimSpace(raw))
	if email == "" || utf8.RuneCountInString(email) > MaxEmailLen {
		return "", fmt.Errorf("%w: length must be 1..%d", ErrInvalidEmail, MaxEmailLen)
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", fmt.Errorf("%w: %q", ErrInvalidEmail, raw)
	}
	return email, nil
}

func CheckPassword(raw string) error {
	if utf8.RuneCountInString(raw) < MinPasswordLen {
		return fmt.Errorf("%w: need at least %d characters", ErrWeakPassword, MinPasswordLen)
	}
	return nil
}

func normalizeName(raw string, maxLen int, pattern *regexp.Regexp, sentinel error) (string, error) {
	name := strings.TrimSpace(raw)
	if name == "" || utf8.RuneCountInString(name) > maxLen {
		return "", fmt.Errorf("%w: length must be 1..%d", sentinel, maxLen)
	}
	if !pattern.MatchString(name) {
		return "", fmt.Errorf("%w: %q contains unsupported characters", sentinel, name)
	}
	return name, nil
}
