package aggregates

import (
	"context"
	"errors"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	domainagg "github.com/yungbote/enrollment-backend/internal/domain/aggregates"
	"github.com/yungbote/enrollment-backend/internal/domain/enrollment"
)

// Sentinels tagging failures raised inside a write attempt. MapError turns them into codes.
var (
	ErrValidation = errors.New("aggregate validation")
	ErrInvariant  = errors.New("aggregate invariant violation")
	ErrConflict   = errors.New("aggregate conflict")
	ErrRetryable  = errors.New("aggregate retryable")
	ErrNotFound   = errors.New("aggregate not found")
)

func tag(sentinel error, msg string) error {
	return errors.Join(sentinel, errors.New(strings.TrimSpace(msg)))
}

func ValidationError(msg string) error { return tag(ErrValidation, msg) }
func InvariantError(msg string) error  { return tag(ErrInvariant, msg) }
func ConflictError(msg string) error   { return tag(ErrConflict, msg) }
func RetryableError(msg string) error  { return tag(ErrRetryable, msg) }
func NotFoundError(msg string) error   { return tag(ErrNotFound, msg) }

// Checked in order; the first sentinel found in the chain decides the code.
var sentinelCodes = []struct {
	sentinel error
	code     domainagg.ErrorCode
}{
	{ErrValidation, domainagg.CodeValidation},
	{enrollment.ErrCourseNotFound, domainagg.CodeNotFound},
	{ErrNotFound, domainagg.CodeNotFound},
	{enrollment.ErrLedgerCorrupt, domainagg.CodeInvariantViolation},
	{ErrInvariant, domainagg.CodeInvariantViolation},
	{ErrConflict, domainagg.CodeConflict},
	{ErrRetryable, domainagg.CodeRetryable},
	{gorm.ErrRecordNotFound, domainagg.CodeNotFound},
	{gorm.ErrDuplicatedKey, domainagg.CodeConflict},
	{context.Canceled, domainagg.CodeRetryable},
	{context.DeadlineExceeded, domainagg.CodeRetryable},
}

// SQLSTATE classes from Postgres.
var pgCodes = map[string]domainagg.ErrorCode{
	"23505": domainagg.CodeConflict,           // unique_violation
	"23503": domainagg.CodePreconditionFailed, // foreign_key_violation
	"40001": domainagg.CodeRetryable,          // serialization_failure
	"40P01": domainagg.CodeRetryable,          // deadlock_detected
	"55P03": domainagg.CodeRetryable,          // lock_not_available
}

var mysqlCodes = map[uint16]domainagg.ErrorCode{
	1062: domainagg.CodeConflict,           // ER_DUP_ENTRY
	1452: domainagg.CodePreconditionFailed, // ER_NO_REFERENCED_ROW_2
	1205: domainagg.CodeRetryable,          // ER_LOCK_WAIT_TIMEOUT
	1213: domainagg.CodeRetryable,          // ER_LOCK_DEADLOCK
}

// SQLite reports constraint and locking failures only through the message text.
var messageCodes = []struct {
	fragment string
	code     domainagg.ErrorCode
}{
	{"duplicate key", domainagg.CodeConflict},
	{"already exists", domainagg.CodeConflict},
	{"unique constraint failed", domainagg.CodeConflict},
	{"deadlock", domainagg.CodeRetryable},
	{"serialization", domainagg.CodeRetryable},
	{"database is locked", domainagg.CodeRetryable},
	{"timeout", domainagg.CodeRetryable},
	{"temporar", domainagg.CodeRetryable},
}

// MapError classifies err into an aggregate error for op. Errors that already carry a code
// pass through unchanged.
func MapError(op string, err error) error {
	if err == nil {
		return nil
	}
	if _, ok := err.(*domainagg.Error); ok {
		return err
	}
	return domainagg.Wrap(classify(err), op, err)
}

func classify(err error) domainagg.ErrorCode {
	if _, ok := enrollment.AsCapacityExceeded(err); ok {
		return domainagg.CodeCapacityExceeded
	}
	if enrollment.IsInvalidInput(err) {
		return domainagg.CodeValidation
	}
	for _, sc := range sentinelCodes {
		if errors.Is(err, sc.sentinel) {
			return sc.code
		}
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if code, ok := pgCodes[strings.TrimSpace(pgErr.Code)]; ok {
			return code
		}
	}
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		if code, ok := mysqlCodes[myErr.Number]; ok {
			return code
		}
	}

	msg := strings.ToLower(err.Error())
	for _, mc := range messageCodes {
		if strings.Contains(msg, mc.fragment) {
			return mc.code
		}
	}
	return domainagg.CodeInternal
}

// isUniqueViolation reports whether err came from a unique index on any supported dialect.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		return myErr.Number == 1062
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint failed") || strings.Contains(msg, "duplicate key")
}
