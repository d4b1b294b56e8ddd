// Package errormap maps native backend errors (PostgreSQL, MySQL,
// MSSQL, SQLite, the document store, and the search engine) onto the
// fixed polyquery.Code taxonomy.
package errormap

import (
	"errors"
	"strings"

	cerrors "github.com/cockroachdb/errors"

	"github.com/polyquery/polyquery"
)

// errorCoder is implemented by lib/pq's Error (Code() returns the
// SQLSTATE as pq.ErrorCode, whose String/Error methods render the
// five-character code).
type errorCoder interface {
	Code() string
}

// errorNumberer is implemented by go-sql-driver/mysql's MySQLError.
type errorNumberer interface {
	Number() uint16
}

// sqlStateError is implemented by lib/pq's Error and several pgx
// error types.
type sqlStateError interface {
	SQLState() string
}

// mssqlNumberer is implemented by microsoft/go-mssqldb's Error.
type mssqlNumberer interface {
	SQLErrorNumber() int32
}

// sqliteCoder is implemented by modernc.org/sqlite's Error. Its
// Code() intentionally returns an int, not a string, so it cannot
// satisfy errorCoder.
type sqliteCoder interface {
	Code() int
}

// PostgreSQL SQLSTATE codes (Class 23 integrity constraint
// violations, plus a few connection/auth/timeout classes).
const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
	pgCheckViolation      = "23514"
	pgNotNullViolation    = "23502"
	pgInvalidPassword     = "28P01"
	pgInvalidAuth         = "28000"
	pgQueryCanceled       = "57014"
)

// MySQL error numbers.
const (
	mysqlDuplicateEntry         = 1062
	mysqlForeignKeyParent       = 1451
	mysqlForeignKeyChild        = 1452
	mysqlCheckConstraintViolate = 3819
	mysqlAccessDenied           = 1045
	mysqlLockWaitTimeout        = 1205
	mysqlQueryTimeout           = 3024
	mysqlCantConnect            = 2003
	mysqlGoneAway               = 2006
	mysqlConnLost               = 2013
)

// MSSQL error numbers.
const (
	mssqlUniqueIndex  = 2601
	mssqlUniqueConstr = 2627
	mssqlConstraint   = 547
	mssqlLoginFailed  = 18456
	mssqlTimeout      = -2
)

// SQLite extended result codes (modernc.org/sqlite's Code() returns
// these directly).
const (
	sqliteConstraintUnique = 2067 // SQLITE_CONSTRAINT_UNIQUE
	sqliteConstraintPK     = 1555 // SQLITE_CONSTRAINT_PRIMARYKEY
	sqliteBusy             = 5    // SQLITE_BUSY
)

// mongoDuplicateKey is the native write-error code MongoDB (and
// compatible document stores) uses for a unique index violation.
const mongoDuplicateKey = 11000

// MapSQLError maps a native relational driver error to the fixed
// Code taxonomy and attaches collection/backend context. It inspects
// the error chain for lib/pq, go-sql-driver/mysql, go-mssqldb, and
// modernc.org/sqlite marker interfaces first, falling back to
// substring matching for drivers that wrap native errors in their own
// types.
func MapSQLError(err error, dialectName, collection string) *polyquery.Error {
	if err == nil {
		return nil
	}

	code, fix := classifySQLError(err, dialectName)
	return polyquery.NewError(code, err.Error(), fix).
		WithBackend(dialectName).
		WithCollection(collection).
		WithCause(cerrors.Wrap(err, dialectName))
}

func classifySQLError(err error, dialectName string) (polyquery.Code, string) {
	if e, ok := asError[sqlStateError](err); ok {
		if c, fix, known := classifyPGState(e.SQLState()); known {
			return c, fix
		}
	}
	if e, ok := asError[errorCoder](err); ok {
		if c, fix, known := classifyPGState(e.Code()); known {
			return c, fix
		}
	}
	if e, ok := asError[errorNumberer](err); ok {
		if c, fix, known := classifyMySQLNumber(e.Number()); known {
			return c, fix
		}
	}
	if e, ok := asError[mssqlNumberer](err); ok {
		if c, fix, known := classifyMSSQLNumber(e.SQLErrorNumber()); known {
			return c, fix
		}
	}
	if e, ok := asError[sqliteCoder](err); ok {
		if c, fix, known := classifySQLiteCode(e.Code()); known {
			return c, fix
		}
	}
	return classifyByMessage(err.Error())
}

func classifyPGState(state string) (polyquery.Code, string, bool) {
	switch state {
	case pgUniqueViolation:
		return polyquery.CodeDuplicateKey, fixDuplicateKey, true
	case pgForeignKeyViolation, pgCheckViolation, pgNotNullViolation:
		return polyquery.CodeValidationError, fixConstraint, true
	case pgInvalidPassword, pgInvalidAuth:
		return polyquery.CodeAuthenticationFailed, fixAuth, true
	case pgQueryCanceled:
		return polyquery.CodeTimeout, fixTimeout, true
	}
	if strings.HasPrefix(state, "08") {
		return polyquery.CodeConnectionFailed, fixConnection, true
	}
	return "", "", false
}

func classifyMySQLNumber(num uint16) (polyquery.Code, string, bool) {
	switch num {
	case mysqlDuplicateEntry:
		return polyquery.CodeDuplicateKey, fixDuplicateKey, true
	case mysqlForeignKeyParent, mysqlForeignKeyChild, mysqlCheckConstraintViolate:
		return polyquery.CodeValidationError, fixConstraint, true
	case mysqlAccessDenied:
		return polyquery.CodeAuthenticationFailed, fixAuth, true
	case mysqlLockWaitTimeout, mysqlQueryTimeout:
		return polyquery.CodeTimeout, fixTimeout, true
	case mysqlCantConnect, mysqlGoneAway, mysqlConnLost:
		return polyquery.CodeConnectionFailed, fixConnection, true
	}
	return "", "", false
}

func classifyMSSQLNumber(num int32) (polyquery.Code, string, bool) {
	switch num {
	case mssqlUniqueIndex, mssqlUniqueConstr:
		return polyquery.CodeDuplicateKey, fixDuplicateKey, true
	case mssqlConstraint:
		return polyquery.CodeValidationError, fixConstraint, true
	case mssqlLoginFailed:
		return polyquery.CodeAuthenticationFailed, fixAuth, true
	case mssqlTimeout:
		return polyquery.CodeTimeout, fixTimeout, true
	}
	return "", "", false
}

func classifySQLiteCode(code int) (polyquery.Code, string, bool) {
	switch code {
	case sqliteConstraintUnique, sqliteConstraintPK:
		return polyquery.CodeDuplicateKey, fixDuplicateKey, true
	case sqliteBusy:
		return polyquery.CodeTimeout, fixTimeout, true
	}
	return "", "", false
}

func classifyByMessage(msg string) (polyquery.Code, string) {
	switch {
	case containsAny(msg, "Error 1062", "violates unique constraint", "UNIQUE constraint failed", "E11000 duplicate key"):
		return polyquery.CodeDuplicateKey, fixDuplicateKey
	case containsAny(msg, "Error 1451", "Error 1452", "Error 3819", "violates foreign key constraint",
		"violates check constraint", "FOREIGN KEY constraint failed", "CHECK constraint failed",
		"NOT NULL constraint failed"):
		return polyquery.CodeValidationError, fixConstraint
	case containsAny(msg, "Error 1045", "password authentication failed", "Login failed", "authentication failed"):
		return polyquery.CodeAuthenticationFailed, fixAuth
	case containsAny(msg, "canceling statement due to statement timeout", "Lock wait timeout exceeded",
		"query timeout", "database is locked", "context deadline exceeded"):
		return polyquery.CodeTimeout, fixTimeout
	case containsAny(msg, "connection refused", "no such host", "broken pipe", "connection reset",
		"bad connection", "server closed the connection"):
		return polyquery.CodeConnectionFailed, fixConnection
	default:
		return polyquery.CodeQueryError, "check the native error for details"
	}
}

// MapDocumentError maps a document-store driver error (mongo-driver)
// onto the Code taxonomy.
func MapDocumentError(err error, collection string) *polyquery.Error {
	if err == nil {
		return nil
	}
	code := polyquery.CodeQueryError
	fix := "check the native error for details"
	switch {
	case containsAny(err.Error(), "E11000", "duplicate key error"):
		code, fix = polyquery.CodeDuplicateKey, fixDuplicateKey
	case containsAny(err.Error(), "server selection error", "connection() error", "no reachable servers"):
		code, fix = polyquery.CodeConnectionFailed, fixConnection
	case containsAny(err.Error(), "context deadline exceeded", "operation exceeded time limit"):
		code, fix = polyquery.CodeTimeout, fixTimeout
	case containsAny(err.Error(), "not authorized", "auth error", "authentication failed"):
		code, fix = polyquery.CodeAuthenticationFailed, fixAuth
	}
	return polyquery.NewError(code, err.Error(), fix).
		WithBackend("document").
		WithCollection(collection).
		WithCause(cerrors.Wrap(err, "document"))
}

// MapSearchError maps a search-engine (Elasticsearch-family) HTTP/API
// error onto the Code taxonomy. status is the HTTP status code of
// the response that produced err, if known (0 if not applicable).
func MapSearchError(err error, status int, collection string) *polyquery.Error {
	if err == nil {
		return nil
	}
	var code polyquery.Code
	var fix string
	switch {
	case status == 409 || containsAny(err.Error(), "version_conflict_engine_exception"):
		code, fix = polyquery.CodeDuplicateKey, fixDuplicateKey
	case status == 401 || status == 403 || containsAny(err.Error(), "security_exception"):
		code, fix = polyquery.CodeAuthenticationFailed, fixAuth
	case status == 408 || containsAny(err.Error(), "timeout"):
		code, fix = polyquery.CodeTimeout, fixTimeout
	case status == 404 && containsAny(err.Error(), "index_not_found_exception"):
		code, fix = polyquery.CodeCollectionNotFound, "call ensureCollections before querying"
	case status >= 500 || containsAny(err.Error(), "connect: connection refused", "no such host"):
		code, fix = polyquery.CodeConnectionFailed, fixConnection
	default:
		code, fix = polyquery.CodeQueryError, "check the native error for details"
	}
	return polyquery.NewError(code, err.Error(), fix).
		WithBackend("search").
		WithCollection(collection).
		WithCause(cerrors.Wrap(err, "search"))
}

const (
	fixDuplicateKey = "use updateOne with upsert:true if you intended to overwrite the existing document, or choose a different unique value"
	fixConstraint   = "the document violates a schema constraint; adjust the fields and retry"
	fixAuth         = "verify the configured credentials and retry the connection"
	fixTimeout      = "the operation exceeded its deadline; narrow the filter or raise the timeout"
	fixConnection   = "the backend is unreachable; polyquery will retry via the reconnect controller if enabled"
)

// asError walks err's Unwrap chain for the first error implementing T.
func asError[T any](err error) (T, bool) {
	var target T
	for err != nil {
		if e, ok := err.(T); ok {
			return e, true
		}
		err = errors.Unwrap(err)
	}
	return target, false
}

func containsAny(s string, substrings ...string) bool {
	for _, sub := range substrings {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
