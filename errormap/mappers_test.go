package errormap

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/polyquery/polyquery"
)

// sqlStateErr is a minimal stand-in for lib/pq's *pq.Error, exposing
// only the SQLState() method classifySQLError looks for.
type sqlStateErr struct {
	state string
}

func (e sqlStateErr) Error() string   { return "pq: duplicate key value violates unique constraint" }
func (e sqlStateErr) SQLState() string { return e.state }

type mysqlNumberErr struct {
	num uint16
}

func (e mysqlNumberErr) Error() string  { return "mysql error" }
func (e mysqlNumberErr) Number() uint16 { return e.num }

type mssqlNumberErr struct {
	num int32
}

func (e mssqlNumberErr) Error() string       { return "mssql error" }
func (e mssqlNumberErr) SQLErrorNumber() int32 { return e.num }

type sqliteCodeErr struct {
	code int
}

func (e sqliteCodeErr) Error() string { return "sqlite error" }
func (e sqliteCodeErr) Code() int     { return e.code }

func TestMapSQLError_Nil(t *testing.T) {
	assert.Nil(t, MapSQLError(nil, "postgres", "users"))
}

func TestMapSQLError_PostgresSQLState(t *testing.T) {
	err := MapSQLError(sqlStateErr{state: "23505"}, "postgres", "users")
	require.NotNil(t, err)
	assert.Equal(t, polyquery.CodeDuplicateKey, err.Code)
	assert.Equal(t, "postgres", err.Backend)
	assert.Equal(t, "users", err.Collection)
}

func TestMapSQLError_PostgresConnectionClassPrefix(t *testing.T) {
	err := MapSQLError(sqlStateErr{state: "08006"}, "postgres", "users")
	require.NotNil(t, err)
	assert.Equal(t, polyquery.CodeConnectionFailed, err.Code)
}

func TestMapSQLError_MySQLNumber(t *testing.T) {
	err := MapSQLError(mysqlNumberErr{num: 1062}, "mysql", "users")
	require.NotNil(t, err)
	assert.Equal(t, polyquery.CodeDuplicateKey, err.Code)
}

func TestMapSQLError_MSSQLNumber(t *testing.T) {
	err := MapSQLError(mssqlNumberErr{num: 18456}, "mssql", "users")
	require.NotNil(t, err)
	assert.Equal(t, polyquery.CodeAuthenticationFailed, err.Code)
}

func TestMapSQLError_SQLiteCode(t *testing.T) {
	err := MapSQLError(sqliteCodeErr{code: 5}, "sqlite", "users")
	require.NotNil(t, err)
	assert.Equal(t, polyquery.CodeTimeout, err.Code)
}

func TestMapSQLError_FallsBackToMessageSniffing(t *testing.T) {
	err := MapSQLError(errors.New("UNIQUE constraint failed: users.email"), "sqlite", "users")
	require.NotNil(t, err)
	assert.Equal(t, polyquery.CodeDuplicateKey, err.Code)
}

func TestMapSQLError_UnknownMessageIsQueryError(t *testing.T) {
	err := MapSQLError(errors.New("syntax error near SELECT"), "postgres", "users")
	require.NotNil(t, err)
	assert.Equal(t, polyquery.CodeQueryError, err.Code)
}

func TestMapSQLError_CausePreservesOriginalErrorThroughUnwrap(t *testing.T) {
	native := sqlStateErr{state: "23505"}
	err := MapSQLError(native, "postgres", "users")
	require.NotNil(t, err)

	var got sqlStateErr
	require.True(t, errors.As(err, &got), "native error must still be reachable via errors.As")
	assert.Equal(t, native, got)
}

func TestMapDocumentError_DuplicateKey(t *testing.T) {
	err := MapDocumentError(errors.New("E11000 duplicate key error collection: users"), "users")
	require.NotNil(t, err)
	assert.Equal(t, polyquery.CodeDuplicateKey, err.Code)
	assert.Equal(t, "document", err.Backend)
}

func TestMapDocumentError_Nil(t *testing.T) {
	assert.Nil(t, MapDocumentError(nil, "users"))
}

func TestMapDocumentError_ConnectionFailure(t *testing.T) {
	err := MapDocumentError(errors.New("server selection error: no reachable servers"), "users")
	require.NotNil(t, err)
	assert.Equal(t, polyquery.CodeConnectionFailed, err.Code)
}

func TestMapSearchError_StatusCodeTakesPrecedence(t *testing.T) {
	err := MapSearchError(errors.New("conflict"), 409, "docs")
	require.NotNil(t, err)
	assert.Equal(t, polyquery.CodeDuplicateKey, err.Code)
	assert.Equal(t, "search", err.Backend)
}

func TestMapSearchError_IndexNotFound(t *testing.T) {
	err := MapSearchError(errors.New("index_not_found_exception"), 404, "docs")
	require.NotNil(t, err)
	assert.Equal(t, polyquery.CodeCollectionNotFound, err.Code)
}

func TestMapSearchError_Nil(t *testing.T) {
	assert.Nil(t, MapSearchError(nil, 0, "docs"))
}

func TestMapSearchError_ServerErrorStatusMapsToConnectionFailed(t *testing.T) {
	err := MapSearchError(errors.New("internal server error"), 503, "docs")
	require.NotNil(t, err)
	assert.Equal(t, polyquery.CodeConnectionFailed, err.Code)
}
