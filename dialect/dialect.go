package dialect

import "context"

// Dialect name constants. These double as driverName for database/sql
// and as keys into per-dialect translator/builder behavior.
const (
	Postgres = "postgres"
	MySQL    = "mysql"
	SQLite   = "sqlite"
	MSSQL    = "mssql"
)

// Dialects lists every supported relational dialect.
var Dialects = []string{Postgres, MySQL, SQLite, MSSQL}

// Valid reports whether name is a recognized dialect.
func Valid(name string) bool {
	for _, d := range Dialects {
		if d == name {
			return true
		}
	}
	return false
}

// ExecQuerier wraps the two blocking I/O operations shared by Driver
// and Tx.
type ExecQuerier interface {
	Exec(ctx context.Context, query string, args, v any) error
	Query(ctx context.Context, query string, args, v any) error
}

// Driver is a dialect-aware database driver.
type Driver interface {
	ExecQuerier
	// Tx starts and returns a transaction.
	Tx(ctx context.Context) (Tx, error)
	// Close closes the underlying connection.
	Close() error
	// Dialect returns the name of the dialect (i.e. Postgres, MySQL,
	// SQLite, MSSQL).
	Dialect() string
}

// Tx is a transactional Driver.
type Tx interface {
	Driver
	// Commit commits the transaction.
	Commit() error
	// Rollback rolls back the transaction.
	Rollback() error
}
