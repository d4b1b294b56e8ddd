// Package dialect provides database dialect abstraction for polyquery.
//
// This package defines the interfaces and types used for database-specific
// operations, allowing the relational adapter to support multiple database
// backends including PostgreSQL, MySQL, MSSQL, and SQLite.
//
// # Supported Dialects
//
// The following dialects are supported:
//
//   - Postgres: PostgreSQL database
//   - MySQL: MySQL/MariaDB database
//   - SQLite: SQLite database
//   - MSSQL: Microsoft SQL Server database
//
// # Dialect Constants
//
// Each dialect is identified by a constant string:
//
//	dialect.Postgres = "postgres"
//	dialect.MySQL    = "mysql"
//	dialect.SQLite   = "sqlite"
//	dialect.MSSQL    = "mssql"
//
// # Driver Interface
//
// The package defines the Driver interface for database operations:
//
//	type Driver interface {
//	    Exec(ctx context.Context, query string, args, v any) error
//	    Query(ctx context.Context, query string, args, v any) error
//	    Tx(ctx context.Context) (Tx, error)
//	    Close() error
//	    Dialect() string
//	}
//
// # Transaction Interface
//
// The Tx interface extends Driver with transaction methods:
//
//	type Tx interface {
//	    Driver
//	    Commit() error
//	    Rollback() error
//	}
//
// # ExecQuerier Interface
//
// The ExecQuerier interface is implemented by both Driver and Tx:
//
//	type ExecQuerier interface {
//	    Exec(ctx context.Context, query string, args, v any) error
//	    Query(ctx context.Context, query string, args, v any) error
//	}
//
// # Usage
//
// Opening a database connection:
//
//	import (
//	    "github.com/polyquery/polyquery/dialect"
//	    "github.com/polyquery/polyquery/dialect/sql"
//	)
//
//	db, err := sql.Open(dialect.Postgres, "postgres://...")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer db.Close()
//
// Creating a relational adapter (it opens its own connection on Connect):
//
//	adp, err := relational.New(dialect.Postgres, "postgres://...", true, false)
//
// # Sub-packages
//
// The dialect package contains several sub-packages:
//
//   - dialect/sql: filter/update-to-SQL translation, statement builder, driver
//   - dialect/sql/schema: schema diff validation and DDL types
//   - dialect/search: filter/update-to-search-DSL translation
package dialect
