package relational

import (
	"fmt"

	// Registers the "postgres" database/sql driver.
	_ "github.com/lib/pq"
	// Registers the "mysql" database/sql driver.
	_ "github.com/go-sql-driver/mysql"
	// Registers the "sqlserver" database/sql driver.
	_ "github.com/microsoft/go-mssqldb"
	// Registers the "sqlite" database/sql driver.
	_ "modernc.org/sqlite"

	"github.com/polyquery/polyquery/dialect"
)

// driverNameFor maps a polyquery dialect name to the database/sql
// driver name registered by its import above.
func driverNameFor(dialectName string) (string, error) {
	switch dialectName {
	case dialect.Postgres:
		return "postgres", nil
	case dialect.MySQL:
		return "mysql", nil
	case dialect.MSSQL:
		return "sqlserver", nil
	case dialect.SQLite:
		return "sqlite", nil
	default:
		return "", fmt.Errorf("relational: unrecognized dialect %q", dialectName)
	}
}
