// Package sql compiles the document-style filter/update AST into SQL
// and assembles complete statements across four relational dialects
// (PostgreSQL, MySQL, MSSQL, SQLite).
//
// # Translator
//
// TranslateFilter compiles a polyquery.Filter into a parameterized
// clause plus ordered values, honoring each dialect's placeholder
// style:
//
//	clause, values, err := sql.TranslateFilter(dialect.Postgres, polyquery.Filter{
//	    "age":  polyquery.OpBag{"$gte": 18, "$lt": 65},
//	    "role": "admin",
//	}, 0)
//	// clause  = `"age" >= $1 AND "age" < $2 AND "role" = $3`
//	// values  = []any{18, 65, "admin"}
//
// TranslateUpdate compiles a polyquery.Update into SET clauses.
//
// # Builder
//
// BuildSelect/BuildInsert/BuildUpdate/BuildDelete/BuildCount assemble
// full statements from the translator's output, handling projection,
// sort, and the MSSQL pagination decision table:
//
//	stmt, err := sql.BuildSelect("users", polyquery.Filter{}, sql.BuildOptions{
//	    Dialect: dialect.MSSQL,
//	    Skip:    intp(20),
//	    Limit:   intp(10),
//	})
//	// stmt.Query == `SELECT * FROM "users" ORDER BY (SELECT NULL) OFFSET 20 ROWS FETCH NEXT 10 ROWS ONLY`
//
// # Driver
//
// Driver/Tx/Conn wrap database/sql with dialect awareness and
// session-variable propagation (see driver.go), and StatsDriver/
// DebugDriver (stats.go) add statistics collection and query logging
// on top of any Driver.
package sql
