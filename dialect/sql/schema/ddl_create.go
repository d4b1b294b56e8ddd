package schema

import (
	"fmt"
	"strings"
)

// sqlType maps a Column's abstract Type ("string", "float", "bool",
// "time", "json") to the concrete column type for one dialect.
func sqlType(col *Column, dialectName string) string {
	switch dialectName {
	case "mysql":
		switch col.Type {
		case "string":
			return "VARCHAR(255)"
		case "float":
			return "DOUBLE"
		case "bool":
			return "BOOLEAN"
		case "time":
			return "DATETIME"
		default:
			return "JSON"
		}
	case "mssql":
		switch col.Type {
		case "string":
			return "NVARCHAR(255)"
		case "float":
			return "FLOAT"
		case "bool":
			return "BIT"
		case "time":
			return "DATETIME2"
		default:
			return "NVARCHAR(MAX)"
		}
	case "sqlite":
		switch col.Type {
		case "string":
			return "TEXT"
		case "float":
			return "REAL"
		case "bool":
			return "INTEGER"
		case "time":
			return "DATETIME"
		default:
			return "TEXT"
		}
	default: // postgres
		switch col.Type {
		case "string":
			return "TEXT"
		case "float":
			return "DOUBLE PRECISION"
		case "bool":
			return "BOOLEAN"
		case "time":
			return "TIMESTAMPTZ"
		default:
			return "JSONB"
		}
	}
}

// CreateTableStatement renders a "CREATE TABLE IF NOT EXISTS" for t in
// the given dialect, deriving a `_id` primary key column the way every
// adapter expects document identity to surface.
func CreateTableStatement(t *Table, dialectName string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "CREATE TABLE IF NOT EXISTS %s (", quoteIdent(t.Name, dialectName))
	b.WriteString(idColumnDDL(dialectName))
	for _, col := range t.Columns {
		b.WriteString(", ")
		b.WriteString(quoteIdent(col.Name, dialectName))
		b.WriteString(" ")
		b.WriteString(sqlType(col, dialectName))
		if !col.Nullable {
			b.WriteString(" NOT NULL")
		}
	}
	b.WriteString(")")
	return b.String()
}

func idColumnDDL(dialectName string) string {
	switch dialectName {
	case "mysql":
		return "`_id` VARCHAR(64) PRIMARY KEY"
	case "mssql":
		return `"_id" NVARCHAR(64) PRIMARY KEY`
	case "sqlite":
		return `"_id" TEXT PRIMARY KEY`
	default:
		return `"_id" TEXT PRIMARY KEY`
	}
}

func quoteIdent(name, dialectName string) string {
	switch dialectName {
	case "mysql":
		return "`" + name + "`"
	default:
		return `"` + name + `"`
	}
}

// CreateIndexStatements renders one "CREATE INDEX IF NOT EXISTS" per
// declared index on t. MSSQL lacks "IF NOT EXISTS" on CREATE INDEX, so
// its statements are guarded with a catalog lookup instead.
func CreateIndexStatements(t *Table, dialectName string) []string {
	stmts := make([]string, 0, len(t.Indexes))
	for _, idx := range t.Indexes {
		cols := make([]string, len(idx.Columns))
		for i, c := range idx.Columns {
			cols[i] = quoteIdent(c.Name, dialectName)
		}
		colList := strings.Join(cols, ", ")
		switch dialectName {
		case "mssql":
			stmts = append(stmts, fmt.Sprintf(
				"IF NOT EXISTS (SELECT 1 FROM sys.indexes WHERE name = '%s') CREATE INDEX %s ON %s (%s)",
				idx.Name, idx.Name, quoteIdent(t.Name, dialectName), colList))
		default:
			stmts = append(stmts, fmt.Sprintf("CREATE INDEX IF NOT EXISTS %s ON %s (%s)",
				idx.Name, quoteIdent(t.Name, dialectName), colList))
		}
	}
	return stmts
}
