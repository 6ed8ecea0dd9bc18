package database

import (
	"regexp"
	"strings"

	"github.com/lib/pq"
)

var plainIdent = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// quoteIdent leaves plain lower-case identifiers bare so generated queries
// read naturally, and quotes everything else.
func quoteIdent(name string) string {
	if plainIdent.MatchString(name) {
		return name
	}
	return pq.QuoteIdentifier(name)
}

func qualified(schema, table string) string {
	return quoteIdent(schema) + "." + quoteIdent(table)
}

func selectColumns(schema, table string, columns []string) string {
	quoted := make([]string, len(columns))
	for i, col := range columns {
		quoted[i] = quoteIdent(col)
	}
	return "SELECT " + strings.Join(quoted, ", ") + " FROM " + qualified(schema, table)
}

func selectWhere(schema, table, column, value string) string {
	return "SELECT * FROM " + qualified(schema, table) + " WHERE " + quoteIdent(column) + " = " + pq.QuoteLiteral(value)
}
