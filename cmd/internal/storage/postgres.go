// Package storage holds the Postgres plumbing shared by the domain stores:
// identifier validation, error classification, and embedded schema migrations.
package storage

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DefaultSchema is the schema every store uses unless configured otherwise.
const DefaultSchema = "public"

const (
	codeUndefinedTable = "42P01"
	codeInvalidText    = "22P02"
)

var identRe = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// ValidIdent reports whether s is a legal unquoted PostgreSQL identifier.
func ValidIdent(s string) bool {
	return identRe.MatchString(s)
}

// NormalizeSchema trims and validates a schema name.
func NormalizeSchema(schema string) (string, error) {
	schema = strings.TrimSpace(schema)
	if schema == "" {
		return "", errors.New("storage: empty schema")
	}
	if !ValidIdent(schema) {
		return "", fmt.Errorf("storage: invalid schema identifier %q", schema)
	}
	return schema, nil
}

// Table returns a safely quoted schema-qualified table name.
func Table(schema, table string) string {
	return pgx.Identifier{schema, table}.Sanitize()
}

// IsUndefinedTable reports whether err is Postgres "relation does not exist".
// Callers map it to their own not-provisioned sentinel.
func IsUndefinedTable(err error) bool {
	return pgCode(err) == codeUndefinedTable
}

// IsInvalidText reports whether err is a text-representation error, typically a
// malformed uuid passed as a query argument.
func IsInvalidText(err error) bool {
	return pgCode(err) == codeInvalidText
}

func pgCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}
