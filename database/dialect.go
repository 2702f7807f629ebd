package database

import (
	"fmt"
	"strings"
)

// dialect holds the SQL that differs between MySQL and SQLite.
type dialect interface {
	name() string
	// insertIgnore builds a single-row INSERT that turns a unique-key collision
	// into a no-op (zero rows affected) while still failing on any other error.
	insertIgnore(table string, columns []string) string
	// keyFilter builds a WHERE predicate matching n key tuples.
	keyFilter(keyColumns []string, n int) string
}

type mysqlDialect struct{}

func (mysqlDialect) name() string { return "mysql" }

func (mysqlDialect) insertIgnore(table string, columns []string) string {
	// id = id leaves the row untouched, so RowsAffected is 0 for a duplicate.
	// INSERT IGNORE is avoided because it also downgrades check and FK failures.
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) ON DUPLICATE KEY UPDATE id = id",
		table, strings.Join(columns, ", "), placeholders(len(columns)))
}

func (mysqlDialect) keyFilter(keyColumns []string, n int) string {
	if len(keyColumns) == 1 {
		return fmt.Sprintf("%s IN (%s)", keyColumns[0], placeholders(n))
	}
	tuple := "(" + placeholders(len(keyColumns)) + ")"
	return fmt.Sprintf("(%s) IN (%s)", strings.Join(keyColumns, ", "), repeatJoin(tuple, n))
}

type sqliteDialect struct{}

func (sqliteDialect) name() string { return "sqlite" }

func (sqliteDialect) insertIgnore(table string, columns []string) string {
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) ON CONFLICT DO NOTHING",
		table, strings.Join(columns, ", "), placeholders(len(columns)))
}

func (sqliteDialect) keyFilter(keyColumns []string, n int) string {
	if len(keyColumns) == 1 {
		return fmt.Sprintf("%s IN (%s)", keyColumns[0], placeholders(n))
	}
	// SQLite only accepts a subquery on the right of a row-value IN.
	tuple := "(" + placeholders(len(keyColumns)) + ")"
	return fmt.Sprintf("(%s) IN (VALUES %s)", strings.Join(keyColumns, ", "), repeatJoin(tuple, n))
}

func placeholders(n int) string {
	return repeatJoin("?", n)
}

func repeatJoin(s string, n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat(s+", ", n), ", ")
}
