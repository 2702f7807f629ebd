package database

import (
	"context"
	"embed"
	"fmt"
	"strings"
)

//go:embed schema/*.sql
var schemaFS embed.FS

// EnsureSchema creates any missing tables for the active dialect.
func (db *DB) EnsureSchema(ctx context.Context) error {
	ddl, err := schemaFS.ReadFile("schema/" + db.dialect.name() + ".sql")
	if err != nil {
		return fmt.Errorf("failed to read %s schema: %w", db.dialect.name(), err)
	}

	for _, stmt := range strings.Split(string(ddl), ";") {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema statement %q: %w", firstLine(stmt), err)
		}
	}
	db.logger.Info("database schema ensured", "driver", db.dialect.name())
	return nil
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
