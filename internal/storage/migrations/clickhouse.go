package migrations

import (
	"context"
	"fmt"
	"strings"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
)

// ClickhouseDB is the part of a ClickHouse connection migrations use.
type ClickhouseDB interface {
	Exec(ctx context.Context, query string, args ...any) error
	Query(ctx context.Context, query string, args ...any) (driver.Rows, error)
}

const clickhouseVersionsTable = `
	CREATE TABLE IF NOT EXISTS schema_migrations (
		version    String,
		applied_at DateTime DEFAULT now()
	)
	ENGINE = ReplacingMergeTree(applied_at)
	ORDER BY version`

// ApplyClickhouse applies pending embedded ClickHouse migrations to the
// database db is connected to. ClickHouse DDL is not transactional: a file
// that fails halfway is not recorded and its statements must stay idempotent.
// Returns the versions applied by this call.
func ApplyClickhouse(ctx context.Context, db ClickhouseDB) ([]string, error) {
	all, err := Load(ClickhouseFS, "clickhouse")
	if err != nil {
		return nil, err
	}

	if err := db.Exec(ctx, clickhouseVersionsTable); err != nil {
		return nil, fmt.Errorf("create schema_migrations: %w", err)
	}

	applied, err := clickhouseApplied(ctx, db)
	if err != nil {
		return nil, err
	}

	var done []string
	for _, m := range pending(all, applied) {
		if err := validateNoSemicolonInStrings(m.SQL); err != nil {
			return done, fmt.Errorf("validate migration %s: %w", m.Version, err)
		}
		// The native driver runs one statement per Exec.
		for _, stmt := range splitStatements(m.SQL) {
			if err := db.Exec(ctx, stmt); err != nil {
				return done, fmt.Errorf("apply migration %s: %w", m.Version, err)
			}
		}
		if err := db.Exec(ctx, `INSERT INTO schema_migrations (version) VALUES (?)`, m.Version); err != nil {
			return done, fmt.Errorf("record migration %s: %w", m.Version, err)
		}
		done = append(done, m.Version)
	}
	return done, nil
}

func clickhouseApplied(ctx context.Context, db ClickhouseDB) (map[string]struct{}, error) {
	rows, err := db.Query(ctx, `SELECT version FROM schema_migrations FINAL`)
	if err != nil {
		return nil, fmt.Errorf("query applied migrations: %w", err)
	}
	defer rows.Close()

	applied := make(map[string]struct{})
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("scan applied migration: %w", err)
		}
		applied[v] = struct{}{}
	}
	return applied, rows.Err()
}

// splitStatements drops "--" comment lines and splits on semicolons.
// It does not understand string literals or block comments; see
// validateNoSemicolonInStrings.
func splitStatements(input string) []string {
	var kept []string
	for _, line := range strings.Split(input, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "--") {
			continue
		}
		kept = append(kept, line)
	}

	var stmts []string
	for _, part := range strings.Split(strings.Join(kept, "\n"), ";") {
		if stmt := strings.TrimSpace(part); stmt != "" {
			stmts = append(stmts, stmt)
		}
	}
	return stmts
}

// validateNoSemicolonInStrings rejects semicolons inside single-quoted
// literals, which splitStatements would cut. A doubled quote is an escape.
func validateNoSemicolonInStrings(sql string) error {
	inString := false
	for i := 0; i < len(sql); i++ {
		switch sql[i] {
		case '\'':
			if inString && i+1 < len(sql) && sql[i+1] == '\'' {
				i++
				continue
			}
			inString = !inString
		case ';':
			if inString {
				return fmt.Errorf("semicolon inside string literal at offset %d", i)
			}
		}
	}
	return nil
}
