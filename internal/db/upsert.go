package db

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"
)

var identPattern = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// sanitizeIdent rejects identifiers that cannot be interpolated into
// DDL safely. Column and table names in this codebase are static, so a
// failure here is a programming error.
func sanitizeIdent(name string) (string, error) {
	if !identPattern.MatchString(name) {
		return "", eris.Errorf("db: unsafe identifier %q", name)
	}
	return name, nil
}

func quoteAndJoin(cols []string) string {
	quoted := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = pgx.Identifier{c}.Sanitize()
	}
	return strings.Join(quoted, ", ")
}

// BulkUpsert loads rows into table through a temp table and a single
// INSERT ... ON CONFLICT DO UPDATE. conflictCols name the unique key;
// every other column is updated from the incoming row. Everything runs
// in one transaction, so a failed load leaves the target untouched.
func BulkUpsert(ctx context.Context, pool Pool, table string, columns, conflictCols []string, rows [][]any) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	if _, err := sanitizeIdent(table); err != nil {
		return 0, err
	}
	for _, c := range columns {
		if _, err := sanitizeIdent(c); err != nil {
			return 0, err
		}
	}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return 0, eris.Wrap(err, "db: begin upsert")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	tmp := table + "_staging"
	createSQL := fmt.Sprintf(
		"CREATE TEMP TABLE %s (LIKE %s INCLUDING DEFAULTS) ON COMMIT DROP",
		pgx.Identifier{tmp}.Sanitize(), pgx.Identifier{table}.Sanitize(),
	)
	if _, err := tx.Exec(ctx, createSQL); err != nil {
		return 0, eris.Wrapf(err, "db: create staging table for %s", table)
	}

	n, err := tx.CopyFrom(ctx, pgx.Identifier{tmp}, columns, pgx.CopyFromRows(rows))
	if err != nil {
		return 0, eris.Wrapf(err, "db: copy into staging table for %s", table)
	}

	conflictSet := map[string]bool{}
	for _, c := range conflictCols {
		conflictSet[c] = true
	}
	var updates []string
	for _, c := range columns {
		if conflictSet[c] {
			continue
		}
		q := pgx.Identifier{c}.Sanitize()
		updates = append(updates, fmt.Sprintf("%s = EXCLUDED.%s", q, q))
	}

	insertSQL := fmt.Sprintf(
		"INSERT INTO %s (%s) SELECT %s FROM %s ON CONFLICT (%s) DO UPDATE SET %s",
		pgx.Identifier{table}.Sanitize(),
		quoteAndJoin(columns),
		quoteAndJoin(columns),
		pgx.Identifier{tmp}.Sanitize(),
		quoteAndJoin(conflictCols),
		strings.Join(updates, ", "),
	)
	if _, err := tx.Exec(ctx, insertSQL); err != nil {
		return 0, eris.Wrapf(err, "db: merge staging rows into %s", table)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, eris.Wrap(err, "db: commit upsert")
	}
	return n, nil
}
