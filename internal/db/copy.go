package db

import (
	"context"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"
)

// Identifier splits an optionally schema-qualified table name.
func Identifier(table string) pgx.Identifier {
	return pgx.Identifier(strings.Split(table, "."))
}

// CopyFrom bulk-inserts rows into a table using the COPY protocol. The table
// may be schema-qualified ("schema.table").
func CopyFrom(ctx context.Context, pool Pool, table string, columns []string, rows [][]any) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}

	n, err := pool.CopyFrom(ctx, Identifier(table), columns, pgx.CopyFromRows(rows))
	if err != nil {
		return 0, eris.Wrapf(err, "db: COPY INTO %s", table)
	}
	return n, nil
}

// Truncate empties a table.
func Truncate(ctx context.Context, pool Pool, table string) error {
	sql := "TRUNCATE TABLE " + Identifier(table).Sanitize()
	if _, err := pool.Exec(ctx, sql); err != nil {
		return eris.Wrapf(err, "db: truncate %s", table)
	}
	return nil
}
