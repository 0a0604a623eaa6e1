package importer

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// serialTables have an id sequence that must move past the copied ids.
var serialTables = []string{"categories", "genres", "titles", "users", "reviews", "comments"}

// CopySink writes rows with COPY FROM inside one transaction.
type CopySink struct {
	tx pgx.Tx
}

func (s *CopySink) CopyRows(ctx context.Context, table string, columns []string, rows [][]any) (int64, error) {
	return s.tx.CopyFrom(ctx, pgx.Identifier{table}, columns, pgx.CopyFromRows(rows))
}

// LoadPostgres loads dir into the database behind pool atomically and then
// resets the id sequences so new rows do not collide with imported ids.
func LoadPostgres(ctx context.Context, pool *pgxpool.Pool, dir string) (*Result, error) {
	tx, err := pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	res, err := Load(ctx, dir, &CopySink{tx: tx})
	if err != nil {
		return res, err
	}

	for _, table := range serialTables {
		if _, ok := res.Loaded[table]; !ok {
			continue
		}
		sql := fmt.Sprintf(
			`SELECT setval(pg_get_serial_sequence('%[1]s', 'id'), COALESCE((SELECT MAX(id) FROM %[1]s), 0) + 1, false)`,
			table,
		)
		if _, err := tx.Exec(ctx, sql); err != nil {
			return res, fmt.Errorf("reset %s sequence: %w", table, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return res, fmt.Errorf("commit: %w", err)
	}
	return res, nil
}
