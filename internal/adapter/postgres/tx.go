package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/Temutjin2k/ispeed/pkg/trm"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Querier interface {
	Exec(ctx context.Context, query string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, query string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, query string, args ...any) pgx.Row
}

// TxorDB returns the transaction started by trm.Manager or the pool itself.
func TxorDB(ctx context.Context, db *pgxpool.Pool) Querier {
	tx, ok := ctx.Value(trm.TxKey).(pgx.Tx)
	if !ok {
		return db
	}
	return tx
}

// conditions accumulates AND-ed WHERE clauses with positional arguments.
// expr must contain a single %d for the placeholder number.
type conditions struct {
	parts []string
	args  []any
}

func (c *conditions) add(expr string, arg any) {
	c.args = append(c.args, arg)
	c.parts = append(c.parts, fmt.Sprintf(expr, len(c.args)))
}

func (c *conditions) where() string {
	if len(c.parts) == 0 {
		return ""
	}
	return "WHERE " + strings.Join(c.parts, " AND ")
}

// next returns the placeholder number of the next argument.
func (c *conditions) next() int {
	return len(c.args) + 1
}
