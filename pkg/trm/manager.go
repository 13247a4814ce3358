package trm

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type TxManager interface {
	Do(ctx context.Context, fn func(ctx context.Context) error) error
	DoReadOnly(ctx context.Context, fn func(ctx context.Context) error) error
}

// Manager runs functions inside a pgx transaction stored in the context.
// Repositories pick the transaction up through TxKey.
type Manager struct {
	db *pgxpool.Pool
}

func New(db *pgxpool.Pool) *Manager {
	return &Manager{db: db}
}

type ctxKeyTx struct{}
type ctxTxOptions struct{}

var TxKey = ctxKeyTx{}
var txOptions = ctxTxOptions{}

var ErrInvalidTx = errors.New("invalid transaction type in context")

// Do executes fn within a transaction. If ctx already carries a transaction fn joins it
// and the outermost Do decides commit or rollback. A panic rolls back and is re-raised.
func (m *Manager) Do(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	if existing := ctx.Value(TxKey); existing != nil {
		if _, ok := existing.(pgx.Tx); !ok {
			return ErrInvalidTx
		}
		return fn(ctx)
	}

	tx, err := m.begin(ctx)
	if err != nil {
		return err
	}
	ctx = context.WithValue(ctx, TxKey, tx)

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback(context.WithoutCancel(ctx))
			panic(p)
		}
		if err != nil {
			if rbErr := tx.Rollback(context.WithoutCancel(ctx)); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
				err = fmt.Errorf("failed to rollback tx: %v (original error: %w)", rbErr, err)
			}
			return
		}
		if commitErr := tx.Commit(ctx); commitErr != nil {
			err = fmt.Errorf("failed to commit tx: %w", commitErr)
		}
	}()

	return fn(ctx)
}

// DoReadOnly executes fn within a read-only transaction.
func (m *Manager) DoReadOnly(ctx context.Context, fn func(ctx context.Context) error) error {
	return m.Do(WithOptionsCtx(ctx, pgx.TxOptions{AccessMode: pgx.ReadOnly}), fn)
}

func (m *Manager) begin(ctx context.Context) (pgx.Tx, error) {
	if opt, ok := ctx.Value(txOptions).(pgx.TxOptions); ok {
		tx, err := m.db.BeginTx(ctx, opt)
		if err != nil {
			return nil, fmt.Errorf("failed to start new transaction with options: %w", err)
		}
		return tx, nil
	}

	tx, err := m.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to start new transaction: %w", err)
	}
	return tx, nil
}

func WithOptionsCtx(ctx context.Context, opt pgx.TxOptions) context.Context {
	return context.WithValue(ctx, txOptions, opt)
}
