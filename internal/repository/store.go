// Package repository contains the MySQL data access layer.  Every repository
// runs its statements through a querier, which is either the *sql.DB pool
// or the *sql.Tx of a unit of work started by Store.WithinTx, so the same
// code serves both standalone calls and transactions.
package repository

import (
	"context"
	"database/sql"

	"github.com/rodetes-party/rodetes/internal/store"
)

// querier is the subset of *sql.DB and *sql.Tx the repositories use.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// repos binds every repository to one querier.
type repos struct{ q querier }

func (r repos) Events() store.EventRepository           { return &EventRepo{q: r.q} }
func (r repos) Tickets() store.TicketRepository         { return &TicketRepo{q: r.q} }
func (r repos) Redemptions() store.RedemptionRepository { return &RedemptionRepo{q: r.q} }
func (r repos) Drags() store.DragRepository             { return &DragRepo{q: r.q} }
func (r repos) MerchItems() store.MerchItemRepository   { return &MerchItemRepo{q: r.q} }
func (r repos) MerchSales() store.MerchSaleRepository   { return &MerchSaleRepo{q: r.q} }
func (r repos) Users() store.UserRepository             { return &UserRepo{q: r.q} }
func (r repos) Tokens() store.TokenRepository           { return &TokenRepo{q: r.q} }

// Store implements store.Store on a MySQL connection pool.
type Store struct {
	repos
	db *sql.DB
}

var _ store.Store = (*Store)(nil)

// NewStore wraps an open pool (see database.Open).
func NewStore(db *sql.DB) *Store {
	return &Store{repos: repos{q: db}, db: db}
}

// DB exposes the underlying pool for health checks and migrations.
func (s *Store) DB() *sql.DB { return s.db }

// WithinTx runs fn inside one READ COMMITTED transaction.  Serialisation of
// the critical sections comes from the SELECT ... FOR UPDATE row locks the
// services take through the GetForUpdate methods, not from the isolation
// level.  The transaction is rolled back unless fn returns nil and the
// commit succeeds.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, tx store.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	if err := fn(ctx, repos{q: tx}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

func (s *Store) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }
func (s *Store) Close() error                   { return s.db.Close() }
