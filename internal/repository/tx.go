package repository

import (
    "context"
    "database/sql"
    "errors"
)

// errForeignTx is returned when a Tx was not produced by SQLTxManager.
var errForeignTx = errors.New("repository: tx was not created by SQLTxManager")

// Tx abstracts a database transaction so the service layer can be
// exercised against fakes.  SQL-backed stores unwrap it back to *sql.Tx.
type Tx interface {
    Commit() error
    Rollback() error
}

// TxManager begins transactions.  The service layer holds this interface
// rather than *sql.DB directly.
type TxManager interface {
    Begin(ctx context.Context) (Tx, error)
}

// sqlTx wraps *sql.Tx to satisfy Tx.
type sqlTx struct{ *sql.Tx }

// SQLTxManager is the production TxManager bound to a database pool.
type SQLTxManager struct{ db *sql.DB }

// NewSQLTxManager returns a TxManager backed by the given pool.
func NewSQLTxManager(db *sql.DB) *SQLTxManager { return &SQLTxManager{db: db} }

// Begin starts a new transaction.
func (m *SQLTxManager) Begin(ctx context.Context) (Tx, error) {
    tx, err := m.db.BeginTx(ctx, nil)
    if err != nil {
        return nil, err
    }
    return &sqlTx{tx}, nil
}

// unwrap extracts the underlying *sql.Tx from a Tx produced by
// SQLTxManager.  Stores call this at the top of every ...Tx method; a
// nil result means the Tx came from somewhere else and is a programming
// error surfaced as a query failure.
func unwrap(tx Tx) *sql.Tx {
    if w, ok := tx.(*sqlTx); ok {
        return w.Tx
    }
    return nil
}
