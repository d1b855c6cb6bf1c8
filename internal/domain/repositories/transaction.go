package repositories

import "context"

// TxFn is a function that runs within a transaction
type TxFn func(ctx context.Context) error

// TransactionManager handles database transactions
type TransactionManager interface {
	// ExecTx executes a function within a transaction.
	// Calls nested inside an active transaction join it instead of opening a new one.
	ExecTx(ctx context.Context, fn TxFn) error
}
