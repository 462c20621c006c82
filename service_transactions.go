package groupkit

import (
	"context"
	"fmt"
	"time"

	"github.com/fernandezvara/dbkit"
)

// Transaction executes a function within a database transaction with automatic
// commit/rollback. The callback receives the transactional handle; every store
// access inside a mutating operation goes through it so that validation, graph
// reachability checks and the write itself observe one consistent snapshot.
// If the function returns an error, the transaction is rolled back and the
// error is propagated unchanged. Otherwise, it's committed.
//
// Example:
//
//	err := service.Transaction(ctx, func(ctx context.Context, db dbkit.IDB) error {
//	    // multi-step invariant checks against db
//	    return nil // commit
//	})
func (s *Service) Transaction(ctx context.Context, fn func(ctx context.Context, db dbkit.IDB) error) error {
	start := time.Now()
	var err error

	switch db := s.db.(type) {
	case *dbkit.Tx:
		// Already in a transaction, use a savepoint.
		err = db.Transaction(ctx, func(tx *dbkit.Tx) error {
			return fn(ctx, tx)
		})
	case *dbkit.DBKit:
		err = db.Transaction(ctx, func(tx *dbkit.Tx) error {
			return fn(ctx, tx)
		})
	default:
		err = fmt.Errorf("transaction support requires a dbkit.DBKit or dbkit.Tx instance")
	}

	// Record transaction metrics
	duration := time.Since(start)
	s.txMonitor.recordTransaction(duration, err == nil)

	return err
}

// TransactionWithOptions executes a function within a database transaction with
// custom options. Supports read-only transactions, isolation levels, and other
// transaction parameters. Concurrent additions that would together close a
// containment cycle are serialized by the store's isolation; callers that need
// a stronger guarantee than the default level can run the mutation under
// dbkit.SerializableTxOptions().
func (s *Service) TransactionWithOptions(ctx context.Context, opts dbkit.TxOptions, fn func(ctx context.Context, db dbkit.IDB) error) error {
	switch db := s.db.(type) {
	case *dbkit.Tx:
		// Nested transactions become savepoints; options do not apply there.
		return db.Transaction(ctx, func(tx *dbkit.Tx) error {
			return fn(ctx, tx)
		})
	case *dbkit.DBKit:
		return db.TransactionWithOptions(ctx, opts, func(tx *dbkit.Tx) error {
			return fn(ctx, tx)
		})
	default:
		return fmt.Errorf("transaction support requires a dbkit.DBKit or dbkit.Tx instance")
	}
}

// ReadOnlyTransaction executes a function within a read-only database
// transaction. Useful when several membership queries must observe one
// consistent snapshot.
//
// Example:
//
//	err := service.ReadOnlyTransaction(ctx, func(ctx context.Context, db dbkit.IDB) error {
//	    page, err := service.ListMembers(ctx, principal, groupID, 1, 50)
//	    return err
//	})
func (s *Service) ReadOnlyTransaction(ctx context.Context, fn func(ctx context.Context, db dbkit.IDB) error) error {
	return s.TransactionWithOptions(ctx, dbkit.ReadOnlyTxOptions(), fn)
}
