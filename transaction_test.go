package groupkit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/fernandezvara/dbkit"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestTransactionMonitor tests the in-memory transaction metrics
func TestTransactionMonitor(t *testing.T) {
	t.Run("Fresh monitor is empty and healthy", func(t *testing.T) {
		service := NewService(nil)
		metrics := service.GetTransactionMetrics()

		assert.Equal(t, int64(0), metrics.TotalTransactions)
		assert.True(t, service.IsTransactionHealthy())
	})

	t.Run("Records success and failure", func(t *testing.T) {
		service := NewService(nil)
		service.txMonitor.recordTransaction(10*time.Millisecond, true)
		service.txMonitor.recordTransaction(30*time.Millisecond, false)

		metrics := service.GetTransactionMetrics()
		assert.Equal(t, int64(2), metrics.TotalTransactions)
		assert.Equal(t, int64(1), metrics.SuccessfulTransactions)
		assert.Equal(t, int64(1), metrics.FailedTransactions)
		assert.Equal(t, 20*time.Millisecond, metrics.AverageDuration)
		assert.Equal(t, 30*time.Millisecond, metrics.MaxDuration)
		assert.Equal(t, 10*time.Millisecond, metrics.MinDuration)
	})

	t.Run("Reset clears counters", func(t *testing.T) {
		service := NewService(nil)
		service.txMonitor.recordTransaction(time.Millisecond, true)

		service.ResetTransactionMetrics()

		metrics := service.GetTransactionMetrics()
		assert.Equal(t, int64(0), metrics.TotalTransactions)
		assert.WithinDuration(t, time.Now(), metrics.LastReset, time.Second)
	})

	t.Run("High failure rate is unhealthy", func(t *testing.T) {
		service := NewService(nil)
		for i := 0; i < 9; i++ {
			service.txMonitor.recordTransaction(time.Millisecond, true)
		}
		for i := 0; i < 3; i++ {
			service.txMonitor.recordTransaction(time.Millisecond, false)
		}

		assert.False(t, service.IsTransactionHealthy())
	})

	t.Run("Slow transactions are unhealthy", func(t *testing.T) {
		service := NewService(nil)
		for i := 0; i < 12; i++ {
			service.txMonitor.recordTransaction(2*time.Second, true)
		}

		assert.False(t, service.IsTransactionHealthy())
	})
}

// TestTransientErrorClassification tests the retry gate
func TestTransientErrorClassification(t *testing.T) {
	testCases := []struct {
		name string
		err  error
		want bool
	}{
		{"Nil error", nil, false},
		{"Conflict is authoritative", NewError(ErrConflict, "duplicate"), false},
		{"Forbidden is authoritative", NewError(ErrForbidden, "nope"), false},
		{"NotFound is authoritative", NewError(ErrNotFound, "missing"), false},
		{"BadRequest is authoritative", NewError(ErrBadRequest, "invalid"), false},
		{"Connection refused", errors.New("dial tcp: connection refused"), true},
		{"Deadlock detected", errors.New("pq: deadlock detected"), true},
		{"Serialization failure", errors.New("pq: serialization failure"), true},
		{"Context deadline", context.DeadlineExceeded, true},
		{"Context canceled", context.Canceled, true},
		{"Arbitrary error", errors.New("something else entirely"), false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, isTransientTransactionError(tc.err))
		})
	}
}

// TestTransaction tests transactional execution against a real database
func TestTransaction(t *testing.T) {
	h := NewTestDataHelper(t)
	if h == nil {
		return
	}
	ctx := h.GetContext()
	service := h.GetService()

	t.Run("Commit on success", func(t *testing.T) {
		group := h.CreateGroup("tx-commit")
		user := h.CreateUser()

		err := service.Transaction(ctx, func(ctx context.Context, db dbkit.IDB) error {
			edge := &MembershipEdge{
				ID:         "33333333-3333-3333-3333-333333333333",
				GroupID:    group.ID,
				MemberID:   user.ID,
				MemberType: MembershipUser,
				CreatedAt:  time.Now().UTC(),
			}
			_, err := db.NewInsert().Model(edge).Exec(ctx)
			return err
		})

		require.NoError(t, err)
		count, err := service.CountMembers(ctx, group.ID, false)
		require.NoError(t, err)
		assert.Equal(t, 1, count)
	})

	t.Run("Rollback on error", func(t *testing.T) {
		group := h.CreateGroup("tx-rollback")
		user := h.CreateUser()
		boom := errors.New("boom")

		err := service.Transaction(ctx, func(ctx context.Context, db dbkit.IDB) error {
			edge := &MembershipEdge{
				ID:         "44444444-4444-4444-4444-444444444444",
				GroupID:    group.ID,
				MemberID:   user.ID,
				MemberType: MembershipUser,
				CreatedAt:  time.Now().UTC(),
			}
			if _, err := db.NewInsert().Model(edge).Exec(ctx); err != nil {
				return err
			}
			return boom
		})

		assert.ErrorIs(t, err, boom)

		count, err := service.CountMembers(ctx, group.ID, false)
		require.NoError(t, err)
		assert.Equal(t, 0, count)
	})

	t.Run("Failed mutation leaves no partial state", func(t *testing.T) {
		// A cycle rejection happens after the edge-existence checks ran; the
		// whole mutation must be invisible afterwards, audit entry included.
		a := h.CreateGroup("tx-atomic-a")
		b := h.CreateGroup("tx-atomic-b")
		h.AddGroup(a, b)

		_, err := service.AddMember(ctx, AdminPrincipal(), b.ID, MemberSpec{
			Member: ByID(a.ID),
			Type:   MembershipGroup,
		})
		assert.True(t, IsConflict(err))

		count, err := service.CountMembers(ctx, b.ID, false)
		require.NoError(t, err)
		assert.Equal(t, 0, count)

		entries, err := service.GetAuditLog(ctx, NewAuditFilter().WithGroup(b.ID))
		require.NoError(t, err)
		assert.Empty(t, entries)
	})

	t.Run("Read-only transaction", func(t *testing.T) {
		group := h.CreateGroup("tx-readonly")
		user := h.CreateUser()
		h.AddUser(group, user)

		err := service.ReadOnlyTransaction(ctx, func(ctx context.Context, db dbkit.IDB) error {
			count, err := service.directUserCount(ctx, db, group.ID)
			if err != nil {
				return err
			}
			assert.Equal(t, 1, count)
			return nil
		})

		assert.NoError(t, err)
	})

	t.Run("Metrics track mutations", func(t *testing.T) {
		service.ResetTransactionMetrics()

		group := h.CreateGroup("tx-metrics")
		user := h.CreateUser()
		h.AddUser(group, user)

		metrics := service.GetTransactionMetrics()
		assert.GreaterOrEqual(t, metrics.TotalTransactions, int64(1))
		assert.GreaterOrEqual(t, metrics.SuccessfulTransactions, int64(1))
	})
}

// TestAddMemberWithRetry tests that authoritative answers are never retried
func TestAddMemberWithRetry(t *testing.T) {
	h := NewTestDataHelper(t)
	if h == nil {
		return
	}
	ctx := h.GetContext()
	service := h.GetService()

	t.Run("Succeeds on first attempt", func(t *testing.T) {
		group := h.CreateGroup("retry-ok")
		user := h.CreateUser()

		rec, err := service.AddMemberWithRetry(ctx, AdminPrincipal(), group.ID, MemberSpec{
			Member: ByID(user.ID),
			Type:   MembershipUser,
		})

		require.NoError(t, err)
		assert.Equal(t, user.ID, rec.MemberID)
	})

	t.Run("Conflict returns immediately", func(t *testing.T) {
		group := h.CreateGroup("retry-conflict")
		user := h.CreateUser()
		h.AddUser(group, user)

		start := time.Now()
		_, err := service.AddMemberWithRetry(ctx, AdminPrincipal(), group.ID, MemberSpec{
			Member: ByID(user.ID),
			Type:   MembershipUser,
		})

		assert.True(t, IsConflict(err))
		// No backoff sleeps for authoritative answers.
		assert.Less(t, time.Since(start), time.Second)
	})
}
