package groupkit

import (
	"context"
	"errors"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/fernandezvara/dbkit"
	"github.com/uptrace/bun"
)

// ============================================================================
// INTERNAL HELPERS
// ============================================================================

// findGroupByID resolves a canonical group id to its record. Non-elevated
// principals only see active groups; the includeInactive flag carries the
// admin override through to the existence check.
func (s *Service) findGroupByID(ctx context.Context, db dbkit.IDB, id string, includeInactive bool) (*Group, error) {
	var group Group
	q := db.NewSelect().Model(&group).Where("id = ?", id)
	if !includeInactive {
		q = q.Where("status = ?", GroupStatusActive)
	}
	err := dbkit.WithErr1(q.Limit(1).Scan(ctx), "FindGroup").Err()
	if err != nil {
		if dbkit.IsNotFound(err) {
			return nil, NewError(ErrNotFound, "group not found").WithGroup(id)
		}
		return nil, err
	}
	return &group, nil
}

// findGroupByRef resolves a group reference (canonical or legacy) to its record.
func (s *Service) findGroupByRef(ctx context.Context, db dbkit.IDB, ref MemberRef, includeInactive bool) (*Group, error) {
	if !ref.IsLegacy() {
		return s.findGroupByID(ctx, db, ref.ID(), includeInactive)
	}
	var group Group
	q := db.NewSelect().Model(&group).Where("legacy_id = ?", ref.LegacyID())
	if !includeInactive {
		q = q.Where("status = ?", GroupStatusActive)
	}
	err := dbkit.WithErr1(q.Limit(1).Scan(ctx), "FindGroupByLegacyID").Err()
	if err != nil {
		if dbkit.IsNotFound(err) {
			return nil, NewError(ErrNotFound, "group not found").WithGroup(ref.String())
		}
		return nil, err
	}
	return &group, nil
}

// findUserByRef resolves a user reference (canonical or legacy "universalUID")
// to its record.
func (s *Service) findUserByRef(ctx context.Context, db dbkit.IDB, ref MemberRef) (*User, error) {
	var user User
	q := db.NewSelect().Model(&user)
	if ref.IsLegacy() {
		q = q.Where("universal_uid = ?", ref.LegacyID())
	} else {
		q = q.Where("id = ?", ref.ID())
	}
	err := dbkit.WithErr1(q.Limit(1).Scan(ctx), "FindUser").Err()
	if err != nil {
		if dbkit.IsNotFound(err) {
			return nil, NewError(ErrNotFound, "user not found").WithMember(ref.String())
		}
		return nil, err
	}
	return &user, nil
}

// edgeExists checks for an existing edge between a group and a resolved member.
// Matching is on the canonical member id; references are resolved before the
// duplicate check so legacy and canonical callers observe the same edge.
func (s *Service) edgeExists(ctx context.Context, db dbkit.IDB, groupID, memberID string) (bool, error) {
	return dbkit.Exists[MembershipEdge](ctx, db, func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Where("group_id = ? AND member_id = ?", groupID, memberID)
	})
}

// pathExists reports whether a directed containment path already leads from
// one group to another through chained group-to-group edges. It runs inside
// the caller's transaction: the reachability answer and the edge insert must
// observe the same snapshot, or concurrent additions could close a cycle.
func (s *Service) pathExists(ctx context.Context, db dbkit.IDB, fromGroupID, toGroupID string) (bool, error) {
	var exists bool
	err := dbkit.WithErr1(db.NewRaw(`
		WITH RECURSIVE reach AS (
			SELECT gm.member_id AS id
			FROM group_members gm
			WHERE gm.group_id = ? AND gm.member_type = 'group'
			UNION
			SELECT gm.member_id
			FROM group_members gm
			JOIN reach r ON gm.group_id = r.id
			WHERE gm.member_type = 'group'
		)
		SELECT EXISTS (SELECT 1 FROM reach WHERE id = ?)`,
		fromGroupID, toGroupID).Scan(ctx, &exists), "PathExists").Err()
	if err != nil {
		return false, err
	}
	return exists, nil
}

// directUserCount counts the User members reachable via exactly one edge.
func (s *Service) directUserCount(ctx context.Context, db dbkit.IDB, groupID string) (int, error) {
	return dbkit.Count[MembershipEdge](ctx, db, func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Where("group_id = ? AND member_type = ?", groupID, MembershipUser)
	})
}

// transitiveUserCount counts the distinct User nodes reachable via one or more
// chained containment edges. The UNION de-duplicates visited groups, so the
// recursion terminates even on a malformed graph, and DISTINCT collapses users
// reachable through multiple paths.
func (s *Service) transitiveUserCount(ctx context.Context, db dbkit.IDB, groupID string) (int, error) {
	var count int
	err := dbkit.WithErr1(db.NewRaw(`
		WITH RECURSIVE nested AS (
			SELECT ?::uuid AS id
			UNION
			SELECT gm.member_id
			FROM group_members gm
			JOIN nested n ON gm.group_id = n.id
			WHERE gm.member_type = 'group'
		)
		SELECT COUNT(DISTINCT gm.member_id)
		FROM group_members gm
		JOIN nested n ON gm.group_id = n.id
		WHERE gm.member_type = 'user'`,
		groupID).Scan(ctx, &count), "TransitiveUserCount").Err()
	if err != nil {
		return 0, err
	}
	return count, nil
}

// containsUser reports whether the group's member set (direct, or transitive
// when includeSubGroups is set) includes the user with the given legacy UID.
func (s *Service) containsUser(ctx context.Context, db dbkit.IDB, groupID string, uid int64, includeSubGroups bool) (bool, error) {
	var exists bool
	var err error
	if includeSubGroups {
		err = dbkit.WithErr1(db.NewRaw(`
			WITH RECURSIVE nested AS (
				SELECT ?::uuid AS id
				UNION
				SELECT gm.member_id
				FROM group_members gm
				JOIN nested n ON gm.group_id = n.id
				WHERE gm.member_type = 'group'
			)
			SELECT EXISTS (
				SELECT 1
				FROM group_members gm
				JOIN nested n ON gm.group_id = n.id
				JOIN users u ON u.id = gm.member_id
				WHERE gm.member_type = 'user' AND u.universal_uid = ?
			)`,
			groupID, uid).Scan(ctx, &exists), "ContainsUserTransitive").Err()
	} else {
		err = dbkit.WithErr1(db.NewRaw(`
			SELECT EXISTS (
				SELECT 1
				FROM group_members gm
				JOIN users u ON u.id = gm.member_id
				WHERE gm.group_id = ? AND gm.member_type = 'user' AND u.universal_uid = ?
			)`,
			groupID, uid).Scan(ctx, &exists), "ContainsUser").Err()
	}
	if err != nil {
		return false, err
	}
	return exists, nil
}

// logAudit records a membership change. Best effort: callers discard the error.
func (s *Service) logAudit(ctx context.Context, db dbkit.IDB, entry *AuditEntry) error {
	_, err := db.NewInsert().Model(entry.ToModel()).Exec(ctx)
	return dbkit.WithErr1(err, "LogAudit").Err()
}

// ============================================================================
// RETRY SUPPORT
// ============================================================================

// AddMemberWithRetry adds a member with automatic retry for transient store
// errors. Invariant violations (Conflict, Forbidden, NotFound, BadRequest)
// are never retried; a Conflict on retry is authoritative.
func (s *Service) AddMemberWithRetry(ctx context.Context, p Principal, groupID string, spec MemberSpec) (*MemberRecord, error) {
	return s.addMemberWithRetry(ctx, p, groupID, spec, 3)
}

// addMemberWithRetry is the internal implementation with configurable attempts.
func (s *Service) addMemberWithRetry(ctx context.Context, p Principal, groupID string, spec MemberSpec, maxAttempts int) (*MemberRecord, error) {
	var lastErr error

	for attempt := 0; attempt < maxAttempts; attempt++ {
		rec, err := s.AddMember(ctx, p, groupID, spec)
		if err == nil {
			return rec, nil
		}

		lastErr = err

		// Don't retry on non-transient errors
		if !isTransientTransactionError(err) {
			return nil, err
		}

		// If this is the last attempt, don't wait
		if attempt == maxAttempts-1 {
			break
		}

		// Exponential backoff with jitter
		backoff := time.Duration(1<<uint(attempt)) * time.Second
		jitter := time.Duration(float64(backoff) * 0.1 * (0.5 + rand.Float64()))
		time.Sleep(backoff + jitter)
	}

	return nil, lastErr
}

// isTransientTransactionError checks if an error is transient and can be retried
func isTransientTransactionError(err error) bool {
	if err == nil {
		return false
	}

	// The taxonomy errors are authoritative answers, never transient.
	if IsNotFound(err) || IsForbidden(err) || IsBadRequest(err) || IsConflict(err) {
		return false
	}

	// PostgreSQL transient errors
	errStr := strings.ToLower(err.Error())
	transientErrors := []string{
		"connection",
		"timeout",
		"deadlock",
		"lock wait timeout",
		"connection refused",
		"connection reset",
		"broken pipe",
		"temporary failure",
		"try again",
		"resource temporarily unavailable",
		"serialization failure",
	}

	for _, transientErr := range transientErrors {
		if strings.Contains(errStr, transientErr) {
			return true
		}
	}

	// Check for context errors (cancellation, deadline)
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return true
	}

	return false
}
