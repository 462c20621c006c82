package groupkit

import (
	"context"

	"github.com/fernandezvara/dbkit"
)

// Service manages membership edges of the group-containment graph.
// It integrates with the database through dbkit with enhanced error handling.
//
// Error Handling:
// All store operations use dbkit's chainable error wrapping for operation
// context, but the errors surfaced to callers always unwrap to one of the
// GroupKit sentinels so transport layers can classify them.
//
// Example error handling:
//
//	rec, err := service.AddMember(ctx, principal, groupID, spec)
//	if err != nil {
//	    switch {
//	    case groupkit.IsConflict(err):
//	        // duplicate edge, cycle, or privacy-nesting violation
//	    case groupkit.IsForbidden(err):
//	        // principal may not mutate this group
//	    case groupkit.IsNotFound(err):
//	        // group or member does not exist
//	    }
//	}
type Service struct {
	db             dbkit.IDB
	notifier       Notifier
	notifyOnRemove bool
	txMonitor      *transactionMonitor
}

// Option configures the Service.
type Option func(*Service)

// WithNotifier sets the notifier that receives membership-changed facts after
// commit. Without one, no notifications are published.
func WithNotifier(n Notifier) Option {
	return func(s *Service) {
		s.notifier = n
	}
}

// WithNotifyOnRemove enables publication of removal events. The upstream
// system never published these, so they default to off; flip this on once
// consumers are ready for them.
func WithNotifyOnRemove() Option {
	return func(s *Service) {
		s.notifyOnRemove = true
	}
}

// NewService creates a new GroupKit service.
//
// Example:
//
//	db, _ := dbkit.New(dbkit.Config{URL: "postgres://..."})
//	service := groupkit.NewService(db, groupkit.WithNotifier(bus))
func NewService(db dbkit.IDB, opts ...Option) *Service {
	s := &Service{
		db:        db,
		txMonitor: newTransactionMonitor(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Authorizer returns the authorization resolver bound to this service.
func (s *Service) Authorizer() *Authorizer {
	return &Authorizer{service: s}
}

// ============================================================================
// AUDIT LOG
// ============================================================================

// GetAuditLog retrieves membership audit entries with optional filters.
func (s *Service) GetAuditLog(ctx context.Context, filter AuditFilter) ([]MembershipAudit, error) {
	var entries []MembershipAudit
	q := s.db.NewSelect().Model(&entries)
	if filter.ActorID != "" {
		q = q.Where("actor_id = ?", filter.ActorID)
	}
	if filter.GroupID != "" {
		q = q.Where("group_id = ?", filter.GroupID)
	}
	if filter.MemberID != "" {
		q = q.Where("member_id = ?", filter.MemberID)
	}
	if filter.Action != "" {
		q = q.Where("action = ?", filter.Action)
	}
	if !filter.Since.IsZero() {
		q = q.Where("timestamp >= ?", filter.Since)
	}
	if !filter.Until.IsZero() {
		q = q.Where("timestamp <= ?", filter.Until)
	}

	limit := filter.Limit
	if limit == 0 {
		limit = 100 // Default limit
	}
	q = q.Limit(limit)

	if filter.Offset > 0 {
		q = q.Offset(filter.Offset)
	}

	q = q.Order("timestamp DESC")
	err := dbkit.WithErr1(q.Scan(ctx), "GetAuditLog").Err()
	if err != nil {
		return nil, err
	}

	return entries, nil
}
