package groupkit

import "time"

// AuditFilter provides options for filtering membership audit queries.
type AuditFilter struct {
	// Filter by actor who performed the action
	ActorID string

	// Filter by group
	GroupID string

	// Filter by member
	MemberID string

	// Filter by action type ("added" or "removed")
	Action string

	// Filter by time range
	Since time.Time
	Until time.Time

	// Pagination
	Limit  int
	Offset int
}

// NewAuditFilter creates a new AuditFilter with default values.
func NewAuditFilter() AuditFilter {
	return AuditFilter{
		Limit: 100,
	}
}

// WithActor sets the actor ID filter.
func (f AuditFilter) WithActor(actorID string) AuditFilter {
	f.ActorID = actorID
	return f
}

// WithGroup sets the group filter.
func (f AuditFilter) WithGroup(groupID string) AuditFilter {
	f.GroupID = groupID
	return f
}

// WithMember sets the member filter.
func (f AuditFilter) WithMember(memberID string) AuditFilter {
	f.MemberID = memberID
	return f
}

// WithAction sets the action filter.
func (f AuditFilter) WithAction(action AuditAction) AuditFilter {
	f.Action = string(action)
	return f
}

// WithTimeRange sets the time range filter.
func (f AuditFilter) WithTimeRange(since, until time.Time) AuditFilter {
	f.Since = since
	f.Until = until
	return f
}

// WithSince sets the start time filter.
func (f AuditFilter) WithSince(since time.Time) AuditFilter {
	f.Since = since
	return f
}

// WithUntil sets the end time filter.
func (f AuditFilter) WithUntil(until time.Time) AuditFilter {
	f.Until = until
	return f
}

// WithLimit sets the limit for results.
func (f AuditFilter) WithLimit(limit int) AuditFilter {
	f.Limit = limit
	return f
}

// WithOffset sets the offset for pagination.
func (f AuditFilter) WithOffset(offset int) AuditFilter {
	f.Offset = offset
	return f
}

// WithPagination sets both limit and offset.
func (f AuditFilter) WithPagination(limit, offset int) AuditFilter {
	f.Limit = limit
	f.Offset = offset
	return f
}

// MemberCountFilter narrows ListGroupsMemberCount.
type MemberCountFilter struct {
	// Count transitive members (users reachable through nested groups)
	// instead of direct ones.
	IncludeSubGroups bool

	// Restrict to groups whose member set includes this legacy user.
	MemberUID int64

	// Restrict to groups of one organization.
	OrganizationID string
}

// NewMemberCountFilter creates an empty MemberCountFilter.
func NewMemberCountFilter() MemberCountFilter {
	return MemberCountFilter{}
}

// WithSubGroups switches the counts to transitive membership.
func (f MemberCountFilter) WithSubGroups() MemberCountFilter {
	f.IncludeSubGroups = true
	return f
}

// WithMemberUID restricts results to groups containing the legacy user.
func (f MemberCountFilter) WithMemberUID(uid int64) MemberCountFilter {
	f.MemberUID = uid
	return f
}

// WithOrganization restricts results to one organization.
func (f MemberCountFilter) WithOrganization(orgID string) MemberCountFilter {
	f.OrganizationID = orgID
	return f
}
