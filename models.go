package groupkit

import (
	"strconv"
	"time"

	"github.com/uptrace/bun"
)

// MembershipType discriminates what kind of node a membership edge points at.
type MembershipType string

const (
	// MembershipUser marks an edge from a group to a user.
	MembershipUser MembershipType = "user"

	// MembershipGroup marks an edge from a group to a nested group.
	MembershipGroup MembershipType = "group"
)

// Valid reports whether the membership type is one of the known values.
func (mt MembershipType) Valid() bool {
	return mt == MembershipUser || mt == MembershipGroup
}

// Group statuses. Only active groups are visible to non-admin principals and
// only active groups participate in the aggregate count queries.
const (
	GroupStatusActive   = "active"
	GroupStatusInactive = "inactive"
)

// Group is a node that can contain users and/or other groups.
// Groups are created and updated by an external group-management flow;
// GroupKit only reads them.
type Group struct {
	bun.BaseModel `bun:"table:groups,alias:g"`

	ID           string `bun:"id,pk,type:uuid,default:gen_random_uuid()"`
	LegacyID     int64  `bun:"legacy_id,nullzero"` // system-of-record identifier, 0 when absent
	Name         string `bun:"name,notnull"`
	Status       string `bun:"status,notnull,default:'active'"`
	Private      bool   `bun:"private,notnull,default:false"`
	SelfRegister bool   `bun:"self_register,notnull,default:false"`

	// Owning organization.
	OrganizationID string `bun:"organization_id"`

	CreatedAt time.Time `bun:"created_at,notnull,default:current_timestamp"`
	UpdatedAt time.Time `bun:"updated_at,notnull,default:current_timestamp"`
}

// IsActive reports whether the group is in active status.
func (g *Group) IsActive() bool {
	return g.Status == GroupStatusActive
}

// User is a membership-capable identity. Read-only from GroupKit's perspective.
type User struct {
	bun.BaseModel `bun:"table:users,alias:u"`

	ID           string    `bun:"id,pk,type:uuid,default:gen_random_uuid()"`
	UniversalUID int64     `bun:"universal_uid,nullzero"` // legacy numeric alias, 0 when absent
	CreatedAt    time.Time `bun:"created_at,notnull,default:current_timestamp"`
}

// MembershipEdge is the single edge type of the containment graph: it connects
// a containing group to a contained user or group. Edges are created by
// AddMember and destroyed by RemoveMember, never updated in place.
type MembershipEdge struct {
	bun.BaseModel `bun:"table:group_members,alias:gm"`

	ID         string         `bun:"id,pk,type:uuid"`
	GroupID    string         `bun:"group_id,notnull"`
	MemberID   string         `bun:"member_id,notnull"`
	MemberType MembershipType `bun:"member_type,notnull"`
	CreatedAt  time.Time      `bun:"created_at,notnull,default:current_timestamp"`
	CreatedBy  string         `bun:"created_by"`
}

// Principal is the acting identity passed to every operation.
type Principal struct {
	UserID  string // canonical user id
	UID     int64  // legacy numeric identifier ("universalUID")
	Admin   bool   // admin role: may mutate/view any group
	Machine bool   // distinguished system principal: bypasses all checks
}

// Elevated reports whether the principal skips the self-service restrictions.
func (p Principal) Elevated() bool {
	return p.Machine || p.Admin
}

// MemberRef is a tagged reference to a user or group: either a canonical id or
// a legacy numeric identifier. It is resolved to a canonical internal id once,
// at the service boundary.
type MemberRef struct {
	id     string
	legacy int64
}

// ByID references a member by its canonical id.
func ByID(id string) MemberRef {
	return MemberRef{id: id}
}

// ByLegacyID references a member by its legacy numeric identifier.
func ByLegacyID(uid int64) MemberRef {
	return MemberRef{legacy: uid}
}

// IsLegacy reports whether the reference carries a legacy identifier.
func (r MemberRef) IsLegacy() bool {
	return r.id == "" && r.legacy != 0
}

// IsZero reports whether the reference is empty.
func (r MemberRef) IsZero() bool {
	return r.id == "" && r.legacy == 0
}

// ID returns the canonical id, empty for legacy references.
func (r MemberRef) ID() string {
	return r.id
}

// LegacyID returns the legacy identifier, 0 for canonical references.
func (r MemberRef) LegacyID() int64 {
	return r.legacy
}

// Refers reports whether the reference points at the given principal, using
// canonical-id equality for direct references and numeric identity equality
// for legacy ones.
func (r MemberRef) Refers(p Principal) bool {
	if r.IsLegacy() {
		return p.UID != 0 && r.legacy == p.UID
	}
	return r.id != "" && r.id == p.UserID
}

// String returns a loggable representation of the reference.
func (r MemberRef) String() string {
	if r.IsLegacy() {
		return "legacy:" + strconv.FormatInt(r.legacy, 10)
	}
	return "id:" + r.id
}

// MemberSpec describes the member to add to a group.
type MemberSpec struct {
	Member MemberRef
	Type   MembershipType
}

// MemberRecord summarizes one membership edge for callers. Legacy identifiers
// ride along with the canonical ids for cross-system compatibility.
type MemberRecord struct {
	EdgeID        string         `bun:"edge_id"`
	GroupID       string         `bun:"group_id"`
	GroupLegacyID int64          `bun:"group_legacy_id"`
	GroupName     string         `bun:"group_name"`
	MemberID      string         `bun:"member_id"`
	MemberUID     int64          `bun:"member_uid"`
	MemberType    MembershipType `bun:"member_type"`
	CreatedAt     time.Time      `bun:"created_at"`
	CreatedBy     string         `bun:"created_by"`
}

// MemberPage is one page of a group's direct members.
// A page beyond the available range has an empty Members slice but still
// carries the correct Total/Page/PerPage metadata.
type MemberPage struct {
	Members []MemberRecord
	Total   int
	Page    int
	PerPage int
}

// RemovalResult reports the outcome of RemoveMember. Removing an edge that
// does not exist is not an error: Removed is false and the rest is zeroed.
// For group members the legacy identifier is reported first-class, since
// downstream systems key nested groups by it.
type RemovalResult struct {
	Removed        bool
	GroupID        string
	MemberID       string
	MemberLegacyID int64
	MemberType     MembershipType
}

// GroupMemberCount pairs a group with its user-member count.
type GroupMemberCount struct {
	ID       string `bun:"id"`
	LegacyID int64  `bun:"legacy_id"`
	Count    int    `bun:"count"`
}

// AuditAction represents the type of action in the membership audit log.
type AuditAction string

const (
	AuditActionAdded   AuditAction = "added"
	AuditActionRemoved AuditAction = "removed"
)

// MembershipAudit records every membership change for compliance and debugging.
type MembershipAudit struct {
	bun.BaseModel `bun:"table:membership_audit,alias:ma"`

	ID        string    `bun:"id,pk,type:uuid,default:gen_random_uuid()"`
	Timestamp time.Time `bun:"timestamp,notnull,default:current_timestamp"`

	// Who performed the action
	ActorID string `bun:"actor_id,notnull"`

	// What happened
	Action string `bun:"action,notnull"` // "added", "removed"

	// Edge coordinates
	GroupID    string `bun:"group_id,notnull"`
	MemberID   string `bun:"member_id,notnull"`
	MemberType string `bun:"member_type,notnull"`

	// Request metadata for forensics
	IPAddress string `bun:"ip_address"`
	UserAgent string `bun:"user_agent"`
	RequestID string `bun:"request_id"`

	// Additional context (JSON)
	Metadata map[string]any `bun:"metadata,type:jsonb"`
}

// AuditEntry is used to create new audit log entries.
type AuditEntry struct {
	ActorID    string
	Action     AuditAction
	GroupID    string
	MemberID   string
	MemberType MembershipType
	IPAddress  string
	UserAgent  string
	RequestID  string
	Metadata   map[string]any
}

// ToModel converts an AuditEntry to a MembershipAudit model.
func (e *AuditEntry) ToModel() *MembershipAudit {
	return &MembershipAudit{
		ActorID:    e.ActorID,
		Action:     string(e.Action),
		GroupID:    e.GroupID,
		MemberID:   e.MemberID,
		MemberType: string(e.MemberType),
		IPAddress:  e.IPAddress,
		UserAgent:  e.UserAgent,
		RequestID:  e.RequestID,
		Metadata:   e.Metadata,
		Timestamp:  time.Now(),
	}
}
