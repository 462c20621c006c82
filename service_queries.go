package groupkit

import (
	"context"

	"github.com/fernandezvara/dbkit"
	"github.com/uptrace/bun"
)

// edgesOfGroup filters membership edges down to one group's direct edges.
func edgesOfGroup(groupID string) func(*bun.SelectQuery) *bun.SelectQuery {
	return func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Where("group_id = ?", groupID)
	}
}

// ============================================================================
// MEMBERSHIP QUERIES
// ============================================================================
//
// Query operations run outside an explicit transaction: each is a single
// statement (or an independent statement sequence with no multi-step
// invariant to protect), so per-query isolation is enough.

// memberSelect is the projection shared by ListMembers and GetMember. Legacy
// identifiers come from the joined user/group record of the member node.
const memberSelect = `
	SELECT gm.id AS edge_id,
	       gm.group_id,
	       g.legacy_id AS group_legacy_id,
	       g.name AS group_name,
	       gm.member_id,
	       COALESCE(u.universal_uid, cg.legacy_id, 0) AS member_uid,
	       gm.member_type,
	       gm.created_at,
	       gm.created_by
	FROM group_members gm
	JOIN groups g ON g.id = gm.group_id
	LEFT JOIN users u ON u.id = gm.member_id AND gm.member_type = 'user'
	LEFT JOIN groups cg ON cg.id = gm.member_id AND gm.member_type = 'group'`

// ListMembers returns one page of a group's direct members.
//
// The page is 1-based. Requesting a page beyond the available range is not an
// error: the result carries an empty member list with the correct
// Total/Page/PerPage metadata. Ordering is stable on the edge id.
func (s *Service) ListMembers(ctx context.Context, p Principal, groupID string, page, perPage int) (*MemberPage, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = 20
	}

	group, err := s.findGroupByID(ctx, s.db, groupID, p.Elevated())
	if err != nil {
		return nil, err
	}
	if err := s.Authorizer().authorizeView(ctx, s.db, p, group); err != nil {
		return nil, err
	}

	total, err := dbkit.Count[MembershipEdge](ctx, s.db, edgesOfGroup(group.ID))
	if err != nil {
		return nil, err
	}

	result := &MemberPage{
		Members: []MemberRecord{},
		Total:   total,
		Page:    page,
		PerPage: perPage,
	}

	offset := (page - 1) * perPage
	if offset >= total {
		return result, nil
	}

	err = dbkit.WithErr1(s.db.NewRaw(memberSelect+`
		WHERE gm.group_id = ?
		ORDER BY gm.id
		LIMIT ? OFFSET ?`,
		group.ID, perPage, offset).Scan(ctx, &result.Members), "ListMembers").Err()
	if err != nil {
		return nil, err
	}

	return result, nil
}

// GetMember returns the membership edge between a group and a member, failing
// ErrNotFound when no direct edge exists.
func (s *Service) GetMember(ctx context.Context, p Principal, groupID string, member MemberRef) (*MemberRecord, error) {
	group, err := s.findGroupByID(ctx, s.db, groupID, p.Elevated())
	if err != nil {
		return nil, err
	}
	if err := s.Authorizer().authorizeView(ctx, s.db, p, group); err != nil {
		return nil, err
	}

	memberID, _, _, ok, err := s.resolveMemberNode(ctx, s.db, member)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, NewError(ErrNotFound, "member not found").
			WithGroup(group.ID).
			WithMember(member.String())
	}

	var records []MemberRecord
	err = dbkit.WithErr1(s.db.NewRaw(memberSelect+`
		WHERE gm.group_id = ? AND gm.member_id = ?
		LIMIT 1`,
		group.ID, memberID).Scan(ctx, &records), "GetMember").Err()
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, NewError(ErrNotFound, "member does not belong to group").
			WithGroup(group.ID).
			WithMember(memberID)
	}
	return &records[0], nil
}

// CountMembers counts the distinct User members of a group: those reachable
// via exactly one edge, or via one-or-more chained containment edges when
// includeSubGroups is set. A user reachable through multiple paths counts once.
func (s *Service) CountMembers(ctx context.Context, groupID string, includeSubGroups bool) (int, error) {
	if includeSubGroups {
		return s.transitiveUserCount(ctx, s.db, groupID)
	}
	return s.directUserCount(ctx, s.db, groupID)
}

// ListGroupsMemberCount computes the user-member count of every active group
// that carries a legacy identifier, subject to the filter: counts are direct
// or transitive per IncludeSubGroups, the set can be restricted to groups
// whose member set includes a given legacy user, and to a single organization.
// Results are ordered by legacy identifier.
func (s *Service) ListGroupsMemberCount(ctx context.Context, filter MemberCountFilter) ([]GroupMemberCount, error) {
	var groups []Group
	q := s.db.NewSelect().Model(&groups).
		Where("status = ?", GroupStatusActive).
		Where("legacy_id IS NOT NULL")
	if filter.OrganizationID != "" {
		q = q.Where("organization_id = ?", filter.OrganizationID)
	}
	q = q.Order("legacy_id ASC")
	err := dbkit.WithErr1(q.Scan(ctx), "ListGroupsMemberCount").Err()
	if err != nil {
		return nil, err
	}

	counts := make([]GroupMemberCount, 0, len(groups))
	for _, g := range groups {
		if filter.MemberUID != 0 {
			contains, err := s.containsUser(ctx, s.db, g.ID, filter.MemberUID, filter.IncludeSubGroups)
			if err != nil {
				return nil, err
			}
			if !contains {
				continue
			}
		}

		count, err := s.CountMembers(ctx, g.ID, filter.IncludeSubGroups)
		if err != nil {
			return nil, err
		}
		counts = append(counts, GroupMemberCount{
			ID:       g.ID,
			LegacyID: g.LegacyID,
			Count:    count,
		})
	}

	return counts, nil
}

// GetMemberGroups returns the distinct legacy identifiers of the active groups
// that contain the member directly or transitively, ordered by legacy
// identifier. An unresolvable member yields an empty result.
func (s *Service) GetMemberGroups(ctx context.Context, member MemberRef) ([]int64, error) {
	memberID, _, _, ok, err := s.resolveMemberNode(ctx, s.db, member)
	if err != nil {
		return nil, err
	}
	if !ok {
		return []int64{}, nil
	}

	var legacyIDs []int64
	err = dbkit.WithErr1(s.db.NewRaw(`
		WITH RECURSIVE containing AS (
			SELECT gm.group_id
			FROM group_members gm
			WHERE gm.member_id = ?
			UNION
			SELECT gm.group_id
			FROM group_members gm
			JOIN containing c ON gm.member_id = c.group_id
			WHERE gm.member_type = 'group'
		)
		SELECT DISTINCT g.legacy_id
		FROM groups g
		JOIN containing c ON g.id = c.group_id
		WHERE g.status = 'active' AND g.legacy_id IS NOT NULL
		ORDER BY g.legacy_id`,
		memberID).Scan(ctx, &legacyIDs), "GetMemberGroups").Err()
	if err != nil {
		return nil, err
	}
	if legacyIDs == nil {
		legacyIDs = []int64{}
	}
	return legacyIDs, nil
}
