package groupkit

import (
	"context"
	"time"

	"github.com/fernandezvara/dbkit"
	"github.com/google/uuid"
)

// ============================================================================
// MEMBERSHIP MUTATIONS
// ============================================================================

// AddMember adds a user or group as a member of a group.
//
// The whole operation (group resolution, authorization, member resolution,
// privacy nesting, duplicate and cycle checks, and the edge insert) runs
// inside one store transaction; any failure rolls everything back and the
// original error propagates unchanged. A membership-changed fact is published
// asynchronously after commit.
//
// Failure modes: ErrNotFound (group or member absent), ErrForbidden
// (authorization), ErrBadRequest (invalid spec, self-containment), ErrConflict
// (duplicate edge, cycle would form, privacy-nesting violation).
//
// Example:
//
//	rec, err := service.AddMember(ctx, principal, groupID, groupkit.MemberSpec{
//	    Member: groupkit.ByLegacyID(100045),
//	    Type:   groupkit.MembershipUser,
//	})
func (s *Service) AddMember(ctx context.Context, p Principal, groupID string, spec MemberSpec) (*MemberRecord, error) {
	if !spec.Type.Valid() {
		return nil, NewError(ErrBadRequest, "unknown membership type").WithGroup(groupID)
	}
	if spec.Member.IsZero() {
		return nil, NewError(ErrBadRequest, "member reference required").WithGroup(groupID)
	}

	var rec *MemberRecord
	err := s.Transaction(ctx, func(ctx context.Context, db dbkit.IDB) error {
		// 1. Canonical group record; admin visibility carries through.
		group, err := s.findGroupByID(ctx, db, groupID, p.Elevated())
		if err != nil {
			return err
		}

		// 2. Authorization before anything touches the graph.
		authz := s.Authorizer()
		if err := authz.authorizeMutation(p, group, spec.Member, spec.Type); err != nil {
			return err
		}

		// 3. A group may not contain itself.
		if spec.Type == MembershipGroup {
			if spec.Member.ID() == group.ID ||
				(spec.Member.IsLegacy() && group.LegacyID != 0 && spec.Member.LegacyID() == group.LegacyID) {
				return NewError(ErrBadRequest, "group cannot contain itself").
					WithGroup(group.ID).
					WithActor(p.UserID)
			}
		}

		// 4. Resolve the child node and collect its identifiers.
		var memberID string
		var memberUID int64
		switch spec.Type {
		case MembershipGroup:
			child, err := s.findGroupByRef(ctx, db, spec.Member, true)
			if err != nil {
				return err
			}
			if child.ID == group.ID {
				return NewError(ErrBadRequest, "group cannot contain itself").
					WithGroup(group.ID).
					WithActor(p.UserID)
			}
			// 5. A private group may only nest private groups.
			if group.Private && !child.Private {
				return NewError(ErrConflict, "private group cannot contain a non-private group").
					WithGroup(group.ID).
					WithMember(child.ID)
			}
			memberID = child.ID
			memberUID = child.LegacyID
		case MembershipUser:
			user, err := s.findUserByRef(ctx, db, spec.Member)
			if err != nil {
				return err
			}
			memberID = user.ID
			memberUID = user.UniversalUID
		}

		// 6. At most one edge per (group, member) pair.
		exists, err := s.edgeExists(ctx, db, group.ID, memberID)
		if err != nil {
			return err
		}
		if exists {
			return NewError(ErrConflict, "member already belongs to group").
				WithGroup(group.ID).
				WithMember(memberID)
		}

		// 7. Cycle check: a path from the candidate child back to this group
		// means the new edge would close a cycle. Same transaction as the
		// insert, or concurrent additions could race a cycle in.
		if spec.Type == MembershipGroup {
			cyclic, err := s.pathExists(ctx, db, memberID, group.ID)
			if err != nil {
				return err
			}
			if cyclic {
				return NewError(ErrConflict, "membership would create a containment cycle").
					WithGroup(group.ID).
					WithMember(memberID)
			}
		}

		// 8. Insert the edge.
		edge := &MembershipEdge{
			ID:         uuid.NewString(),
			GroupID:    group.ID,
			MemberID:   memberID,
			MemberType: spec.Type,
			CreatedAt:  time.Now().UTC(),
			CreatedBy:  p.UserID,
		}
		result, err := db.NewInsert().Model(edge).Exec(ctx)
		err = dbkit.WithErr(result, err, "CreateMembershipEdge").Err()
		if err != nil {
			if dbkit.IsDuplicate(err) {
				// Lost a race against a concurrent add of the same pair.
				return NewError(ErrConflict, "member already belongs to group").
					WithGroup(group.ID).
					WithMember(memberID)
			}
			return NewError(ErrDatabaseError, "failed to create membership edge").
				WithGroup(group.ID).
				WithMember(memberID)
		}

		// 9. Result record for the caller.
		rec = &MemberRecord{
			EdgeID:        edge.ID,
			GroupID:       group.ID,
			GroupLegacyID: group.LegacyID,
			GroupName:     group.Name,
			MemberID:      memberID,
			MemberUID:     memberUID,
			MemberType:    spec.Type,
			CreatedAt:     edge.CreatedAt,
			CreatedBy:     edge.CreatedBy,
		}

		audit := GetAuditContext(ctx)
		_ = s.logAudit(ctx, db, &AuditEntry{ // Log error but don't fail the mutation
			ActorID:    p.UserID,
			Action:     AuditActionAdded,
			GroupID:    group.ID,
			MemberID:   memberID,
			MemberType: spec.Type,
			IPAddress:  audit.IPAddress,
			UserAgent:  audit.UserAgent,
			RequestID:  audit.RequestID,
		})

		return nil
	})
	if err != nil {
		return nil, err
	}

	// Strictly post-commit: an edge without a notification is acceptable,
	// a notification without a committed edge is not.
	s.notify(TopicMemberAdded, MemberChangedEvent{
		EdgeID:        rec.EdgeID,
		GroupID:       rec.GroupID,
		GroupLegacyID: rec.GroupLegacyID,
		MemberID:      rec.MemberID,
		MemberUID:     rec.MemberUID,
		MemberType:    rec.MemberType,
		ActorID:       p.UserID,
		OccurredAt:    rec.CreatedAt,
	})

	return rec, nil
}

// RemoveMember deletes the membership edge between a group and a member.
//
// The member may be referenced by canonical id or by its legacy identifier;
// legacy references are resolved to a canonical id first. Deleting an edge
// that does not exist is not an error: the result simply reports Removed
// false. When the removed member is a group node, the result carries that
// group's legacy identifier, since callers key nested groups by it.
//
// Removal events are only published when the service was built with
// WithNotifyOnRemove.
func (s *Service) RemoveMember(ctx context.Context, p Principal, groupID string, member MemberRef) (*RemovalResult, error) {
	if member.IsZero() {
		return nil, NewError(ErrBadRequest, "member reference required").WithGroup(groupID)
	}

	var res *RemovalResult
	err := s.Transaction(ctx, func(ctx context.Context, db dbkit.IDB) error {
		group, err := s.findGroupByID(ctx, db, groupID, p.Elevated())
		if err != nil {
			return err
		}

		// Self-removal mirrors self-add: a non-admin may only remove
		// themselves from a self-registering group.
		authz := s.Authorizer()
		if err := authz.authorizeMutation(p, group, member, MembershipUser); err != nil {
			return err
		}

		res = &RemovalResult{GroupID: group.ID}

		// Resolve to the canonical member id. An unresolvable reference
		// behaves like a missing edge: the delete is a no-op.
		memberID, memberType, memberUID, ok, err := s.resolveMemberNode(ctx, db, member)
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}

		result, err := db.NewDelete().Table("group_members").
			Where("group_id = ? AND member_id = ?", group.ID, memberID).
			Exec(ctx)
		err = dbkit.WithErr(result, err, "DeleteMembershipEdge").Err()
		if err != nil {
			return err
		}
		rows, _ := result.RowsAffected()
		if rows == 0 {
			return nil
		}

		res.Removed = true
		res.MemberID = memberID
		res.MemberType = memberType
		res.MemberLegacyID = memberUID

		audit := GetAuditContext(ctx)
		_ = s.logAudit(ctx, db, &AuditEntry{ // Log error but don't fail the mutation
			ActorID:    p.UserID,
			Action:     AuditActionRemoved,
			GroupID:    group.ID,
			MemberID:   memberID,
			MemberType: memberType,
			IPAddress:  audit.IPAddress,
			UserAgent:  audit.UserAgent,
			RequestID:  audit.RequestID,
		})

		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.notifyOnRemove && res.Removed {
		s.notify(TopicMemberRemoved, MemberChangedEvent{
			GroupID:    res.GroupID,
			MemberID:   res.MemberID,
			MemberUID:  res.MemberLegacyID,
			MemberType: res.MemberType,
			ActorID:    p.UserID,
			OccurredAt: time.Now().UTC(),
		})
	}

	return res, nil
}

// resolveMemberNode resolves a member reference to the canonical node id,
// trying users first and falling back to groups. ok is false when nothing
// matches, which RemoveMember treats as an idempotent no-op.
func (s *Service) resolveMemberNode(ctx context.Context, db dbkit.IDB, ref MemberRef) (id string, mt MembershipType, uid int64, ok bool, err error) {
	user, err := s.findUserByRef(ctx, db, ref)
	if err == nil {
		return user.ID, MembershipUser, user.UniversalUID, true, nil
	}
	if !IsNotFound(err) {
		return "", "", 0, false, err
	}

	group, err := s.findGroupByRef(ctx, db, ref, true)
	if err == nil {
		return group.ID, MembershipGroup, group.LegacyID, true, nil
	}
	if !IsNotFound(err) {
		return "", "", 0, false, err
	}

	return "", "", 0, false, nil
}
