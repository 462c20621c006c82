package groupkit

import (
	"context"

	"github.com/fernandezvara/dbkit"
	"github.com/uptrace/bun"
)

// Authorizer resolves whether a principal may read or mutate a group's
// membership. Rules are layered: machine principals bypass everything, admins
// override everything else, and ordinary users are limited to group privacy
// and self-registration rules.
//
// All decisions are made before any graph mutation is attempted.
type Authorizer struct {
	service *Service
}

// NewAuthorizer creates an Authorizer for a service.
func NewAuthorizer(service *Service) *Authorizer {
	return &Authorizer{service: service}
}

// CanMutate reports whether the principal may mutate the group's membership
// unconditionally. Non-admin principals never pass this check; their only path
// into a mutation is SelfRegisterEligible.
func (a *Authorizer) CanMutate(p Principal, g *Group) bool {
	return p.Machine || p.Admin
}

// SelfRegisterEligible reports whether a non-admin principal may perform a
// self-service mutation: the group must allow self-registration, the
// membership type must be User, and the member in question must be the
// principal itself. The identity match is numeric for legacy references and
// canonical-id equality otherwise.
func (a *Authorizer) SelfRegisterEligible(p Principal, g *Group, member MemberRef, mt MembershipType) bool {
	if !g.SelfRegister {
		return false
	}
	if mt != MembershipUser {
		return false
	}
	return member.Refers(p)
}

// CanView reports whether the principal may read the group's membership.
// Anyone can view a non-private group; viewing a private group requires a
// current direct membership edge in that group.
func (a *Authorizer) CanView(ctx context.Context, db dbkit.IDB, p Principal, g *Group) (bool, error) {
	if p.Machine || p.Admin {
		return true, nil
	}
	if !g.Private {
		return true, nil
	}
	if p.UserID == "" {
		return false, nil
	}
	return a.isDirectMember(ctx, db, g.ID, p.UserID)
}

// isDirectMember checks for a direct membership edge between group and user.
func (a *Authorizer) isDirectMember(ctx context.Context, db dbkit.IDB, groupID, userID string) (bool, error) {
	exists, err := dbkit.Exists[MembershipEdge](ctx, db, func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Where("group_id = ? AND member_id = ? AND member_type = ?",
			groupID, userID, MembershipUser)
	})
	if err != nil {
		return false, err
	}
	return exists, nil
}

// authorizeMutation runs the layered mutation checks for AddMember and
// RemoveMember and returns ErrForbidden when none passes.
func (a *Authorizer) authorizeMutation(p Principal, g *Group, member MemberRef, mt MembershipType) error {
	if a.CanMutate(p, g) {
		return nil
	}
	if a.SelfRegisterEligible(p, g, member, mt) {
		return nil
	}
	return NewError(ErrForbidden, "principal may not mutate group membership").
		WithGroup(g.ID).
		WithActor(p.UserID)
}

// authorizeView runs the view checks for the query operations and returns
// ErrForbidden when membership of the group is not visible to the principal.
func (a *Authorizer) authorizeView(ctx context.Context, db dbkit.IDB, p Principal, g *Group) error {
	ok, err := a.CanView(ctx, db, p, g)
	if err != nil {
		return err
	}
	if !ok {
		return NewError(ErrForbidden, "group membership is private").
			WithGroup(g.ID).
			WithActor(p.UserID)
	}
	return nil
}
