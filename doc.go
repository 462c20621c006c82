// Package groupkit manages membership edges in a directed group-containment
// graph: groups contain users and/or other groups through a single edge type.
//
// GroupKit keeps the graph consistent under concurrent mutation (no duplicate
// edges, no containment cycles, no private group containing a public one) and
// enforces a layered authorization model (machine bypass, admin override,
// self-registration, group privacy) before any mutation touches the store.
//
// # Core Concepts
//
// Group: a node that can contain users and/or other groups. Carries a canonical
// UUID plus an optional legacy numeric identifier for cross-system compatibility,
// a status (active/inactive), a privacy flag, and a self-registration flag.
//
// Membership edge: a directed relation from a containing group to a contained
// user or group. At most one edge exists per (group, member) pair, and the graph
// induced by group-to-group edges is always a DAG.
//
// MemberRef: a tagged reference that is either a canonical id (ByID) or a legacy
// numeric identifier (ByLegacyID), resolved once at the service boundary.
//
// Principal: the acting identity. A machine principal bypasses all checks, an
// admin may mutate and view any group, and ordinary users are limited to viewing
// public groups (or private groups they belong to) and to adding/removing
// themselves in self-registering groups.
//
// # Key Features
//
//   - Atomic mutations: validation, cycle detection and the edge write run in one
//     store transaction; any failure rolls the whole operation back
//   - Graph-native reachability: cycle and transitive-membership checks are
//     recursive store queries executed in the same transaction as the write
//   - Legacy-id aware: members and groups are addressable by canonical UUID or
//     by their legacy numeric identifier
//   - Paginated listing, direct and transitive member counts, reverse lookup of
//     the groups containing a member
//   - Best-effort post-commit notifications through a pluggable Notifier
//   - Audit trail of every membership change
//   - DBKit integration: uses your existing database connection
//
// # Basic Usage
//
//	// 1. Connect the store
//	db, _ := dbkit.New(dbkit.Config{URL: "postgres://..."})
//
//	// 2. Create the service
//	service := groupkit.NewService(db,
//	    groupkit.WithNotifier(myBusNotifier),
//	)
//
//	// 3. Run migrations
//	db.Migrate(ctx, groupkit.NewMigrationService(service).Migrations())
//
//	// 4. Mutate membership
//	admin := groupkit.Principal{UserID: "u_1", Admin: true}
//	rec, err := service.AddMember(ctx, admin, groupID, groupkit.MemberSpec{
//	    Member: groupkit.ByLegacyID(100045),
//	    Type:   groupkit.MembershipUser,
//	})
//
//	// 5. Query membership
//	page, err := service.ListMembers(ctx, admin, groupID, 1, 25)
//	total, err := service.CountMembers(ctx, groupID, true)
//
// # Authorization Model
//
// Checks run before any graph mutation is attempted, in this order:
//
//   - Machine principals bypass everything
//   - Admins may mutate and view any group
//   - Non-admins may view a non-private group always; a private group only with
//     a current direct membership edge
//   - Non-admins may add a member only to a self-registering group, only with
//     membership type User, and only when the candidate is themselves (numeric
//     identity equality on the legacy UID, or canonical-id equality)
//   - Removal by non-admins follows the same self-service rule
//
// Violations surface as ErrForbidden without touching the store.
//
// # Notifications
//
// After a successful commit, a membership-changed fact is published to the
// configured Notifier asynchronously. Publish failures are logged and discarded;
// they never fail the caller. Removal events are off by default and enabled with
// WithNotifyOnRemove.
package groupkit
