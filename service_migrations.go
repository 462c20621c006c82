package groupkit

import (
	"github.com/fernandezvara/dbkit"
)

// MigrationService provides migration management functionality as an extension to Service
type MigrationService struct {
	*Service
}

// NewMigrationService creates a new migration service extension
func NewMigrationService(service *Service) *MigrationService {
	return &MigrationService{Service: service}
}

// Migrations returns all database migrations required for GroupKit.
// Use dbkit.Migrate(ctx, service.Migrations()) to run migrations.
// Use dbkit.MigrationStatus(ctx, service.Migrations()) to check status.
//
// The groups and users tables are owned by the external group-management
// flow; GroupKit creates them if absent so the library is self-contained in
// development and test environments.
func (ms *MigrationService) Migrations() []dbkit.Migration {
	return []dbkit.Migration{
		{
			ID:          "groupkit-001",
			Description: "Create groups table",
			SQL: `
                CREATE TABLE IF NOT EXISTS groups (
                    id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
                    legacy_id BIGINT UNIQUE,
                    name TEXT NOT NULL,
                    status TEXT NOT NULL DEFAULT 'active',
                    private BOOLEAN NOT NULL DEFAULT false,
                    self_register BOOLEAN NOT NULL DEFAULT false,
                    organization_id TEXT,
                    created_at TIMESTAMPTZ NOT NULL DEFAULT current_timestamp,
                    updated_at TIMESTAMPTZ NOT NULL DEFAULT current_timestamp
                )`,
		},
		{
			ID:          "groupkit-002",
			Description: "Create users table",
			SQL: `
                CREATE TABLE IF NOT EXISTS users (
                    id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
                    universal_uid BIGINT UNIQUE,
                    created_at TIMESTAMPTZ NOT NULL DEFAULT current_timestamp
                )`,
		},
		{
			ID:          "groupkit-003",
			Description: "Create group_members table",
			SQL: `
                CREATE TABLE IF NOT EXISTS group_members (
                    id UUID PRIMARY KEY,
                    group_id UUID NOT NULL,
                    member_id UUID NOT NULL,
                    member_type TEXT NOT NULL,
                    created_at TIMESTAMPTZ NOT NULL DEFAULT current_timestamp,
                    created_by TEXT,
                    UNIQUE (group_id, member_id)
                )`,
		},
		{
			ID:          "groupkit-004",
			Description: "Create membership_audit table",
			SQL: `
                CREATE TABLE IF NOT EXISTS membership_audit (
                    id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
                    timestamp TIMESTAMPTZ NOT NULL DEFAULT current_timestamp,
                    actor_id TEXT NOT NULL,
                    action TEXT NOT NULL,
                    group_id TEXT NOT NULL,
                    member_id TEXT NOT NULL,
                    member_type TEXT NOT NULL,
                    ip_address TEXT,
                    user_agent TEXT,
                    request_id TEXT,
                    metadata JSONB
                )`,
		},
		{
			ID:          "groupkit-005",
			Description: "Index group_members by member",
			SQL: `
                CREATE INDEX IF NOT EXISTS idx_group_members_member
                    ON group_members (member_id)`,
		},
		{
			ID:          "groupkit-006",
			Description: "Index group_members by group and member type",
			SQL: `
                CREATE INDEX IF NOT EXISTS idx_group_members_group_type
                    ON group_members (group_id, member_type)`,
		},
	}
}
