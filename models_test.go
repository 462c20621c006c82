package groupkit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// TestMembershipType tests MembershipType validation
func TestMembershipType(t *testing.T) {
	t.Run("User type is valid", func(t *testing.T) {
		assert.True(t, MembershipUser.Valid())
	})

	t.Run("Group type is valid", func(t *testing.T) {
		assert.True(t, MembershipGroup.Valid())
	})

	t.Run("Unknown type is invalid", func(t *testing.T) {
		assert.False(t, MembershipType("role").Valid())
		assert.False(t, MembershipType("").Valid())
		assert.False(t, MembershipType("USER").Valid())
	})
}

// TestGroup tests Group struct and methods
func TestGroup(t *testing.T) {
	t.Run("Create new group", func(t *testing.T) {
		group := Group{
			ID:             "g-123",
			LegacyID:       100045,
			Name:           "Engineering",
			Status:         GroupStatusActive,
			OrganizationID: "org-1",
		}

		assert.Equal(t, "g-123", group.ID)
		assert.Equal(t, int64(100045), group.LegacyID)
		assert.Equal(t, "Engineering", group.Name)
		assert.Equal(t, "org-1", group.OrganizationID)
		assert.False(t, group.Private)
		assert.False(t, group.SelfRegister)
	})

	t.Run("Active group", func(t *testing.T) {
		group := Group{Status: GroupStatusActive}
		assert.True(t, group.IsActive())
	})

	t.Run("Inactive group", func(t *testing.T) {
		group := Group{Status: GroupStatusInactive}
		assert.False(t, group.IsActive())
	})
}

// TestPrincipal tests Principal elevation rules
func TestPrincipal(t *testing.T) {
	t.Run("Machine principal is elevated", func(t *testing.T) {
		p := Principal{UserID: "system", Machine: true}
		assert.True(t, p.Elevated())
	})

	t.Run("Admin principal is elevated", func(t *testing.T) {
		p := Principal{UserID: "admin-1", Admin: true}
		assert.True(t, p.Elevated())
	})

	t.Run("Regular principal is not elevated", func(t *testing.T) {
		p := Principal{UserID: "user-1", UID: 42}
		assert.False(t, p.Elevated())
	})

	t.Run("Zero principal is not elevated", func(t *testing.T) {
		assert.False(t, Principal{}.Elevated())
	})
}

// TestMemberRef tests the tagged member reference
func TestMemberRef(t *testing.T) {
	t.Run("By canonical id", func(t *testing.T) {
		ref := ByID("u-123")

		assert.False(t, ref.IsLegacy())
		assert.False(t, ref.IsZero())
		assert.Equal(t, "u-123", ref.ID())
		assert.Equal(t, int64(0), ref.LegacyID())
	})

	t.Run("By legacy id", func(t *testing.T) {
		ref := ByLegacyID(100045)

		assert.True(t, ref.IsLegacy())
		assert.False(t, ref.IsZero())
		assert.Equal(t, "", ref.ID())
		assert.Equal(t, int64(100045), ref.LegacyID())
	})

	t.Run("Zero reference", func(t *testing.T) {
		var ref MemberRef
		assert.True(t, ref.IsZero())
		assert.False(t, ref.IsLegacy())
	})

	t.Run("Refers matches canonical id", func(t *testing.T) {
		p := Principal{UserID: "u-123", UID: 42}

		assert.True(t, ByID("u-123").Refers(p))
		assert.False(t, ByID("u-999").Refers(p))
	})

	t.Run("Refers matches legacy id", func(t *testing.T) {
		p := Principal{UserID: "u-123", UID: 42}

		assert.True(t, ByLegacyID(42).Refers(p))
		assert.False(t, ByLegacyID(43).Refers(p))
	})

	t.Run("Refers never matches zero identity", func(t *testing.T) {
		// A principal without a UID must not match ByLegacyID(0).
		p := Principal{UserID: "u-123"}
		assert.False(t, ByLegacyID(0).Refers(p))

		// A principal without a UserID must not match ByID("").
		assert.False(t, ByID("").Refers(Principal{}))
	})

	t.Run("String representation", func(t *testing.T) {
		assert.Equal(t, "id:u-123", ByID("u-123").String())
		assert.Equal(t, "legacy:100045", ByLegacyID(100045).String())
	})
}

// TestMemberPage tests the pagination result shape
func TestMemberPage(t *testing.T) {
	t.Run("Empty page keeps metadata", func(t *testing.T) {
		page := MemberPage{
			Members: []MemberRecord{},
			Total:   5,
			Page:    3,
			PerPage: 10,
		}

		assert.Empty(t, page.Members)
		assert.Equal(t, 5, page.Total)
		assert.Equal(t, 3, page.Page)
		assert.Equal(t, 10, page.PerPage)
	})
}

// TestRemovalResult tests the removal outcome shape
func TestRemovalResult(t *testing.T) {
	t.Run("Missing edge removal", func(t *testing.T) {
		res := RemovalResult{GroupID: "g-123"}

		assert.False(t, res.Removed)
		assert.Equal(t, "g-123", res.GroupID)
		assert.Empty(t, res.MemberID)
	})

	t.Run("Group member removal carries legacy id", func(t *testing.T) {
		res := RemovalResult{
			Removed:        true,
			GroupID:        "g-123",
			MemberID:       "g-456",
			MemberLegacyID: 200010,
			MemberType:     MembershipGroup,
		}

		assert.True(t, res.Removed)
		assert.Equal(t, int64(200010), res.MemberLegacyID)
		assert.Equal(t, MembershipGroup, res.MemberType)
	})
}

// TestAuditEntry tests AuditEntry conversion
func TestAuditEntry(t *testing.T) {
	t.Run("ToModel conversion", func(t *testing.T) {
		entry := AuditEntry{
			ActorID:    "actor-1",
			Action:     AuditActionAdded,
			GroupID:    "g-123",
			MemberID:   "u-456",
			MemberType: MembershipUser,
			IPAddress:  "192.168.1.1",
			UserAgent:  "Mozilla/5.0",
			RequestID:  "req-123",
			Metadata:   map[string]any{"source": "api"},
		}

		model := entry.ToModel()

		assert.Equal(t, "actor-1", model.ActorID)
		assert.Equal(t, "added", model.Action)
		assert.Equal(t, "g-123", model.GroupID)
		assert.Equal(t, "u-456", model.MemberID)
		assert.Equal(t, "user", model.MemberType)
		assert.Equal(t, "192.168.1.1", model.IPAddress)
		assert.Equal(t, "Mozilla/5.0", model.UserAgent)
		assert.Equal(t, "req-123", model.RequestID)
		assert.Equal(t, "api", model.Metadata["source"])
		assert.WithinDuration(t, time.Now(), model.Timestamp, time.Second)
	})

	t.Run("Removed action", func(t *testing.T) {
		entry := AuditEntry{Action: AuditActionRemoved}
		assert.Equal(t, "removed", entry.ToModel().Action)
	})
}
