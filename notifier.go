package groupkit

import (
	"log"
	"time"
)

// Notification topics.
const (
	TopicMemberAdded   = "groups.member.added"
	TopicMemberRemoved = "groups.member.removed"
)

// MemberChangedEvent is the payload published after a membership mutation
// commits. Identifiers are legacy-first where available so downstream
// systems keyed on the old identifiers can consume the event directly.
type MemberChangedEvent struct {
	EdgeID        string         `json:"edge_id,omitempty"`
	GroupID       string         `json:"group_id"`
	GroupLegacyID int64          `json:"group_legacy_id,omitempty"`
	MemberID      string         `json:"member_id"`
	MemberUID     int64          `json:"member_uid,omitempty"`
	MemberType    MembershipType `json:"member_type"`
	ActorID       string         `json:"actor_id"`
	OccurredAt    time.Time      `json:"occurred_at"`
}

// Notifier publishes membership-changed facts to interested consumers.
// Publication is strictly best-effort: GroupKit invokes it only after the
// store transaction has committed, asynchronously, and a returned error is
// logged and discarded without affecting the caller.
type Notifier interface {
	Publish(topic string, payload any) error
}

// NopNotifier discards every event. Useful as an explicit placeholder.
type NopNotifier struct{}

// Publish implements Notifier.
func (NopNotifier) Publish(string, any) error { return nil }

// notify dispatches an event to the configured notifier without blocking the
// caller. Panics and publish errors are contained here; a notification must
// never fail a committed mutation.
func (s *Service) notify(topic string, payload any) {
	if s.notifier == nil {
		return
	}
	go func() {
		defer func() {
			if r := recover(); r != nil {
				log.Printf("groupkit: notifier panic on %s: %v", topic, r)
			}
		}()
		if err := s.notifier.Publish(topic, payload); err != nil {
			log.Printf("groupkit: notify %s failed: %v", topic, err)
		}
	}()
}
