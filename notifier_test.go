package groupkit

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// recordingNotifier captures published events for assertions.
type recordingNotifier struct {
	mu     sync.Mutex
	events []recordedEvent
	done   chan struct{}
	err    error
	panics bool
}

type recordedEvent struct {
	topic   string
	payload any
}

func newRecordingNotifier() *recordingNotifier {
	return &recordingNotifier{done: make(chan struct{}, 16)}
}

func (n *recordingNotifier) Publish(topic string, payload any) error {
	n.mu.Lock()
	n.events = append(n.events, recordedEvent{topic: topic, payload: payload})
	n.mu.Unlock()
	n.done <- struct{}{}
	if n.panics {
		panic("notifier exploded")
	}
	return n.err
}

func (n *recordingNotifier) wait(t *testing.T) recordedEvent {
	t.Helper()
	select {
	case <-n.done:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for notification")
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.events[len(n.events)-1]
}

// TestNopNotifier tests the discarding notifier
func TestNopNotifier(t *testing.T) {
	var n NopNotifier
	assert.NoError(t, n.Publish(TopicMemberAdded, MemberChangedEvent{}))
}

// TestNotify tests asynchronous event dispatch
func TestNotify(t *testing.T) {
	t.Run("Event reaches the notifier", func(t *testing.T) {
		notifier := newRecordingNotifier()
		service := NewService(nil, WithNotifier(notifier))

		event := MemberChangedEvent{
			GroupID:    "g-123",
			MemberID:   "u-456",
			MemberType: MembershipUser,
			ActorID:    "actor-1",
		}
		service.notify(TopicMemberAdded, event)

		got := notifier.wait(t)
		assert.Equal(t, TopicMemberAdded, got.topic)
		assert.Equal(t, event, got.payload)
	})

	t.Run("Nil notifier is a no-op", func(t *testing.T) {
		service := NewService(nil)
		assert.NotPanics(t, func() {
			service.notify(TopicMemberAdded, MemberChangedEvent{GroupID: "g-123"})
		})
	})

	t.Run("Publish error does not reach the caller", func(t *testing.T) {
		notifier := newRecordingNotifier()
		notifier.err = errors.New("broker unavailable")
		service := NewService(nil, WithNotifier(notifier))

		assert.NotPanics(t, func() {
			service.notify(TopicMemberRemoved, MemberChangedEvent{GroupID: "g-123"})
		})
		notifier.wait(t)
	})

	t.Run("Notifier panic is contained", func(t *testing.T) {
		notifier := newRecordingNotifier()
		notifier.panics = true
		service := NewService(nil, WithNotifier(notifier))

		assert.NotPanics(t, func() {
			service.notify(TopicMemberAdded, MemberChangedEvent{GroupID: "g-123"})
		})
		notifier.wait(t)
	})
}

// TestNotificationTopics pins the topic names consumers subscribe to
func TestNotificationTopics(t *testing.T) {
	assert.Equal(t, "groups.member.added", TopicMemberAdded)
	assert.Equal(t, "groups.member.removed", TopicMemberRemoved)
}
