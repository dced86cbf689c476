package events

import (
	"testing"
	"time"

	"github.com/mezonai/cubix/digest"
)

func TestEventBus(t *testing.T) {
	eventBus := NewEventBus()

	id, eventChan := eventBus.Subscribe()

	if count := eventBus.GetTotalSubscriptions(); count != 1 {
		t.Errorf("Expected 1 subscriber, got %d", count)
	}
	if !eventBus.HasSubscriber(id) {
		t.Fatalf("Expected subscriber %s to exist", id)
	}

	faceDigest := digest.Sum([]byte("face"))
	eventBus.Publish(NewFaceCompleted(2, 5, faceDigest))

	select {
	case receivedEvent := <-eventChan:
		if receivedEvent.Type() != EventFaceCompleted {
			t.Errorf("Expected FaceCompleted, got %s", receivedEvent.Type())
		}
		if receivedEvent.Hash() != faceDigest {
			t.Errorf("Expected hash %s, got %s", faceDigest, receivedEvent.Hash())
		}
		if receivedEvent.Level() != 2 {
			t.Errorf("Expected level 2, got %d", receivedEvent.Level())
		}
		if fc, ok := receivedEvent.(*FaceCompleted); !ok || fc.Index != 5 {
			t.Errorf("Expected *FaceCompleted with index 5, got %#v", receivedEvent)
		}
	case <-time.After(1 * time.Second):
		t.Error("Timeout waiting for event")
	}

	if !eventBus.Unsubscribe(id) {
		t.Fatal("Unsubscribe returned false")
	}
	if _, open := <-eventChan; open {
		t.Error("Expected channel to be closed after unsubscribe")
	}
	if count := eventBus.GetTotalSubscriptions(); count != 0 {
		t.Errorf("Expected 0 subscribers after unsubscribe, got %d", count)
	}
	if eventBus.Unsubscribe(id) {
		t.Error("Second unsubscribe should report false")
	}
}

func TestPublishDropsWhenFull(t *testing.T) {
	eventBus := NewEventBus()
	_, ch := eventBus.Subscribe()

	for i := 0; i < subscriberBufferSize+10; i++ {
		eventBus.Publish(NewLevelCreated(uint32(i)))
	}

	if len(ch) != subscriberBufferSize {
		t.Fatalf("Expected %d buffered events, got %d", subscriberBufferSize, len(ch))
	}
}

func TestEventTypes(t *testing.T) {
	h := digest.Sum([]byte("tx"))
	cases := []struct {
		event StackEvent
		want  EventType
	}{
		{NewTransactionAccepted(h, 3), EventTransactionAccepted},
		{NewFaceCompleted(0, 0, h), EventFaceCompleted},
		{NewCubeCompleted(0, 1, h), EventCubeCompleted},
		{NewLevelCreated(4), EventLevelCreated},
	}
	for _, c := range cases {
		if c.event.Type() != c.want {
			t.Errorf("Expected %s, got %s", c.want, c.event.Type())
		}
		if c.event.Timestamp().IsZero() {
			t.Errorf("%s has zero timestamp", c.want)
		}
	}
}
