package eventbus

import (
	"testing"
	"time"
)

func TestPublishSubscribe(t *testing.T) {
	t.Parallel()

	bus := New()
	ch := bus.Subscribe(TopicKnowledgeIngested)

	bus.Publish(TopicKnowledgeIngested, "item-1")

	select {
	case evt := <-ch:
		if evt.Topic != TopicKnowledgeIngested {
			t.Errorf("topic = %q, want %q", evt.Topic, TopicKnowledgeIngested)
		}
		if evt.Payload != "item-1" {
			t.Errorf("payload = %v, want item-1", evt.Payload)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
	}
}

func TestPublishNoSubscribers(t *testing.T) {
	t.Parallel()

	bus := New()
	// must not panic or block
	bus.Publish(TopicIntakeHandoff, "thread-1")
}

func TestPublishMultipleSubscribers(t *testing.T) {
	t.Parallel()

	bus := New()
	ch1 := bus.Subscribe(TopicIntakeHandoff)
	ch2 := bus.Subscribe(TopicIntakeHandoff)

	bus.Publish(TopicIntakeHandoff, 42)

	for i, ch := range []<-chan Event{ch1, ch2} {
		select {
		case evt := <-ch:
			if evt.Payload != 42 {
				t.Errorf("subscriber %d payload = %v, want 42", i, evt.Payload)
			}
		case <-time.After(time.Second):
			t.Fatalf("subscriber %d timed out", i)
		}
	}
}

func TestPublishDropsWhenBufferFull(t *testing.T) {
	t.Parallel()

	bus := New()
	bus.Subscribe("noisy")

	// the subscriber never reads; publishing past the buffer must not block
	for i := 0; i < defaultBufferSize+10; i++ {
		bus.Publish("noisy", i)
	}
}
