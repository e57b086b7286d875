package pubsub

import (
	"testing"
	"time"
)

func TestSubscribeAndPublish(t *testing.T) {
	ps := New()
	sub := ps.Subscribe(TopicSnapshot, 10)

	ps.Publish(TopicSnapshot, "hello")

	select {
	case msg := <-sub.Channel:
		if msg != "hello" {
			t.Errorf("received %v, want hello", msg)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for message")
	}
}

func TestPublishToMultipleSubscribers(t *testing.T) {
	ps := New()
	sub1 := ps.Subscribe(TopicSnapshot, 10)
	sub2 := ps.Subscribe(TopicSnapshot, 10)

	ps.Publish(TopicSnapshot, 42)

	for _, sub := range []*Subscriber{sub1, sub2} {
		select {
		case msg := <-sub.Channel:
			if msg != 42 {
				t.Errorf("received %v, want 42", msg)
			}
		case <-time.After(time.Second):
			t.Fatal("timed out waiting for message")
		}
	}
}

func TestTopicsAreIsolated(t *testing.T) {
	ps := New()
	snapSub := ps.Subscribe(TopicSnapshot, 10)
	weatherSub := ps.Subscribe(TopicWeather, 10)

	ps.Publish(TopicWeather, "rain")

	select {
	case <-snapSub.Channel:
		t.Error("snapshot subscriber received a weather message")
	default:
	}

	select {
	case msg := <-weatherSub.Channel:
		if msg != "rain" {
			t.Errorf("received %v, want rain", msg)
		}
	default:
		t.Error("weather subscriber missed its message")
	}
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	ps := New()
	sub := ps.Subscribe(TopicSnapshot, 10)

	ps.Unsubscribe(sub)

	if _, ok := <-sub.Channel; ok {
		t.Error("channel should be closed after Unsubscribe")
	}
	if count := ps.SubscriberCount(TopicSnapshot); count != 0 {
		t.Errorf("SubscriberCount = %d, want 0", count)
	}
}

func TestPublishDoesNotBlockOnFullChannel(t *testing.T) {
	ps := New()
	sub := ps.Subscribe(TopicSnapshot, 1)

	done := make(chan struct{})
	go func() {
		ps.Publish(TopicSnapshot, 1)
		ps.Publish(TopicSnapshot, 2) // channel full, must be dropped
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Publish blocked on a full channel")
	}

	if msg := <-sub.Channel; msg != 1 {
		t.Errorf("received %v, want 1", msg)
	}
	select {
	case msg := <-sub.Channel:
		t.Errorf("unexpected second message %v", msg)
	default:
	}
}

func TestSubscriberCount(t *testing.T) {
	ps := New()

	if count := ps.SubscriberCount(TopicSnapshot); count != 0 {
		t.Errorf("SubscriberCount = %d, want 0", count)
	}

	sub1 := ps.Subscribe(TopicSnapshot, 1)
	ps.Subscribe(TopicSnapshot, 1)

	if count := ps.SubscriberCount(TopicSnapshot); count != 2 {
		t.Errorf("SubscriberCount = %d, want 2", count)
	}

	ps.Unsubscribe(sub1)
	if count := ps.SubscriberCount(TopicSnapshot); count != 1 {
		t.Errorf("SubscriberCount = %d, want 1", count)
	}
}
