package events

import (
	"testing"
	"time"
)

func TestPublishReachesTypedSubscriber(t *testing.T) {
	bus := New()
	got := make(chan PortPluggedEvent, 1)
	unsubscribe := bus.Subscribe(func(e PortPluggedEvent) {
		got <- e
	})
	defer unsubscribe()

	bus.Publish(PortPluggedEvent{Port: "hdmi", Timestamp: "2025-03-01T12:00:00Z"})

	select {
	case e := <-got:
		if e.Port != "hdmi" {
			t.Errorf("event port = %q, want hdmi", e.Port)
		}
	case <-time.After(time.Second):
		t.Fatalf("subscriber never received the event")
	}
}

func TestSubscriberOnlySeesItsType(t *testing.T) {
	bus := New()
	locked := make(chan LinkLockedEvent, 2)
	unsubscribe := bus.Subscribe(func(e LinkLockedEvent) {
		locked <- e
	})
	defer unsubscribe()

	bus.Publish(PortUnpluggedEvent{Port: "dp"})
	bus.Publish(LinkLockedEvent{Port: "dp", Width: 1920, Height: 1080})

	select {
	case e := <-locked:
		if e.Width != 1920 {
			t.Errorf("event width = %d, want 1920", e.Width)
		}
	case <-time.After(time.Second):
		t.Fatalf("subscriber never received the locked event")
	}

	select {
	case e := <-locked:
		t.Errorf("unexpected second event: %+v", e)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	bus := New()
	got := make(chan CaptureStartedEvent, 1)
	unsubscribe := bus.Subscribe(func(e CaptureStartedEvent) {
		got <- e
	})
	unsubscribe()

	bus.Publish(CaptureStartedEvent{Port: "vga"})

	select {
	case e := <-got:
		t.Errorf("unexpected event after unsubscribe: %+v", e)
	case <-time.After(100 * time.Millisecond):
	}
}
