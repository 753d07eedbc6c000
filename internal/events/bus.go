// Package events broadcasts capture and link state changes to interested
// subsystems over a typed in-process bus.
package events

import (
	"github.com/kelindar/event"
)

// Bus wraps a kelindar/event dispatcher.
type Bus struct {
	dispatcher *event.Dispatcher
}

// New creates an event bus.
func New() *Bus {
	return &Bus{dispatcher: event.NewDispatcher()}
}

// Publish delivers ev to all subscribers of its concrete type.
func (b *Bus) Publish(ev Event) {
	switch e := ev.(type) {
	case PortPluggedEvent:
		event.Publish(b.dispatcher, e)
	case PortUnpluggedEvent:
		event.Publish(b.dispatcher, e)
	case LinkLockedEvent:
		event.Publish(b.dispatcher, e)
	case LinkFailedEvent:
		event.Publish(b.dispatcher, e)
	case CaptureStartedEvent:
		event.Publish(b.dispatcher, e)
	case CaptureStoppedEvent:
		event.Publish(b.dispatcher, e)
	case AudioOverflowEvent:
		event.Publish(b.dispatcher, e)
	}
}

// Subscribe registers a handler; the handler's parameter type selects the
// events it receives. Returns an unsubscribe function.
func (b *Bus) Subscribe(handler any) func() {
	switch h := handler.(type) {
	case func(PortPluggedEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(PortUnpluggedEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(LinkLockedEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(LinkFailedEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(CaptureStartedEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(CaptureStoppedEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(AudioOverflowEvent):
		return event.Subscribe(b.dispatcher, h)
	default:
		return func() {}
	}
}
