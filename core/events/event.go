package events

import "yieldhub/core/types"

// Event describes a structured payload that can be rendered into a
// broadcastable types.Event.
type Event interface {
	EventType() string
	Event() *types.Event
}

// Recorder collects emitted events in order. It is the sink used by tests;
// the daemon runs the engine without an event sink.
type Recorder struct {
	Events []*types.Event
}

// AppendEvent stores the event. Nil events are dropped.
func (r *Recorder) AppendEvent(evt *types.Event) {
	if r == nil || evt == nil {
		return
	}
	r.Events = append(r.Events, evt)
}

// ByType filters the recorded events by type.
func (r *Recorder) ByType(eventType string) []*types.Event {
	if r == nil {
		return nil
	}
	var out []*types.Event
	for _, evt := range r.Events {
		if evt.Type == eventType {
			out = append(out, evt)
		}
	}
	return out
}
