package eventdata

import (
	"context"
	"sync"

	"github.com/slotter-org/aristo-backend/internal/socket"
)

type key struct{}

var eventDataKey key

// EventData collects socket messages produced while serving a request. Handlers flush them
// once the request has succeeded.
type EventData struct {
	mu       sync.Mutex
	messages []socket.Message
}

func WithEventData(ctx context.Context) context.Context {
	return context.WithValue(ctx, eventDataKey, &EventData{})
}

func GetEventData(ctx context.Context) *EventData {
	ed, ok := ctx.Value(eventDataKey).(*EventData)
	if !ok {
		return nil
	}
	return ed
}

func (d *EventData) AppendMessage(msg socket.Message) {
	d.mu.Lock()
	d.messages = append(d.messages, msg)
	d.mu.Unlock()
}

// Drain returns the pending messages and empties the buffer.
func (d *EventData) Drain() []socket.Message {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := d.messages
	d.messages = nil
	return out
}

// Append is a no-op when ctx carries no EventData.
func Append(ctx context.Context, msg socket.Message) {
	if d := GetEventData(ctx); d != nil {
		d.AppendMessage(msg)
	}
}

// Flush broadcasts everything pending on ctx. A nil hub drops the events.
func Flush(ctx context.Context, hub *socket.Hub) int {
	d := GetEventData(ctx)
	if d == nil {
		return 0
	}
	msgs := d.Drain()
	if hub == nil {
		return 0
	}
	for _, m := range msgs {
		hub.BroadcastGlobal(ctx, m)
	}
	return len(msgs)
}
