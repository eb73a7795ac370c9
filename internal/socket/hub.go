package socket

import (
    "context"
    "strings"
    "sync"

    "github.com/google/uuid"

    "github.com/slotter-org/aristo-backend/internal/logger"
)

// Event names pushed to browsers.
const (
    EventError            = "error"
    EventNotesChanged     = "notes.changed"
    EventResourcesChanged = "resources.changed"
    EventProfileUpdated   = "profile.updated"
    EventSignedIn         = "session.signed_in"
    EventSignedOut        = "session.signed_out"
    EventUserRegistered   = "user.registered"
)

const AdminChannel = "admin"

type Message struct {
    Channel string      `json:"channel"`
    Event   string      `json:"event"`
    Data    interface{} `json:"data,omitempty"`
}

func UserChannel(userID uuid.UUID) string {
    return "user:" + userID.String()
}

type Hub struct {
    log      *logger.Logger
    mu       sync.RWMutex
    channels map[string]map[uuid.UUID]*Client

    redisPubSub *RedisPubSub
}

func NewHub(log *logger.Logger) *Hub {
    return &Hub{
        log:      log.With("component", "Hub"),
        channels: make(map[string]map[uuid.UUID]*Client),
    }
}

func (h *Hub) SetRedisPubSub(rp *RedisPubSub) {
    h.redisPubSub = rp
}

// CanSubscribe allows a client its own user channel, and the admin channel for admins.
func (h *Hub) CanSubscribe(client *Client, channel string) bool {
    switch {
    case channel == UserChannel(client.UserID):
        return true
    case channel == AdminChannel:
        return client.Admin
    default:
        return false
    }
}

func (h *Hub) SubscribeChecked(client *Client, channel string) error {
    if strings.TrimSpace(channel) == "" || !h.CanSubscribe(client, channel) {
        return ErrChannelForbidden
    }
    h.Subscribe(client, []string{channel})
    return nil
}

func (h *Hub) Subscribe(client *Client, channels []string) {
    h.mu.Lock()
    defer h.mu.Unlock()

    for _, ch := range channels {
        if h.channels[ch] == nil {
            h.channels[ch] = make(map[uuid.UUID]*Client)
        }
        h.channels[ch][client.ID] = client
    }
    h.log.Debug("Client subscribed", "client", client.ID, "channels", channels)
}

func (h *Hub) Unsubscribe(client *Client) {
    h.mu.Lock()
    defer h.mu.Unlock()

    for ch, clientsMap := range h.channels {
        if _, ok := clientsMap[client.ID]; ok {
            delete(clientsMap, client.ID)
            if len(clientsMap) == 0 {
                delete(h.channels, ch)
            }
        }
    }
    h.log.Debug("Client unsubscribed from all channels", "client", client.ID)
}

func (h *Hub) UnsubscribeFromChannel(client *Client, channel string) {
    h.mu.Lock()
    defer h.mu.Unlock()
    if clientsMap, ok := h.channels[channel]; ok {
        delete(clientsMap, client.ID)
        if len(clientsMap) == 0 {
            delete(h.channels, channel)
        }
    }
}

func (h *Hub) Subscribers(channel string) int {
    h.mu.RLock()
    defer h.mu.RUnlock()
    return len(h.channels[channel])
}

// localBroadcast delivers to clients connected to this instance only.
func (h *Hub) localBroadcast(msg Message) int {
    h.mu.RLock()
    defer h.mu.RUnlock()

    delivered := 0
    for _, client := range h.channels[msg.Channel] {
        if client.send(msg) {
            delivered++
            continue
        }
        h.log.Warn("Dropping message to client; outbound buffer full", "client", client.ID, "channel", msg.Channel)
    }
    return delivered
}

// BroadcastGlobal delivers locally and, when Redis is configured, to every other instance.
func (h *Hub) BroadcastGlobal(ctx context.Context, msg Message) {
    //1) local clients
    h.localBroadcast(msg)

    //2) other nodes
    if h.redisPubSub != nil {
        if err := h.redisPubSub.Publish(ctx, msg); err != nil {
            h.log.Warn("Failed to publish to Redis", "error", err)
        }
    }
}

func (h *Hub) PublishToUser(ctx context.Context, userID uuid.UUID, event string, data interface{}) {
    if userID == uuid.Nil {
        return
    }
    h.BroadcastGlobal(ctx, Message{Channel: UserChannel(userID), Event: event, Data: data})
}
