package socket

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slotter-org/aristo-backend/internal/logger"
)

func testClient(hub *Hub, userID uuid.UUID, buffer int) *Client {
	return &Client{
		ID:       uuid.New(),
		UserID:   userID,
		Hub:      hub,
		Log:      logger.NewNop(),
		Outbound: make(chan Message, buffer),
	}
}

func TestHubDeliversToChannelSubscribers(t *testing.T) {
	hub := NewHub(logger.NewNop())
	alice, bob := uuid.New(), uuid.New()
	a := testClient(hub, alice, 4)
	b := testClient(hub, bob, 4)
	hub.Subscribe(a, []string{UserChannel(alice)})
	hub.Subscribe(b, []string{UserChannel(bob)})

	hub.PublishToUser(context.Background(), alice, EventNotesChanged, map[string]int{"count": 2})

	require.Len(t, a.Outbound, 1)
	msg := <-a.Outbound
	assert.Equal(t, UserChannel(alice), msg.Channel)
	assert.Equal(t, EventNotesChanged, msg.Event)
	assert.Len(t, b.Outbound, 0)

	hub.PublishToUser(context.Background(), uuid.Nil, EventNotesChanged, nil)
	assert.Len(t, a.Outbound, 0)
}

func TestHubSubscribeChecked(t *testing.T) {
	hub := NewHub(logger.NewNop())
	me := uuid.New()
	c := testClient(hub, me, 1)

	assert.NoError(t, hub.SubscribeChecked(c, UserChannel(me)))
	assert.ErrorIs(t, hub.SubscribeChecked(c, UserChannel(uuid.New())), ErrChannelForbidden)
	assert.ErrorIs(t, hub.SubscribeChecked(c, AdminChannel), ErrChannelForbidden)
	assert.ErrorIs(t, hub.SubscribeChecked(c, " "), ErrChannelForbidden)

	c.Admin = true
	assert.NoError(t, hub.SubscribeChecked(c, AdminChannel))
	assert.Equal(t, 1, hub.Subscribers(AdminChannel))
}

func TestHubUnsubscribe(t *testing.T) {
	hub := NewHub(logger.NewNop())
	me := uuid.New()
	c := testClient(hub, me, 1)
	hub.Subscribe(c, []string{UserChannel(me), AdminChannel})

	hub.UnsubscribeFromChannel(c, AdminChannel)
	assert.Equal(t, 0, hub.Subscribers(AdminChannel))
	assert.Equal(t, 1, hub.Subscribers(UserChannel(me)))

	hub.Unsubscribe(c)
	assert.Equal(t, 0, hub.Subscribers(UserChannel(me)))
}

func TestHubDropsWhenBufferFull(t *testing.T) {
	hub := NewHub(logger.NewNop())
	me := uuid.New()
	c := testClient(hub, me, 1)
	hub.Subscribe(c, []string{UserChannel(me)})

	msg := Message{Channel: UserChannel(me), Event: EventProfileUpdated}
	assert.Equal(t, 1, hub.localBroadcast(msg))
	assert.Equal(t, 0, hub.localBroadcast(msg))
	assert.Len(t, c.Outbound, 1)
}

func TestEnvelopeDecoding(t *testing.T) {
	env, err := decodeEnvelope(`{"origin":"node-a","message":{"channel":"admin","event":"user.registered"}}`)
	require.NoError(t, err)
	assert.Equal(t, "node-a", env.Origin)
	assert.Equal(t, AdminChannel, env.Message.Channel)
	assert.Equal(t, EventUserRegistered, env.Message.Event)

	_, err = decodeEnvelope("not json")
	assert.Error(t, err)
}
