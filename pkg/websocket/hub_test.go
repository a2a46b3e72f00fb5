package websocket

import (
	"context"
	"encoding/json"
	"strconv"
	"testing"
	"time"

	"github.com/mugz-josh/Deliverieseasy/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startHub(t *testing.T) *Hub {
	t.Helper()
	hub := NewHub(logger.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)
	t.Cleanup(cancel)
	return hub
}

func newTestClient(hub *Hub, userID, userType string) *Client {
	c := NewClient(hub, nil, userID, userType, logger.NewNop())
	hub.Register(c)
	return c
}

func waitForConnections(t *testing.T, hub *Hub, n int) {
	t.Helper()
	require.Eventually(t, func() bool { return hub.GetActiveConnections() == n }, time.Second, 5*time.Millisecond)
}

func receive(t *testing.T, c *Client) Message {
	t.Helper()
	select {
	case data := <-c.Send:
		var msg Message
		require.NoError(t, json.Unmarshal(data, &msg))
		return msg
	case <-time.After(time.Second):
		t.Fatal("no message received")
		return Message{}
	}
}

func TestHub_PublishToFollowers(t *testing.T) {
	hub := startHub(t)
	follower := newTestClient(hub, "1", "customer")
	other := newTestClient(hub, "2", "customer")
	waitForConnections(t, hub, 2)

	follower.handleMessage([]byte(`{"type":"subscribe","entity_id":"42"}`))
	assert.Equal(t, "subscribed", receive(t, follower).Type)

	sent := hub.Publish(Audience{EntityID: "42"}, Message{Type: "delivery_status_updated", Data: map[string]string{"status": "assigned"}})
	assert.Equal(t, 1, sent)
	assert.Equal(t, "delivery_status_updated", receive(t, follower).Type)
	assert.Len(t, other.Send, 0)

	follower.handleMessage([]byte(`{"type":"unsubscribe","entity_id":"42"}`))
	assert.Equal(t, 0, hub.Publish(Audience{EntityID: "42"}, Message{Type: "x"}))
}

func TestHub_PublishByTypeAndUser(t *testing.T) {
	hub := startHub(t)
	rider := newTestClient(hub, "7", "rider")
	admin := newTestClient(hub, "8", "admin")
	waitForConnections(t, hub, 2)

	assert.Equal(t, 1, hub.Publish(Audience{UserTypes: []string{"rider"}}, Message{Type: "delivery_created"}))
	assert.Equal(t, "delivery_created", receive(t, rider).Type)
	assert.Len(t, admin.Send, 0)

	assert.Equal(t, 1, hub.Publish(Audience{UserIDs: []string{"8"}}, Message{Type: "hello"}))
	assert.Equal(t, "hello", receive(t, admin).Type)
	assert.Equal(t, 0, hub.Publish(Audience{UserIDs: []string{"99"}}, Message{Type: "hello"}))
	assert.Equal(t, 0, hub.Publish(Audience{}, Message{Type: "nobody"}))
}

func TestHub_PingAndUnregister(t *testing.T) {
	hub := startHub(t)
	c := newTestClient(hub, "1", "customer")
	waitForConnections(t, hub, 1)

	c.handleMessage([]byte(`{"type":"ping"}`))
	assert.Equal(t, "pong", receive(t, c).Type)

	hub.Unregister(c)
	waitForConnections(t, hub, 0)

	_, open := <-c.Send
	assert.False(t, open)
	assert.NotPanics(t, func() { c.SendMessage(Message{Type: "late"}) })
}

func TestHub_StopClosesClients(t *testing.T) {
	hub := NewHub(logger.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(stopped)
	}()

	c := newTestClient(hub, "1", "customer")
	waitForConnections(t, hub, 1)

	cancel()
	<-stopped

	_, open := <-c.Send
	assert.False(t, open)
	assert.NotPanics(t, func() { hub.Unregister(c) })
}

func TestHub_PublishDeliversOnce(t *testing.T) {
	hub := startHub(t)
	admin := newTestClient(hub, "1", "admin")
	follower := newTestClient(hub, "2", "customer")
	bystander := newTestClient(hub, "3", "customer")
	waitForConnections(t, hub, 3)

	admin.handleMessage([]byte(`{"type":"subscribe","entity_id":"5"}`))
	receive(t, admin)
	follower.handleMessage([]byte(`{"type":"subscribe","entity_id":"5"}`))
	receive(t, follower)

	audience := Audience{EntityID: "5", UserTypes: []string{"admin"}, UserIDs: []string{"2"}}
	sent := hub.Publish(audience, Message{Type: "delivery_location_updated"})
	assert.Equal(t, 2, sent)
	assert.Equal(t, "delivery_location_updated", receive(t, admin).Type)
	assert.Equal(t, "delivery_location_updated", receive(t, follower).Type)
	assert.Len(t, admin.Send, 0)
	assert.Len(t, bystander.Send, 0)
}

func TestClient_SubscriptionLimitAndErrors(t *testing.T) {
	hub := startHub(t)
	c := newTestClient(hub, "1", "customer")
	waitForConnections(t, hub, 1)

	c.handleMessage([]byte(`not json`))
	assert.Equal(t, TypeError, receive(t, c).Type)

	c.handleMessage([]byte(`{"type":"dance"}`))
	assert.Equal(t, TypeError, receive(t, c).Type)

	for i := 0; i < MaxSubscriptions; i++ {
		c.Subscribe(strconv.Itoa(i))
		require.Equal(t, TypeSubscribed, receive(t, c).Type)
	}
	c.Subscribe("overflow")
	assert.Equal(t, TypeError, receive(t, c).Type)
	assert.False(t, c.IsSubscribedTo("overflow"))

	c.Subscribe("0")
	assert.Equal(t, TypeSubscribed, receive(t, c).Type, "re-subscribing is not counted twice")
}
