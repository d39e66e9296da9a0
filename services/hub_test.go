package services_test

import (
	"testing"

	"trivia/services"

	"github.com/stretchr/testify/require"
)

func TestHubRegistry(t *testing.T) {
	hub := services.NewHub(discardLogger())
	alice := newFakeConn("a")
	bob := newFakeConn("b")
	other := newFakeConn("c")

	hub.Register(alice, "ROOM01", "Alice")
	hub.Register(bob, "ROOM01", "Bob")
	hub.Register(other, "ROOM02", "Carol")
	hub.Register(alice, "ROOM01", "Alice")

	require.Equal(t, 2, hub.RoomCount())
	require.Equal(t, 2, hub.ConnectionCount("ROOM01"))
	require.Equal(t, names("Alice", "Bob"), hub.ListNames("ROOM01"))

	name, ok := hub.Unregister(bob, "ROOM01")
	require.True(t, ok)
	require.Equal(t, "Bob", name)
	require.Equal(t, names("Alice"), hub.ListNames("ROOM01"))

	_, ok = hub.Unregister(bob, "ROOM01")
	require.False(t, ok)

	hub.Unregister(alice, "ROOM01")
	require.Equal(t, 1, hub.RoomCount())
	require.Zero(t, hub.ConnectionCount("ROOM01"))
	require.Empty(t, hub.ListNames("ROOM01"))
}

func TestHubBroadcast(t *testing.T) {
	hub := services.NewHub(discardLogger())
	alice := newFakeConn("a")
	bob := newFakeConn("b")
	carol := newFakeConn("c")
	outsider := newFakeConn("d")

	hub.Register(alice, "ROOM01", "Alice")
	hub.Register(bob, "ROOM01", "Bob")
	hub.Register(carol, "ROOM01", "Carol")
	hub.Register(outsider, "ROOM02", "Dave")

	bob.setBroken(true)
	hub.Broadcast("ROOM01", services.PongEvent{Type: services.EventPong}, carol)

	require.Equal(t, 1, alice.count(services.EventPong))
	require.Zero(t, bob.count(services.EventPong))
	require.Zero(t, carol.count(services.EventPong))
	require.Zero(t, outsider.count(services.EventPong))

	require.Equal(t, names("Alice", "Bob", "Carol"), hub.ListNames("ROOM01"))
}

func TestHubSendTo(t *testing.T) {
	hub := services.NewHub(discardLogger())
	alice := newFakeConn("a")

	hub.SendTo(alice, services.ErrorEvent{Type: services.EventError, Message: "boom"})

	var got services.ErrorEvent
	alice.last(t, services.EventError, &got)
	require.Equal(t, "boom", got.Message)

	// unmarshalable events are dropped
	hub.SendTo(alice, map[string]any{"type": make(chan int)})
	require.Len(t, alice.types(), 1)
}
