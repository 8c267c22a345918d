package websocket

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestHubRegistersWhileCloseHandlerBlocks(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	release := make(chan struct{})
	entered := make(chan struct{})

	first := hub.RegisterClient(nil, "user-a", "app-a")
	first.CloseHandler = func(*Client) {
		close(entered)
		<-release
	}
	defer close(release)

	hub.unregister <- first
	select {
	case <-entered:
	case <-time.After(time.Second):
		t.Fatal("close handler never ran")
	}

	// A handler stuck on a session lock must not stall other rooms.
	registered := make(chan *Client, 1)
	go func() {
		registered <- hub.RegisterClient(nil, "user-b", "app-b")
	}()

	select {
	case client := <-registered:
		require.Equal(t, "app-b", client.ApplicationID)
	case <-time.After(time.Second):
		t.Fatal("hub loop stalled behind a blocking close handler")
	}
}
