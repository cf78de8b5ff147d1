package telemetry

import (
	"encoding/json"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublishAndSnapshotEndpoint(t *testing.T) {
	s := NewServer()
	require.NoError(t, s.Start("127.0.0.1:18181"))
	defer s.Stop()

	snap := Snapshot{
		Iteration:   42,
		EpochMillis: 1000,
		Bodies: []BodySnapshot{
			{Label: "earth", Mass: 5.97e24, X: 1.5e11},
		},
	}
	s.Publish(snap)

	var resp *http.Response
	var err error
	for i := 0; i < 20; i++ {
		resp, err = http.Get("http://127.0.0.1:18181/snapshot")
		if err == nil {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	require.NoError(t, err)
	defer resp.Body.Close()

	var got Snapshot
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	assert.Equal(t, snap.Iteration, got.Iteration)
	require.Len(t, got.Bodies, 1)
	assert.Equal(t, "earth", got.Bodies[0].Label)
}

func TestWebSocketBroadcastsPublishedSnapshot(t *testing.T) {
	s := NewServer()
	require.NoError(t, s.Start("127.0.0.1:18182"))
	defer s.Stop()

	var conn *websocket.Conn
	var err error
	for i := 0; i < 20; i++ {
		conn, _, err = websocket.DefaultDialer.Dial("ws://127.0.0.1:18182/ws", nil)
		if err == nil {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	require.NoError(t, err)
	defer conn.Close()

	s.Publish(Snapshot{Iteration: 7})

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(data), `"iteration":7`))
}
