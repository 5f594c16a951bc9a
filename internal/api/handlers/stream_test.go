package handlers

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/creditgate/internal/contracts"
	"github.com/wonny/creditgate/internal/scan"
	"github.com/wonny/creditgate/pkg/logger"
)

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) StreamMessage {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg StreamMessage
	require.NoError(t, conn.ReadJSON(&msg))
	return msg
}

func TestRunStream_Broadcast(t *testing.T) {
	stream := NewRunStream(logger.Nop())
	srv := httptest.NewServer(stream)
	defer srv.Close()

	a, b := dial(t, srv), dial(t, srv)
	require.Eventually(t, func() bool { return stream.Clients() == 2 }, time.Second, 5*time.Millisecond)

	ev := scan.Event{
		ScanID:      uuid.New(),
		SystemState: contracts.StateRiskOn,
		Qualified:   []string{"AAPL"},
	}
	stream.Publish(ev)

	for _, conn := range []*websocket.Conn{a, b} {
		msg := readMessage(t, conn)
		assert.Equal(t, "scan_completed", msg.Type)
		assert.Equal(t, ev.ScanID, msg.Payload.ScanID)
		assert.Equal(t, []string{"AAPL"}, msg.Payload.Qualified)
	}
}

func TestRunStream_ReplaysLastEvent(t *testing.T) {
	stream := NewRunStream(logger.Nop())
	srv := httptest.NewServer(stream)
	defer srv.Close()

	stream.Publish(scan.Event{SystemState: contracts.StateRiskOff})

	conn := dial(t, srv)
	msg := readMessage(t, conn)
	assert.Equal(t, contracts.StateRiskOff, msg.Payload.SystemState)
}

func TestRunStream_UnregistersOnDisconnect(t *testing.T) {
	stream := NewRunStream(logger.Nop())
	srv := httptest.NewServer(stream)
	defer srv.Close()

	conn := dial(t, srv)
	require.Eventually(t, func() bool { return stream.Clients() == 1 }, time.Second, 5*time.Millisecond)

	conn.Close()
	require.Eventually(t, func() bool { return stream.Clients() == 0 }, time.Second, 5*time.Millisecond)

	// publishing with no subscribers is a no-op
	stream.Publish(scan.Event{})
}

func TestRunStream_Close(t *testing.T) {
	stream := NewRunStream(logger.Nop())
	srv := httptest.NewServer(stream)
	defer srv.Close()

	conn := dial(t, srv)
	require.Eventually(t, func() bool { return stream.Clients() == 1 }, time.Second, 5*time.Millisecond)

	stream.Close()
	assert.Zero(t, stream.Clients())

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err := conn.ReadMessage()
	assert.Error(t, err)
}
