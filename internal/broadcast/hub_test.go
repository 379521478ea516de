package broadcast

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kjannette/fleetsim-backend/internal/models"
	"github.com/kjannette/fleetsim-backend/internal/simulation"
)

func snapshot(tick int64) *simulation.Snapshot {
	return &simulation.Snapshot{
		Tick:      tick,
		Portfolio: models.Portfolio{Cash: 1000, TotalValue: 5000},
		Devices:   []models.Device{{ID: "miner-1", Type: models.DeviceMiner, Location: "texas"}},
		Contracts: []models.EnergyContract{{Location: "texas", Price: 0.05}},
	}
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readEnvelope(t *testing.T, conn *websocket.Conn) (Envelope, simulation.Bundle) {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var env Envelope
	require.NoError(t, conn.ReadJSON(&env))
	var b simulation.Bundle
	require.NoError(t, json.Unmarshal(env.Data, &b))
	return env, b
}

func TestConnectReceivesLatest(t *testing.T) {
	hub := NewHub(func() *simulation.Snapshot { return snapshot(7) }, "*")
	srv := httptest.NewServer(hub)
	defer srv.Close()
	defer hub.Close()

	conn := dial(t, srv)
	env, b := readEnvelope(t, conn)

	assert.Equal(t, EventDataUpdate, env.Event)
	assert.Equal(t, int64(7), b.Tick)
	assert.Equal(t, 0.05, b.Contracts["texas"].Price)
	require.Len(t, b.Devices, 1)
	assert.Equal(t, "miner-1", b.Devices[0].ID)
}

func TestPublishReachesEveryClient(t *testing.T) {
	hub := NewHub(nil, "")
	srv := httptest.NewServer(hub)
	defer srv.Close()
	defer hub.Close()

	a, b := dial(t, srv), dial(t, srv)
	require.Eventually(t, func() bool { return hub.Clients() == 2 }, time.Second, 5*time.Millisecond)

	require.NoError(t, hub.Publish(context.Background(), snapshot(3)))

	for _, conn := range []*websocket.Conn{a, b} {
		_, bundle := readEnvelope(t, conn)
		assert.Equal(t, int64(3), bundle.Tick)
		assert.Equal(t, 5000.0, bundle.Portfolio.TotalValue)
	}
}

func TestDisconnectedClientIsRemoved(t *testing.T) {
	hub := NewHub(nil, "")
	srv := httptest.NewServer(hub)
	defer srv.Close()
	defer hub.Close()

	conn := dial(t, srv)
	require.Eventually(t, func() bool { return hub.Clients() == 1 }, time.Second, 5*time.Millisecond)

	conn.Close()
	require.Eventually(t, func() bool { return hub.Clients() == 0 }, 2*time.Second, 5*time.Millisecond)
	assert.NoError(t, hub.Publish(context.Background(), snapshot(1)))
}

func TestSlowClientIsDropped(t *testing.T) {
	hub := NewHub(nil, "")
	c := &client{send: make(chan []byte, 1)}
	hub.clients[c] = struct{}{}

	require.NoError(t, hub.Publish(context.Background(), snapshot(1)))
	assert.Equal(t, 1, hub.Clients())

	// Queue is full and nothing drains it.
	require.NoError(t, hub.Publish(context.Background(), snapshot(2)))
	assert.Equal(t, 0, hub.Clients())

	_, open := <-c.send
	assert.True(t, open, "buffered frame is still readable")
	_, open = <-c.send
	assert.False(t, open)
}

func TestOriginCheck(t *testing.T) {
	hub := NewHub(nil, "http://dashboard.local")
	srv := httptest.NewServer(hub)
	defer srv.Close()
	defer hub.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	_, resp, err := websocket.DefaultDialer.Dial(url, map[string][]string{"Origin": {"http://evil.local"}})
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, 403, resp.StatusCode)

	conn, _, err := websocket.DefaultDialer.Dial(url, map[string][]string{"Origin": {"http://dashboard.local"}})
	require.NoError(t, err)
	conn.Close()
}
