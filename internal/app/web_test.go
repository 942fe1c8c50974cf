package app

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relabs-tech/inertial_pedometer/internal/broker"
	"github.com/relabs-tech/inertial_pedometer/internal/broker/brokertest"
	"github.com/relabs-tech/inertial_pedometer/internal/config"
	"github.com/relabs-tech/inertial_pedometer/internal/engine"
)

func newTestWeb(t *testing.T) (*WebServer, *brokertest.Bus, *httptest.Server) {
	t.Helper()
	topics := config.Default().Topics
	bus := brokertest.NewBus()
	srv := NewWebServer(nil)
	require.NoError(t, srv.Subscribe(bus, topics))

	ts := httptest.NewServer(srv.Handler(""))
	t.Cleanup(ts.Close)
	return srv, bus, ts
}

func TestAPIStepsBeforeData(t *testing.T) {
	_, _, ts := newTestWeb(t)

	resp, err := http.Get(ts.URL + "/api/steps")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestAPIStepsServesLatestSummary(t *testing.T) {
	_, bus, ts := newTestWeb(t)
	topics := config.Default().Topics

	require.NoError(t, broker.PublishJSON(bus, topics.Summary, true, engine.NewSummary("s1", 10, 10000, "ring_buffer")))
	require.NoError(t, broker.PublishJSON(bus, topics.Summary, true, engine.NewSummary("s1", 2500, 10000, "ring_buffer")))

	resp, err := http.Get(ts.URL + "/api/steps")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))

	var got map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	assert.Equal(t, 2500.0, got["steps"])
	assert.InDelta(t, 1905.0, got["distance"], 1e-9)
	assert.InDelta(t, 112.5, got["calories"], 1e-9)
	assert.Equal(t, 10000.0, got["dailyGoal"])
	assert.Equal(t, 0.25, got["goalProgress"])
	assert.Equal(t, "ring_buffer", got["counterType"])
}

func TestStepsWebsocketStreamsEvents(t *testing.T) {
	srv, bus, ts := newTestWeb(t)
	topics := config.Default().Topics

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws/steps"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return srv.hub.len() == 1 }, 2*time.Second, 10*time.Millisecond)

	// a malformed event is rejected and not forwarded
	require.NoError(t, bus.Publish(topics.Steps, 0, false, []byte("nope")))
	assert.Len(t, bus.HandlerErrors(), 1)

	for i := int64(1); i <= 3; i++ {
		require.NoError(t, broker.PublishJSON(bus, topics.Steps, false,
			engine.StepEvent{SessionID: "s1", TimestampNanos: i * 500_000_000, CumulativeSteps: i}))
	}

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	for i := int64(1); i <= 3; i++ {
		var ev engine.StepEvent
		require.NoError(t, conn.ReadJSON(&ev))
		assert.Equal(t, i, ev.CumulativeSteps)
		assert.Equal(t, "s1", ev.SessionID)
	}

	conn.Close()
	require.Eventually(t, func() bool { return srv.hub.len() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestStepHubDropsSlowClients(t *testing.T) {
	h := newStepHub()
	ch := h.add()
	for i := 0; i < wsSendBuffer; i++ {
		h.broadcast([]byte("x"))
	}
	require.Equal(t, 1, h.len())

	h.broadcast([]byte("overflow"))
	assert.Equal(t, 0, h.len())

	n := 0
	for range ch {
		n++
	}
	assert.Equal(t, wsSendBuffer, n)

	// removing an already dropped client is a no-op
	h.remove(ch)
}
