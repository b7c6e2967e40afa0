package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"greenhouse-assistant/backend/internal/models"
	wstypes "greenhouse-assistant/backend/pkg/ws"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startHub(t *testing.T) (*Hub, *httptest.Server) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	hub := NewHub([]string{"*"}, nil)
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)

	r := gin.New()
	r.GET("/ws/:id", func(c *gin.Context) {
		hub.ServeWs(c, 7, 1)
	})
	server := httptest.NewServer(r)
	t.Cleanup(func() {
		server.Close()
		cancel()
	})
	return hub, server
}

func dial(t *testing.T, server *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws/7"
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	require.Equal(t, http.StatusSwitchingProtocols, resp.StatusCode)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readEnvelope(t *testing.T, conn *websocket.Conn) wstypes.Envelope {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	var env wstypes.Envelope
	require.NoError(t, json.Unmarshal(data, &env))
	return env
}

func TestPublishReadingsReachesSubscribers(t *testing.T) {
	hub, server := startHub(t)
	conn := dial(t, server)

	assert.Equal(t, wstypes.TypeHello, readEnvelope(t, conn).Type)
	require.Eventually(t, func() bool { return hub.Subscribers(7) == 1 }, time.Second, 10*time.Millisecond)

	sensor := &models.Sensor{ID: 3, GreenhouseID: 7, Name: "north", Type: models.SensorTemperature}
	hub.PublishReadings(7, sensor, []models.SensorReading{{ID: 11, SensorID: 3, Value: 24.5}})
	hub.PublishReadings(8, sensor, []models.SensorReading{{ID: 12, SensorID: 3, Value: 99}})

	env := readEnvelope(t, conn)
	assert.Equal(t, wstypes.TypeReading, env.Type)
	content := env.Content.(map[string]any)
	assert.Equal(t, 24.5, content["value"])
	assert.Equal(t, "north", content["sensor_name"])
}

func TestPingAnsweredWithPong(t *testing.T) {
	_, server := startHub(t)
	conn := dial(t, server)
	readEnvelope(t, conn)

	require.NoError(t, conn.WriteJSON(wstypes.Envelope{Type: "ping"}))
	assert.Equal(t, wstypes.TypePong, readEnvelope(t, conn).Type)
}

func TestDisconnectUnregisters(t *testing.T) {
	hub, server := startHub(t)
	conn := dial(t, server)
	readEnvelope(t, conn)
	require.Eventually(t, func() bool { return hub.Subscribers(7) == 1 }, time.Second, 10*time.Millisecond)

	conn.Close()
	assert.Eventually(t, func() bool { return hub.Subscribers(7) == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestOriginChecker(t *testing.T) {
	check := originChecker([]string{"http://app.local"})
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	assert.True(t, check(req))
	req.Header.Set("Origin", "http://app.local")
	assert.True(t, check(req))
	req.Header.Set("Origin", "http://evil.local")
	assert.False(t, check(req))
}
