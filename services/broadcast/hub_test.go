package broadcast

import (
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/interamericana/registro/core"
	"github.com/interamericana/registro/core/user"
	logsvc "github.com/interamericana/registro/services/logger"
)

var testUpgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

func startTestHub(t *testing.T) (*Hub, *httptest.Server) {
	t.Helper()

	hub := NewHub(logsvc.NewStdLogger(log.New(io.Discard, "", 0)))
	go hub.Run()
	t.Cleanup(hub.Stop)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := testUpgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		switch r.URL.Query().Get("role") {
		case user.RoleAdmin:
			hub.Admit(conn, 1, user.RoleAdmin)
		case user.RoleCoordinator:
			hub.Admit(conn, 2, user.RoleCoordinator)
		default:
			hub.Admit(conn, 3, user.RoleTeacher)
		}
	}))
	t.Cleanup(srv.Close)
	return hub, srv
}

func dial(t *testing.T, srv *httptest.Server, role string) *websocket.Conn {
	t.Helper()
	url := strings.Replace(srv.URL, "http", "ws", 1) + "?role=" + role
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func readEvent(t *testing.T, conn *websocket.Conn) (core.Event, error) {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var evt core.Event
	_, data, err := conn.ReadMessage()
	if err != nil {
		return evt, err
	}
	require.NoError(t, json.Unmarshal(data, &evt))
	return evt, nil
}

func TestHubRoomDelivery(t *testing.T) {
	hub, srv := startTestHub(t)

	coordConn := dial(t, srv, user.RoleCoordinator)
	teacherConn := dial(t, srv, user.RoleTeacher)
	time.Sleep(100 * time.Millisecond) // let Admit register both

	hub.Publish(core.Event{
		Kind:    core.EventNewAnnotation,
		Payload: map[string]interface{}{"annotation_id": 1},
		Rooms:   []string{core.RoomCoordinators},
	})

	evt, err := readEvent(t, coordConn)
	require.NoError(t, err)
	assert.Equal(t, core.EventNewAnnotation, evt.Kind)

	// teachers are in no room; the read must time out
	_ = teacherConn.SetReadDeadline(time.Now().Add(300 * time.Millisecond))
	_, _, err = teacherConn.ReadMessage()
	assert.Error(t, err)
}

func TestHubBroadcastAll(t *testing.T) {
	hub, srv := startTestHub(t)

	adminConn := dial(t, srv, user.RoleAdmin)
	teacherConn := dial(t, srv, user.RoleTeacher)
	time.Sleep(100 * time.Millisecond)

	hub.Publish(core.Event{
		Kind:    core.EventEmergencyStatusUpdate,
		Payload: map[string]interface{}{"request_id": 7, "status": "resolved"},
		All:     true,
	})

	for _, conn := range []*websocket.Conn{adminConn, teacherConn} {
		evt, err := readEvent(t, conn)
		require.NoError(t, err)
		assert.Equal(t, core.EventEmergencyStatusUpdate, evt.Kind)
	}
}

func TestRoomsForRole(t *testing.T) {
	assert.ElementsMatch(t, []string{core.RoomAdmins, core.RoomCoordinators}, roomsForRole(user.RoleAdmin))
	assert.Equal(t, []string{core.RoomCoordinators}, roomsForRole(user.RoleCoordinator))
	assert.Empty(t, roomsForRole(user.RoleTeacher))
}
