package ws

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func TestHubRegisterAndUnregister(t *testing.T) {
	hub := NewHub()
	conn := &websocket.Conn{}
	info := ConnInfo{ConnID: "c1", UserID: "u1", College: "mit"}

	hub.Register(conn, info)
	if !hub.IsOnline("u1") {
		t.Fatalf("expected user to be online after register")
	}
	if len(hub.collegeRooms["mit"]) != 1 {
		t.Fatalf("expected college room to be created")
	}

	hub.Unregister(conn, info)
	if hub.IsOnline("u1") {
		t.Fatalf("expected user to be offline after unregister")
	}
	if len(hub.userRooms) != 0 || len(hub.collegeRooms) != 0 {
		t.Fatalf("expected empty rooms after unregister")
	}
}

func TestHubSecondSessionKeepsUserOnline(t *testing.T) {
	hub := NewHub()
	connA := &websocket.Conn{}
	connB := &websocket.Conn{}
	infoA := ConnInfo{ConnID: "c1", UserID: "u1"}
	infoB := ConnInfo{ConnID: "c2", UserID: "u1"}

	hub.Register(connA, infoA)
	hub.Register(connB, infoB)

	hub.Unregister(connA, infoA)
	if !hub.IsOnline("u1") {
		t.Fatalf("expected user to stay online while a second session exists")
	}

	hub.Unregister(connB, infoB)
	if hub.IsOnline("u1") {
		t.Fatalf("expected user offline after last session closed")
	}
}

func TestHubNoCollegeRoomWithoutCollege(t *testing.T) {
	hub := NewHub()
	conn := &websocket.Conn{}
	hub.Register(conn, ConnInfo{ConnID: "c1", UserID: "u1"})
	if len(hub.collegeRooms) != 0 {
		t.Fatalf("expected no college room for a user without a college")
	}
}

// dialPair upgrades one websocket connection through a throwaway server and
// hands back both ends.
func dialPair(t *testing.T) (client *websocket.Conn, server *websocket.Conn, cleanup func()) {
	t.Helper()
	upgrader := websocket.Upgrader{}
	serverConns := make(chan *websocket.Conn, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		serverConns <- conn
	}))

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	client, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		srv.Close()
		t.Fatalf("dial: %v", err)
	}
	server = <-serverConns

	return client, server, func() {
		client.Close()
		server.Close()
		srv.Close()
	}
}

func readEvent(t *testing.T, conn *websocket.Conn) Event {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, raw, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var event Event
	if err := json.Unmarshal(raw, &event); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	return event
}

func TestHubPushToUserDelivers(t *testing.T) {
	hub := NewHub()
	client, server, cleanup := dialPair(t)
	defer cleanup()

	hub.Register(server, ConnInfo{ConnID: "c1", UserID: "u1"})
	hub.PushToUser("u1", EventNewNotification, map[string]string{"kind": "mention"})

	event := readEvent(t, client)
	if event.Event != EventNewNotification {
		t.Fatalf("expected %q, got %q", EventNewNotification, event.Event)
	}
}

func TestHubBroadcastToCollege(t *testing.T) {
	hub := NewHub()
	clientA, serverA, cleanupA := dialPair(t)
	defer cleanupA()
	clientB, serverB, cleanupB := dialPair(t)
	defer cleanupB()

	hub.Register(serverA, ConnInfo{ConnID: "c1", UserID: "u1", College: "mit"})
	hub.Register(serverB, ConnInfo{ConnID: "c2", UserID: "u2", College: "mit"})

	hub.BroadcastToCollege("mit", EventNewNotification, map[string]string{"kind": "event"})

	for _, client := range []*websocket.Conn{clientA, clientB} {
		event := readEvent(t, client)
		if event.Event != EventNewNotification {
			t.Fatalf("expected %q, got %q", EventNewNotification, event.Event)
		}
	}
}

func TestHubBroadcastStatusChangeSkipsOwner(t *testing.T) {
	hub := NewHub()
	clientA, serverA, cleanupA := dialPair(t)
	defer cleanupA()
	clientB, serverB, cleanupB := dialPair(t)
	defer cleanupB()

	hub.Register(serverA, ConnInfo{ConnID: "c1", UserID: "u1"})
	hub.Register(serverB, ConnInfo{ConnID: "c2", UserID: "u2"})

	hub.BroadcastStatusChange("u1", "away")

	event := readEvent(t, clientB)
	if event.Event != EventUserStatusChange {
		t.Fatalf("expected %q, got %q", EventUserStatusChange, event.Event)
	}

	// the owner's own session must not receive the change
	clientA.SetReadDeadline(time.Now().Add(200 * time.Millisecond))
	if _, _, err := clientA.ReadMessage(); err == nil {
		t.Fatalf("expected no status event on the owner's session")
	}
}

func TestHubConcurrentPushesToOneConn(t *testing.T) {
	hub := NewHub()
	client, server, cleanup := dialPair(t)
	defer cleanup()

	hub.Register(server, ConnInfo{ConnID: "c1", UserID: "u1"})

	const pushes = 20
	var wg sync.WaitGroup
	wg.Add(pushes)
	for i := 0; i < pushes; i++ {
		go func() {
			defer wg.Done()
			hub.PushToUser("u1", EventNewMessage, map[string]string{"k": "v"})
		}()
	}
	wg.Wait()

	for i := 0; i < pushes; i++ {
		event := readEvent(t, client)
		if event.Event != EventNewMessage {
			t.Fatalf("expected %q, got %q", EventNewMessage, event.Event)
		}
	}
}

func TestHubPushToOfflineUserIsSilent(t *testing.T) {
	hub := NewHub()
	// no sessions registered; must not panic or block
	hub.PushToUser("ghost", EventNewMessage, nil)
}
