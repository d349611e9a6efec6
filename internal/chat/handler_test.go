package chat

import (
	internaljwt "chat-rooms-backend/internal/jwt"
	"chat-rooms-backend/internal/model"
	"chat-rooms-backend/internal/registry"
	authservice "chat-rooms-backend/internal/service/auth"
	roomservice "chat-rooms-backend/internal/service/room"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

const readTimeout = 5 * time.Second

// wireMessage covers both outbound frame shapes so tests can decode either.
type wireMessage struct {
	Type    string   `json:"type"`
	Message string   `json:"message"`
	Sender  string   `json:"sender"`
	Users   []string `json:"users"`
}

type memoryUserRepository struct {
	mu    sync.Mutex
	users map[string]model.UserItem
}

func (m *memoryUserRepository) CreateUser(ctx context.Context, user model.UserItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[user.Username] = user
	return nil
}

func (m *memoryUserRepository) FindUserByUsername(ctx context.Context, username string) (model.UserItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.users[username]
	if !ok {
		return model.UserItem{}, authservice.ErrNotFound
	}
	return user, nil
}

func (m *memoryUserRepository) GetUser(ctx context.Context, userID string) (model.UserItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, user := range m.users {
		if user.UserID == userID {
			return user, nil
		}
	}
	return model.UserItem{}, authservice.ErrNotFound
}

type memoryRoomRepository struct {
	mu          sync.Mutex
	rooms       map[string]model.RoomItem
	memberships map[string]model.MembershipItem
}

func (m *memoryRoomRepository) CreateRoom(ctx context.Context, room model.RoomItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rooms[room.RoomID] = room
	return nil
}

func (m *memoryRoomRepository) FindRoomByName(ctx context.Context, name string) (model.RoomItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, room := range m.rooms {
		if room.Name == name {
			return room, nil
		}
	}
	return model.RoomItem{}, roomservice.ErrNotFound
}

func (m *memoryRoomRepository) GetRoom(ctx context.Context, roomID string) (model.RoomItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	room, ok := m.rooms[roomID]
	if !ok {
		return model.RoomItem{}, roomservice.ErrNotFound
	}
	return room, nil
}

func (m *memoryRoomRepository) PutMembership(ctx context.Context, membership model.MembershipItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.memberships[membership.PK] = membership
	return nil
}

func (m *memoryRoomRepository) GetMembership(ctx context.Context, roomID, userID string) (model.MembershipItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	membership, ok := m.memberships[model.MembershipPK(roomID, userID)]
	if !ok {
		return model.MembershipItem{}, roomservice.ErrNotFound
	}
	return membership, nil
}

func (m *memoryRoomRepository) DeleteMembership(ctx context.Context, roomID, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.memberships, model.MembershipPK(roomID, userID))
	return nil
}

func (m *memoryRoomRepository) CountMembers(ctx context.Context, roomID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	for _, membership := range m.memberships {
		if membership.RoomID == roomID {
			count++
		}
	}
	return count, nil
}

type testStack struct {
	registry *registry.Registry
	rooms    *roomservice.Service
	server   *httptest.Server
}

func newTestStack(t *testing.T) *testStack {
	t.Helper()

	originalSecret := internaljwt.Secret
	internaljwt.Secret = "test-secret"
	t.Cleanup(func() { internaljwt.Secret = originalSecret })

	reg := registry.New()
	authSvc := authservice.NewWithRepository(
		&memoryUserRepository{users: make(map[string]model.UserItem)},
		authservice.AllowListPolicy("testuser", "alice", "bob", "carol"),
		nil,
	)
	roomSvc := roomservice.NewWithRepository(&memoryRoomRepository{
		rooms:       make(map[string]model.RoomItem),
		memberships: make(map[string]model.MembershipItem),
	}, nil)
	handler := NewHandler(reg, authSvc, roomSvc)

	mux := http.NewServeMux()
	mux.HandleFunc("/ws/", func(w http.ResponseWriter, r *http.Request) {
		rest := strings.TrimPrefix(r.URL.Path, "/ws/")
		parts := strings.SplitN(rest, "/", 2)
		if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
			http.Error(w, "bad path", http.StatusBadRequest)
			return
		}
		if err := handler.ServeRoom(w, r, parts[0], parts[1]); err != nil {
			t.Errorf("serve room: %v", err)
		}
	})
	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		if err := handler.Echo(w, r); err != nil {
			t.Errorf("echo: %v", err)
		}
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	return &testStack{registry: reg, rooms: roomSvc, server: server}
}

func tokenFor(t *testing.T, username string) string {
	t.Helper()

	token, err := internaljwt.CreateToken(internaljwt.User{Username: username}, 0)
	if err != nil {
		t.Fatalf("create token: %v", err)
	}
	return token
}

func (ts *testStack) dial(t *testing.T, roomKey, userKey, token string) *websocket.Conn {
	t.Helper()

	url := "ws" + strings.TrimPrefix(ts.server.URL, "http") + "/ws/" + roomKey + "/" + userKey + "?token=" + token
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial %s as %s: %v", roomKey, userKey, err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readWire(t *testing.T, conn *websocket.Conn) wireMessage {
	t.Helper()

	conn.SetReadDeadline(time.Now().Add(readTimeout))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read message: %v", err)
	}
	var msg wireMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		t.Fatalf("decode message %s: %v", data, err)
	}
	return msg
}

func assertUsers(t *testing.T, got []string, want ...string) {
	t.Helper()

	sort.Strings(got)
	sort.Strings(want)
	if len(got) != len(want) {
		t.Fatalf("expected users %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected users %v, got %v", want, got)
		}
	}
}

// waitFor polls until the condition holds; session teardown is asynchronous.
func waitFor(t *testing.T, cond func() bool, what string) {
	t.Helper()

	deadline := time.Now().Add(readTimeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestJoinBroadcastsSystemMessage(t *testing.T) {
	ts := newTestStack(t)

	conn := ts.dial(t, "general", "alice", tokenFor(t, "alice"))

	msg := readWire(t, conn)
	if msg.Type != MessageTypeSystem {
		t.Fatalf("expected system message, got %q", msg.Type)
	}
	if msg.Message != "alice has joined the room." {
		t.Fatalf("unexpected join text %q", msg.Message)
	}
	assertUsers(t, msg.Users, "alice")
}

func TestChatMessagesReachEveryOccupant(t *testing.T) {
	ts := newTestStack(t)

	alice := ts.dial(t, "general", "alice", tokenFor(t, "alice"))
	readWire(t, alice) // alice's own join

	bob := ts.dial(t, "general", "bob", tokenFor(t, "bob"))
	bobJoin := readWire(t, bob)
	assertUsers(t, bobJoin.Users, "alice", "bob")
	readWire(t, alice) // bob's join as seen by alice

	if err := bob.WriteJSON(map[string]string{"message": "hello"}); err != nil {
		t.Fatalf("write message: %v", err)
	}

	for name, conn := range map[string]*websocket.Conn{"alice": alice, "bob": bob} {
		msg := readWire(t, conn)
		if msg.Type != MessageTypeChat {
			t.Fatalf("%s: expected chat message, got %q", name, msg.Type)
		}
		if msg.Sender != "bob" || msg.Message != "hello" {
			t.Fatalf("%s: unexpected chat frame %#v", name, msg)
		}
	}
}

func TestMalformedFramesAreDroppedWithoutKillingSession(t *testing.T) {
	ts := newTestStack(t)

	conn := ts.dial(t, "general", "alice", tokenFor(t, "alice"))
	readWire(t, conn)

	frames := [][]byte{
		[]byte("not json at all"),
		[]byte(`{"unexpected":"shape"}`),
		[]byte(`{"message":"still here"}`),
	}
	for _, frame := range frames {
		if err := conn.WriteMessage(websocket.TextMessage, frame); err != nil {
			t.Fatalf("write frame: %v", err)
		}
	}

	msg := readWire(t, conn)
	if msg.Type != MessageTypeChat || msg.Message != "still here" {
		t.Fatalf("expected the valid frame to be relayed, got %#v", msg)
	}
}

func TestTokenMismatchClosesWithPolicyViolation(t *testing.T) {
	ts := newTestStack(t)

	conn := ts.dial(t, "general", "bob", tokenFor(t, "alice"))

	conn.SetReadDeadline(time.Now().Add(readTimeout))
	_, _, err := conn.ReadMessage()
	if !websocket.IsCloseError(err, websocket.ClosePolicyViolation) {
		t.Fatalf("expected policy violation close, got %v", err)
	}

	if users := ts.registry.UsersInRoom("general"); len(users) != 0 {
		t.Fatalf("expected empty room after rejected session, got %v", users)
	}
}

func TestUnknownUserOutsidePolicyIsRejected(t *testing.T) {
	ts := newTestStack(t)

	conn := ts.dial(t, "general", "mallory", tokenFor(t, "mallory"))

	conn.SetReadDeadline(time.Now().Add(readTimeout))
	_, _, err := conn.ReadMessage()
	if !websocket.IsCloseError(err, websocket.ClosePolicyViolation) {
		t.Fatalf("expected policy violation close, got %v", err)
	}
}

func TestFullRoomRejectsNewMember(t *testing.T) {
	ts := newTestStack(t)

	if _, err := ts.rooms.CreateRoom(context.Background(), roomservice.CreateRoomParams{
		Name:     "tiny",
		MaxUsers: 1,
	}, ""); err != nil {
		t.Fatalf("create room: %v", err)
	}

	alice := ts.dial(t, "tiny", "alice", tokenFor(t, "alice"))
	readWire(t, alice)

	bob := ts.dial(t, "tiny", "bob", tokenFor(t, "bob"))
	bob.SetReadDeadline(time.Now().Add(readTimeout))
	_, _, err := bob.ReadMessage()
	if !websocket.IsCloseError(err, websocket.ClosePolicyViolation) {
		t.Fatalf("expected policy violation close, got %v", err)
	}

	assertUsers(t, ts.registry.UsersInRoom("tiny"), "alice")
}

func TestLeaveBroadcastsAndPrunesRoom(t *testing.T) {
	ts := newTestStack(t)

	alice := ts.dial(t, "general", "alice", tokenFor(t, "alice"))
	readWire(t, alice)

	bob := ts.dial(t, "general", "bob", tokenFor(t, "bob"))
	readWire(t, bob)
	readWire(t, alice)

	deadline := time.Now().Add(time.Second)
	alice.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline)
	alice.Close()

	msg := readWire(t, bob)
	if msg.Type != MessageTypeSystem || msg.Message != "alice has left the room." {
		t.Fatalf("expected leave notice, got %#v", msg)
	}
	assertUsers(t, msg.Users, "bob")

	bob.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
	bob.Close()

	waitFor(t, func() bool {
		return len(ts.registry.UsersInRoom("general")) == 0 && ts.registry.RoomCount() == 0
	}, "room to be pruned")
}

func TestDuplicateConnectSupersedesPriorSession(t *testing.T) {
	ts := newTestStack(t)

	first := ts.dial(t, "general", "alice", tokenFor(t, "alice"))
	readWire(t, first)

	second := ts.dial(t, "general", "alice", tokenFor(t, "alice"))
	msg := readWire(t, second)
	if msg.Type != MessageTypeSystem {
		t.Fatalf("expected system message on reconnect, got %#v", msg)
	}
	assertUsers(t, msg.Users, "alice")

	// The superseded connection is closed by the server.
	first.SetReadDeadline(time.Now().Add(readTimeout))
	for {
		if _, _, err := first.ReadMessage(); err != nil {
			break
		}
	}

	assertUsers(t, ts.registry.UsersInRoom("general"), "alice")

	// The replacement session must still be live.
	if err := second.WriteJSON(map[string]string{"message": "round two"}); err != nil {
		t.Fatalf("write on replacement session: %v", err)
	}
	relayed := readWire(t, second)
	if relayed.Type != MessageTypeChat || relayed.Message != "round two" {
		t.Fatalf("expected relayed chat on replacement session, got %#v", relayed)
	}
}

func TestEchoAcceptsFramesWithoutRegistry(t *testing.T) {
	ts := newTestStack(t)

	url := "ws" + strings.TrimPrefix(ts.server.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial echo: %v", err)
	}
	defer conn.Close()

	if err := conn.WriteMessage(websocket.TextMessage, []byte("ping")); err != nil {
		t.Fatalf("write: %v", err)
	}
	if ts.registry.RoomCount() != 0 {
		t.Fatal("echo endpoint must not touch the registry")
	}
}
