package chat

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"

	"chat-rooms-backend/internal/registry"
	authservice "chat-rooms-backend/internal/service/auth"
	roomservice "chat-rooms-backend/internal/service/room"

	"github.com/gorilla/websocket"
)

var upgrader websocket.Upgrader

func init() {
	upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			return true
		},
	}
}

// Handler drives the lifecycle of chat sessions: authenticate, admit,
// register, relay, and clean up.
type Handler struct {
	registry *registry.Registry
	auth     *authservice.Service
	rooms    *roomservice.Service
}

func NewHandler(reg *registry.Registry, auth *authservice.Service, rooms *roomservice.Service) *Handler {
	return &Handler{
		registry: reg,
		auth:     auth,
		rooms:    rooms,
	}
}

// Echo is the unauthenticated connectivity smoke test: accept, log every
// frame, exit on disconnect. It never touches the registry.
func (h *Handler) Echo(w http.ResponseWriter, r *http.Request) error {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	conn.SetReadLimit(maxFrameSize)
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if !isExpectedClose(err) {
				log.Printf("echo: read: %v", err)
			}
			break
		}
		log.Printf("echo: received message: %s", data)
	}
	log.Printf("echo: client disconnected")
	return nil
}

// ServeRoom runs one chat session. The handshake is accepted first; every
// authentication or admission failure after that point closes the socket
// with a policy-violation frame and leaves the registry untouched.
func (h *Handler) ServeRoom(w http.ResponseWriter, r *http.Request, roomKey, userKey string) error {
	token := r.URL.Query().Get("token")

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}
	cl := NewWSClient(conn, roomKey, userKey)

	identity, err := h.auth.ResolveToken(token)
	if err != nil {
		log.Printf("session %s/%s: token rejected: %v", roomKey, userKey, err)
		cl.reject("invalid authentication token")
		return nil
	}
	if identity.Username != userKey {
		log.Printf("session %s/%s: token subject %q does not match path user", roomKey, userKey, identity.Username)
		cl.reject("token does not match user")
		return nil
	}

	ctx := r.Context()
	user, err := h.auth.EnsureUser(ctx, userKey)
	if err != nil {
		log.Printf("session %s/%s: user admission failed: %v", roomKey, userKey, err)
		cl.reject("user not found")
		return nil
	}

	room, err := h.rooms.EnsureRoom(ctx, roomKey, user.UserID)
	if err != nil {
		log.Printf("session %s/%s: room admission failed: %v", roomKey, userKey, err)
		cl.reject("room not available")
		return nil
	}

	if _, err := h.rooms.Admit(ctx, user.UserID, room.RoomID); err != nil {
		log.Printf("session %s/%s: membership rejected: %v", roomKey, userKey, err)
		cl.reject("room is full")
		return nil
	}

	h.registry.Connect(roomKey, userKey, cl)

	join := NewSystemMessage(
		fmt.Sprintf("%s has joined the room.", userKey),
		h.registry.UsersInRoom(roomKey),
	)
	h.registry.BroadcastToRoom(roomKey, join, "")

	go cl.writePump()
	go cl.keepAlive()
	go h.readLoop(cl)
	return nil
}

// readLoop relays inbound chat frames until the transport drops. Teardown
// runs on every exit path: deregister, then notify the remaining occupants.
func (h *Handler) readLoop(cl *WSClient) {
	defer func() {
		if rec := recover(); rec != nil {
			log.Printf("session %s/%s: recovered from panic in read loop: %v", cl.roomKey, cl.userKey, rec)
		}

		cl.Close()
		if h.registry.DisconnectHandle(cl.roomKey, cl.userKey, cl) {
			leave := NewSystemMessage(
				fmt.Sprintf("%s has left the room.", cl.userKey),
				h.registry.UsersInRoom(cl.roomKey),
			)
			h.registry.BroadcastToRoom(cl.roomKey, leave, "")
		}
		log.Printf("user %s disconnected from room %s", cl.userKey, cl.roomKey)
	}()

	cl.conn.SetReadLimit(maxFrameSize)

	for {
		_, data, err := cl.conn.ReadMessage()
		if err != nil {
			if !isExpectedClose(err) {
				log.Printf("session %s/%s: read: %v", cl.roomKey, cl.userKey, err)
			}
			return
		}

		var inbound InboundMessage
		if err := json.Unmarshal(data, &inbound); err != nil {
			log.Printf("session %s/%s: dropping malformed frame: %v", cl.roomKey, cl.userKey, err)
			continue
		}
		if inbound.Message == nil {
			log.Printf("session %s/%s: dropping frame without message field", cl.roomKey, cl.userKey)
			continue
		}

		h.registry.BroadcastToRoom(cl.roomKey, NewChatMessage(cl.userKey, *inbound.Message), "")
	}
}
