package endpoints

import (
	"chat-rooms-backend/internal/api"
	"chat-rooms-backend/internal/chat"
	"fmt"
	"net/http"
	"strings"
)

type ChatEndpoints interface {
	Echo(http.ResponseWriter, *http.Request) error
	Websocket(http.ResponseWriter, *http.Request) error
}

type ChatPaths struct {
	EchoPath   string
	RoomPrefix string
}

type chatEndpoints struct {
	handler *chat.Handler
	paths   ChatPaths
}

func NewChatEndpoints(handler *chat.Handler, paths ChatPaths) ChatEndpoints {
	return &chatEndpoints{
		handler: handler,
		paths:   paths,
	}
}

func (h *chatEndpoints) Echo(w http.ResponseWriter, r *http.Request) error {
	return h.handler.Echo(w, r)
}

// Websocket expects {roomPrefix}{room_id}/{user_id}; the credential rides in
// the token query parameter because the transport cannot carry custom
// headers after the handshake.
func (h *chatEndpoints) Websocket(w http.ResponseWriter, r *http.Request) error {
	roomKey, userKey, err := h.extractRoomAndUser(r.URL.Path)
	if err != nil {
		return &api.HTTPError{
			StatusCode: http.StatusBadRequest,
			Message:    "Invalid websocket path",
			ErrorLog:   err,
		}
	}

	return h.handler.ServeRoom(w, r, roomKey, userKey)
}

func (h *chatEndpoints) extractRoomAndUser(path string) (string, string, error) {
	trimmed := strings.TrimPrefix(path, h.paths.RoomPrefix)
	if trimmed == path {
		return "", "", fmt.Errorf("path %q missing prefix %q", path, h.paths.RoomPrefix)
	}

	parts := strings.Split(strings.Trim(trimmed, "/"), "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("path %q must be <room_id>/<user_id>", trimmed)
	}

	return parts[0], parts[1], nil
}
