package router

import (
	"chat-rooms-backend/internal/api"
	"chat-rooms-backend/internal/api/endpoints"
	"net/http"
	"strings"
)

func ChatRoutes(prefix string) api.RouteRegistrar {
	return func(mux *http.ServeMux, s *api.APIServer) {
		base := strings.TrimRight(prefix, "/")
		paths := endpoints.ChatPaths{
			EchoPath:   base + "/ws",
			RoomPrefix: base + "/ws/",
		}
		chatEndpoints := endpoints.NewChatEndpoints(s.Handler(), paths)

		mux.HandleFunc(paths.EchoPath, s.MakeHTTPHandleFunc(chatEndpoints.Echo))
		mux.HandleFunc(paths.RoomPrefix, s.MakeHTTPHandleFunc(chatEndpoints.Websocket))
	}
}
