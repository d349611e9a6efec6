package router

import (
	"chat-rooms-backend/internal/api"
	"chat-rooms-backend/internal/api/endpoints"
	authservice "chat-rooms-backend/internal/service/auth"
	"net/http"
)

func AuthRoutes(prefix string, service *authservice.Service) api.RouteRegistrar {
	return func(mux *http.ServeMux, s *api.APIServer) {
		authEndpoints := endpoints.NewAuthEndpoints(service)
		mux.HandleFunc(prefix+"/token", s.MakeHTTPHandleFunc(authEndpoints.Token))
		mux.HandleFunc(prefix+"/token/refresh", s.MakeHTTPHandleFunc(authEndpoints.RefreshToken))
	}
}
