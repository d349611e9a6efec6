package endpoints

import (
	"chat-rooms-backend/internal/api"
	authservice "chat-rooms-backend/internal/service/auth"
	roomservice "chat-rooms-backend/internal/service/room"
	"errors"
	"net/http"
)

func WriteJSON(w http.ResponseWriter, status int, v any) error {
	return api.WriteJSON(w, status, v)
}

// httpError translates service errors into the HTTPError shape the server
// serializes for clients.
func httpError(err error) error {
	var authErr *authservice.Error
	if errors.As(err, &authErr) {
		return &api.HTTPError{
			StatusCode: statusForAuthCode(authErr.Code),
			Message:    authErr.Message,
			ErrorLog:   err,
		}
	}

	var roomErr *roomservice.Error
	if errors.As(err, &roomErr) {
		return &api.HTTPError{
			StatusCode: statusForRoomCode(roomErr.Code),
			Message:    roomErr.Message,
			ErrorLog:   err,
		}
	}

	return err
}

func statusForAuthCode(code authservice.ErrorCode) int {
	switch code {
	case authservice.ErrorCodeValidation:
		return http.StatusBadRequest
	case authservice.ErrorCodeUnauthorized:
		return http.StatusUnauthorized
	case authservice.ErrorCodeNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func statusForRoomCode(code roomservice.ErrorCode) int {
	switch code {
	case roomservice.ErrorCodeValidation:
		return http.StatusBadRequest
	case roomservice.ErrorCodeNotFound:
		return http.StatusNotFound
	case roomservice.ErrorCodeCapacity:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
