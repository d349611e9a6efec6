package endpoints

import (
	"chat-rooms-backend/internal/api"
	authservice "chat-rooms-backend/internal/service/auth"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

type AuthEndpoints interface {
	Token(http.ResponseWriter, *http.Request) error
	RefreshToken(http.ResponseWriter, *http.Request) error
}

type authEndpoints struct {
	service *authservice.Service
}

func NewAuthEndpoints(service *authservice.Service) AuthEndpoints {
	return &authEndpoints{service: service}
}

type tokenRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// Token issues access and refresh tokens. Accepts a JSON body or the
// form-encoded username/password shape used by OAuth2 password flows.
func (h *authEndpoints) Token(w http.ResponseWriter, r *http.Request) error {
	if r.Method != http.MethodPost {
		return &api.HTTPError{
			StatusCode: http.StatusMethodNotAllowed,
			Message:    "Method not allowed",
			ErrorLog:   fmt.Errorf("token endpoint called with %s", r.Method),
		}
	}

	var req tokenRequest
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			return &api.HTTPError{
				StatusCode: http.StatusBadRequest,
				Message:    "Invalid request body",
				ErrorLog:   err,
			}
		}
	} else {
		if err := r.ParseForm(); err != nil {
			return &api.HTTPError{
				StatusCode: http.StatusBadRequest,
				Message:    "Invalid form body",
				ErrorLog:   err,
			}
		}
		req.Username = r.PostFormValue("username")
		req.Password = r.PostFormValue("password")
	}

	tokens, err := h.service.Login(r.Context(), authservice.LoginParams{
		Username: req.Username,
		Password: req.Password,
	})
	if err != nil {
		return httpError(err)
	}

	return WriteJSON(w, http.StatusOK, tokens)
}

func (h *authEndpoints) RefreshToken(w http.ResponseWriter, r *http.Request) error {
	if r.Method != http.MethodPost {
		return &api.HTTPError{
			StatusCode: http.StatusMethodNotAllowed,
			Message:    "Method not allowed",
			ErrorLog:   fmt.Errorf("refresh endpoint called with %s", r.Method),
		}
	}

	var req refreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return &api.HTTPError{
			StatusCode: http.StatusBadRequest,
			Message:    "Invalid request body",
			ErrorLog:   err,
		}
	}

	tokens, err := h.service.Refresh(req.RefreshToken)
	if err != nil {
		return httpError(err)
	}

	return WriteJSON(w, http.StatusOK, tokens)
}
