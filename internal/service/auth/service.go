package auth

import (
	"chat-rooms-backend/internal/database"
	"chat-rooms-backend/internal/env"
	internaljwt "chat-rooms-backend/internal/jwt"
	"chat-rooms-backend/internal/model"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	adminUsername            = "admin"
	defaultAdminPassword     = "admin123"
	provisionedPassword      = "testpass123"
	provisionedEmailTemplate = "%s@test.com"
)

type Service struct {
	repo      Repository
	provision ProvisionPolicy
	now       func() time.Time
}

var issueTokens = internaljwt.CreateTokenWithRefresh

// SetTokenIssuer swaps the token issuance function; tests use it to avoid
// the Redis-backed refresh store.
func SetTokenIssuer(issuer func(internaljwt.User, int64) (internaljwt.TokenResponse, error)) {
	if issuer == nil {
		issueTokens = internaljwt.CreateTokenWithRefresh
		return
	}
	issueTokens = issuer
}

func New(db *database.Database, policy ProvisionPolicy) *Service {
	return NewWithRepository(NewDynamoRepository(db), policy, time.Now)
}

func NewWithRepository(repo Repository, policy ProvisionPolicy, now func() time.Time) *Service {
	if policy == nil {
		policy = DenyAllPolicy()
	}
	if now == nil {
		now = time.Now
	}

	return &Service{
		repo:      repo,
		provision: policy,
		now:       now,
	}
}

// AllowListPolicy permits usernames containing any of the given fragments,
// mirroring the placeholder names used by controlled test flows.
func AllowListPolicy(fragments ...string) ProvisionPolicy {
	return func(username string) bool {
		for _, fragment := range fragments {
			if fragment != "" && strings.Contains(username, fragment) {
				return true
			}
		}
		return false
	}
}

func DenyAllPolicy() ProvisionPolicy {
	return func(string) bool { return false }
}

// PolicyFromEnv builds the provisioning policy from
// CHAT_AUTO_PROVISION_USERS (comma-separated fragments). Unset means no
// auto-provisioning at all.
func PolicyFromEnv() ProvisionPolicy {
	raw := strings.TrimSpace(env.Get(env.AutoProvisionUsers))
	if raw == "" {
		return DenyAllPolicy()
	}

	fragments := make([]string, 0)
	for _, fragment := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(fragment); trimmed != "" {
			fragments = append(fragments, trimmed)
		}
	}
	return AllowListPolicy(fragments...)
}

// ResolveToken verifies an access token and returns the identity it carries.
// Pure verification: no storage access, no side effects.
func (s *Service) ResolveToken(token string) (Identity, error) {
	if strings.TrimSpace(token) == "" {
		return Identity{}, newError(ErrorCodeUnauthorized, "authentication token is missing", nil)
	}

	claims, err := internaljwt.ParseToken(token)
	if err != nil {
		return Identity{}, newError(ErrorCodeUnauthorized, "invalid authentication token", err)
	}

	username, _ := claims["sub"].(string)
	if username == "" {
		return Identity{}, newError(ErrorCodeUnauthorized, "token missing subject", nil)
	}

	userID, _ := claims["id"].(string)
	email, _ := claims["email"].(string)

	return Identity{
		UserID:   userID,
		Username: username,
		Email:    email,
	}, nil
}

// EnsureUser resolves the user record for a username, provisioning it only
// when the configured policy allows that name.
func (s *Service) EnsureUser(ctx context.Context, username string) (model.UserItem, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return model.UserItem{}, newError(ErrorCodeValidation, "username is required", nil)
	}

	user, err := s.repo.FindUserByUsername(ctx, username)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return model.UserItem{}, newError(ErrorCodeInternal, "failed to fetch user", err)
	}

	if !s.provision(username) {
		return model.UserItem{}, newError(ErrorCodeNotFound, "user not found", nil)
	}

	return s.createUser(ctx, username, fmt.Sprintf(provisionedEmailTemplate, username), provisionedPassword, false)
}

// Login validates a password and issues access/refresh tokens.
func (s *Service) Login(ctx context.Context, params LoginParams) (internaljwt.TokenResponse, error) {
	username := strings.TrimSpace(params.Username)
	password := strings.TrimSpace(params.Password)

	if username == "" || password == "" {
		return internaljwt.TokenResponse{}, newError(ErrorCodeValidation, "missing required fields", nil)
	}

	user, err := s.repo.FindUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return internaljwt.TokenResponse{}, newError(ErrorCodeUnauthorized, "incorrect username or password", nil)
		}
		return internaljwt.TokenResponse{}, newError(ErrorCodeInternal, "failed to fetch user", err)
	}

	if !user.IsActive || !internaljwt.ValidatePassword(user.PasswordHash, password) {
		return internaljwt.TokenResponse{}, newError(ErrorCodeUnauthorized, "incorrect username or password", nil)
	}

	tokens, err := issueTokens(internaljwt.User{
		Id:       user.UserID,
		Username: user.Username,
		Email:    user.Email,
	}, 0)
	if err != nil {
		return internaljwt.TokenResponse{}, newError(ErrorCodeInternal, "failed to issue tokens", err)
	}

	return tokens, nil
}

// Refresh exchanges a refresh token for a fresh access token.
func (s *Service) Refresh(refreshToken string) (internaljwt.TokenResponse, error) {
	accessToken, err := internaljwt.RefreshToken(strings.TrimSpace(refreshToken))
	if err != nil {
		return internaljwt.TokenResponse{}, newError(ErrorCodeUnauthorized, "invalid refresh token", err)
	}

	return internaljwt.TokenResponse{
		AccessToken: accessToken,
		TokenType:   "bearer",
	}, nil
}

// EnsureAdmin provisions the bootstrap admin account used as creator of the
// default rooms.
func (s *Service) EnsureAdmin(ctx context.Context) (model.UserItem, error) {
	user, err := s.repo.FindUserByUsername(ctx, adminUsername)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return model.UserItem{}, newError(ErrorCodeInternal, "failed to fetch admin user", err)
	}

	password := env.GetOrDefault(env.AdminPassword, defaultAdminPassword)
	return s.createUser(ctx, adminUsername, "admin@example.com", password, true)
}

func (s *Service) createUser(ctx context.Context, username, email, password string, isAdmin bool) (model.UserItem, error) {
	hash, err := internaljwt.HashPassword(password)
	if err != nil {
		return model.UserItem{}, newError(ErrorCodeInternal, "failed to prepare user", err)
	}

	user := model.UserItem{
		UserID:       uuid.NewString(),
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		IsActive:     true,
		IsAdmin:      isAdmin,
		CreatedAt:    s.now().UTC().Format(time.RFC3339),
	}

	if err := s.repo.CreateUser(ctx, user); err != nil {
		return model.UserItem{}, newError(ErrorCodeInternal, "failed to save user", err)
	}

	return user, nil
}
