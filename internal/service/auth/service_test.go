package auth

import (
	internaljwt "chat-rooms-backend/internal/jwt"
	"chat-rooms-backend/internal/model"
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

type memoryRepository struct {
	mu    sync.Mutex
	users map[string]model.UserItem // by username
}

func newMemoryRepository() *memoryRepository {
	return &memoryRepository{
		users: make(map[string]model.UserItem),
	}
}

func (m *memoryRepository) CreateUser(ctx context.Context, user model.UserItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[user.Username] = user
	return nil
}

func (m *memoryRepository) FindUserByUsername(ctx context.Context, username string) (model.UserItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.users[username]
	if !ok {
		return model.UserItem{}, ErrNotFound
	}
	return user, nil
}

func (m *memoryRepository) GetUser(ctx context.Context, userID string) (model.UserItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, user := range m.users {
		if user.UserID == userID {
			return user, nil
		}
	}
	return model.UserItem{}, ErrNotFound
}

func setupJWT(t *testing.T) {
	t.Helper()

	originalSecret := internaljwt.Secret
	internaljwt.Secret = "test-secret"
	SetTokenIssuer(func(user internaljwt.User, validUntil int64) (internaljwt.TokenResponse, error) {
		token, err := internaljwt.CreateToken(user, validUntil)
		if err != nil {
			return internaljwt.TokenResponse{}, err
		}
		return internaljwt.TokenResponse{
			AccessToken: token,
			TokenType:   "bearer",
		}, nil
	})

	t.Cleanup(func() {
		internaljwt.Secret = originalSecret
		SetTokenIssuer(nil)
	})
}

func fixedNow() time.Time {
	return time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
}

func registerUser(t *testing.T, repo *memoryRepository, username, password string) model.UserItem {
	t.Helper()

	hash, err := internaljwt.HashPassword(password)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	user := model.UserItem{
		UserID:       "user-" + username,
		Username:     username,
		Email:        username + "@example.com",
		PasswordHash: hash,
		IsActive:     true,
	}
	if err := repo.CreateUser(context.Background(), user); err != nil {
		t.Fatalf("create user: %v", err)
	}
	return user
}

func TestLoginIssuesTokensForValidCredentials(t *testing.T) {
	setupJWT(t)
	repo := newMemoryRepository()
	registerUser(t, repo, "alice", "secret")
	svc := NewWithRepository(repo, nil, fixedNow)

	tokens, err := svc.Login(context.Background(), LoginParams{Username: "alice", Password: "secret"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tokens.AccessToken == "" {
		t.Fatal("expected an access token")
	}

	identity, err := svc.ResolveToken(tokens.AccessToken)
	if err != nil {
		t.Fatalf("resolve issued token: %v", err)
	}
	if identity.Username != "alice" {
		t.Fatalf("expected subject alice, got %q", identity.Username)
	}
	if identity.UserID != "user-alice" {
		t.Fatalf("expected user id user-alice, got %q", identity.UserID)
	}
}

func TestLoginRejectsBadPassword(t *testing.T) {
	setupJWT(t)
	repo := newMemoryRepository()
	registerUser(t, repo, "alice", "secret")
	svc := NewWithRepository(repo, nil, fixedNow)

	_, err := svc.Login(context.Background(), LoginParams{Username: "alice", Password: "wrong"})
	assertErrorCode(t, err, ErrorCodeUnauthorized)

	_, err = svc.Login(context.Background(), LoginParams{Username: "nobody", Password: "secret"})
	assertErrorCode(t, err, ErrorCodeUnauthorized)
}

func TestLoginRejectsInactiveUser(t *testing.T) {
	setupJWT(t)
	repo := newMemoryRepository()
	user := registerUser(t, repo, "alice", "secret")
	user.IsActive = false
	repo.users["alice"] = user
	svc := NewWithRepository(repo, nil, fixedNow)

	_, err := svc.Login(context.Background(), LoginParams{Username: "alice", Password: "secret"})
	assertErrorCode(t, err, ErrorCodeUnauthorized)
}

func TestResolveTokenRejectsGarbage(t *testing.T) {
	setupJWT(t)
	svc := NewWithRepository(newMemoryRepository(), nil, fixedNow)

	for _, token := range []string{"", "not-a-jwt", "aaa.bbb.ccc"} {
		if _, err := svc.ResolveToken(token); err == nil {
			t.Fatalf("expected rejection for token %q", token)
		}
	}
}

func TestResolveTokenRejectsExpired(t *testing.T) {
	setupJWT(t)
	svc := NewWithRepository(newMemoryRepository(), nil, fixedNow)

	expired := time.Now().Add(-time.Hour).Unix()
	token, err := internaljwt.CreateToken(internaljwt.User{Username: "alice"}, expired)
	if err != nil {
		t.Fatalf("create token: %v", err)
	}

	_, err = svc.ResolveToken(token)
	assertErrorCode(t, err, ErrorCodeUnauthorized)
}

func TestResolveTokenRejectsWrongSecret(t *testing.T) {
	setupJWT(t)
	token, err := internaljwt.CreateToken(internaljwt.User{Username: "alice"}, 0)
	if err != nil {
		t.Fatalf("create token: %v", err)
	}

	internaljwt.Secret = "a-different-secret"
	svc := NewWithRepository(newMemoryRepository(), nil, fixedNow)

	_, err = svc.ResolveToken(token)
	assertErrorCode(t, err, ErrorCodeUnauthorized)
}

func TestEnsureUserProvisionsOnlyAllowedNames(t *testing.T) {
	setupJWT(t)
	repo := newMemoryRepository()
	svc := NewWithRepository(repo, AllowListPolicy("testuser", "alice"), fixedNow)

	user, err := svc.EnsureUser(context.Background(), "alice")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if user.Username != "alice" || !user.IsActive {
		t.Fatalf("unexpected provisioned user: %#v", user)
	}

	// Second call resolves the stored record instead of provisioning again.
	again, err := svc.EnsureUser(context.Background(), "alice")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if again.UserID != user.UserID {
		t.Fatal("EnsureUser provisioned a duplicate user")
	}

	_, err = svc.EnsureUser(context.Background(), "mallory")
	assertErrorCode(t, err, ErrorCodeNotFound)
}

func TestEnsureUserDeniesEverythingWithoutPolicy(t *testing.T) {
	setupJWT(t)
	svc := NewWithRepository(newMemoryRepository(), nil, fixedNow)

	_, err := svc.EnsureUser(context.Background(), "testuser1")
	assertErrorCode(t, err, ErrorCodeNotFound)
}

func TestEnsureAdminIsIdempotent(t *testing.T) {
	setupJWT(t)
	repo := newMemoryRepository()
	svc := NewWithRepository(repo, nil, fixedNow)

	admin, err := svc.EnsureAdmin(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !admin.IsAdmin {
		t.Fatal("expected admin flag on bootstrap user")
	}

	again, err := svc.EnsureAdmin(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if again.UserID != admin.UserID {
		t.Fatal("EnsureAdmin created a second admin user")
	}
}

func assertErrorCode(t *testing.T, err error, code ErrorCode) {
	t.Helper()

	if err == nil {
		t.Fatalf("expected error with code %s, got nil", code)
	}
	var svcErr *Error
	if !errors.As(err, &svcErr) {
		t.Fatalf("expected *Error, got %T: %v", err, err)
	}
	if svcErr.Code != code {
		t.Fatalf("expected code %s, got %s (%v)", code, svcErr.Code, err)
	}
}
