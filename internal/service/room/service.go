package room

import (
	"chat-rooms-backend/internal/database"
	"chat-rooms-backend/internal/model"
	"chat-rooms-backend/utils"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	defaultMaxUsers = 100
	defaultIsPublic = true
)

type Service struct {
	repo Repository
	now  func() time.Time
}

func New(db *database.Database) *Service {
	return NewWithRepository(NewDynamoRepository(db), time.Now)
}

func NewWithRepository(repo Repository, now func() time.Time) *Service {
	if now == nil {
		now = time.Now
	}

	return &Service{
		repo: repo,
		now:  now,
	}
}

// EnsureRoom is an idempotent get-or-create: an unknown room name is
// provisioned as a public room with default capacity, and the creator is
// recorded as its moderator member.
func (s *Service) EnsureRoom(ctx context.Context, name, creatorID string) (model.RoomItem, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return model.RoomItem{}, newError(ErrorCodeValidation, "room name is required", nil)
	}

	room, err := s.repo.FindRoomByName(ctx, name)
	if err == nil {
		return room, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return model.RoomItem{}, newError(ErrorCodeInternal, "failed to fetch room", err)
	}

	return s.CreateRoom(ctx, CreateRoomParams{
		Name:        name,
		DisplayName: utils.Capitalize(name),
		Description: fmt.Sprintf("%s discussion room", name),
		IsPublic:    defaultIsPublic,
		MaxUsers:    defaultMaxUsers,
	}, creatorID)
}

func (s *Service) CreateRoom(ctx context.Context, params CreateRoomParams, creatorID string) (model.RoomItem, error) {
	if params.MaxUsers <= 0 {
		params.MaxUsers = defaultMaxUsers
	}
	if params.DisplayName == "" {
		params.DisplayName = utils.Capitalize(params.Name)
	}

	room := model.RoomItem{
		RoomID:      uuid.NewString(),
		Name:        params.Name,
		DisplayName: params.DisplayName,
		Description: params.Description,
		IsPublic:    params.IsPublic,
		MaxUsers:    params.MaxUsers,
		CreatorID:   creatorID,
		CreatedAt:   s.now().UTC().Format(time.RFC3339),
	}

	if err := s.repo.CreateRoom(ctx, room); err != nil {
		return model.RoomItem{}, newError(ErrorCodeInternal, "failed to create room", err)
	}

	if creatorID != "" {
		if _, err := s.AddMembership(ctx, creatorID, room.RoomID, true); err != nil {
			return model.RoomItem{}, err
		}
	}

	return room, nil
}

// Admit records room membership for a user, enforcing capacity. Re-admitting
// an existing member is a no-op returning the stored membership; the
// capacity gate only applies to genuinely new members.
func (s *Service) Admit(ctx context.Context, userID, roomID string) (model.MembershipItem, error) {
	existing, err := s.repo.GetMembership(ctx, roomID, userID)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return model.MembershipItem{}, newError(ErrorCodeInternal, "failed to fetch membership", err)
	}

	ok, err := s.CheckCapacity(ctx, roomID)
	if err != nil {
		return model.MembershipItem{}, err
	}
	if !ok {
		return model.MembershipItem{}, newError(ErrorCodeCapacity, "room is full", nil)
	}

	return s.AddMembership(ctx, userID, roomID, false)
}

// AddMembership is idempotent: a second call for an already-member pair
// returns the existing record, never a duplicate.
func (s *Service) AddMembership(ctx context.Context, userID, roomID string, isModerator bool) (model.MembershipItem, error) {
	existing, err := s.repo.GetMembership(ctx, roomID, userID)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return model.MembershipItem{}, newError(ErrorCodeInternal, "failed to fetch membership", err)
	}

	membership := model.MembershipItem{
		PK:          model.MembershipPK(roomID, userID),
		RoomID:      roomID,
		UserID:      userID,
		IsModerator: isModerator,
		JoinedAt:    s.now().UTC().Format(time.RFC3339),
	}

	if err := s.repo.PutMembership(ctx, membership); err != nil {
		return model.MembershipItem{}, newError(ErrorCodeInternal, "failed to save membership", err)
	}

	return membership, nil
}

func (s *Service) RemoveMembership(ctx context.Context, userID, roomID string) (bool, error) {
	if _, err := s.repo.GetMembership(ctx, roomID, userID); err != nil {
		if errors.Is(err, ErrNotFound) {
			return false, nil
		}
		return false, newError(ErrorCodeInternal, "failed to fetch membership", err)
	}

	if err := s.repo.DeleteMembership(ctx, roomID, userID); err != nil {
		return false, newError(ErrorCodeInternal, "failed to remove membership", err)
	}
	return true, nil
}

func (s *Service) MemberCount(ctx context.Context, roomID string) (int, error) {
	count, err := s.repo.CountMembers(ctx, roomID)
	if err != nil {
		return 0, newError(ErrorCodeInternal, "failed to count members", err)
	}
	return count, nil
}

// CheckCapacity reports whether the room can take one more member: the
// current member count must be strictly below the configured maximum.
func (s *Service) CheckCapacity(ctx context.Context, roomID string) (bool, error) {
	room, err := s.repo.GetRoom(ctx, roomID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return false, newError(ErrorCodeNotFound, "room not found", err)
		}
		return false, newError(ErrorCodeInternal, "failed to fetch room", err)
	}

	count, err := s.MemberCount(ctx, roomID)
	if err != nil {
		return false, err
	}

	return count < room.MaxUsers, nil
}

// CreateDefaultRooms provisions the standard channels at startup. Existing
// rooms are left untouched.
func (s *Service) CreateDefaultRooms(ctx context.Context, creatorID string) error {
	defaults := []CreateRoomParams{
		{Name: "general", DisplayName: "General", Description: "General discussion"},
		{Name: "random", DisplayName: "Random", Description: "Random conversations"},
		{Name: "tech", DisplayName: "Tech Talk", Description: "Technology discussions"},
		{Name: "gaming", DisplayName: "Gaming", Description: "Gaming discussions"},
	}

	for _, params := range defaults {
		_, err := s.repo.FindRoomByName(ctx, params.Name)
		if err == nil {
			continue
		}
		if !errors.Is(err, ErrNotFound) {
			return newError(ErrorCodeInternal, "failed to fetch room", err)
		}

		params.IsPublic = defaultIsPublic
		params.MaxUsers = defaultMaxUsers
		if _, err := s.CreateRoom(ctx, params, creatorID); err != nil {
			return err
		}
	}

	return nil
}
