package model

import "fmt"

const (
	UsersTable       = "Users"
	RoomsTable       = "Rooms"
	MembershipsTable = "RoomMemberships"
)

type UserItem struct {
	UserID       string `dynamodbav:"userId"`
	Username     string `dynamodbav:"username"`
	Email        string `dynamodbav:"email"`
	FullName     string `dynamodbav:"fullName,omitempty"`
	PasswordHash string `dynamodbav:"passwordHash"`
	IsActive     bool   `dynamodbav:"isActive"`
	IsAdmin      bool   `dynamodbav:"isAdmin"`
	CreatedAt    string `dynamodbav:"createdAt"`
}

type RoomItem struct {
	RoomID      string `dynamodbav:"roomId"`
	Name        string `dynamodbav:"name"`
	DisplayName string `dynamodbav:"displayName"`
	Description string `dynamodbav:"description,omitempty"`
	IsPublic    bool   `dynamodbav:"isPublic"`
	MaxUsers    int    `dynamodbav:"maxUsers"`
	CreatorID   string `dynamodbav:"creatorId"`
	CreatedAt   string `dynamodbav:"createdAt"`
}

type MembershipItem struct {
	PK          string `dynamodbav:"pk"`
	RoomID      string `dynamodbav:"roomId"`
	UserID      string `dynamodbav:"userId"`
	IsModerator bool   `dynamodbav:"isModerator"`
	JoinedAt    string `dynamodbav:"joinedAt"`
}

func MembershipPK(roomID, userID string) string {
	return fmt.Sprintf("%s#%s", roomID, userID)
}
