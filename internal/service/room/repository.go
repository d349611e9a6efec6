package room

import (
	"chat-rooms-backend/internal/database"
	"chat-rooms-backend/internal/model"
	"context"
	"errors"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

var ErrNotFound = errors.New("room repository: not found")

type Repository interface {
	CreateRoom(ctx context.Context, room model.RoomItem) error
	FindRoomByName(ctx context.Context, name string) (model.RoomItem, error)
	GetRoom(ctx context.Context, roomID string) (model.RoomItem, error)
	PutMembership(ctx context.Context, membership model.MembershipItem) error
	GetMembership(ctx context.Context, roomID, userID string) (model.MembershipItem, error)
	DeleteMembership(ctx context.Context, roomID, userID string) error
	CountMembers(ctx context.Context, roomID string) (int, error)
}

type DynamoRepository struct {
	db *database.Database
}

func NewDynamoRepository(db *database.Database) Repository {
	return &DynamoRepository{db: db}
}

func (r *DynamoRepository) CreateRoom(ctx context.Context, room model.RoomItem) error {
	return r.db.Client.PutItem(ctx, model.RoomsTable, room)
}

func (r *DynamoRepository) FindRoomByName(ctx context.Context, name string) (model.RoomItem, error) {
	items, err := r.db.Client.QueryItems(
		ctx,
		model.RoomsTable,
		aws.String("byName"),
		"#name = :name",
		map[string]types.AttributeValue{
			":name": &types.AttributeValueMemberS{Value: name},
		},
		map[string]string{
			"#name": "name",
		},
		nil,
	)
	if err != nil {
		return model.RoomItem{}, err
	}

	if len(items) == 0 {
		return model.RoomItem{}, ErrNotFound
	}

	var room model.RoomItem
	if err := attributevalue.UnmarshalMap(items[0], &room); err != nil {
		return model.RoomItem{}, err
	}

	return room, nil
}

func (r *DynamoRepository) GetRoom(ctx context.Context, roomID string) (model.RoomItem, error) {
	var room model.RoomItem
	err := r.db.Client.GetItem(
		ctx,
		model.RoomsTable,
		map[string]types.AttributeValue{
			"roomId": &types.AttributeValueMemberS{Value: roomID},
		},
		&room,
	)
	if err != nil {
		if isNotFoundError(err) {
			return model.RoomItem{}, ErrNotFound
		}
		return model.RoomItem{}, err
	}

	return room, nil
}

func (r *DynamoRepository) PutMembership(ctx context.Context, membership model.MembershipItem) error {
	return r.db.Client.PutItem(ctx, model.MembershipsTable, membership)
}

func (r *DynamoRepository) GetMembership(ctx context.Context, roomID, userID string) (model.MembershipItem, error) {
	var membership model.MembershipItem
	err := r.db.Client.GetItem(
		ctx,
		model.MembershipsTable,
		map[string]types.AttributeValue{
			"pk": &types.AttributeValueMemberS{Value: model.MembershipPK(roomID, userID)},
		},
		&membership,
	)
	if err != nil {
		if isNotFoundError(err) {
			return model.MembershipItem{}, ErrNotFound
		}
		return model.MembershipItem{}, err
	}

	return membership, nil
}

func (r *DynamoRepository) DeleteMembership(ctx context.Context, roomID, userID string) error {
	return r.db.Client.DeleteItem(
		ctx,
		model.MembershipsTable,
		map[string]types.AttributeValue{
			"pk": &types.AttributeValueMemberS{Value: model.MembershipPK(roomID, userID)},
		},
	)
}

func (r *DynamoRepository) CountMembers(ctx context.Context, roomID string) (int, error) {
	return r.db.Client.CountItems(
		ctx,
		model.MembershipsTable,
		aws.String("byRoom"),
		"roomId = :roomId",
		map[string]types.AttributeValue{
			":roomId": &types.AttributeValueMemberS{Value: roomID},
		},
	)
}

func isNotFoundError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "item not found")
}
