package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/fjod/go_cart/shop-api/internal/domain"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type mongoUserRepository struct {
	collection *mongo.Collection
}

func NewMongoUserRepository(db *mongo.Database) UserRepository {
	// nested profile fields decode as maps so they render as JSON objects
	opts := options.Collection().SetBSONOptions(&options.BSONOptions{DefaultDocumentM: true})
	return &mongoUserRepository{
		collection: db.Collection(usersCollection, opts),
	}
}

func (m mongoUserRepository) GetUser(ctx context.Context, id primitive.ObjectID) (*domain.User, error) {
	var user domain.User

	err := m.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&user)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	return &user, nil
}

func (m mongoUserRepository) CreateUser(ctx context.Context, user *domain.User) error {
	res, err := m.collection.InsertOne(ctx, user)
	if err != nil {
		return fmt.Errorf("failed to insert user: %w", err)
	}

	if id, ok := res.InsertedID.(primitive.ObjectID); ok {
		user.ID = id
	}
	return nil
}

func (m mongoUserRepository) ReplaceUser(ctx context.Context, id primitive.ObjectID, user *domain.User) error {
	// _id is immutable, the replacement must carry the matched one
	user.ID = id

	result, err := m.collection.ReplaceOne(ctx, bson.M{"_id": id}, user)
	if err != nil {
		return fmt.Errorf("failed to replace user: %w", err)
	}

	if result.MatchedCount == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (m mongoUserRepository) DeleteUser(ctx context.Context, id primitive.ObjectID) error {
	result, err := m.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}

	if result.DeletedCount == 0 {
		return ErrUserNotFound
	}
	return nil
}
