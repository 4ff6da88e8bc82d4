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

type mongoCartRepository struct {
	collection *mongo.Collection
}

func NewMongoCartRepository(db *mongo.Database) CartRepository {
	return &mongoCartRepository{
		collection: db.Collection(cartItemsCollection),
	}
}

func itemFilter(userID string, productID primitive.ObjectID) bson.M {
	return bson.M{"userId": userID, "product._id": productID}
}

func (m mongoCartRepository) ListItems(ctx context.Context, userID string) ([]domain.CartItem, error) {
	opts := options.Find().SetProjection(bson.M{"_id": 0})

	cursor, err := m.collection.Find(ctx, bson.M{"userId": userID}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query cart items: %w", err)
	}

	items := make([]domain.CartItem, 0)
	if err := cursor.All(ctx, &items); err != nil {
		return nil, fmt.Errorf("failed to decode cart items: %w", err)
	}

	return items, nil
}

// AddItem is a single upsert: the quantity is incremented when the line
// exists, otherwise the whole item is inserted. The unique index on
// (userId, product._id) keeps concurrent adds from creating a second line;
// the add that loses that race is applied again and then matches the line.
func (m mongoCartRepository) AddItem(ctx context.Context, item domain.CartItem) (*domain.CartItem, bool, error) {
	added, created, err := m.upsertItem(ctx, item)
	if mongo.IsDuplicateKeyError(err) {
		added, created, err = m.upsertItem(ctx, item)
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to add item to cart: %w", err)
	}
	return added, created, nil
}

func (m mongoCartRepository) upsertItem(ctx context.Context, item domain.CartItem) (*domain.CartItem, bool, error) {
	newID := primitive.NewObjectID()

	update := bson.M{
		"$inc":         bson.M{"quantity": item.Quantity},
		"$setOnInsert": bson.M{"_id": newID, "product": item.Product},
	}
	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.Before).
		SetProjection(bson.M{"_id": 0})

	var existing domain.CartItem
	err := m.collection.FindOneAndUpdate(ctx, itemFilter(item.UserID, item.Product.ID), update, opts).Decode(&existing)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			// nothing before the upsert: the item was inserted
			item.ID = newID
			return &item, true, nil
		}
		return nil, false, err
	}

	existing.Quantity += item.Quantity
	return &existing, false, nil
}

func (m mongoCartRepository) UpdateItemQuantity(ctx context.Context, userID string, productID primitive.ObjectID, quantity int) error {
	update := bson.M{"$set": bson.M{"quantity": quantity}}

	result, err := m.collection.UpdateOne(ctx, itemFilter(userID, productID), update)
	if err != nil {
		return fmt.Errorf("failed to update item quantity: %w", err)
	}

	if result.MatchedCount == 0 {
		return ErrItemNotFound
	}
	return nil
}

func (m mongoCartRepository) RemoveItem(ctx context.Context, userID string, productID primitive.ObjectID) error {
	result, err := m.collection.DeleteOne(ctx, itemFilter(userID, productID))
	if err != nil {
		return fmt.Errorf("failed to remove item: %w", err)
	}

	if result.DeletedCount == 0 {
		return ErrItemNotFound
	}
	return nil
}

func (m mongoCartRepository) DeleteCart(ctx context.Context, userID string) error {
	result, err := m.collection.DeleteMany(ctx, bson.M{"userId": userID})
	if err != nil {
		return fmt.Errorf("failed to delete cart: %w", err)
	}

	if result.DeletedCount == 0 {
		return ErrCartNotFound
	}
	return nil
}
