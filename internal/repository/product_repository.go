package repository

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"github.com/fjod/go_cart/shop-api/internal/domain"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type mongoProductRepository struct {
	collection *mongo.Collection
}

func NewMongoProductRepository(db *mongo.Database) ProductRepository {
	return &mongoProductRepository{
		collection: db.Collection(productsCollection),
	}
}

func buildProductQuery(f domain.ProductFilter) (bson.M, *options.FindOptions) {
	query := bson.M{}
	if f.MaxPrice != nil {
		query["price"] = bson.M{"$lte": *f.MaxPrice}
	}
	if f.Includes != nil {
		// substring match, not a user supplied pattern
		query["name"] = primitive.Regex{Pattern: regexp.QuoteMeta(*f.Includes), Options: "i"}
	}

	opts := options.Find()
	if f.Limit != nil {
		opts.SetLimit(*f.Limit)
	}
	return query, opts
}

func (m mongoProductRepository) ListProducts(ctx context.Context, f domain.ProductFilter) ([]domain.Product, error) {
	query, opts := buildProductQuery(f)

	cursor, err := m.collection.Find(ctx, query, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query products: %w", err)
	}

	products := make([]domain.Product, 0)
	if err := cursor.All(ctx, &products); err != nil {
		return nil, fmt.Errorf("failed to decode products: %w", err)
	}

	return products, nil
}

func (m mongoProductRepository) GetProduct(ctx context.Context, id primitive.ObjectID) (*domain.Product, error) {
	var product domain.Product

	err := m.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&product)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to get product: %w", err)
	}

	return &product, nil
}

func (m mongoProductRepository) CreateProduct(ctx context.Context, product *domain.Product) error {
	res, err := m.collection.InsertOne(ctx, product)
	if err != nil {
		return fmt.Errorf("failed to insert product: %w", err)
	}

	if id, ok := res.InsertedID.(primitive.ObjectID); ok {
		product.ID = id
	}
	return nil
}

// ReplaceProduct reports ErrProductNotFound only when no document matched.
// Replacing a product with identical content is a success.
func (m mongoProductRepository) ReplaceProduct(ctx context.Context, id primitive.ObjectID, product *domain.Product) error {
	product.ID = id

	result, err := m.collection.ReplaceOne(ctx, bson.M{"_id": id}, product)
	if err != nil {
		return fmt.Errorf("failed to replace product: %w", err)
	}

	if result.MatchedCount == 0 {
		return ErrProductNotFound
	}
	return nil
}

func (m mongoProductRepository) DeleteProduct(ctx context.Context, id primitive.ObjectID) error {
	result, err := m.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("failed to delete product: %w", err)
	}

	if result.DeletedCount == 0 {
		return ErrProductNotFound
	}
	return nil
}
