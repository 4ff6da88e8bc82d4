package service

import (
	"context"
	"log/slog"

	"github.com/fjod/go_cart/shop-api/internal/domain"
	"github.com/fjod/go_cart/shop-api/internal/repository"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type CartService struct {
	repo repository.CartRepository
}

func NewCartService(repo repository.CartRepository) *CartService {
	return &CartService{
		repo: repo,
	}
}

func (s *CartService) ListItems(ctx context.Context, userID string) ([]domain.CartItem, error) {
	return s.repo.ListItems(ctx, userID)
}

// AddItem adds item to the user's cart, merging with an existing line for the
// same product. created is false when the quantity of an existing line was
// incremented.
func (s *CartService) AddItem(ctx context.Context, userID string, item domain.CartItem) (*domain.CartItem, bool, error) {
	item.UserID = userID
	item.ID = primitive.NilObjectID

	result, created, err := s.repo.AddItem(ctx, item)
	if err != nil {
		slog.ErrorContext(ctx, "repo add item error", "user_id", userID, "error", err)
		return nil, false, err
	}

	slog.DebugContext(ctx, "cart item added",
		"user_id", userID,
		"product_id", item.Product.ID.Hex(),
		"created", created,
		"quantity", result.Quantity)
	return result, created, nil
}

func (s *CartService) UpdateQuantity(ctx context.Context, userID string, productID primitive.ObjectID, quantity int) error {
	return s.repo.UpdateItemQuantity(ctx, userID, productID, quantity)
}

func (s *CartService) RemoveItem(ctx context.Context, userID string, productID primitive.ObjectID) error {
	return s.repo.RemoveItem(ctx, userID, productID)
}

func (s *CartService) ClearCart(ctx context.Context, userID string) error {
	return s.repo.DeleteCart(ctx, userID)
}
