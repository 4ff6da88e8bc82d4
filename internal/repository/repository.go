package repository

import (
	"context"
	"errors"

	"github.com/fjod/go_cart/shop-api/internal/domain"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	usersCollection     = "users"
	productsCollection  = "products"
	cartItemsCollection = "cartItems"
)

var (
	ErrUserNotFound    = errors.New("user not found")
	ErrProductNotFound = errors.New("product not found")
	ErrItemNotFound    = errors.New("item not found in cart")
	ErrCartNotFound    = errors.New("cart not found")
)

// Consumers define these interfaces, not the MongoDB implementations.

type UserRepository interface {
	GetUser(ctx context.Context, id primitive.ObjectID) (*domain.User, error)
	CreateUser(ctx context.Context, user *domain.User) error
	ReplaceUser(ctx context.Context, id primitive.ObjectID, user *domain.User) error
	DeleteUser(ctx context.Context, id primitive.ObjectID) error
}

type ProductRepository interface {
	ListProducts(ctx context.Context, filter domain.ProductFilter) ([]domain.Product, error)
	GetProduct(ctx context.Context, id primitive.ObjectID) (*domain.Product, error)
	CreateProduct(ctx context.Context, product *domain.Product) error
	ReplaceProduct(ctx context.Context, id primitive.ObjectID, product *domain.Product) error
	DeleteProduct(ctx context.Context, id primitive.ObjectID) error
}

// CartRepository stores cart items, one document per (userID, product id).
type CartRepository interface {
	ListItems(ctx context.Context, userID string) ([]domain.CartItem, error)
	// AddItem inserts item or increments the quantity of the existing line.
	// It reports true when a new document was created.
	AddItem(ctx context.Context, item domain.CartItem) (*domain.CartItem, bool, error)
	UpdateItemQuantity(ctx context.Context, userID string, productID primitive.ObjectID, quantity int) error
	RemoveItem(ctx context.Context, userID string, productID primitive.ObjectID) error
	DeleteCart(ctx context.Context, userID string) error
}
