package domain

import "go.mongodb.org/mongo-driver/bson/primitive"

// CartItem is one product line in a user's cart. At most one item exists per
// (UserID, Product.ID).
type CartItem struct {
	ID       primitive.ObjectID `json:"_id,omitzero" bson:"_id,omitempty"`
	UserID   string             `json:"userId" bson:"userId"`
	Product  Product            `json:"product" bson:"product"`
	Quantity int                `json:"quantity" bson:"quantity" validate:"gt=0"`
}
