package domain

import "go.mongodb.org/mongo-driver/bson/primitive"

type Product struct {
	ID          primitive.ObjectID `json:"_id,omitzero" bson:"_id,omitempty"`
	Name        string             `json:"name" bson:"name" validate:"required"`
	Price       float64            `json:"price" bson:"price" validate:"gte=0"`
	Description string             `json:"description,omitempty" bson:"description,omitempty"`
	PhotoURL    string             `json:"photoURL,omitempty" bson:"photoURL,omitempty" validate:"omitempty,url"`
}

// ProductFilter narrows a product listing. Nil fields are not applied.
type ProductFilter struct {
	MaxPrice *float64
	Includes *string
	Limit    *int64
}
