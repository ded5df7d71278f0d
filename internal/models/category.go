package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Category struct {
	ID             primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	Name           string              `bson:"name" json:"name"`
	Description    string              `bson:"description,omitempty" json:"description,omitempty"`
	Slug           string              `bson:"slug" json:"slug"`
	Image          string              `bson:"image,omitempty" json:"image,omitempty"`
	Icon           string              `bson:"icon,omitempty" json:"icon,omitempty"`
	IsActive       bool                `bson:"isActive" json:"isActive"`
	SortOrder      int                 `bson:"sortOrder" json:"sortOrder"`
	ParentCategory *primitive.ObjectID `bson:"parentCategory,omitempty" json:"parentCategory,omitempty"`
	ProductCount   int                 `bson:"productCount" json:"productCount"`
	CreatedAt      time.Time           `bson:"createdAt" json:"createdAt"`
	UpdatedAt      time.Time           `bson:"updatedAt" json:"updatedAt"`
}
