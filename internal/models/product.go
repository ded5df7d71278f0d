package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ProductImage is one entry of a product's image gallery.
type ProductImage struct {
	URL       string `bson:"url" json:"url"`
	Alt       string `bson:"alt,omitempty" json:"alt,omitempty"`
	IsPrimary bool   `bson:"isPrimary" json:"isPrimary"`
}

// Rating is the aggregated review score kept on the product document.
type Rating struct {
	Average float64 `bson:"average" json:"average"`
	Count   int     `bson:"count" json:"count"`
}

type Product struct {
	ID            primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name          string             `bson:"name" json:"name"`
	Description   string             `bson:"description" json:"description"`
	Price         float64            `bson:"price" json:"price"`
	OriginalPrice float64            `bson:"originalPrice,omitempty" json:"originalPrice,omitempty"`
	Category      primitive.ObjectID `bson:"category" json:"category"`
	Brand         string             `bson:"brand,omitempty" json:"brand,omitempty"`
	Images        []ProductImage     `bson:"images" json:"images"`
	Colors        []string           `bson:"colors" json:"colors"`
	Sizes         []string           `bson:"sizes" json:"sizes"`
	Stock         int                `bson:"stock" json:"stock"`
	SKU           string             `bson:"sku,omitempty" json:"sku,omitempty"`
	Slug          string             `bson:"slug,omitempty" json:"slug,omitempty"`
	IsActive      bool               `bson:"isActive" json:"isActive"`
	IsNew         bool               `bson:"isNew" json:"isNew"`
	IsFeatured    bool               `bson:"isFeatured" json:"isFeatured"`
	Rating        Rating             `bson:"rating" json:"rating"`
	Tags          []string           `bson:"tags,omitempty" json:"tags,omitempty"`
	Sales         int                `bson:"sales" json:"sales"`
	Views         int                `bson:"views" json:"views"`
	CreatedAt     time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt     time.Time          `bson:"updatedAt" json:"updatedAt"`

	// Derived on read, never stored.
	InStock         bool `bson:"-" json:"inStock"`
	DiscountPercent int  `bson:"-" json:"discountPercent"`
}

// PrimaryImage returns the image flagged primary, or the first one.
func (p Product) PrimaryImage() string {
	for _, img := range p.Images {
		if img.IsPrimary {
			return img.URL
		}
	}
	if len(p.Images) > 0 {
		return p.Images[0].URL
	}
	return ""
}
