package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Address is a single saved address on a user account.
type Address struct {
	ID        string `bson:"id" json:"id"`
	Title     string `bson:"title" json:"title"`
	FirstName string `bson:"firstName,omitempty" json:"firstName,omitempty"`
	LastName  string `bson:"lastName,omitempty" json:"lastName,omitempty"`
	Phone     string `bson:"phone,omitempty" json:"phone,omitempty"`
	Street    string `bson:"street" json:"street"`
	City      string `bson:"city" json:"city"`
	State     string `bson:"state,omitempty" json:"state,omitempty"`
	ZipCode   string `bson:"zipCode,omitempty" json:"zipCode,omitempty"`
	Country   string `bson:"country,omitempty" json:"country,omitempty"`
	IsDefault bool   `bson:"isDefault" json:"isDefault"`
}

// PasswordReset holds the hashed reset token state; the plain token is only
// ever sent out of band.
type PasswordReset struct {
	TokenHash string    `bson:"tokenHash" json:"-"`
	ExpiresAt time.Time `bson:"expiresAt" json:"-"`
}

type User struct {
	ID            primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name          string             `bson:"name" json:"name"`
	Email         string             `bson:"email" json:"email"`
	PasswordHash  string             `bson:"passwordHash" json:"-"`
	Role          string             `bson:"role" json:"role"`
	Phone         string             `bson:"phone,omitempty" json:"phone,omitempty"`
	Avatar        string             `bson:"avatar,omitempty" json:"avatar,omitempty"`
	Addresses     []Address          `bson:"addresses" json:"addresses"`
	IsActive      bool               `bson:"isActive" json:"isActive"`
	EmailVerified bool               `bson:"emailVerified" json:"emailVerified"`
	PasswordReset *PasswordReset     `bson:"passwordReset,omitempty" json:"-"`
	LastLogin     *time.Time         `bson:"lastLogin,omitempty" json:"lastLogin,omitempty"`
	CreatedAt     time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt     time.Time          `bson:"updatedAt" json:"updatedAt"`
}

const (
	RoleCustomer = "customer"
	RoleAdmin    = "admin"
)
