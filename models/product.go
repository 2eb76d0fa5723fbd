package models

import "time"

type Inventory struct {
	Quantity       int  `json:"quantity"`
	TrackQuantity  bool `json:"trackQuantity"`
	AllowBackorder bool `json:"allowBackorder"`
}

type Dimensions struct {
	Length float64 `json:"length,omitempty"`
	Width  float64 `json:"width,omitempty"`
	Height float64 `json:"height,omitempty"`
	Weight float64 `json:"weight,omitempty"`
}

type Product struct {
	ID               int        `json:"id"`
	Name             string     `json:"name"`
	Slug             string     `json:"slug"`
	Description      string     `json:"description"`
	ShortDescription string     `json:"shortDescription,omitempty"`
	Price            float64    `json:"price"`
	ComparePrice     float64    `json:"comparePrice,omitempty"`
	Images           []string   `json:"images"`
	CategoryID       int        `json:"category"`
	CategoryName     string     `json:"categoryName,omitempty"`
	CategorySlug     string     `json:"categorySlug,omitempty"`
	SellerID         int        `json:"seller"`
	SellerName       string     `json:"sellerName,omitempty"`
	BusinessName     string     `json:"businessName,omitempty"`
	Inventory        Inventory  `json:"inventory"`
	Dimensions       Dimensions `json:"dimensions,omitempty"`
	Materials        []string   `json:"materials,omitempty"`
	Tags             []string   `json:"tags,omitempty"`
	IsActive         bool       `json:"isActive"`
	IsFeatured       bool       `json:"isFeatured"`
	AverageRating    float64    `json:"averageRating"`
	TotalReviews     int        `json:"totalReviews"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

type CreateProductRequest struct {
	Name             string     `json:"name"`
	Description      string     `json:"description"`
	ShortDescription string     `json:"shortDescription"`
	Price            float64    `json:"price"`
	ComparePrice     float64    `json:"comparePrice"`
	Images           []string   `json:"images"`
	Category         int        `json:"category"`
	Inventory        *Inventory `json:"inventory"`
	Dimensions       Dimensions `json:"dimensions"`
	Materials        []string   `json:"materials"`
	Tags             []string   `json:"tags"`
}

type UpdateProductRequest struct {
	Name             string     `json:"name"`
	Description      string     `json:"description"`
	ShortDescription string     `json:"shortDescription"`
	Price            float64    `json:"price"`
	ComparePrice     float64    `json:"comparePrice"`
	Images           []string   `json:"images"`
	Inventory        *Inventory `json:"inventory"`
	Materials        []string   `json:"materials"`
	Tags             []string   `json:"tags"`
	IsActive         *bool      `json:"isActive"`
	IsFeatured       *bool      `json:"isFeatured"`
}
