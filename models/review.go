package models

import "time"

type Review struct {
	ID                 int       `json:"id"`
	ProductID          int       `json:"product"`
	UserID             int       `json:"user"`
	UserName           string    `json:"userName,omitempty"`
	UserAvatar         string    `json:"userAvatar,omitempty"`
	Rating             int       `json:"rating"`
	Title              string    `json:"title,omitempty"`
	Comment            string    `json:"comment"`
	Images             []string  `json:"images,omitempty"`
	IsVerifiedPurchase bool      `json:"isVerifiedPurchase"`
	IsApproved         bool      `json:"isApproved"`
	HelpfulVotes       int       `json:"helpfulVotes"`
	ReportCount        int       `json:"reportCount"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

type CreateReviewRequest struct {
	Rating  int      `json:"rating"`
	Title   string   `json:"title"`
	Comment string   `json:"comment"`
	Images  []string `json:"images"`
}

// RatingBucket is one row of the 5..1 rating distribution.
type RatingBucket struct {
	Rating     int `json:"rating"`
	Count      int `json:"count"`
	Percentage int `json:"percentage"`
}
