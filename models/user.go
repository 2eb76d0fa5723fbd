package models

import "time"

type UserRole string

const (
	RoleBuyer  UserRole = "buyer"
	RoleSeller UserRole = "seller"
)

type SocialMedia struct {
	Facebook  string `json:"facebook,omitempty"`
	Instagram string `json:"instagram,omitempty"`
	Twitter   string `json:"twitter,omitempty"`
}

type User struct {
	ID           int       `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         UserRole  `json:"role"`
	Avatar       string    `json:"avatar,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`

	// Seller profile fields, empty for buyers
	BusinessName        string      `json:"businessName,omitempty"`
	BusinessDescription string      `json:"businessDescription,omitempty"`
	BusinessAddress     string      `json:"businessAddress,omitempty"`
	BusinessPhone       string      `json:"businessPhone,omitempty"`
	BusinessWebsite     string      `json:"businessWebsite,omitempty"`
	CraftSpecialties    []string    `json:"craftSpecialties,omitempty"`
	YearsOfExperience   int         `json:"yearsOfExperience,omitempty"`
	SocialMedia         SocialMedia `json:"socialMedia,omitempty"`
}

// AuthUser is the identity resolved from a verified token.
type AuthUser struct {
	ID    int      `json:"id"`
	Name  string   `json:"name"`
	Email string   `json:"email"`
	Role  UserRole `json:"role"`
}

type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type LoginResponse struct {
	Message string   `json:"message"`
	Token   string   `json:"token"`
	User    AuthUser `json:"user"`
}

type UpdateSellerProfileRequest struct {
	BusinessName        string      `json:"businessName"`
	BusinessDescription string      `json:"businessDescription"`
	BusinessAddress     string      `json:"businessAddress"`
	BusinessPhone       string      `json:"businessPhone"`
	BusinessWebsite     string      `json:"businessWebsite"`
	CraftSpecialties    []string    `json:"craftSpecialties"`
	YearsOfExperience   int         `json:"yearsOfExperience"`
	SocialMedia         SocialMedia `json:"socialMedia"`
}
