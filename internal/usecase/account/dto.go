package account

import (
	"time"

	domain "storda-registry/internal/domain/account"

	"github.com/google/uuid"
)

type SignUpRequest struct {
	Email       string `json:"email" binding:"required,email"`
	PhoneNumber string `json:"phone_number" binding:"omitempty,min=7,max=20"`
	FullName    string `json:"full_name" binding:"required,min=2,max=100"`
	Password    string `json:"password" binding:"required"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type SetPinRequest struct {
	Pin string `json:"pin" binding:"required,len=4"`
}

type AccountResponse struct {
	ID          uuid.UUID `json:"id"`
	Email       string    `json:"email"`
	PhoneNumber string    `json:"phone_number,omitempty"`
	FullName    string    `json:"full_name"`
	Role        string    `json:"role"`
	HasPin      bool      `json:"has_pin"`
	CreatedAt   time.Time `json:"created_at"`
}

type AuthResponse struct {
	Account      *AccountResponse `json:"account"`
	AccessToken  string           `json:"access_token"`
	RefreshToken string           `json:"refresh_token"`
}

func toAccountResponse(a *domain.Account) *AccountResponse {
	return &AccountResponse{
		ID:          a.ID,
		Email:       a.Email,
		PhoneNumber: a.PhoneNumber,
		FullName:    a.FullName,
		Role:        a.Role,
		HasPin:      a.HasPin(),
		CreatedAt:   a.CreatedAt,
	}
}
