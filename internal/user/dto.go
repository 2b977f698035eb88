// AngelaMos | 2026
// dto.go

package user

import (
	"time"
)

type CreateUserRequest struct {
	Email    string `json:"email"    validate:"required,email,max=255"`
	Password string `json:"password" validate:"required,min=8,max=128"`
	Name     string `json:"name"     validate:"required,min=1,max=100"`
	Locale   string `json:"locale"   validate:"omitempty,oneof=en ru"`
}

type UpdateUserRequest struct {
	Name   *string `json:"name,omitempty"   validate:"omitempty,min=1,max=100"`
	Locale *string `json:"locale,omitempty" validate:"omitempty,oneof=en ru"`
}

type UpdateUserRoleRequest struct {
	Role string `json:"role" validate:"required,oneof=registered standard premium administrator"`
}

type UserResponse struct {
	ID                 string     `json:"id"`
	Email              string     `json:"email"`
	Name               string     `json:"name"`
	Locale             string     `json:"locale"`
	Role               string     `json:"role"`
	SubscriptionStatus *string    `json:"subscription_status,omitempty"`
	PeriodEnd          *time.Time `json:"subscription_period_end,omitempty"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
}

type UserListResponse struct {
	Users []UserResponse `json:"users"`
}

type ListUsersParams struct {
	Page               int    `json:"page"`
	PageSize           int    `json:"page_size"`
	Search             string `json:"search"`
	Role               string `json:"role"`
	SubscriptionStatus string `json:"subscription_status"`
}

func (p *ListUsersParams) Normalize() {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.PageSize < 1 {
		p.PageSize = 20
	}
	if p.PageSize > 100 {
		p.PageSize = 100
	}
}

func (p *ListUsersParams) Offset() int {
	return (p.Page - 1) * p.PageSize
}

func ToUserResponse(u *User) UserResponse {
	return UserResponse{
		ID:                 u.ID,
		Email:              u.Email,
		Name:               u.Name,
		Locale:             u.Locale,
		Role:               u.Role,
		SubscriptionStatus: u.SubscriptionStatus,
		PeriodEnd:          u.PeriodEnd,
		CreatedAt:          u.CreatedAt,
		UpdatedAt:          u.UpdatedAt,
	}
}

func ToUserResponseList(users []User) []UserResponse {
	responses := make([]UserResponse, 0, len(users))
	for _, u := range users {
		responses = append(responses, ToUserResponse(&u))
	}
	return responses
}
