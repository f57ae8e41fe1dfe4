package dto

import "priceactiontalk/internal/domain"

// UpdateProfileRequest carries the editable profile fields. Omitted fields are left unchanged.
type UpdateProfileRequest struct {
	FirstName            *string `json:"first_name" validate:"omitempty,max=100"`
	LastName             *string `json:"last_name" validate:"omitempty,max=100"`
	Bio                  *string `json:"bio" validate:"omitempty,max=500"`
	Timezone             *string `json:"timezone" validate:"omitempty,max=50"`
	Theme                *string `json:"theme" validate:"omitempty,oneof=light dark"`
	Language             *string `json:"language" validate:"omitempty,max=10"`
	NotificationsEnabled *bool   `json:"notifications_enabled"`
}

// ToDomain converts the request to a profile update
func (r UpdateProfileRequest) ToDomain() domain.ProfileUpdate {
	return domain.ProfileUpdate{
		FirstName:            r.FirstName,
		LastName:             r.LastName,
		Bio:                  r.Bio,
		Timezone:             r.Timezone,
		Theme:                r.Theme,
		Language:             r.Language,
		NotificationsEnabled: r.NotificationsEnabled,
	}
}

// ChangePasswordRequest represents the change password payload
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,min=8"`
}
