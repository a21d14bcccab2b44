package staff

type CreateStaffRequest struct {
	Name     string `json:"name" validate:"required,max=150"`
	Email    string `json:"email" validate:"required,email,max=200"`
	Password string `json:"password" validate:"required,min=8,max=72"`
	Role     string `json:"role" validate:"required"`
	IsActive *bool  `json:"is_active,omitempty"`
}

type UpdateStaffRequest struct {
	Name     *string `json:"name,omitempty" validate:"omitempty,max=150"`
	Email    *string `json:"email,omitempty" validate:"omitempty,email,max=200"`
	Password *string `json:"password,omitempty" validate:"omitempty,min=8,max=72"`
	Role     *string `json:"role,omitempty"`
	IsActive *bool   `json:"is_active,omitempty"`
}

type ListStaffRequest struct {
	Role   string
	Search string
}
