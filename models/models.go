package models

import "time"

// Request payloads. Validation rules follow the validate tags; handlers run
// them through a shared validator instance before touching storage.

type RegisterRequest struct {
	Name     string `json:"name" validate:"required,max=100"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
	Role     string `json:"role" validate:"required,oneof=BUYER SELLER"`
	Mobile   string `json:"mobile" validate:"omitempty,len=10,numeric"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type ProfileUpdateRequest struct {
	Name            string `json:"name" validate:"required,max=100"`
	Email           string `json:"email" validate:"required,email"`
	Mobile          string `json:"mobile" validate:"omitempty,len=10,numeric"`
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword" validate:"omitempty,min=6"`
}

type AccountDeleteRequest struct {
	Password string `json:"password" validate:"required"`
}

type ProjectCreateRequest struct {
	Title       string    `json:"title" validate:"required,max=100"`
	Description string    `json:"description" validate:"required,max=2000"`
	BudgetMin   float64   `json:"budgetMin" validate:"required,gt=0"`
	BudgetMax   float64   `json:"budgetMax" validate:"required,gtefield=BudgetMin"`
	Deadline    time.Time `json:"deadline" validate:"required"`
	Department  string    `json:"department" validate:"required,max=100"`
}

type BidCreateRequest struct {
	ProjectID     int     `json:"projectId" validate:"required,gt=0"`
	Amount        float64 `json:"amount" validate:"required,gt=0"`
	EstimatedTime string  `json:"estimatedTime" validate:"required,max=100"`
	Message       string  `json:"message" validate:"required,max=2000"`
}

type StatusUpdateRequest struct {
	Status string `json:"status" validate:"required"`
}
