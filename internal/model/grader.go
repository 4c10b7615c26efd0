package model

import "time"

// Grader represents a grader/author account.
type Grader struct {
	ID           int       `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// GraderLoginRequest is the payload for grader authentication.
type GraderLoginRequest struct {
	Email    string `json:"email" binding:"required,email,max=255"`
	Password string `json:"password" binding:"required,min=6,max=128"`
}

// GraderLoginResponse is returned after successful grader login.
type GraderLoginResponse struct {
	Token  string `json:"token"`
	Grader Grader `json:"grader"`
}
