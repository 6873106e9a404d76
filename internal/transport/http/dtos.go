package http

import (
	"time"

	"github.com/google/uuid"
)

// GenericErrorResponse is the JSON shape of every error reply.
type GenericErrorResponse struct {
	Error string `json:"error"`
}

type StartRegistrationRequest struct {
	PhoneNumber string `json:"phone_number" validate:"required,e164"`
}

type CompleteRegistrationRequest struct {
	Name        string `json:"name" validate:"required,min=1,max=100"`
	PhoneNumber string `json:"phone_number" validate:"required,e164"`
	Code        string `json:"code" validate:"required,min=4,max=10"`
}

type StartLoginRequest struct {
	PhoneNumber string `json:"phone_number" validate:"required,e164"`
}

type CompleteLoginRequest struct {
	PhoneNumber string `json:"phone_number" validate:"required,e164"`
	Code        string `json:"code" validate:"required,min=4,max=10"`
}

type LoginResponse struct {
	AccessToken string       `json:"access_token"`
	User        UserResponse `json:"user"`
}

type UserResponse struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	PhoneNumber string    `json:"phone_number"`
	CreatedAt   time.Time `json:"created_at"`
}

type CreateGroupRequest struct {
	Name string `json:"name" validate:"required,min=1,max=100"`
}

type GroupResponse struct {
	ID              uuid.UUID `json:"id"`
	Name            string    `json:"name"`
	DedicatedNumber string    `json:"dedicated_number,omitempty"`
	MemberCount     int       `json:"member_count"`
	CreatedAt       time.Time `json:"created_at"`
}

type PostMessageRequest struct {
	Content string `json:"content" validate:"required,min=1,max=1600"`
}

type MessageResponse struct {
	ID         uuid.UUID `json:"id"`
	GroupID    uuid.UUID `json:"group_id"`
	SenderID   uuid.UUID `json:"sender_id"`
	SenderName string    `json:"sender_name,omitempty"`
	Content    string    `json:"content"`
	CreatedAt  time.Time `json:"created_at"`
}

type RegisterNumberRequest struct {
	Number string `json:"number" validate:"required,e164"`
}

type PoolNumberResponse struct {
	ID              uuid.UUID  `json:"id"`
	Number          string     `json:"number"`
	Status          string     `json:"status"`
	AssignedGroupID *uuid.UUID `json:"assigned_group_id,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
}

// WebhookResponse mirrors the acknowledgement the SMS provider expects.
type WebhookResponse struct {
	Message string `json:"message"`
}
