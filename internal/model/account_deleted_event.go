package model

import "time"

// AccountDeletedEvent is published by the user service when an account is
// removed. Delivery is at-least-once, so consumers must tolerate redelivery.
type AccountDeletedEvent struct {
	UserID     string    `json:"user_id" validate:"required"`
	Username   *string   `json:"username,omitempty"`
	Email      *string   `json:"email,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
	Reason     string    `json:"reason"`
}
