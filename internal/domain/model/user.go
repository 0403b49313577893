package model

import "time"

type UserStatus string

const (
	UserStatusAllowed UserStatus = "allowed"
	UserStatusDenied  UserStatus = "denied"
)

// User holds the chat the bot talks back to and the access status.
type User struct {
	UserID    int64
	ChatID    int64
	Status    UserStatus
	CreatedAt time.Time
}
