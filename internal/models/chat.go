package models

import "time"

// ChatMessage is one transcript entry of a session's conversation.
type ChatMessage struct {
	Role    string    `json:"role"` // user or assistant
	Content string    `json:"message"`
	At      time.Time `json:"timestamp"`
}
