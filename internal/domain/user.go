package domain

import "time"

// User is a directory entry. The engine only reads the directory to resolve
// escalation targets and assignees to display names and delivery addresses.
type User struct {
	ID          string    `json:"id"`
	DisplayName string    `json:"display_name"`
	Email       string    `json:"email"`
	CreatedAt   time.Time `json:"created_at"`
}
