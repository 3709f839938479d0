package session

import "github.com/google/uuid"

// NewID generates a fresh session identifier.
func NewID() string {
	return uuid.NewString()
}
