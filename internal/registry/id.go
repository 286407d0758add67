package registry

import "github.com/google/uuid"

// GenerateID generates a new unique identifier using UUID v4
func GenerateID() string {
	return uuid.New().String()
}
