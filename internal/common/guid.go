package common

import "github.com/google/uuid"

// GUID returns a new random identifier.
func GUID() string {
	return uuid.New().String()
}
