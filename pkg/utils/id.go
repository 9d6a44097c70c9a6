package utils

import (
	"crypto/rand"
	"encoding/hex"

	"github.com/google/uuid"
)

// NewProfileID generates a profile identifier. Profile IDs are opaque,
// immutable and assigned once at creation.
func NewProfileID() string {
	return uuid.NewString()
}

// GenerateID generates a random hex ID for request tracing
func GenerateID() (string, error) {
	bytes := make([]byte, 16)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return hex.EncodeToString(bytes), nil
}
