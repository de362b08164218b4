package common

import (
	"math/rand"
	"time"

	"github.com/google/uuid"
)

const referenceChars = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// GenerateTrxNo returns a short human-readable reference for statements and payouts.
func GenerateTrxNo() string {
	r := rand.New(rand.NewSource(time.Now().UnixNano()))

	result := make([]byte, 7)
	for i := range result {
		result[i] = referenceChars[r.Intn(len(referenceChars))]
	}
	return string(result)
}

// NewID returns a random identifier for stored records.
func NewID() string {
	return uuid.NewString()
}
