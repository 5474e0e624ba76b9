package ops

import (
	"crypto/rand"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/hpungsan/carbonmatch/internal/errors"
)

// Pagination limits
const (
	DefaultListLimit = 20
	MaxListLimit     = 100
)

// Pagination contains pagination metadata for list operations.
type Pagination struct {
	Limit   int  `json:"limit"`
	Offset  int  `json:"offset"`
	HasMore bool `json:"has_more"`
	Total   int  `json:"total"`
}

// Warning is a non-fatal problem found while reading inputs.
type Warning struct {
	Code    errors.ErrorCode `json:"code"`
	Message string           `json:"message"`
}

func warningFrom(err *errors.CarbonError) Warning {
	return Warning{Code: err.Code, Message: err.Message}
}

// generateULID generates a new ULID.
func generateULID() (string, error) {
	entropy := ulid.Monotonic(rand.Reader, 0)
	id, err := ulid.New(ulid.Timestamp(time.Now()), entropy)
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

// ValidRunID reports whether id is a well-formed run ULID.
func ValidRunID(id string) bool {
	_, err := ulid.ParseStrict(id)
	return err == nil
}
