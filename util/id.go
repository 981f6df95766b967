package util

import (
	"strings"

	"github.com/google/uuid"
)

// NewId returns a 32 character hex id.
func NewId() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}
