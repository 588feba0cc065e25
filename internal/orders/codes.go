package orders

import (
	"strings"

	"github.com/google/uuid"
)

// NewOrderCode returns a short human-readable order reference.
func NewOrderCode() string {
	return "ORD-" + codeSuffix()
}

// NewSubOrderCode returns a short human-readable sub-order reference.
func NewSubOrderCode() string {
	return "SUB-" + codeSuffix()
}

func codeSuffix() string {
	return strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
}
