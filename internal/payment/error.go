package payment

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrAlreadyVerified is the provider telling us a verification was replayed.
// It is an idempotent outcome, never a failure.
var ErrAlreadyVerified = errors.New("payment already verified")

// GatewayError carries the provider's result code and raw error payload so
// the caller can decide compensation.
type GatewayError struct {
	Code    int
	Message string
	Payload json.RawMessage
}

func (e *GatewayError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("gateway error (code %d): %s", e.Code, e.Message)
	}
	return fmt.Sprintf("gateway error (code %d)", e.Code)
}

// IsGatewayError reports whether err wraps a provider-side failure.
func IsGatewayError(err error) bool {
	var ge *GatewayError
	return errors.As(err, &ge)
}
