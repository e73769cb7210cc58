package payment

import "context"

// StatusOK is the success sentinel the provider appends to the callback
// redirect; anything else means the payer cancelled or the payment failed.
const StatusOK = "OK"

// Gateway abstracts the remote payment provider. Implementations keep no
// local state; compensation is always the caller's decision.
type Gateway interface {
	// CreateTransaction opens a transaction for amount (in the provider's
	// minor currency unit, rounded) and returns the authority token plus
	// the URL the payer must be redirected to.
	CreateTransaction(ctx context.Context, amount float64, description, callbackURL string, metadata map[string]any) (*CreateResult, error)

	// VerifyTransaction confirms a transaction after the payer returns.
	// The amount must match the one passed at creation. A replayed
	// verification yields ErrAlreadyVerified, not a failure.
	VerifyTransaction(ctx context.Context, amount float64, authority string) (*VerifyResult, error)
}
