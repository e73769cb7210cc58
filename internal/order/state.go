package order

// State is a reachable (orderStatus, paymentStatus) pair. Transitions are
// validated against an explicit table at every mutation site instead of ad
// hoc field assignment.
type State struct {
	Order   OrderStatus
	Payment PaymentStatus
}

func (o *Order) State() State {
	return State{Order: o.OrderStatus, Payment: o.PaymentStatus}
}

var transitions = map[State][]State{
	// Fresh checkout: payment succeeds, fails, or the user backs out.
	{StatusPending, PaymentPending}: {
		{StatusProcessing, PaymentCompleted},
		{StatusPending, PaymentFailed},
		{StatusCancelled, PaymentPending},
	},
	// (pending, failed) is terminal here; only the reconciler removes it.
	// Fulfilment track after a completed payment.
	{StatusProcessing, PaymentCompleted}: {
		{StatusShipped, PaymentCompleted},
	},
	{StatusShipped, PaymentCompleted}: {
		{StatusDelivered, PaymentCompleted},
	},
}

// CanTransition reports whether the move from one state to another is in
// the transition table.
func CanTransition(from, to State) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}
