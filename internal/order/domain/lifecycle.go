package domain

// Status transitions are deliberately permissive among pending, processing,
// shipped and delivered; the only hard rule is that a shipped or delivered
// order can never be cancelled. Tightening the forward path would change
// observable behavior, so it is left as-is.

// TransitionStatus applies a status change, enforcing the cancel guard.
func (o *Order) TransitionStatus(next OrderStatus) error {
	if !next.Valid() {
		return &ValidationError{Field: "status", Reason: "unknown value " + string(next)}
	}
	if next == StatusCancelled && (o.Status == StatusShipped || o.Status == StatusDelivered) {
		return &IllegalTransitionError{From: o.Status, To: next}
	}
	o.Status = next
	return nil
}

// Cancel moves the order to cancelled. Cancelling an already-cancelled
// order is a no-op, not an error.
func (o *Order) Cancel() error {
	if o.Status == StatusCancelled {
		return nil
	}
	return o.TransitionStatus(StatusCancelled)
}

// TransitionPayment applies a payment-status change. Payment status is
// independent of order status and has no ordering constraints.
func (o *Order) TransitionPayment(next PaymentStatus) error {
	if !next.Valid() {
		return &ValidationError{Field: "paymentStatus", Reason: "unknown value " + string(next)}
	}
	o.PaymentStatus = next
	return nil
}
