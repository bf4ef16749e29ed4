package service

import (
	"context"
	"errors"
	"net/http"

	"carrental/internal/flutterwave"
)

// PaymentGateway defines the payment gateway contract.
type PaymentGateway interface {
	InitiatePayment(ctx context.Context, req flutterwave.PaymentRequest) (*flutterwave.PaymentLink, error)
	VerifyTransaction(ctx context.Context, transactionID string) (*flutterwave.Transaction, error)
}

// Ensure the Flutterwave client implements PaymentGateway.
var _ PaymentGateway = (*flutterwave.Client)(nil)

// verificationRejected reports whether a verification error means the gateway
// answered and did not confirm the charge, as opposed to being unreachable.
func verificationRejected(err error) bool {
	if errors.Is(err, flutterwave.ErrUnsuccessful) {
		return true
	}
	var apiErr *flutterwave.APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode < http.StatusInternalServerError
	}
	return false
}
