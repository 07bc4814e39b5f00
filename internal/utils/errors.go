package utils

import "errors"

// Common application errors used across services.
var (
	ErrInvalidToken           = errors.New("INVALID_TOKEN")
	ErrInvalidClient          = errors.New("INVALID_CLIENT")
	ErrInvalidIP              = errors.New("INVALID_IP")
	ErrInvalidCredentials     = errors.New("INVALID_CREDENTIALS")
	ErrInactiveAccount        = errors.New("ACCOUNT_INACTIVE")
	ErrPaymentRequestNotFound = errors.New("PAYMENT_REQUEST_NOT_FOUND")
	ErrUnsupportedCurrency    = errors.New("UNSUPPORTED_CURRENCY")
	ErrMissingField           = errors.New("MISSING_FIELD")
	ErrInvalidAmount          = errors.New("INVALID_AMOUNT")
	ErrIncompleteCheckout     = errors.New("INCOMPLETE_CHECKOUT")
	ErrRequestFinalized       = errors.New("REQUEST_FINALIZED")
	ErrSubmissionInProgress   = errors.New("SUBMISSION_IN_PROGRESS")
	ErrContactRequired        = errors.New("CONTACT_REQUIRED")
	ErrClientExists           = errors.New("CLIENT_EXISTS")
	ErrClientNotFound         = errors.New("CLIENT_NOT_FOUND")
	ErrInvalidKeyType         = errors.New("INVALID_KEY_TYPE")
	ErrInvalidCallbackURL     = errors.New("INVALID_CALLBACK_URL")
	ErrInvalidSignature       = errors.New("INVALID_SIGNATURE")
)
