package authorizenet

import (
	"encoding/json"
	"fmt"
	"strings"
)

// InvalidError is returned when a request is rejected before it is sent,
// e.g. a malformed expiration date or a card number that fails the Luhn check.
type InvalidError struct {
	Field  string
	Reason string
}

func (e *InvalidError) Error() string {
	return fmt.Sprintf("authorizenet: invalid %s: %s", e.Field, e.Reason)
}

// ResponseError is returned when the gateway processed the request and
// rejected it, either at the API level or as a declined transaction.
type ResponseError struct {
	Messages            Messages
	TransactionResponse *TransactionResponse

	// CustomerPaymentProfileID is set when a duplicate payment profile is reported.
	CustomerPaymentProfileID string

	Raw json.RawMessage
}

func (e *ResponseError) Error() string {
	if e.TransactionResponse != nil && len(e.TransactionResponse.Errors) > 0 {
		texts := make([]string, 0, len(e.TransactionResponse.Errors))
		for _, te := range e.TransactionResponse.Errors {
			texts = append(texts, te.ErrorText)
		}
		return strings.Join(texts, "; ")
	}
	if len(e.Messages.Message) > 0 {
		return e.Messages.Message[0].Text
	}
	return "authorizenet: request failed"
}

// Code returns the first top-level message code.
func (e *ResponseError) Code() string {
	if len(e.Messages.Message) == 0 {
		return ""
	}
	return e.Messages.Message[0].Code
}

// HasTransactionResponse reports whether the gateway got far enough to
// produce a transaction verdict.
func (e *ResponseError) HasTransactionResponse() bool {
	return e.TransactionResponse != nil
}

// IsDuplicateProfile reports whether the error is the duplicate payment profile condition.
func (e *ResponseError) IsDuplicateProfile() bool {
	return IsDuplicateProfile(e.Code())
}
