package authorizenet

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// ExpirationDate builds the YYYY-MM expiration the API expects from a
// month ("1" or "01") and a two or four digit year.
func ExpirationDate(month, year string) (string, error) {
	month = strings.TrimSpace(month)
	year = strings.TrimSpace(year)

	m, err := strconv.Atoi(month)
	if err != nil || m < 1 || m > 12 {
		return "", &InvalidError{Field: "expirationDate", Reason: fmt.Sprintf("bad month %q", month)}
	}
	if !isDigits(year) || (len(year) != 2 && len(year) != 4) {
		return "", &InvalidError{Field: "expirationDate", Reason: fmt.Sprintf("bad year %q", year)}
	}
	if len(year) == 2 {
		year = "20" + year
	}
	return fmt.Sprintf("%s-%02d", year, m), nil
}

// maxAmountScale is the number of fraction digits the API accepts on amounts.
const maxAmountScale = 4

// validateTransaction applies the schema checks the gateway would otherwise
// reject after a round trip.
func validateTransaction(req *TransactionRequest) error {
	amount, err := decimal.NewFromString(req.Amount)
	if err != nil || !amount.IsPositive() {
		return &InvalidError{Field: "amount", Reason: fmt.Sprintf("must be a positive decimal, got %q", req.Amount)}
	}
	if amount.Exponent() < -maxAmountScale {
		return &InvalidError{Field: "amount", Reason: fmt.Sprintf("at most %d decimal places, got %q", maxAmountScale, req.Amount)}
	}

	switch {
	case req.Payment != nil && req.Profile != nil:
		return &InvalidError{Field: "payment", Reason: "card and profile are mutually exclusive"}
	case req.Payment != nil && req.Payment.CreditCard != nil:
		return validateCard(req.Payment.CreditCard, true)
	case req.Profile != nil:
		if req.Profile.CustomerProfileID == "" || req.Profile.PaymentProfile == nil || req.Profile.PaymentProfile.PaymentProfileID == "" {
			return &InvalidError{Field: "profile", Reason: "customer and payment profile ids are required"}
		}
		return nil
	default:
		return &InvalidError{Field: "payment", Reason: "missing payment source"}
	}
}

func validateCard(card *CreditCard, requireCode bool) error {
	n := card.CardNumber
	if !isDigits(n) || len(n) < 13 || len(n) > 19 {
		return &InvalidError{Field: "cardNumber", Reason: "must be 13 to 19 digits"}
	}
	if !luhnValid(n) {
		return &InvalidError{Field: "cardNumber", Reason: "failed checksum"}
	}
	exp := card.ExpirationDate
	if len(exp) != 7 || exp[4] != '-' || !isDigits(exp[:4]) || !isDigits(exp[5:]) {
		return &InvalidError{Field: "expirationDate", Reason: fmt.Sprintf("expected YYYY-MM, got %q", exp)}
	}
	if card.CardCode == "" {
		if requireCode {
			return &InvalidError{Field: "cardCode", Reason: "required"}
		}
		return nil
	}
	if !isDigits(card.CardCode) || len(card.CardCode) < 3 || len(card.CardCode) > 4 {
		return &InvalidError{Field: "cardCode", Reason: "must be 3 or 4 digits"}
	}
	return nil
}

func luhnValid(number string) bool {
	sum := 0
	double := false
	for i := len(number) - 1; i >= 0; i-- {
		d := int(number[i] - '0')
		if double {
			d *= 2
			if d > 9 {
				d -= 9
			}
		}
		sum += d
		double = !double
	}
	return sum%10 == 0
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
