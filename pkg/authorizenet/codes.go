package authorizenet

// Result codes of the top-level messages block.
const (
	ResultOK    = "Ok"
	ResultError = "Error"
)

// Transaction response codes.
const (
	ResponseCodeApproved      = "1"
	ResponseCodeDeclined      = "2"
	ResponseCodeError         = "3"
	ResponseCodeHeldForReview = "4"
)

// Message codes the integration reacts to.
const (
	CodeSuccessful       = "I00001"
	CodeDuplicateProfile = "E00039" // A duplicate customer payment profile already exists
	CodeRecordNotFound   = "E00040"
	CodeInvalidAuth      = "E00007" // User authentication failed due to invalid authentication values
	CodeTransactionError = "E00027" // The transaction was unsuccessful
)

// IsApproved reports whether a transaction response code means the charge went through.
func IsApproved(responseCode string) bool {
	return responseCode == ResponseCodeApproved
}

// IsHeldForReview reports whether the charge was accepted but is pending review.
func IsHeldForReview(responseCode string) bool {
	return responseCode == ResponseCodeHeldForReview
}

// IsDuplicateProfile reports whether a message code signals an already stored payment profile.
func IsDuplicateProfile(code string) bool {
	return code == CodeDuplicateProfile
}
