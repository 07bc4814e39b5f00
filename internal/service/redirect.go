package service

import (
	"net/url"
	"strings"

	"github.com/GTDGit/gtd_authnet/internal/models"
)

// Default redirect messages.
const (
	MessageSuccess  = "Success"
	MessageDeclined = "Declined"
)

// RedirectConfig holds the result page targets.
type RedirectConfig struct {
	SuccessPath string
	FailurePath string

	// Optional overrides applied when nothing more specific is supplied.
	RedirectTo      string
	RedirectMessage string
}

// RedirectOverrides are per-submission overrides. Empty fields are ignored.
type RedirectOverrides struct {
	RedirectTo      string `json:"redirectTo"`
	RedirectMessage string `json:"redirectMessage"`
}

// PaymentResult is the final payload of a submission.
type PaymentResult struct {
	RedirectTo     string                   `json:"redirectTo"`
	Error          string                   `json:"error,omitempty"`
	Status         models.StatusLabel       `json:"status"`
	RequestName    string                   `json:"requestName"`
	TransactionID  string                   `json:"transactionId,omitempty"`
	Processed      bool                     `json:"processed"`
	GatewayProfile *models.StoredProfileRef `json:"gatewayProfile,omitempty"`
	ProfileError   string                   `json:"profileError,omitempty"`
}

// RedirectResolver turns a final status into a redirect target.
type RedirectResolver struct {
	cfg RedirectConfig
}

// NewRedirectResolver creates a new RedirectResolver.
func NewRedirectResolver(cfg RedirectConfig) *RedirectResolver {
	return &RedirectResolver{cfg: cfg}
}

// Resolve builds the redirect target for label. The callback override
// wins over the submission override, which wins over configuration.
// Query parameters are appended with redirect_to first.
func (r *RedirectResolver) Resolve(label models.StatusLabel, callbackRedirect string, overrides RedirectOverrides) string {
	target, message := r.cfg.FailurePath, MessageDeclined
	if label != models.StatusLabelFailed {
		target, message = r.cfg.SuccessPath, MessageSuccess
	}

	redirectTo := firstNonEmpty(callbackRedirect, overrides.RedirectTo, r.cfg.RedirectTo)
	if m := firstNonEmpty(overrides.RedirectMessage, r.cfg.RedirectMessage); m != "" {
		message = m
	}

	params := make([]string, 0, 2)
	if redirectTo != "" {
		params = append(params, "redirect_to="+url.QueryEscape(redirectTo))
	}
	if message != "" {
		params = append(params, "redirect_message="+url.QueryEscape(message))
	}
	if len(params) == 0 {
		return target
	}

	sep := "?"
	if strings.Contains(target, "?") {
		sep = "&"
	}
	return target + sep + strings.Join(params, "&")
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
