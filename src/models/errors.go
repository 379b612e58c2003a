package models

import (
	"errors"
	"strings"
	"time"

	"google.golang.org/api/googleapi"
)

// QuotaBackoff is the fixed wait applied after a rate-limit failure before
// the runtime reports the sentinel result.
const QuotaBackoff = 10 * time.Second

// ErrRecursionLimit marks an exchange that exceeded its tool-call budget.
var ErrRecursionLimit = errors.New("recursion limit exceeded")

// IsQuota reports whether err indicates a rate-limit or quota condition on
// any supported backend.
func IsQuota(err error) bool {
	if err == nil {
		return false
	}
	var gerr *googleapi.Error
	if errors.As(err, &gerr) && (gerr.Code == 429 || gerr.Code == 503) {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, marker := range []string{
		"429",
		"quota",
		"rate limit",
		"rate_limit",
		"resource exhausted",
		"resource_exhausted",
		"too many requests",
	} {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}

// IsRecursionLimit reports whether err is the tool-call step budget being
// exceeded, either ours or a backend's own safety valve.
func IsRecursionLimit(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrRecursionLimit) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "recursion limit") || strings.Contains(msg, "step limit")
}
