package fallback

import (
	"strings"

	contractx "github.com/pitchside/pitchside-agent/agent/contract"
)

// Classify maps a settled non-ok ToolResult to a failure cause. Rules
// apply first-match: timeouts and empty payloads are recognized from the
// result status, everything else from the error detail the tool surfaced.
func Classify(result contractx.ToolResult) contractx.FailureCause {
	switch result.Status {
	case contractx.StatusTimeout:
		return contractx.CauseTimeout
	case contractx.StatusEmpty:
		return contractx.CauseNoData
	}

	detail := strings.ToLower(result.ErrorDetail)
	switch {
	case strings.Contains(detail, "rate limit") || strings.Contains(detail, "429"):
		return contractx.CauseRateLimited
	case strings.Contains(detail, "parameters rejected") ||
		strings.Contains(detail, "invalid parameter") ||
		strings.Contains(detail, "schema"):
		return contractx.CauseBadParams
	case strings.Contains(detail, "no data"):
		return contractx.CauseNoData
	default:
		// Connection failures and upstream 5xx both land here.
		return contractx.CauseAPIError
	}
}
