package research

import (
	"errors"
	"strings"

	"github.com/timberline-data/enrich-cli/pkg/tavily"
)

// QuotaError wraps a provider error that indicates usage allowance
// exhaustion. It is fatal for the batch: the orchestrator halts instead
// of burning further quota on entities that will also fail.
type QuotaError struct {
	Err error
}

func (e *QuotaError) Error() string {
	return "provider quota exhausted: " + e.Err.Error()
}

func (e *QuotaError) Unwrap() error {
	return e.Err
}

// quotaPatterns are the substrings the research providers use to report
// billing problems. Neither provider has a typed error channel for
// this, so classification is best-effort string matching, kept isolated
// to this file.
var quotaPatterns = []string{
	"billing",
	"quota",
	"insufficient",
}

// IsQuotaExhausted reports whether err (or anything in its chain) marks
// provider quota exhaustion.
func IsQuotaExhausted(err error) bool {
	if err == nil {
		return false
	}

	var qe *QuotaError
	if errors.As(err, &qe) {
		return true
	}

	msg := strings.ToLower(err.Error())
	for _, p := range quotaPatterns {
		if strings.Contains(msg, p) {
			return true
		}
	}

	return false
}

// IsRateLimited reports whether err is a per-request rate limit, which
// is recoverable by waiting, unlike quota exhaustion.
func IsRateLimited(err error) bool {
	return err != nil && errors.Is(err, tavily.ErrRateLimited)
}
