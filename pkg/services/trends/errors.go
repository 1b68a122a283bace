package trends

import (
	"strings"

	"github.com/de-tools/trend-radar/pkg/models/domain"
)

// ClassifyError maps a failure message onto the retry/reporting taxonomy.
// Matching is case-insensitive substring, first hit wins.
func ClassifyError(message string) domain.ErrorKind {
	m := strings.ToLower(message)

	switch {
	case strings.Contains(m, "429"), strings.Contains(m, "too many requests"):
		return domain.ErrorRateLimit
	case strings.Contains(m, "empty"), strings.Contains(m, "no data"), strings.Contains(m, "none"):
		return domain.ErrorNoData
	case strings.Contains(m, "401"), strings.Contains(m, "403"),
		strings.Contains(m, "unauthorized"), strings.Contains(m, "forbidden"):
		return domain.ErrorAuth
	case strings.Contains(m, "connection"), strings.Contains(m, "timeout"), strings.Contains(m, "network"):
		return domain.ErrorNetwork
	default:
		return domain.ErrorUnknown
	}
}

func isRateLimit(err error) bool {
	return err != nil && ClassifyError(err.Error()) == domain.ErrorRateLimit
}
