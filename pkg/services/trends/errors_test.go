package trends

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/de-tools/trend-radar/pkg/models/domain"
)

func TestClassifyError(t *testing.T) {
	tests := []struct {
		message string
		want    domain.ErrorKind
	}{
		{"status 429: too many requests", domain.ErrorRateLimit},
		{"The request failed: Google returned a response with code 429", domain.ErrorRateLimit},
		{"response is empty", domain.ErrorNoData},
		{"no data for this term", domain.ErrorNoData},
		{"status 401: unauthorized", domain.ErrorAuth},
		{"status 403: forbidden", domain.ErrorAuth},
		{"connection failed: dial tcp: lookup failed", domain.ErrorNetwork},
		{"timeout awaiting response headers", domain.ErrorNetwork},
		{"something odd happened", domain.ErrorUnknown},
		{"", domain.ErrorUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.message, func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifyError(tt.message))
		})
	}
}

func TestClassifyError_PriorityOrder(t *testing.T) {
	// A 429 wrapped in connection noise still counts as rate limiting.
	assert.Equal(t, domain.ErrorRateLimit, ClassifyError("connection aborted after status 429"))
}

func TestIsRateLimit(t *testing.T) {
	assert.True(t, isRateLimit(errors.New("status 429: too many requests")))
	assert.False(t, isRateLimit(errors.New("status 401: unauthorized")))
	assert.False(t, isRateLimit(nil))
}
