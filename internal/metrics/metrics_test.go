package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRegisterIsIdempotent(t *testing.T) {
	assert.NotPanics(t, func() {
		Register()
		Register()
	})
}

func TestProviderCounters(t *testing.T) {
	before := testutil.ToFloat64(providerRequests.WithLabelValues("PROVIDER_A", OutcomeHTTPError))
	ObserveProviderRequest("PROVIDER_A", OutcomeHTTPError, 20*time.Millisecond)
	after := testutil.ToFloat64(providerRequests.WithLabelValues("PROVIDER_A", OutcomeHTTPError))
	assert.Equal(t, before+1, after)

	fb := testutil.ToFloat64(providerFallbacks)
	IncProviderFallback()
	assert.Equal(t, fb+1, testutil.ToFloat64(providerFallbacks))
}
