package delivery

import (
	"context"
	"crypto/x509"
	"errors"
	"net"
	"net/http"
	"net/url"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/stretchr/testify/require"
)

func respWithStatus(code int) *http.Response {
	return &http.Response{StatusCode: code}
}

func TestClassifySuccess(t *testing.T) {
	for _, code := range []int{200, 201, 202, 204, 299} {
		outcome, tag := Classify(respWithStatus(code), nil)
		require.Equal(t, OutcomeSuccess, outcome, "status %d", code)
		require.Empty(t, tag)
	}
}

func TestClassifyHTTPFailure(t *testing.T) {
	outcome, tag := Classify(respWithStatus(500), nil)
	require.Equal(t, OutcomeRetryable, outcome)
	require.Equal(t, "Internal Server Error", tag)

	outcome, tag = Classify(respWithStatus(404), nil)
	require.Equal(t, OutcomeRetryable, outcome)
	require.Equal(t, "Not Found", tag)
}

func TestClassifyTimeout(t *testing.T) {
	err := &url.Error{Op: "Post", URL: "https://example.com", Err: context.DeadlineExceeded}
	outcome, tag := Classify(nil, err)
	require.Equal(t, OutcomeRetryable, outcome)
	require.Equal(t, "Timeout", tag)
}

func TestClassifyConnectionError(t *testing.T) {
	opErr := &net.OpError{Op: "dial", Net: "tcp", Err: errors.New("connection refused")}
	err := &url.Error{Op: "Post", URL: "https://example.com", Err: opErr}
	outcome, tag := Classify(nil, err)
	require.Equal(t, OutcomeRetryable, outcome)
	require.Equal(t, "Connection error", tag)
}

func TestClassifyTLSFailureIsFatal(t *testing.T) {
	cases := []error{
		x509.UnknownAuthorityError{},
		x509.CertificateInvalidError{Reason: x509.Expired},
		x509.HostnameError{Host: "example.com"},
	}
	for _, certErr := range cases {
		err := &url.Error{Op: "Post", URL: "https://example.com", Err: certErr}
		outcome, tag := Classify(nil, err)
		require.Equal(t, OutcomeFatal, outcome, "%T", certErr)
		require.Equal(t, "SSL certificate verification failed", tag)
	}
}

func TestClassifyOtherErrorKeepsShortReason(t *testing.T) {
	err := &url.Error{Op: "Post", URL: "https://example.com", Err: errors.New("unsupported protocol scheme")}
	outcome, tag := Classify(nil, err)
	require.Equal(t, OutcomeRetryable, outcome)
	require.Equal(t, "unsupported protocol scheme", tag)
}

func TestRetryScheduleWalksIntervalsThenStops(t *testing.T) {
	schedule := newRetrySchedule([]time.Duration{10 * time.Second, 30 * time.Second, time.Minute})
	require.Equal(t, 10*time.Second, schedule.NextBackOff())
	require.Equal(t, 30*time.Second, schedule.NextBackOff())
	require.Equal(t, time.Minute, schedule.NextBackOff())
	require.Equal(t, backoff.Stop, schedule.NextBackOff())
	require.Equal(t, backoff.Stop, schedule.NextBackOff())

	schedule.Reset()
	require.Equal(t, 10*time.Second, schedule.NextBackOff())
}

func TestRetryScheduleEmpty(t *testing.T) {
	schedule := newRetrySchedule(nil)
	require.Equal(t, backoff.Stop, schedule.NextBackOff())
}
