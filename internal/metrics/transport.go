package metrics

import (
	"net/http"
	"time"

	"go.uber.org/zap"
)

// roundTripperFunc adapts a function to http.RoundTripper.
type roundTripperFunc func(*http.Request) (*http.Response, error)

func (f roundTripperFunc) RoundTrip(r *http.Request) (*http.Response, error) {
	return f(r)
}

// Transport returns a round tripper that records exchange request metrics.
// A nil next uses http.DefaultTransport.
func Transport(reg *Registry, next http.RoundTripper) http.RoundTripper {
	if next == nil {
		next = http.DefaultTransport
	}
	return roundTripperFunc(func(r *http.Request) (*http.Response, error) {
		reg.InFlightInc()
		defer reg.InFlightDec()

		start := time.Now()
		resp, err := next.RoundTrip(r)

		status := 0
		if resp != nil {
			status = resp.StatusCode
		}
		reg.RecordRequest(r.URL.Host, status, time.Since(start).Seconds())
		return resp, err
	})
}

// LoggingTransport returns a round tripper that logs every exchange request.
func LoggingTransport(logger *zap.Logger, next http.RoundTripper) http.RoundTripper {
	if next == nil {
		next = http.DefaultTransport
	}
	return roundTripperFunc(func(r *http.Request) (*http.Response, error) {
		start := time.Now()
		resp, err := next.RoundTrip(r)

		fields := []zap.Field{
			zap.String("method", r.Method),
			zap.String("url", r.URL.String()),
			zap.Duration("duration", time.Since(start)),
		}
		if err != nil {
			logger.Debug("source request failed", append(fields, zap.Error(err))...)
			return resp, err
		}
		logger.Debug("source request", append(fields, zap.Int("status", resp.StatusCode))...)
		return resp, nil
	})
}
