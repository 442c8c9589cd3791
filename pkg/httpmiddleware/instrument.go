package httpmiddleware

import (
	"net/http"
	"time"

	"github.com/go-faster/sdk/app"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Instrument wraps the handler with OpenTelemetry HTTP instrumentation
// (server spans plus the standard duration and size metrics) using the
// providers from m.
func Instrument(operation string, m *app.Telemetry) Middleware {
	return func(next http.Handler) http.Handler {
		return otelhttp.NewHandler(next, operation,
			otelhttp.WithTracerProvider(m.TracerProvider()),
			otelhttp.WithMeterProvider(m.MeterProvider()),
		)
	}
}

// Metrics records a request counter and latency histogram per method and
// status class, complementing the otelhttp defaults with low-cardinality
// series suitable for alerting.
func Metrics(m *app.Telemetry) Middleware {
	meter := m.MeterProvider().Meter("storefront/httpmiddleware")

	requests, err := meter.Int64Counter("http.server.request.total",
		metric.WithDescription("Completed HTTP requests."),
	)
	if err != nil {
		requests = nil
	}
	latency, err := meter.Float64Histogram("http.server.request.seconds",
		metric.WithDescription("HTTP request latency in seconds."),
		metric.WithUnit("s"),
	)
	if err != nil {
		latency = nil
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w}
			next.ServeHTTP(rec, r)

			status := rec.status
			if status == 0 {
				status = http.StatusOK
			}
			attrs := metric.WithAttributes(
				attribute.String("http.method", r.Method),
				attribute.String("http.status_class", statusClass(status)),
			)
			if requests != nil {
				requests.Add(r.Context(), 1, attrs)
			}
			if latency != nil {
				latency.Record(r.Context(), time.Since(start).Seconds(), attrs)
			}
		})
	}
}

func statusClass(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}
