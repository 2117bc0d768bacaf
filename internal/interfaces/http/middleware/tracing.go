package middleware

import (
	"net/http"

	"github.com/erp/eca/internal/infrastructure/telemetry"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// TracingConfig holds configuration for the tracing middleware.
type TracingConfig struct {
	// ServiceName is the name of the service for trace identification.
	ServiceName string
	// Enabled controls whether tracing is active.
	Enabled bool
}

// TracingWithConfig returns OpenTelemetry tracing middleware. Span names
// follow "HTTP METHOD route"; SpanErrorMarker adds the ECA attributes.
func TracingWithConfig(cfg TracingConfig) gin.HandlerFunc {
	if !cfg.Enabled {
		return func(c *gin.Context) {
			c.Next()
		}
	}
	return otelgin.Middleware(cfg.ServiceName)
}

// SpanErrorMarker marks the server span as failed for 4xx and 5xx responses
// and records the event attributes set by the webhook handler. It must run
// inside the Tracing middleware.
func SpanErrorMarker() gin.HandlerFunc {
	return func(c *gin.Context) {
		span := trace.SpanFromContext(c.Request.Context())
		if span.IsRecording() {
			if id := contextString(c, RequestIDKey); id != "" {
				span.SetAttributes(attribute.String("request_id", id))
			}
		}

		c.Next()

		if !span.IsRecording() {
			return
		}
		if action := contextString(c, ActionKey); action != "" {
			span.SetAttributes(attribute.String(telemetry.SpanAttrAction, action))
		}
		if org := contextString(c, OrganizationIDKey); org != "" {
			span.SetAttributes(attribute.String(telemetry.SpanAttrOrganizationID, org))
		}

		status := c.Writer.Status()
		if status < http.StatusBadRequest {
			return
		}
		message := http.StatusText(status)
		if code := contextString(c, ErrorCodeKey); code != "" {
			message = code
			span.SetAttributes(attribute.String(telemetry.SpanAttrErrorCode, code))
		}
		span.SetStatus(codes.Error, message)
		span.SetAttributes(attribute.Int("http.status_code", status))
	}
}
