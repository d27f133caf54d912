package middleware

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// TracingConfig holds configuration for the tracing middleware
type TracingConfig struct {
	// ServiceName identifies this service on request spans
	ServiceName string
	// Enabled controls whether tracing is active
	Enabled bool
}

// Tracing returns request tracing middleware built on otelgin. The request
// span is enriched with the request ID and, once authentication has run,
// the operator. With tracing disabled the middleware is a pass-through.
func Tracing(cfg TracingConfig) gin.HandlerFunc {
	if !cfg.Enabled {
		return func(c *gin.Context) {
			c.Next()
		}
	}

	base := otelgin.Middleware(cfg.ServiceName)
	return func(c *gin.Context) {
		base(c)

		span := trace.SpanFromContext(c.Request.Context())
		if !span.IsRecording() {
			return
		}
		if requestID := c.GetString(RequestIDKey); requestID != "" {
			span.SetAttributes(attribute.String("request_id", requestID))
		}
		if operatorID := c.GetString(OperatorIDKey); operatorID != "" {
			span.SetAttributes(attribute.String("operator_id", operatorID))
		}
	}
}
