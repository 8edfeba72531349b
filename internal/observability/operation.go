package observability

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "folio"

// Operation tracks a store or server operation with a span, metrics, and timing.
type Operation struct {
	ctx     context.Context
	span    trace.Span
	metrics *Metrics
	name    string
	start   time.Time
	logger  *slog.Logger
}

// StartOperation begins tracking an operation. The returned context carries
// the operation span.
func StartOperation(ctx context.Context, m *Metrics, name string, attrs ...attribute.KeyValue) (*Operation, context.Context) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, name,
		trace.WithAttributes(attrs...))

	logger := slog.Default().With("operation", name)
	logger.DebugContext(ctx, "operation started")

	return &Operation{
		ctx:     ctx,
		span:    span,
		metrics: m,
		name:    name,
		start:   time.Now(),
		logger:  logger,
	}, ctx
}

// End finishes the operation, recording duration and status.
func (o *Operation) End(err error) {
	duration := time.Since(o.start).Seconds()
	status := "ok"
	if err != nil {
		status = "error"
		o.span.RecordError(err)
		o.span.SetStatus(codes.Error, err.Error())
		o.logger.ErrorContext(o.ctx, "operation failed", "error", err, "duration", duration)
	} else {
		o.logger.DebugContext(o.ctx, "operation completed", "duration", duration)
	}
	o.span.End()

	// Callers may run without metrics (tests, local tooling).
	if o.metrics != nil {
		o.metrics.OperationDuration.WithLabelValues(o.name, status).Observe(duration)
		o.metrics.OperationTotal.WithLabelValues(o.name, status).Inc()
	}
}
