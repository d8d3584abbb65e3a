package server

import (
	"context"
	"io"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/leslieo2/heartbeat-server/internal/observability"
	"github.com/leslieo2/heartbeat-server/internal/readiness"
)

// tracedCheck runs a readiness check inside its own span.
type tracedCheck struct {
	readiness.Checker
	tracer *observability.Tracer
}

func traceChecks(tracer *observability.Tracer, checks []readiness.Checker) []readiness.Checker {
	traced := make([]readiness.Checker, 0, len(checks))
	for _, c := range checks {
		traced = append(traced, &tracedCheck{Checker: c, tracer: tracer})
	}
	return traced
}

func (t *tracedCheck) Check(ctx context.Context) error {
	ctx, span := t.tracer.StartSpan(ctx, "readiness_check", attribute.String("check", t.Name()))
	defer span.End()

	err := t.Checker.Check(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}

// Close lets the prober release connections held by the wrapped check.
func (t *tracedCheck) Close() error {
	if c, ok := t.Checker.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
