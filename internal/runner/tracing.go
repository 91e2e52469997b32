package runner

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/vinayprograms/codeaudit/internal/agents"
	"github.com/vinayprograms/codeaudit/internal/session"
	"github.com/vinayprograms/codeaudit/internal/telemetry"
)

// startRunSpan starts the span covering a whole audit.
func startRunSpan(ctx context.Context, auditType string, agent *agents.Resolved, steps int) (context.Context, trace.Span) {
	ctx, span := telemetry.Tracer().Start(ctx, telemetry.SpanRun)
	span.SetAttributes(
		attribute.String("audit.type", auditType),
		attribute.String("agent.name", agent.Name),
		attribute.String("agent.model", agent.Model),
		attribute.Int("audit.steps", steps),
	)
	return ctx, span
}

// endRunSpan records totals and ends the span.
func endRunSpan(span trace.Span, result *Result) {
	span.SetAttributes(
		attribute.String("audit.status", result.Status),
		attribute.Int("audit.executed", len(result.Results)),
		attribute.Int("tokens.input", result.Tokens.InputTokens),
		attribute.Int("tokens.output", result.Tokens.OutputTokens),
		attribute.Float64("audit.cost", result.Cost),
	)
	if result.Status == session.StatusComplete {
		span.SetStatus(codes.Ok, "")
	} else {
		span.SetStatus(codes.Error, result.Status)
	}
	span.End()
}
