// Tracing instrumentation for step execution.
package executor

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/vinayprograms/codeaudit/internal/plan"
	"github.com/vinayprograms/codeaudit/internal/telemetry"
)

// startStepSpan starts a span for one agent invocation.
func (e *Executor) startStepSpan(ctx context.Context, step plan.Step) (context.Context, trace.Span) {
	ctx, span := telemetry.Tracer().Start(ctx, telemetry.SpanStep)
	span.SetAttributes(
		attribute.Int("step.index", step.Index),
		attribute.String("step.title", step.Title),
		attribute.String("step.file", step.Filename),
		attribute.String("agent.name", e.agent.Name),
		attribute.String("agent.model", e.agent.Model),
	)
	return ctx, span
}

// endStepSpan records the outcome and ends the span.
func (e *Executor) endStepSpan(span trace.Span, out Outcome) {
	r := out.Result
	span.SetAttributes(
		attribute.Bool("step.success", r.Success),
		attribute.Int("step.exit_code", out.ExitCode),
		attribute.Int64("step.duration_ms", r.DurationMs),
		attribute.Int("tokens.input", r.Tokens.InputTokens),
		attribute.Int("tokens.output", r.Tokens.OutputTokens),
		attribute.Int("tokens.cache_read", r.Tokens.CacheReadTokens),
		attribute.Int("tokens.cache_write", r.Tokens.CacheWriteTokens),
	)
	if out.Err != nil {
		span.RecordError(out.Err)
		span.SetStatus(codes.Error, out.Err.Error())
	}
	span.End()
}
