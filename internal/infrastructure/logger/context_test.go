package logger

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestFromContext(t *testing.T) {
	assert.NotNil(t, FromContext(context.Background()))

	l := zap.NewExample()
	assert.Same(t, l, FromContext(WithContext(context.Background(), l)))
}

func TestL_AddsCorrelationFields(t *testing.T) {
	core, recorded := observer.New(zapcore.InfoLevel)
	pp := uuid.New()

	tp := sdktrace.NewTracerProvider()
	ctx, span := tp.Tracer("test").Start(context.Background(), "price")
	defer span.End()

	ctx = WithContext(ctx, zap.New(core))
	ctx = WithRequestID(ctx, "req-1")
	ctx = WithJob(ctx, "pricing")
	ctx = WithPricingPoint(ctx, pp)

	L(ctx).Info("priced")

	entries := recorded.All()
	assert.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "req-1", fields["request_id"])
	assert.Equal(t, "pricing", fields["job"])
	assert.Equal(t, pp.String(), fields["pricing_point_id"])
	assert.Equal(t, span.SpanContext().TraceID().String(), fields["trace_id"])
	assert.Equal(t, GetTraceID(ctx), fields["trace_id"])
}

func TestFor_NoFields(t *testing.T) {
	base := zap.NewNop()
	assert.Same(t, base, For(context.Background(), base))
	assert.NotNil(t, For(context.Background(), nil))
	assert.Empty(t, GetTraceID(context.Background()))

	_, ok := GetPricingPointID(context.Background())
	assert.False(t, ok)
}
