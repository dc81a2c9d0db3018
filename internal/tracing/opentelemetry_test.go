package tracing

import (
	"context"
	"errors"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
)

func TestManagerDisabled(t *testing.T) {
	logger := logrus.New()
	m := NewManager(DefaultConfig(), logger)

	require.NoError(t, m.Initialize(context.Background()))
	require.NoError(t, m.Shutdown(context.Background()))
}

func TestManagerStdoutExporter(t *testing.T) {
	logger := logrus.New()
	cfg := DefaultConfig()
	cfg.Enabled = true
	cfg.UseStdout = true
	m := NewManager(cfg, logger)

	require.NoError(t, m.Initialize(context.Background()))
	defer func() {
		require.NoError(t, m.Shutdown(context.Background()))
	}()

	ctx, span := StartSpan(context.Background(), "test.operation",
		attribute.String("message.id", "m1"))
	assert.True(t, span.SpanContext().IsValid())
	RecordError(ctx, errors.New("boom"))
	AddSpanAttributes(ctx, attribute.Int("fragments", 2))
	span.End()
}

func TestStartSpanWithoutProvider(t *testing.T) {
	// Without an initialized provider the span is a no-op but must be safe.
	ctx, span := StartSpan(context.Background(), "noop")
	RecordError(ctx, errors.New("ignored"))
	span.End()
	assert.NotNil(t, ctx)
}
